package models

import (
	"time"
)

const (
	// TextMessage indicates that the message body is a UTF-8 encoded string.
	TextMessage MessageType = "text"
	// ImageMessage indicates that the message body is a reference to an uploaded image.
	ImageMessage MessageType = "image"
	// VideoMessage indicates that the message body is a reference to an uploaded video.
	VideoMessage MessageType = "video"
	// VoiceMessage indicates that the message body is a reference to a voice recording.
	VoiceMessage MessageType = "voice"
)

// MessageType represents the type of a chat message.
// It is used to determine how the message body should be interpreted.
type MessageType = string

// ValidMessageType reports whether t is one of the supported message types.
func ValidMessageType(t MessageType) bool {
	switch t {
	case TextMessage, ImageMessage, VideoMessage, VoiceMessage:
		return true
	default:
		return false
	}
}

// Message represents a chat message sent by a user to a room.
// A message is immutable once created, except for the Read flag which
// flips to true exactly once and never reverts.
type Message struct {
	ID           string `json:"id"`
	RoomID       string `json:"room_id"`
	Sender       string `json:"sender"`
	SenderName   string `json:"sender_name"`
	SenderAvatar string `json:"sender_avatar"`
	// Body is the text of the message, or a media reference for
	// image/video/voice messages.
	Body   string      `json:"body"`
	Type   MessageType `json:"type"`
	SentAt time.Time   `json:"sent_at"`
	Read   bool        `json:"read"`
}
