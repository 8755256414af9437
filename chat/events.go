package chat

import (
	"github.com/chatwire/chatwire/models"
	"github.com/go-playground/validator/v10"
)

// Inbound event types (client to server).
const (
	EventRegister    = "register"
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
	EventTypingStart = "typing_start"
	EventTypingEnd   = "typing_end"
	EventMarkRead    = "mark_read"
)

// Outbound event types (server to client).
const (
	EventUserStatus   = "user_status"
	EventNewMessage   = "new_message"
	EventTypingUpdate = "typing_update"
	EventMessagesRead = "messages_read"
	EventError        = "error"
)

// Error codes carried by EventError packets.
const (
	CodeUnauthenticated    = "unauthenticated"
	CodeMalformedEvent     = "malformed_event"
	CodePersistenceFailure = "persistence_failure"
)

var validate = validator.New()

type RegisterData struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username" validate:"required"`
	Avatar   string `json:"avatar"`
}

type JoinRoomData struct {
	RoomID string `json:"room_id" validate:"required"`
}

type SendMessageData struct {
	RoomID  string             `json:"room_id" validate:"required"`
	Message string             `json:"message" validate:"required"`
	Type    models.MessageType `json:"type" validate:"required"`
}

type TypingData struct {
	RoomID string `json:"room_id" validate:"required"`
}

type MarkReadData struct {
	RoomID     string   `json:"room_id" validate:"required"`
	MessageIDs []string `json:"message_ids" validate:"required,min=1"`
}

type UserStatusData struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type TypingUpdateData struct {
	RoomID string   `json:"room_id"`
	Users  []string `json:"users"`
}

type MessagesReadData struct {
	RoomID     string   `json:"room_id"`
	MessageIDs []string `json:"message_ids"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
