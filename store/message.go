package store

import (
	"context"
	"errors"
	"time"

	"github.com/chatwire/chatwire/models"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidMessage is returned when a message input fails validation.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrInvalidMessageType is returned when the type of the message is not supported.
	ErrInvalidMessageType = errors.New("invalid message type")
)

var validate = validator.New()

// Ordering controls the order in which room history is returned.
type Ordering int

const (
	// Ascending orders messages oldest first.
	Ascending Ordering = iota
	// Descending orders messages newest first.
	Descending
)

// MessageStore is the storage collaborator for the relay. The relay's
// in-memory view is a cache; the persisted history here is the truth.
type MessageStore interface {
	// Insert persists a fully-stamped message and returns it.
	// If the message input is invalid, it returns ErrInvalidMessage.
	// If the message type is not supported, it returns ErrInvalidMessageType.
	Insert(ctx context.Context, input MessageCreateInput) (*models.Message, error)

	// RoomMessages returns the messages of a room ordered by sent time.
	// Reading offset and limit can be specified to paginate the results.
	// A non-positive limit is set to 100; a negative offset is set to 0.
	// A nil slice is returned for a room with no messages; an unknown
	// room is not an error.
	RoomMessages(ctx context.Context, roomID string, ordering Ordering, offset, limit int) ([]models.Message, error)

	// MarkRead flips the read flag of the given messages in the room to true.
	// Marking an already-read message is a no-op; ids that do not exist in
	// the room's history are silently skipped. It returns the ids that
	// actually changed state.
	MarkRead(ctx context.Context, roomID string, messageIDs []string) ([]string, error)
}

// MessageCreateInput represents the input for persisting a message.
// The id, sender identity and sent time are stamped by the relay,
// never taken from the client.
type MessageCreateInput struct {
	ID           string             `json:"id" validate:"required"`
	RoomID       string             `json:"room_id" validate:"required"`
	Sender       string             `json:"sender" validate:"required"`
	SenderName   string             `json:"sender_name"`
	SenderAvatar string             `json:"sender_avatar"`
	Body         string             `json:"body" validate:"required"`
	Type         models.MessageType `json:"type" validate:"required"`
	SentAt       time.Time          `json:"sent_at" validate:"required"`
}

// Validate validates the message input.
func (m *MessageCreateInput) Validate() error {
	if !models.ValidMessageType(m.Type) {
		return ErrInvalidMessageType
	}
	if err := validate.Struct(m); err != nil {
		return ErrInvalidMessage
	}
	return nil
}
