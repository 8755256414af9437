package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chatwire/chatwire/models"
	"github.com/chatwire/chatwire/store"
	"github.com/chatwire/chatwire/ws"
	"github.com/google/uuid"
)

// HandleRegister activates presence for the connection and announces the
// user as online to every other connection.
func (c *Chat) HandleRegister(a ws.HubActions, p *ws.InPacket) error {
	var data RegisterData
	if !c.decode(a, p, &data) {
		return nil
	}

	// The handshake-verified user id wins over the payload; the payload id
	// is only used when the transport carries no identity.
	userID := p.User
	if userID == "" {
		userID = data.UserID
	}

	inserted := c.register(p.Sender, models.Presence{
		UserID:   userID,
		Username: data.Username,
		Avatar:   data.Avatar,
		Online:   true,
	})
	if !inserted {
		return nil
	}

	a.BroadcastExcept(&ws.OutPacket{
		Type: EventUserStatus,
		Body: UserStatusData{UserID: userID, Status: models.StatusOnline},
	}, p.Sender)

	return nil
}

// HandleJoinRoom adds the connection to the room's member set.
func (c *Chat) HandleJoinRoom(a ws.HubActions, p *ws.InPacket) error {
	var data JoinRoomData
	if !c.decode(a, p, &data) {
		return nil
	}

	c.join(data.RoomID, p.Sender)
	c.logger.Debug("joined room",
		slog.String("conn.id", p.Sender), slog.String("room.id", data.RoomID))
	return nil
}

// HandleSendMessage stamps, persists and fans out a message. The message is
// persisted before any broadcast; if persistence fails, nobody but the
// sender hears about the message.
func (c *Chat) HandleSendMessage(a ws.HubActions, p *ws.InPacket) error {
	var data SendMessageData
	if !c.decode(a, p, &data) {
		return nil
	}
	if !models.ValidMessageType(data.Type) {
		c.errAck(a, p.Sender, CodeMalformedEvent, "unsupported message type")
		return nil
	}

	sender, ok := c.lookup(p.Sender)
	if !ok {
		c.errAck(a, p.Sender, CodeUnauthenticated, "register before sending messages")
		return nil
	}

	input := store.MessageCreateInput{
		ID:           uuid.New().String(),
		RoomID:       data.RoomID,
		Sender:       sender.UserID,
		SenderName:   sender.Username,
		SenderAvatar: sender.Avatar,
		Body:         data.Message,
		Type:         data.Type,
		SentAt:       c.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(p.Context(), c.persistTimeout)
	defer cancel()
	message, err := c.store.Insert(ctx, input)
	if err != nil {
		c.errAck(a, p.Sender, CodePersistenceFailure, "message could not be stored")
		return fmt.Errorf("Insert: %w", err)
	}

	// The sender gets the echo too when it is joined to the room; clients
	// reconcile it against their optimistic copy by message id.
	a.BroadcastToConns(&ws.OutPacket{
		Type: EventNewMessage,
		Body: message,
	}, c.membersOf(data.RoomID)...)

	return nil
}

// HandleTypingStart adds the sender to the room's typing set and sends the
// full snapshot to the other members.
func (c *Chat) HandleTypingStart(a ws.HubActions, p *ws.InPacket) error {
	var data TypingData
	if !c.decode(a, p, &data) {
		return nil
	}

	sender, ok := c.lookup(p.Sender)
	if !ok {
		c.errAck(a, p.Sender, CodeUnauthenticated, "register before typing")
		return nil
	}

	users := c.typingStart(data.RoomID, sender.UserID)
	c.broadcastTyping(a, data.RoomID, users, p.Sender)
	return nil
}

// HandleTypingEnd removes the sender from the room's typing set and sends
// the full snapshot to the other members.
func (c *Chat) HandleTypingEnd(a ws.HubActions, p *ws.InPacket) error {
	var data TypingData
	if !c.decode(a, p, &data) {
		return nil
	}

	sender, ok := c.lookup(p.Sender)
	if !ok {
		c.errAck(a, p.Sender, CodeUnauthenticated, "register before typing")
		return nil
	}

	users, _ := c.typingStop(data.RoomID, sender.UserID)
	c.broadcastTyping(a, data.RoomID, users, p.Sender)
	return nil
}

// HandleMarkRead flips the read flag of the given messages and notifies all
// room members. The broadcast carries the full requested id list, not just
// the ids that changed state.
func (c *Chat) HandleMarkRead(a ws.HubActions, p *ws.InPacket) error {
	var data MarkReadData
	if !c.decode(a, p, &data) {
		return nil
	}

	ctx, cancel := context.WithTimeout(p.Context(), c.persistTimeout)
	defer cancel()
	if _, err := c.store.MarkRead(ctx, data.RoomID, data.MessageIDs); err != nil {
		c.errAck(a, p.Sender, CodePersistenceFailure, "read receipts could not be stored")
		return fmt.Errorf("MarkRead: %w", err)
	}

	a.BroadcastToConns(&ws.OutPacket{
		Type: EventMessagesRead,
		Body: MessagesReadData{RoomID: data.RoomID, MessageIDs: data.MessageIDs},
	}, c.membersOf(data.RoomID)...)

	return nil
}

// Disconnected purges the connection from every table. The order matters:
// typing state is cleared and rebroadcast while the membership table still
// knows the other members, then membership is dropped, then presence. The
// hub has already removed the connection, so broadcasts cannot reach it.
func (c *Chat) Disconnected(a ws.HubActions, connID string) {
	presence, registered := c.lookup(connID)

	if registered {
		for _, roomID := range c.roomsOf(connID) {
			// another connection of the same user keeps the typing entry alive
			if c.userStillInRoom(roomID, connID, presence.UserID) {
				continue
			}
			users, present := c.typingStop(roomID, presence.UserID)
			if !present {
				continue
			}
			c.broadcastTyping(a, roomID, users, connID)
		}
	}

	c.leaveAll(connID)

	if _, ok := c.remove(connID); ok {
		a.Broadcast(&ws.OutPacket{
			Type: EventUserStatus,
			Body: UserStatusData{UserID: presence.UserID, Status: models.StatusOffline},
		})
	}

	c.logger.Info("connection cleaned up",
		slog.String("conn.id", connID), slog.Bool("registered", registered))
}

// userStillInRoom reports whether the user is registered on another
// connection that is joined to the room.
func (c *Chat) userStillInRoom(roomID, exceptConnID, userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for connID := range c.rooms[roomID] {
		if connID == exceptConnID {
			continue
		}
		if p, ok := c.registry[connID]; ok && p.UserID == userID {
			return true
		}
	}
	return false
}

// roomsOf returns the ids of the rooms the connection has joined.
func (c *Chat) roomsOf(connID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	roomIDs := make([]string, 0, len(c.joined[connID]))
	for roomID := range c.joined[connID] {
		roomIDs = append(roomIDs, roomID)
	}
	return roomIDs
}

// broadcastTyping sends the room's typing snapshot to every member except
// the connection that triggered the change.
func (c *Chat) broadcastTyping(a ws.HubActions, roomID string, users []string, exceptConnID string) {
	members := c.membersOf(roomID)
	receivers := members[:0]
	for _, id := range members {
		if id == exceptConnID {
			continue
		}
		receivers = append(receivers, id)
	}
	a.BroadcastToConns(&ws.OutPacket{
		Type: EventTypingUpdate,
		Body: TypingUpdateData{RoomID: roomID, Users: users},
	}, receivers...)
}

// decode unmarshals and validates an inbound payload. On failure it sends a
// malformed-event acknowledgment to the sender and reports false.
func (c *Chat) decode(a ws.HubActions, p *ws.InPacket, v interface{}) bool {
	if err := json.Unmarshal(p.Body, v); err != nil {
		c.errAck(a, p.Sender, CodeMalformedEvent, fmt.Sprintf("%s: invalid payload", p.Type))
		return false
	}
	if err := validate.Struct(v); err != nil {
		c.errAck(a, p.Sender, CodeMalformedEvent, fmt.Sprintf("%s: missing required fields", p.Type))
		return false
	}
	return true
}

func (c *Chat) errAck(a ws.HubActions, connID, code, message string) {
	a.BroadcastToConns(&ws.OutPacket{
		Type: EventError,
		Body: ErrorData{Code: code, Message: message},
	}, connID)
}
