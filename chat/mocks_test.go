package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/chatwire/chatwire/models"
	"github.com/chatwire/chatwire/store"
	"github.com/chatwire/chatwire/ws"
)

const (
	toConns = "to_conns"
	except  = "except"
	toAll   = "all"
)

type sentPacket struct {
	kind string
	// receivers holds the connection ids for kind == toConns, or the
	// excluded connection id for kind == except.
	receivers []string
	packet    *ws.OutPacket
}

// mockHub records broadcasts instead of delivering them.
type mockHub struct {
	mu   sync.Mutex
	sent []sentPacket
}

func newMockHub() *mockHub {
	return &mockHub{}
}

func (h *mockHub) BroadcastToConns(p *ws.OutPacket, connIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentPacket{kind: toConns, receivers: connIDs, packet: p})
}

func (h *mockHub) BroadcastExcept(p *ws.OutPacket, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentPacket{kind: except, receivers: []string{connID}, packet: p})
}

func (h *mockHub) Broadcast(p *ws.OutPacket) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentPacket{kind: toAll, packet: p})
}

func (h *mockHub) packets() []sentPacket {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]sentPacket(nil), h.sent...)
}

// ofType returns the recorded packets of the given event type.
func (h *mockHub) ofType(eventType string) []sentPacket {
	var out []sentPacket
	for _, s := range h.packets() {
		if s.packet.Type == eventType {
			out = append(out, s)
		}
	}
	return out
}

func (h *mockHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = nil
}

// memoryStore is an in-memory MessageStore with failure injection.
type memoryStore struct {
	mu       sync.Mutex
	messages map[string][]models.Message
	failWith error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{messages: make(map[string][]models.Message)}
}

func (s *memoryStore) Insert(ctx context.Context, input store.MessageCreateInput) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	m := models.Message{
		ID:           input.ID,
		RoomID:       input.RoomID,
		Sender:       input.Sender,
		SenderName:   input.SenderName,
		SenderAvatar: input.SenderAvatar,
		Body:         input.Body,
		Type:         input.Type,
		SentAt:       input.SentAt,
	}
	s.messages[input.RoomID] = append(s.messages[input.RoomID], m)
	return &m, nil
}

func (s *memoryStore) RoomMessages(ctx context.Context, roomID string, ordering store.Ordering, offset, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return append([]models.Message(nil), s.messages[roomID]...), nil
}

func (s *memoryStore) MarkRead(ctx context.Context, roomID string, messageIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var changed []string
	for i := range s.messages[roomID] {
		m := &s.messages[roomID][i]
		for _, id := range messageIDs {
			if m.ID == id && !m.Read {
				m.Read = true
				changed = append(changed, id)
			}
		}
	}
	return changed, nil
}

func packet(t *testing.T, connID, user, eventType string, body interface{}) *ws.InPacket {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return &ws.InPacket{Sender: connID, User: user, Type: eventType, Body: b}
}
