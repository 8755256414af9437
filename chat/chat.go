package chat

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/chatwire/chatwire/models"
	"github.com/chatwire/chatwire/store"
	"github.com/chatwire/chatwire/ws"
)

const (
	defaultPersistTimeout = 5 * time.Second
	defaultTypingTTL      = 10 * time.Second
)

// Chat owns the live relay state: the identity registry, the room
// membership table and the typing tracker. All mutations happen on the
// hub's event goroutine (packet, connect and disconnect callbacks are
// serialized there); the mutex additionally allows the HTTP API and the
// typing sweeper to read and expire state concurrently.
type Chat struct {
	mu sync.RWMutex
	// registry maps connection id to the presence record of the user
	// registered on that connection.
	registry map[string]*models.Presence
	// rooms maps room id to the set of joined connection ids.
	rooms map[string]map[string]struct{}
	// joined is the reverse index of rooms: connection id to the set of
	// room ids the connection has joined.
	joined map[string]map[string]struct{}
	// typing maps room id to the set of user ids currently typing, with
	// the time the entry was last refreshed.
	typing map[string]map[string]time.Time

	store store.MessageStore

	hub ws.HubActions

	logger *slog.Logger

	persistTimeout time.Duration

	typingTTL time.Duration

	now func() time.Time
}

type Option func(*Chat)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Chat) {
		c.logger = logger
	}
}

func WithPersistTimeout(d time.Duration) Option {
	return func(c *Chat) {
		c.persistTimeout = d
	}
}

// WithTypingTTL sets how long a typing entry survives without a refresh
// before the sweeper drops it. Zero disables server-side expiry.
func WithTypingTTL(d time.Duration) Option {
	return func(c *Chat) {
		c.typingTTL = d
	}
}

func New(messageStore store.MessageStore, opts ...Option) *Chat {
	c := &Chat{
		registry: make(map[string]*models.Presence),
		rooms:    make(map[string]map[string]struct{}),
		joined:   make(map[string]map[string]struct{}),
		typing:   make(map[string]map[string]time.Time),
		store:    messageStore,
		logger: slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})),
		persistTimeout: defaultPersistTimeout,
		typingTTL:      defaultTypingTTL,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Bind registers the chat's event handlers on the hub and wires the
// disconnect path. It must be called before the hub starts.
func (c *Chat) Bind(hub *ws.ConnHub) {
	c.hub = hub

	router := ws.NewRouter(hub)
	router.On(EventRegister, c.HandleRegister)
	router.On(EventJoinRoom, c.HandleJoinRoom)
	router.On(EventSendMessage, c.HandleSendMessage)
	router.On(EventTypingStart, c.HandleTypingStart)
	router.On(EventTypingEnd, c.HandleTypingEnd)
	router.On(EventMarkRead, c.HandleMarkRead)

	hub.OnPacket(func(a ws.HubActions, p *ws.InPacket) {
		router.Dispatch(p)
	})
	hub.OnDisconnect(func(a ws.HubActions, conn ws.Conn) {
		c.Disconnected(a, conn.ID())
	})
}

// Start runs the typing sweeper until ctx is cancelled.
func (c *Chat) Start(ctx context.Context) {
	if c.typingTTL <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(c.typingTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweepTyping()
			}
		}
	}()
}

// register inserts the presence record for the connection. A connection
// already registered with a different user id is left untouched.
// It reports whether the record was newly inserted.
func (c *Chat) register(connID string, p models.Presence) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.registry[connID]
	if ok {
		if existing.UserID == p.UserID {
			// re-registration with the same identity refreshes the record
			c.registry[connID] = &p
		}
		return false
	}
	c.registry[connID] = &p
	return true
}

// lookup returns the presence record registered on the connection.
func (c *Chat) lookup(connID string) (models.Presence, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.registry[connID]
	if !ok {
		return models.Presence{}, false
	}
	return *p, true
}

// remove deletes and returns the presence record of the connection.
func (c *Chat) remove(connID string) (models.Presence, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.registry[connID]
	if !ok {
		return models.Presence{}, false
	}
	delete(c.registry, connID)
	return *p, true
}

// join adds the connection to the room's member set. Joining twice has no
// additional effect. Rooms exist implicitly: the first join creates the set.
func (c *Chat) join(roomID, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	members, ok := c.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		c.rooms[roomID] = members
	}
	members[connID] = struct{}{}

	roomsOfConn, ok := c.joined[connID]
	if !ok {
		roomsOfConn = make(map[string]struct{})
		c.joined[connID] = roomsOfConn
	}
	roomsOfConn[roomID] = struct{}{}
}

// membersOf returns the connection ids currently joined to the room.
// An unknown room yields an empty slice, not an error.
func (c *Chat) membersOf(roomID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	members := make([]string, 0, len(c.rooms[roomID]))
	for id := range c.rooms[roomID] {
		members = append(members, id)
	}
	return members
}

// leaveAll removes the connection from every room it has joined and
// returns the ids of those rooms.
func (c *Chat) leaveAll(connID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	roomIDs := make([]string, 0, len(c.joined[connID]))
	for roomID := range c.joined[connID] {
		roomIDs = append(roomIDs, roomID)
		delete(c.rooms[roomID], connID)
	}
	delete(c.joined, connID)
	return roomIDs
}

// typingStart adds the user to the room's typing set and returns the full
// snapshot of typing user ids.
func (c *Chat) typingStart(roomID, userID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.typing[roomID]
	if !ok {
		set = make(map[string]time.Time)
		c.typing[roomID] = set
	}
	set[userID] = c.now()
	return typingSnapshot(set)
}

// typingStop removes the user from the room's typing set. It returns the
// full snapshot and whether the user was in the set.
func (c *Chat) typingStop(roomID, userID string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.typing[roomID]
	if !ok {
		return nil, false
	}
	_, present := set[userID]
	delete(set, userID)
	return typingSnapshot(set), present
}

func typingSnapshot(set map[string]time.Time) []string {
	users := make([]string, 0, len(set))
	for u := range set {
		users = append(users, u)
	}
	return users
}

// sweepTyping drops typing entries that have not been refreshed within the
// TTL and rebroadcasts the snapshot of every room that changed. It guards
// against a stale indicator from a client that stopped typing ungracefully
// without a disconnect.
func (c *Chat) sweepTyping() {
	cutoff := c.now().Add(-c.typingTTL)

	c.mu.Lock()
	expired := make(map[string][]string)
	for roomID, set := range c.typing {
		changed := false
		for userID, refreshed := range set {
			if refreshed.Before(cutoff) {
				delete(set, userID)
				changed = true
			}
		}
		if changed {
			expired[roomID] = typingSnapshot(set)
		}
	}
	c.mu.Unlock()

	for roomID, users := range expired {
		c.logger.Debug("typing entries expired", slog.String("room.id", roomID))
		c.hub.BroadcastToConns(&ws.OutPacket{
			Type: EventTypingUpdate,
			Body: TypingUpdateData{RoomID: roomID, Users: users},
		}, c.membersOf(roomID)...)
	}
}

// Online returns the presence records of currently-connected users,
// one record per user id.
func (c *Chat) Online() []models.Presence {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{}, len(c.registry))
	online := make([]models.Presence, 0, len(c.registry))
	for _, p := range c.registry {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		online = append(online, *p)
	}
	return online
}
