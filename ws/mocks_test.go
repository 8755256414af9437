package ws

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type MockConn struct {
	id         string
	user       string
	in         chan *OutPacket
	done       chan struct{}
	hub        Hub
	reading    atomic.Bool
	writing    atomic.Bool
	closeDelay time.Duration

	mu         sync.Mutex
	outPackets []*OutPacket
	received   chan *OutPacket
}

func NewMockConn(id, user string, hub Hub) *MockConn {
	return &MockConn{
		id:       id,
		user:     user,
		in:       make(chan *OutPacket, 8),
		done:     make(chan struct{}),
		hub:      hub,
		received: make(chan *OutPacket, 8),
	}
}

func (c *MockConn) pass() chan<- *OutPacket {
	return c.in
}

func (c *MockConn) close() {
	if c.closeDelay > 0 {
		time.Sleep(c.closeDelay)
	}
	close(c.done)
}

func (c *MockConn) ID() string {
	return c.id
}

func (c *MockConn) User() string {
	return c.user
}

func (c *MockConn) readLoop() {
	c.reading.Store(true)
	defer c.reading.Store(false)
	<-c.done
}

func (c *MockConn) writeLoop() {
	c.writing.Store(true)
	defer c.writing.Store(false)
	for {
		select {
		case p := <-c.in:
			c.mu.Lock()
			c.outPackets = append(c.outPackets, p)
			c.mu.Unlock()
			c.received <- p
		case <-c.done:
			return
		}
	}
}

func (c *MockConn) packets() []*OutPacket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*OutPacket(nil), c.outPackets...)
}

type MockConnFactory struct {
	shouldSucceed bool
}

func (f *MockConnFactory) NewConn(w http.ResponseWriter, r *http.Request,
	hub Hub, user string) (Conn, bool) {
	if !f.shouldSucceed {
		return nil, false
	}
	return NewMockConn(uuid.New().String(), user, hub), true
}

type MockAuthenticator struct {
	user          string
	shouldSucceed bool
}

func (a *MockAuthenticator) Authenticate(w http.ResponseWriter, req *http.Request) (string, bool) {
	if !a.shouldSucceed {
		return "", false
	}
	return a.user, true
}
