package ws

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

type HubState int

const (
	StateClosed HubState = iota
	StateClosing
	StateRunning
)

// ConnHub owns the set of live connections and serializes all connection
// events. Connects, disconnects and inbound packets are all handled on a
// single goroutine, so packet handlers never race each other.
type ConnHub struct {
	// conns maps connection id to connection. Connection ids are unique,
	// a user with multiple connections appears once per connection.
	conns map[string]Conn

	connectChan chan Conn

	disconnectChan chan Conn
	// in is used to send incoming packets to the hub goroutine
	in chan *InPacket
	// exit is used to signal that the hub should stop accepting new connections and exit
	exit chan struct{}

	logger *slog.Logger

	onConnect func(HubActions, Conn)

	onDisconnect func(HubActions, Conn)

	baseCtx context.Context

	wg sync.WaitGroup

	onPacket func(HubActions, *InPacket)

	connFactory ConnFactory

	authenticator Authenticator

	closeTimeout time.Duration
	// state indicates whether the hub goroutine is running.
	state HubState
	mu    sync.RWMutex
}

func New(cf ConnFactory, a Authenticator, opts ...HubOption) *ConnHub {
	hub := &ConnHub{
		conns:          make(map[string]Conn),
		connectChan:    make(chan Conn),
		disconnectChan: make(chan Conn),
		in:             make(chan *InPacket),
		exit:           make(chan struct{}),
		logger: slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})),
		baseCtx:       context.Background(),
		closeTimeout:  time.Second * 10,
		authenticator: a,
		connFactory:   cf,
		state:         StateClosed,
	}

	for _, opt := range opts {
		opt(hub)
	}

	return hub
}

type HubOption func(*ConnHub)

func WithLogger(logger *slog.Logger) HubOption {
	return func(h *ConnHub) {
		h.logger = logger
	}
}

func WithBaseContext(ctx context.Context) HubOption {
	return func(h *ConnHub) {
		h.baseCtx = ctx
	}
}

func WithCloseTimeout(d time.Duration) HubOption {
	return func(h *ConnHub) {
		h.closeTimeout = d
	}
}

func (hub *ConnHub) Start() {
	hub.wg.Add(1)
	go func() {
		defer func() {
			hub.wg.Done()
			hub.logger.Info("hub stopped")
		}()
		hub.start()
	}()
	hub.logger.Info("hub started")
}

func (hub *ConnHub) start() {
	hub.mu.Lock()
	hub.state = StateRunning
	hub.mu.Unlock()
	defer func() {
		hub.mu.Lock()
		hub.state = StateClosed
		hub.mu.Unlock()
	}()
	for {

		select {
		case <-hub.exit:
			return
		case newC := <-hub.connectChan:
			hub.connect(newC)
		case c := <-hub.disconnectChan:
			hub.disconnect(c)
		case packetIn := <-hub.in:
			packetIn.context = hub.baseCtx
			if hub.onPacket != nil {
				hub.onPacket(hub, packetIn)
			}
		}

	}
}

func (hub *ConnHub) OnPacket(f func(HubActions, *InPacket)) {
	hub.onPacket = f
}

func (hub *ConnHub) OnConnect(f func(HubActions, Conn)) {
	hub.onConnect = f
}

func (hub *ConnHub) OnDisconnect(f func(HubActions, Conn)) {
	hub.onDisconnect = f
}

// Close start closing the hub.
// The closing sequence is as following:
//  1. Deregister every connection from the hub then signal the connection to close.
//  2. Signal the hub main goroutine to exit.
//
// It waits for the clean up to complete or until the close timeout.
func (hub *ConnHub) Close() {
	hub.mu.Lock()
	if hub.state != StateRunning {
		hub.mu.Unlock()
		return
	}
	hub.state = StateClosing
	hub.mu.Unlock()
	hub.logger.Info("closing connections...")
	hub.mu.Lock()
	conns := make([]Conn, 0, len(hub.conns))
	for _, c := range hub.conns {
		conns = append(conns, c)
	}
	hub.mu.Unlock()
	for _, c := range conns {
		hub.disconnect(c)
	}
	hub.logger.Info("exiting hub...")
	close(hub.exit)
	timer := time.NewTimer(hub.closeTimeout)
	defer timer.Stop()
	done := make(chan struct{})
	go func() {
		hub.wg.Wait()
		close(done)
	}()

	select {
	case <-timer.C:
		hub.logger.Info("hub closed with timeout")
	case <-done:
		hub.logger.Info("hub closed gracefully")
	}
}

func (hub *ConnHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := hub.authenticator.Authenticate(w, r)
	if !ok {
		hub.logger.Debug("handshake rejected by authenticator")
		return
	}
	conn, ok := hub.connFactory.NewConn(w, r, hub, user)
	if !ok {
		return
	}
	hub.Connect(conn)
}

func (hub *ConnHub) startConn(conn Conn) {
	hub.wg.Add(1)
	go func() {
		defer hub.wg.Done()
		conn.readLoop()
	}()

	hub.wg.Add(1)
	go func() {
		defer hub.wg.Done()
		conn.writeLoop()
	}()
}

// sendOrDisconnect sends a packet to a connection. If the send channel of the
// connection is blocked, it disconnects the connection.
func (hub *ConnHub) sendOrDisconnect(c Conn, p *OutPacket) {
	select {
	case c.pass() <- p:
	default:
		hub.disconnect(c)
	}
}

func (hub *ConnHub) Connect(c Conn) {
	hub.connectChan <- c
}

func (hub *ConnHub) Disconnect(c Conn) {
	hub.disconnectChan <- c
}

func (hub *ConnHub) pass(packet *InPacket) {
	hub.in <- packet
}

func (hub *ConnHub) connect(c Conn) {
	hub.startConn(c)
	hub.mu.Lock()
	hub.conns[c.ID()] = c
	hub.mu.Unlock()
	hub.logger.Info("new connection",
		slog.String("conn.id", c.ID()), slog.String("user", c.User()))
	if hub.onConnect != nil {
		hub.onConnect(hub, c)
	}
}

func (hub *ConnHub) disconnect(c Conn) {
	hub.mu.Lock()
	_, ok := hub.conns[c.ID()]
	if ok {
		delete(hub.conns, c.ID())
	}
	hub.mu.Unlock()
	if !ok {
		return
	}
	c.close()
	if hub.onDisconnect != nil {
		hub.onDisconnect(hub, c)
	}
}
