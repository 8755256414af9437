package ws

import (
	"net/http"
)

type Hub interface {
	Connect(Conn)
	Disconnect(Conn)
	Start()
	// Close closes the hub and releases any resources with time out.
	// It should wait for the clean up to complete or until the time out.
	Close()
	// ServeHTTP handles the HTTP request and upgrade the connection to a websocket connection
	// then add the connection to the hub.
	ServeHTTP(w http.ResponseWriter, r *http.Request)
	// pass passes a packet to the hub.
	// If the sender is no longer registered to the hub the packet is dropped.
	pass(*InPacket)

	OnPacket(func(HubActions, *InPacket))

	OnConnect(func(HubActions, Conn))

	OnDisconnect(func(HubActions, Conn))
}

// HubActions define the collection of actions that a handler can perform on
// the hub. It is used to prevent the handler from directly accessing the hub.
type HubActions interface {
	// BroadcastToConns sends a packet to the given connections.
	// Unknown connection ids are skipped.
	BroadcastToConns(p *OutPacket, connIDs ...string)
	// BroadcastExcept sends a packet to every connection except the given one.
	BroadcastExcept(p *OutPacket, connID string)
	// Broadcast sends a packet to every connection on the hub.
	Broadcast(p *OutPacket)
}

type ConnFactory interface {
	// NewConn creates a new connection from the request and response.
	// user is the authenticated user id the connection belongs to; the
	// connection id itself is assigned by the factory.
	// If the connection is created successfully, it should return the connection and true.
	// If the connection is not created successfully, it should return nil and false.
	NewConn(w http.ResponseWriter, r *http.Request, hub Hub, user string) (Conn, bool)
}

type Conn interface {
	// pass returns a write-only channel that the hub can use to send messages to the client.
	pass() chan<- *OutPacket
	// close initiates the closing of the connection.
	// It should close the connection and release any resources.
	// It should be non-blocking.
	close()
	// ID returns the server-assigned identifier of the connection.
	// It is unique per connection, not per user.
	ID() string
	// User returns the authenticated user id the connection belongs to.
	// A user can have multiple connections.
	User() string
	readLoop()
	writeLoop()
}

type Authenticator interface {
	// Authenticate authenticates the request and returns the verified user id.
	// In the case of a failed authentication, it should return false.
	// Authenticate should be safe to be called concurrently.
	Authenticate(w http.ResponseWriter, req *http.Request) (string, bool)
}

type AuthenticateFunc func(w http.ResponseWriter, req *http.Request) (string, bool)

func (f AuthenticateFunc) Authenticate(w http.ResponseWriter, req *http.Request) (string, bool) {
	return f(w, req)
}
