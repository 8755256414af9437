package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
)

// InPacket is a packet received from a client. Sender and User are stamped
// by the receiving connection, never taken from the payload.
type InPacket struct {
	context context.Context
	// Sender is the connection id the packet arrived on.
	Sender string `json:"-"`
	// User is the authenticated user id of the sending connection.
	User string          `json:"-"`
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

// Context returns the context attached to the packet by the hub.
func (p *InPacket) Context() context.Context {
	if p.context == nil {
		return context.Background()
	}
	return p.context
}

// OutPacket is a packet sent to clients. The body is encoded to JSON by the
// writing connection.
type OutPacket struct {
	Type string      `json:"type"`
	Body interface{} `json:"body"`
}

func partiallyDecodeInPacket(t int, r io.Reader) (*InPacket, error) {
	if t != websocket.TextMessage {
		return nil, fmt.Errorf("unexpected message type: %d", t)
	}

	var packet InPacket
	if err := json.NewDecoder(r).Decode(&packet); err != nil {
		return nil, fmt.Errorf("json.Decoder.Decode: %w", err)
	}
	return &packet, nil
}

func encodeOutPacket(f func(t int) (io.WriteCloser, error), packet *OutPacket) error {
	w, err := f(websocket.TextMessage)
	if err != nil {
		return fmt.Errorf("NextWriter: %w", err)
	}
	defer w.Close()

	if err := json.NewEncoder(w).Encode(packet); err != nil {
		return fmt.Errorf("json.Encoder.Encode: %w", err)
	}

	return nil
}
