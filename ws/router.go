package ws

import "fmt"

type PacketHandler func(HubActions, *InPacket) error

// Router dispatches inbound packets to the handler registered for their type.
// A handler error is logged and never propagated to other connections.
type Router struct {
	hub      *ConnHub
	handlers map[string]PacketHandler
}

func NewRouter(hub *ConnHub) *Router {
	return &Router{
		hub:      hub,
		handlers: make(map[string]PacketHandler),
	}
}

func (r *Router) On(packetType string, h PacketHandler) {
	if _, ok := r.handlers[packetType]; ok {
		panic(fmt.Sprintf("handler(%s): already exists", packetType))
	}
	r.handlers[packetType] = h
}

func (r Router) Dispatch(packet *InPacket) {
	h, ok := r.handlers[packet.Type]
	if !ok {
		r.hub.logger.Error(fmt.Sprintf("handler for %s not found", packet.Type))
		return
	}
	func() {
		defer func() {
			if _r := recover(); _r != nil {
				r.hub.logger.Error(fmt.Sprintf("handler(%s): panic: %v", packet.Type, _r))
			}

		}()
		err := h(r.hub, packet)
		if err != nil {
			r.hub.logger.Error(
				fmt.Sprintf("handler(%s): %v", packet.Type, err))
		}
	}()
}
