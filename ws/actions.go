package ws

// BroadcastToConns sends a packet to the given connections.
// Connection ids that are not registered to the hub are skipped.
func (hub *ConnHub) BroadcastToConns(p *OutPacket, connIDs ...string) {
	hub.mu.RLock()
	conns := make([]Conn, 0, len(connIDs))
	for _, id := range connIDs {
		c, ok := hub.conns[id]
		if !ok {
			continue
		}
		conns = append(conns, c)
	}
	hub.mu.RUnlock()
	for _, c := range conns {
		hub.sendOrDisconnect(c, p)
	}
}

// BroadcastExcept sends a packet to every connection on the hub except the
// given one.
func (hub *ConnHub) BroadcastExcept(p *OutPacket, connID string) {
	hub.mu.RLock()
	conns := make([]Conn, 0, len(hub.conns))
	for id, c := range hub.conns {
		if id == connID {
			continue
		}
		conns = append(conns, c)
	}
	hub.mu.RUnlock()
	for _, c := range conns {
		hub.sendOrDisconnect(c, p)
	}
}

// Broadcast sends a packet to every connection on the hub.
func (hub *ConnHub) Broadcast(p *OutPacket) {
	hub.BroadcastExcept(p, "")
}
