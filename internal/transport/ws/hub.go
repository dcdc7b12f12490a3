package ws

import (
	"context"
	"sync"

	"github.com/cwrk-planet/tempvoice/internal/domain"
)

type Conn interface {
	// Send queues msg without blocking; false means the message was dropped.
	Send(msg Message) bool
	Close() error
	Subject() string
	GuildID() string
}

// Hub fans room events out to the subscribers of a guild.
type Hub struct {
	mu     sync.RWMutex
	guilds map[string]map[Conn]struct{} // guildID -> set of connections
}

func NewHub() *Hub {
	return &Hub{guilds: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	gs, ok := h.guilds[c.GuildID()]
	if !ok {
		gs = make(map[Conn]struct{})
		h.guilds[c.GuildID()] = gs
	}
	gs[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if gs, ok := h.guilds[c.GuildID()]; ok {
		delete(gs, c)
		if len(gs) == 0 {
			delete(h.guilds, c.GuildID())
		}
	}
}

func (h *Hub) Broadcast(guildID string, msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.guilds[guildID] {
		if c.Send(msg) {
			sent++
		}
	}
	return sent
}

func (h *Hub) Subscribers(guildID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.guilds[guildID])
}

// OnRoomEvent makes the hub a lifecycle observer.
func (h *Hub) OnRoomEvent(_ context.Context, ev domain.RoomEvent) {
	h.Broadcast(ev.GuildID, roomEventMessage(ev))
}
