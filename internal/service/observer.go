package service

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/tempvoice/internal/domain"
)

// Observer receives room lifecycle events. Implementations must not block.
type Observer interface {
	OnRoomEvent(ctx context.Context, ev domain.RoomEvent)
}

type ObserverFunc func(ctx context.Context, ev domain.RoomEvent)

func (f ObserverFunc) OnRoomEvent(ctx context.Context, ev domain.RoomEvent) { f(ctx, ev) }

// LogObserver writes every event to the audit log.
type LogObserver struct {
	log *slog.Logger
}

func NewLogObserver(log *slog.Logger) *LogObserver {
	return &LogObserver{log: log.With("component", "room_events")}
}

func (o *LogObserver) OnRoomEvent(ctx context.Context, ev domain.RoomEvent) {
	level := slog.LevelInfo
	if ev.Error != "" {
		level = slog.LevelWarn
	}
	o.log.Log(ctx, level, string(ev.Kind),
		"event_id", ev.ID,
		"guild_id", ev.GuildID,
		"channel_id", ev.ChannelID,
		"category_id", ev.CategoryID,
		"owner_id", ev.OwnerID,
		"err", ev.Error,
	)
}
