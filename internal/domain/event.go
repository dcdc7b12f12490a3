package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type RoomEventKind string

const (
	RoomCreated         RoomEventKind = "room_created"
	RoomCreateFailed    RoomEventKind = "room_create_failed"
	RoomPendingDeletion RoomEventKind = "room_pending_deletion"
	RoomKept            RoomEventKind = "room_kept"
	RoomDeleted         RoomEventKind = "room_deleted"
	RoomGone            RoomEventKind = "room_gone"
	RoomDeleteFailed    RoomEventKind = "room_delete_failed"
)

// RoomEvent is emitted by the lifecycle manager to its observers.
type RoomEvent struct {
	ID         string        `json:"id"`
	Kind       RoomEventKind `json:"kind"`
	GuildID    string        `json:"guild_id"`
	ChannelID  string        `json:"channel_id,omitempty"`
	CategoryID string        `json:"category_id,omitempty"`
	OwnerID    string        `json:"owner_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	At         time.Time     `json:"at"`
}

func NewRoomEvent(kind RoomEventKind, guildID, channelID string, at time.Time) RoomEvent {
	return RoomEvent{
		ID:        ulid.Make().String(),
		Kind:      kind,
		GuildID:   guildID,
		ChannelID: channelID,
		At:        at,
	}
}
