package domain

import "time"

// ChannelKind of a per-member private channel.
type ChannelKind string

const (
	KindText  ChannelKind = "text"
	KindForum ChannelKind = "forum"
)

func (k ChannelKind) Valid() bool {
	return k == KindText || k == KindForum
}

// UniqueCategory is a category in which every member gets exactly one private channel.
type UniqueCategory struct {
	CategoryID string      `db:"category_id" json:"category_id"`
	GuildID    string      `db:"guild_id" json:"guild_id"`
	Name       string      `db:"name" json:"name"`
	Kind       ChannelKind `db:"kind" json:"kind"`
	Active     bool        `db:"active" json:"active"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// MemberUniqueChannel records the private channel granted to a member within a category.
type MemberUniqueChannel struct {
	MemberID   string    `db:"member_id" json:"member_id"`
	ChannelID  string    `db:"channel_id" json:"channel_id"`
	CategoryID string    `db:"category_id" json:"category_id"`
	GuildID    string    `db:"guild_id" json:"guild_id"`
	Name       string    `db:"name" json:"name"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
