package domain

import "time"

// TemporaryRoom is a voice channel cloned from a template inside a generator category.
type TemporaryRoom struct {
	ChannelID  string     `db:"channel_id" json:"channel_id"`
	GuildID    string     `db:"guild_id" json:"guild_id"`
	CategoryID string     `db:"category_id" json:"category_id"`
	OwnerID    string     `db:"owner_id" json:"owner_id"`
	Name       string     `db:"name" json:"name"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"deleted_at"`
}
