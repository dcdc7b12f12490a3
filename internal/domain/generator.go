package domain

import "time"

// GeneratorCategory is a category whose voice channels spawn temporary rooms.
type GeneratorCategory struct {
	CategoryID string    `db:"category_id" json:"category_id"`
	GuildID    string    `db:"guild_id" json:"guild_id"`
	Name       string    `db:"name" json:"name"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
