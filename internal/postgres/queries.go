package postgres

const schema = `
CREATE TABLE IF NOT EXISTS generator_categories (
	category_id TEXT NOT NULL,
	guild_id    TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (category_id, guild_id)
);

CREATE TABLE IF NOT EXISTS temporary_rooms (
	channel_id  TEXT NOT NULL,
	guild_id    TEXT NOT NULL,
	category_id TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	deleted_at  TIMESTAMPTZ,
	PRIMARY KEY (channel_id, guild_id)
);
CREATE INDEX IF NOT EXISTS temporary_rooms_category_idx
	ON temporary_rooms (guild_id, category_id, active);

CREATE TABLE IF NOT EXISTS unique_categories (
	category_id TEXT NOT NULL,
	guild_id    TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL DEFAULT 'text',
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (category_id, guild_id)
);

CREATE TABLE IF NOT EXISTS member_unique_channels (
	member_id   TEXT NOT NULL,
	channel_id  TEXT NOT NULL,
	category_id TEXT NOT NULL,
	guild_id    TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (member_id, category_id, guild_id)
);
`

const (
	QueryIsGenerator = `
		SELECT EXISTS(SELECT 1 FROM generator_categories
		WHERE category_id = $1 AND guild_id = $2 AND active)`
	QueryMarkGenerator = `
		INSERT INTO generator_categories (category_id, guild_id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $4)
		ON CONFLICT (category_id, guild_id) DO UPDATE
		SET name = EXCLUDED.name, active = TRUE, updated_at = EXCLUDED.updated_at
		WHERE NOT generator_categories.active`
	QueryUnmarkGenerator = `
		UPDATE generator_categories SET active = FALSE, updated_at = $3
		WHERE category_id = $1 AND guild_id = $2 AND active`
	QueryListGenerators = `
		SELECT category_id, guild_id, name, active, created_at, updated_at
		FROM generator_categories
		WHERE guild_id = $1 AND active
		ORDER BY created_at, category_id`

	QueryListActiveRooms = `
		SELECT channel_id FROM temporary_rooms
		WHERE category_id = $1 AND guild_id = $2 AND active
		ORDER BY created_at, channel_id`
	QueryListAllActiveRooms = `
		SELECT channel_id, guild_id, category_id, owner_id, name, active, created_at, deleted_at
		FROM temporary_rooms
		WHERE active
		ORDER BY guild_id, created_at, channel_id`
	QueryIsActiveRoom = `
		SELECT EXISTS(SELECT 1 FROM temporary_rooms
		WHERE channel_id = $1 AND guild_id = $2 AND active)`
	QueryRegisterRoom = `
		INSERT INTO temporary_rooms (channel_id, guild_id, category_id, owner_id, name, active, created_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, NULL)
		ON CONFLICT (channel_id, guild_id) DO UPDATE
		SET category_id = EXCLUDED.category_id, owner_id = EXCLUDED.owner_id, name = EXCLUDED.name,
			active = TRUE, created_at = EXCLUDED.created_at, deleted_at = NULL
		WHERE NOT temporary_rooms.active`
	QueryDeactivateRoom = `
		UPDATE temporary_rooms SET active = FALSE, deleted_at = $3
		WHERE channel_id = $1 AND guild_id = $2 AND active`

	QueryMemberHasUnique = `
		SELECT EXISTS(SELECT 1 FROM member_unique_channels
		WHERE member_id = $1 AND category_id = $2 AND guild_id = $3 AND active)`
	QueryRegisterUnique = `
		INSERT INTO member_unique_channels (member_id, channel_id, category_id, guild_id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
		ON CONFLICT (member_id, category_id, guild_id) DO UPDATE
		SET channel_id = EXCLUDED.channel_id, name = EXCLUDED.name, active = TRUE, updated_at = EXCLUDED.updated_at
		WHERE NOT member_unique_channels.active`
	QueryGetUnique = `
		SELECT member_id, channel_id, category_id, guild_id, name, active, created_at, updated_at
		FROM member_unique_channels
		WHERE member_id = $1 AND category_id = $2 AND guild_id = $3 AND active`
	QueryDeactivateUnique = `
		UPDATE member_unique_channels SET active = FALSE, updated_at = $4
		WHERE member_id = $1 AND category_id = $2 AND guild_id = $3 AND active`

	QueryMarkUniqueCategory = `
		INSERT INTO unique_categories (category_id, guild_id, name, kind, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		ON CONFLICT (category_id, guild_id) DO UPDATE
		SET name = EXCLUDED.name, kind = EXCLUDED.kind, active = TRUE, updated_at = EXCLUDED.updated_at
		WHERE NOT unique_categories.active`
	QueryUnmarkUniqueCategory = `
		UPDATE unique_categories SET active = FALSE, updated_at = $3
		WHERE category_id = $1 AND guild_id = $2 AND active`
	QueryListUniqueCategories = `
		SELECT category_id, guild_id, name, kind, active, created_at, updated_at
		FROM unique_categories
		WHERE guild_id = $1 AND active
		ORDER BY created_at, category_id`
)
