package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS generator_categories (
	category_id TEXT NOT NULL,
	guild_id    TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	active      INTEGER NOT NULL DEFAULT 1,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (category_id, guild_id)
);

CREATE TABLE IF NOT EXISTS temporary_rooms (
	channel_id  TEXT NOT NULL,
	guild_id    TEXT NOT NULL,
	category_id TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	active      INTEGER NOT NULL DEFAULT 1,
	created_at  TIMESTAMP NOT NULL,
	deleted_at  TIMESTAMP,
	PRIMARY KEY (channel_id, guild_id)
);
CREATE INDEX IF NOT EXISTS temporary_rooms_category_idx
	ON temporary_rooms (guild_id, category_id, active);

CREATE TABLE IF NOT EXISTS unique_categories (
	category_id TEXT NOT NULL,
	guild_id    TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL DEFAULT 'text',
	active      INTEGER NOT NULL DEFAULT 1,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (category_id, guild_id)
);

CREATE TABLE IF NOT EXISTS member_unique_channels (
	member_id   TEXT NOT NULL,
	channel_id  TEXT NOT NULL,
	category_id TEXT NOT NULL,
	guild_id    TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	active      INTEGER NOT NULL DEFAULT 1,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (member_id, category_id, guild_id)
);
`

const (
	queryIsGenerator = `
		SELECT EXISTS(SELECT 1 FROM generator_categories
		WHERE category_id = ? AND guild_id = ? AND active = 1)`
	queryMarkGenerator = `
		INSERT INTO generator_categories (category_id, guild_id, name, active, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (category_id, guild_id) DO UPDATE
		SET name = excluded.name, active = 1, updated_at = excluded.updated_at
		WHERE generator_categories.active = 0`
	queryUnmarkGenerator = `
		UPDATE generator_categories SET active = 0, updated_at = ?
		WHERE category_id = ? AND guild_id = ? AND active = 1`
	queryListGenerators = `
		SELECT category_id, guild_id, name, active, created_at, updated_at
		FROM generator_categories
		WHERE guild_id = ? AND active = 1
		ORDER BY created_at, category_id`

	queryListActiveRooms = `
		SELECT channel_id FROM temporary_rooms
		WHERE category_id = ? AND guild_id = ? AND active = 1
		ORDER BY created_at, channel_id`
	queryListAllActiveRooms = `
		SELECT channel_id, guild_id, category_id, owner_id, name, active, created_at, deleted_at
		FROM temporary_rooms
		WHERE active = 1
		ORDER BY guild_id, created_at, channel_id`
	queryIsActiveRoom = `
		SELECT EXISTS(SELECT 1 FROM temporary_rooms
		WHERE channel_id = ? AND guild_id = ? AND active = 1)`
	queryRegisterRoom = `
		INSERT INTO temporary_rooms (channel_id, guild_id, category_id, owner_id, name, active, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, NULL)
		ON CONFLICT (channel_id, guild_id) DO UPDATE
		SET category_id = excluded.category_id, owner_id = excluded.owner_id, name = excluded.name,
			active = 1, created_at = excluded.created_at, deleted_at = NULL
		WHERE temporary_rooms.active = 0`
	queryDeactivateRoom = `
		UPDATE temporary_rooms SET active = 0, deleted_at = ?
		WHERE channel_id = ? AND guild_id = ? AND active = 1`

	queryMemberHasUnique = `
		SELECT EXISTS(SELECT 1 FROM member_unique_channels
		WHERE member_id = ? AND category_id = ? AND guild_id = ? AND active = 1)`
	queryRegisterUnique = `
		INSERT INTO member_unique_channels (member_id, channel_id, category_id, guild_id, name, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (member_id, category_id, guild_id) DO UPDATE
		SET channel_id = excluded.channel_id, name = excluded.name, active = 1, updated_at = excluded.updated_at
		WHERE member_unique_channels.active = 0`
	queryGetUnique = `
		SELECT member_id, channel_id, category_id, guild_id, name, active, created_at, updated_at
		FROM member_unique_channels
		WHERE member_id = ? AND category_id = ? AND guild_id = ? AND active = 1`
	queryDeactivateUnique = `
		UPDATE member_unique_channels SET active = 0, updated_at = ?
		WHERE member_id = ? AND category_id = ? AND guild_id = ? AND active = 1`

	queryMarkUniqueCategory = `
		INSERT INTO unique_categories (category_id, guild_id, name, kind, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (category_id, guild_id) DO UPDATE
		SET name = excluded.name, kind = excluded.kind, active = 1, updated_at = excluded.updated_at
		WHERE unique_categories.active = 0`
	queryUnmarkUniqueCategory = `
		UPDATE unique_categories SET active = 0, updated_at = ?
		WHERE category_id = ? AND guild_id = ? AND active = 1`
	queryListUniqueCategories = `
		SELECT category_id, guild_id, name, kind, active, created_at, updated_at
		FROM unique_categories
		WHERE guild_id = ? AND active = 1
		ORDER BY created_at, category_id`
)
