package postgres

// schema creates the row tables. It is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id                   TEXT PRIMARY KEY,
	code                 TEXT NOT NULL UNIQUE,
	difficulty           TEXT NOT NULL DEFAULT 'normal',
	show_hints           BOOLEAN NOT NULL DEFAULT FALSE,
	status               TEXT NOT NULL DEFAULT 'active',
	current_number       INTEGER NOT NULL DEFAULT 1,
	current_partial      TEXT NOT NULL DEFAULT '',
	current_player_index INTEGER NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS room_players (
	id         TEXT PRIMARY KEY,
	room_id    TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	is_bot     BOOLEAN NOT NULL DEFAULT FALSE,
	is_owner   BOOLEAN NOT NULL DEFAULT FALSE,
	points     INTEGER NOT NULL DEFAULT 0,
	turn_order INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS room_players_room_idx ON room_players (room_id, turn_order);

CREATE TABLE IF NOT EXISTS room_messages (
	id            BIGSERIAL PRIMARY KEY,
	room_id       TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	player_id     TEXT NOT NULL DEFAULT '',
	player_name   TEXT NOT NULL DEFAULT '',
	type          TEXT NOT NULL,
	text          TEXT NOT NULL,
	number        INTEGER NOT NULL DEFAULT 0,
	correct_roman TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS room_messages_room_idx ON room_messages (room_id, id);
`
