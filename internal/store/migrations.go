package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT '',
	action_url  TEXT NOT NULL DEFAULT '',
	action_text TEXT NOT NULL DEFAULT '',
	read_at     DATETIME,
	created_at  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_notifications_position ON notifications(position);

CREATE TABLE IF NOT EXISTS feed_meta (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	unread_count INTEGER NOT NULL DEFAULT 0,
	fetched_at   DATETIME
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
