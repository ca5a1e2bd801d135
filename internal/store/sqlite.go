package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ndinh/deckhand/internal/model"
)

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// notificationRow is the flat table shape of a cached notification.
type notificationRow struct {
	ID         string       `db:"id"`
	Position   int          `db:"position"`
	Title      string       `db:"title"`
	Message    string       `db:"message"`
	Type       string       `db:"type"`
	ActionURL  string       `db:"action_url"`
	ActionText string       `db:"action_text"`
	ReadAt     sql.NullTime `db:"read_at"`
	CreatedAt  string       `db:"created_at"`
}

func (r notificationRow) toModel() model.Notification {
	n := model.Notification{
		ID: r.ID,
		Data: model.NotificationData{
			Title:      r.Title,
			Message:    r.Message,
			Type:       r.Type,
			ActionURL:  r.ActionURL,
			ActionText: r.ActionText,
		},
		CreatedAt: r.CreatedAt,
	}
	if r.ReadAt.Valid {
		t := r.ReadAt.Time
		n.ReadAt = &t
	}
	return n
}

// SaveSnapshot replaces the cached feed with the given snapshot in a
// single transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap model.FeedSnapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing notification cache: %w", err)
	}

	const insert = `
		INSERT INTO notifications (
			id, position, title, message, type,
			action_url, action_text, read_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, n := range snap.Notifications {
		var readAt interface{}
		if n.ReadAt != nil {
			readAt = *n.ReadAt
		}
		if _, err := stmt.ExecContext(ctx,
			n.ID, i,
			n.Data.Title, n.Data.Message, n.Data.Type,
			n.Data.ActionURL, n.Data.ActionText,
			readAt, n.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting notification %s: %w", n.ID, err)
		}
	}

	const meta = `
		INSERT INTO feed_meta (id, unread_count, fetched_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			unread_count = excluded.unread_count,
			fetched_at = excluded.fetched_at`

	if _, err := tx.ExecContext(ctx, meta, snap.UnreadNotificationCount, time.Now()); err != nil {
		return fmt.Errorf("updating feed meta: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot returns the cached feed in its original server order.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (*model.FeedSnapshot, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM notifications ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("loading cached notifications: %w", err)
	}

	snap := &model.FeedSnapshot{
		Notifications: make([]model.Notification, 0, len(rows)),
	}
	for _, r := range rows {
		snap.Notifications = append(snap.Notifications, r.toModel())
	}

	var unread sql.NullInt64
	err = s.db.GetContext(ctx, &unread,
		"SELECT unread_count FROM feed_meta WHERE id = 1")
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("loading feed meta: %w", err)
	}
	if unread.Valid {
		snap.UnreadNotificationCount = int(unread.Int64)
	}

	return snap, nil
}

// MarkRead sets read_at on one cached entry if it is still unread.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = ? WHERE id = ? AND read_at IS NULL",
		at, id)
	if err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		_, err = s.db.ExecContext(ctx,
			"UPDATE feed_meta SET unread_count = MAX(unread_count - 1, 0) WHERE id = 1")
		if err != nil {
			return fmt.Errorf("adjusting unread count: %w", err)
		}
	}
	return nil
}

// MarkAllRead sets read_at on every unread cached entry.
func (s *SQLiteStore) MarkAllRead(ctx context.Context, at time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = ? WHERE read_at IS NULL", at); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE feed_meta SET unread_count = 0 WHERE id = 1"); err != nil {
		return fmt.Errorf("resetting unread count: %w", err)
	}
	return nil
}
