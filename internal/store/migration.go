package store

import (
	"context"
	"fmt"
)

// migrations holds the schema as individual statements; SQLite's driver
// executes one statement per Exec.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id                  TEXT PRIMARY KEY,
		day                 INTEGER NOT NULL DEFAULT 1,
		status              TEXT NOT NULL,
		current_turn_player TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS session_players (
		session_id     TEXT NOT NULL REFERENCES sessions(id),
		user_id        TEXT NOT NULL,
		turn_order     INTEGER NOT NULL,
		autonomous     INTEGER NOT NULL DEFAULT 0,
		position       INTEGER NOT NULL DEFAULT 1,
		last_position  INTEGER NOT NULL DEFAULT 0,
		moved          INTEGER NOT NULL DEFAULT 0,
		acted          INTEGER NOT NULL DEFAULT 0,
		resolve_tokens INTEGER NOT NULL DEFAULT 0,
		cash           INTEGER NOT NULL DEFAULT 0,
		insight        INTEGER NOT NULL DEFAULT 0,
		charm          INTEGER NOT NULL DEFAULT 0,
		grit           INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (session_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS turn_records (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		day        INTEGER NOT NULL,
		user_id    TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_turn_records_session_day
		ON turn_records (session_id, day)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id      TEXT PRIMARY KEY,
		deck    TEXT NOT NULL,
		title   TEXT NOT NULL,
		effects TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS deck_cards (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		deck       TEXT NOT NULL,
		zone       TEXT NOT NULL,
		position   INTEGER NOT NULL,
		card_id    TEXT NOT NULL REFERENCES cards(id),
		PRIMARY KEY (session_id, deck, zone, position)
	)`,
	`CREATE TABLE IF NOT EXISTS hand_cards (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		user_id    TEXT NOT NULL,
		card_id    TEXT NOT NULL REFERENCES cards(id),
		PRIMARY KEY (session_id, card_id)
	)`,
	`CREATE TABLE IF NOT EXISTS event_log (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		kind       TEXT NOT NULL,
		user_id    TEXT NOT NULL DEFAULT '',
		day        INTEGER NOT NULL,
		payload    TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_log_lookup
		ON event_log (session_id, kind, user_id)`,
}

// Migrate applies the schema. Statements are idempotent so reruns are safe.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
