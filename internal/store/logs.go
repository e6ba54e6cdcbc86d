package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"fortnight/internal/domain"
)

// AppendLog writes one ledger entry. A missing id is assigned a ULID so
// entries sort by creation time.
func (s *Store) AppendLog(ctx context.Context, entry *domain.LogEntry) error {
	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	payload := []byte("{}")
	if entry.Payload != nil {
		var err error
		payload, err = json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("encode log payload: %w", err)
		}
	}
	_, err := s.getDB(ctx).ExecContext(ctx,
		`INSERT INTO event_log (id, session_id, kind, user_id, day, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SessionID, entry.Kind, entry.UserID, entry.Day,
		string(payload), entry.CreatedAt.Format(time.RFC3339Nano))
	return mapErr(err)
}

// HasLog reports whether any entry of the kind exists for the player.
func (s *Store) HasLog(ctx context.Context, sessionID, kind, userID string) (bool, error) {
	return s.hasLog(ctx,
		`SELECT COUNT(*) FROM event_log WHERE session_id = ? AND kind = ? AND user_id = ?`,
		sessionID, kind, userID)
}

// HasLogBetweenDays reports whether any entry of the kind exists for the
// player within the inclusive day range.
func (s *Store) HasLogBetweenDays(ctx context.Context, sessionID, kind, userID string, fromDay, toDay int) (bool, error) {
	return s.hasLog(ctx,
		`SELECT COUNT(*) FROM event_log
		 WHERE session_id = ? AND kind = ? AND user_id = ? AND day BETWEEN ? AND ?`,
		sessionID, kind, userID, fromDay, toDay)
}

func (s *Store) hasLog(ctx context.Context, query string, args ...any) (bool, error) {
	var n int
	if err := s.getDB(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, mapErr(err)
	}
	return n > 0, nil
}
