package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Sync-flag helpers shared by the entity tables. The profiles table is
// keyed by user_id and managed by its own queries, so these only apply to
// the four id-keyed entity families.

func nowSQL() string {
	return timeToSQL(time.Now())
}

// markSynced flags rows as confirmed by the remote store. This is the only
// code path that sets is_synced to 1 wholesale; fresh writes always come in
// with is_synced = 0.
func (s *Store) markSynced(ctx context.Context, table Table, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := fmt.Sprintf("UPDATE %s SET is_synced = 1 WHERE id IN (%s)", table, placeholders)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark %s synced: %w", table, err)
	}

	s.feed.Publish(Event{Table: table})
	return nil
}

// softDelete tombstones a row: is_deleted = 1, is_synced = 0. The row
// disappears from active queries immediately but survives until the remote
// delete is confirmed.
func (s *Store) softDelete(ctx context.Context, table Table, id string) error {
	query := fmt.Sprintf(
		"UPDATE %s SET is_deleted = 1, is_synced = 0, updated_at = ? WHERE id = ?", table)
	if _, err := s.conn.ExecContext(ctx, query, nowSQL(), id); err != nil {
		return fmt.Errorf("failed to soft-delete from %s: %w", table, err)
	}
	s.feed.Publish(Event{Table: table})
	return nil
}

// hardDelete removes a row outright. Idempotent: deleting a missing row is
// not an error.
func (s *Store) hardDelete(ctx context.Context, table Table, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)
	if _, err := s.conn.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	s.feed.Publish(Event{Table: table})
	return nil
}
