package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Meta keys used by the engine. The session key is the single source of
// truth for "who is signed in"; every repository operation resolves it first.
const (
	metaKeyUserID      = "user_id"
	metaKeyAccessToken = "access_token"

	// MetaKeyLastRentCharge records the last calendar day the end-of-month
	// rent charge ran, guarding against double charging within one day.
	MetaKeyLastRentCharge = "last_rent_charge"
)

// GetMeta reads a meta value. The second result reports presence.
func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read meta %q: %w", key, err)
	}
	return value, true, nil
}

// SetMeta writes a meta value, replacing any existing one.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO meta (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.conn.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write meta %q: %w", key, err)
	}
	s.feed.Publish(Event{Table: TableSession})
	return nil
}

// DeleteMeta removes a meta value. Idempotent.
func (s *Store) DeleteMeta(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM meta WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete meta %q: %w", key, err)
	}
	s.feed.Publish(Event{Table: TableSession})
	return nil
}

// SaveSession records the signed-in user id and access token.
func (s *Store) SaveSession(ctx context.Context, userID, accessToken string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if err := s.SetMeta(ctx, metaKeyUserID, userID); err != nil {
		return err
	}
	return s.SetMeta(ctx, metaKeyAccessToken, accessToken)
}

// ClearSession removes the signed-in user id and token. Idempotent.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.DeleteMeta(ctx, metaKeyUserID); err != nil {
		return err
	}
	return s.DeleteMeta(ctx, metaKeyAccessToken)
}

// UserID resolves the signed-in user id. The second result is false when no
// user is signed in.
func (s *Store) UserID(ctx context.Context) (string, bool, error) {
	return s.GetMeta(ctx, metaKeyUserID)
}

// AccessToken resolves the stored auth token, empty when signed out.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	token, _, err := s.GetMeta(ctx, metaKeyAccessToken)
	return token, err
}
