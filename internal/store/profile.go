package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rentora/rentora/internal/model"
)

const profileColumns = `user_id, email, name, photo_path,
	created_at, updated_at, is_synced, is_deleted`

// UpsertProfile inserts or replaces the user's profile row. The profile is
// a singleton per user, keyed by the auth user id.
func (s *Store) UpsertProfile(ctx context.Context, p *model.UserProfile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	query := `
	INSERT INTO profiles (` + profileColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		email = excluded.email,
		name = excluded.name,
		photo_path = excluded.photo_path,
		updated_at = excluded.updated_at,
		is_synced = excluded.is_synced,
		is_deleted = excluded.is_deleted
	`

	_, err := s.conn.ExecContext(ctx, query,
		p.UserID, p.Email, p.Name, p.PhotoPath,
		timeToSQL(p.CreatedAt), timeToSQL(p.UpdatedAt),
		boolToInt(p.Synced), boolToInt(p.Deleted),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	s.feed.Publish(Event{Table: TableProfiles})
	return nil
}

// GetProfile retrieves the profile for a user id.
// Returns sql.ErrNoRows if no profile is cached.
func (s *Store) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id = ?", userID)

	var p model.UserProfile
	var createdAt, updatedAt string
	var synced, deleted int

	err := row.Scan(
		&p.UserID, &p.Email, &p.Name, &p.PhotoPath,
		&createdAt, &updatedAt, &synced, &deleted,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.CreatedAt = timeFromSQL(createdAt)
	p.UpdatedAt = timeFromSQL(updatedAt)
	p.Synced = synced != 0
	p.Deleted = deleted != 0
	return &p, nil
}

// ListUnsyncedProfiles returns profiles pending a remote push. There is at
// most one per signed-in user, but the slice form keeps the sync worker
// uniform across entity families.
func (s *Store) ListUnsyncedProfiles(ctx context.Context, userID string) ([]*model.UserProfile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Synced || p.Deleted {
		return nil, nil
	}
	return []*model.UserProfile{p}, nil
}

// MarkProfileSynced flags the profile as confirmed by the remote store.
func (s *Store) MarkProfileSynced(ctx context.Context, userID string) error {
	if _, err := s.conn.ExecContext(ctx,
		"UPDATE profiles SET is_synced = 1 WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to mark profile synced: %w", err)
	}
	s.feed.Publish(Event{Table: TableProfiles})
	return nil
}
