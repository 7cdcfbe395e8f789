package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/remote"
	"github.com/rentora/rentora/internal/store"
)

// Profiles serves the singleton per-user profile. It follows the same
// cache-aside and write-through rules as the entity families but doesn't
// need the generic machinery for a single row.
type Profiles struct {
	store  *store.Store
	client *remote.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewProfiles wires the profile repository.
func NewProfiles(st *store.Store, client *remote.Client, logger *zap.Logger) *Profiles {
	return &Profiles{
		store:  st,
		client: client,
		logger: logger.Named("profiles"),
		now:    time.Now,
	}
}

// Get returns the signed-in user's profile, pulling it from remote on a
// local cache miss.
func (p *Profiles) Get(ctx context.Context) (*model.UserProfile, error) {
	userID, ok, err := p.store.UserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return nil, ErrNotAuthenticated
	}

	profile, err := p.store.GetProfile(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	profile, err = p.client.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile not cached and remote fetch failed: %w", err)
	}
	profile.MarkSynced(true)
	if err := p.store.UpsertProfile(ctx, profile); err != nil {
		p.logger.Warn("failed to cache remote profile", zap.Error(err))
	}
	return profile, nil
}

// Update writes profile changes through, local first and remote best-effort.
func (p *Profiles) Update(ctx context.Context, profile *model.UserProfile) error {
	userID, ok, err := p.store.UserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return ErrNotAuthenticated
	}
	if profile.UserID != userID {
		return ErrNotAuthorized
	}

	profile.Touch(p.now())
	profile.MarkSynced(false)
	if err := p.store.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("local profile update failed: %w", err)
	}

	if err := p.client.UpsertProfile(ctx, profile); err != nil {
		p.logger.Warn("remote profile update deferred to sync", zap.Error(err))
		return nil
	}
	return p.store.MarkProfileSynced(ctx, userID)
}

// SetPhoto uploads an avatar to object storage and records its public URL
// on the profile. The upload itself has no offline fallback; the profile
// row update after it follows the usual write-through rules.
func (p *Profiles) SetPhoto(ctx context.Context, data []byte, contentType string) (*model.UserProfile, error) {
	profile, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}

	path, err := p.client.Upload(ctx, remote.BucketAvatars, profile.UserID+"/avatar", data, contentType)
	if err != nil {
		return nil, fmt.Errorf("photo upload failed: %w", err)
	}
	profile.PhotoPath = p.client.PublicURL(remote.BucketAvatars, path)

	if err := p.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
