// Package repo implements the synchronized repositories sitting between the
// local store and the remote table API.
//
// One generic Repository carries the whole offline-first skeleton for every
// entity family:
//
//   - reads are cache-aside-on-miss: the local store answers immediately, and
//     an empty result triggers one best-effort remote fetch that refills the
//     cache;
//   - writes are write-through: the local write must succeed and makes the
//     operation succeed, the remote write is best-effort and deferred to the
//     background sync when it fails;
//   - deletes tombstone locally, delete remotely, and purge locally only on
//     remote acknowledgement.
//
// Per-family wrappers add the side-channel writes (tenant moves flip room
// occupancy, payments carry a caller-computed tenant balance) on the same
// best-effort local-then-remote pattern.
//
// Repositories hold no mutable state. Every call re-resolves the signed-in
// user and works against storage fresh; within a call the local-then-remote
// order is fixed and sequential, across calls the last local writer wins.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/store"
)

var (
	// ErrNotAuthenticated is returned when no user is signed in. The store
	// is never touched in that case.
	ErrNotAuthenticated = errors.New("not signed in")

	// ErrNotAuthorized is returned when the caller does not own the entity.
	ErrNotAuthorized = errors.New("entity belongs to another user")

	// ErrNotFound is returned when the entity does not exist locally.
	ErrNotFound = errors.New("entity not found")
)

// Session resolves the signed-in user. Satisfied by *store.Store.
type Session interface {
	UserID(ctx context.Context) (string, bool, error)
}

// Local bundles one entity family's local-store operations.
type Local[T model.Entity] struct {
	ListActive  func(ctx context.Context, userID string) ([]T, error)
	ListTrashed func(ctx context.Context, userID string) ([]T, error)
	Get         func(ctx context.Context, id string) (T, error)
	Upsert      func(ctx context.Context, e T) error
	SoftDelete  func(ctx context.Context, id string) error
	HardDelete  func(ctx context.Context, id string) error
}

// Remote bundles one entity family's remote table operations.
type Remote[T model.Entity] struct {
	List   func(ctx context.Context, userID string) ([]T, error)
	Insert func(ctx context.Context, e T) (T, error)
	Upsert func(ctx context.Context, rows []T) error
	Delete func(ctx context.Context, id, userID string) error
}

// Repository is the generic synchronized repository for one entity family.
type Repository[T model.Entity] struct {
	name    string
	table   store.Table
	session Session
	feed    *store.Feed
	local   Local[T]
	remote  Remote[T]
	logger  *zap.Logger
	now     func() time.Time
}

// New assembles a repository from its collaborators.
func New[T model.Entity](name string, table store.Table, session Session, feed *store.Feed, local Local[T], remote Remote[T], logger *zap.Logger) *Repository[T] {
	return &Repository[T]{
		name:    name,
		table:   table,
		session: session,
		feed:    feed,
		local:   local,
		remote:  remote,
		logger:  logger.Named(name),
		now:     time.Now,
	}
}

// user resolves the signed-in user id, failing fast when absent.
func (r *Repository[T]) user(ctx context.Context) (string, error) {
	userID, ok, err := r.session.UserID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return "", ErrNotAuthenticated
	}
	return userID, nil
}

// List returns the user's active entities. An empty local result triggers
// one best-effort remote fetch that refills the cache; remote failures are
// logged and the local (empty) result is returned anyway.
func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	userID, err := r.user(ctx)
	if err != nil {
		return nil, err
	}

	items, err := r.local.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return items, nil
	}

	r.backfill(ctx, userID)
	return r.local.ListActive(ctx, userID)
}

// backfill pulls the user's rows from remote into the local cache. Rows
// arrive already synced. Failures are swallowed: local data, even when
// empty, is still delivered to the caller.
func (r *Repository[T]) backfill(ctx context.Context, userID string) {
	rows, err := r.remote.List(ctx, userID)
	if err != nil {
		r.logger.Warn("remote backfill failed, serving local cache",
			zap.Error(err))
		return
	}

	for _, row := range rows {
		row.MarkSynced(true)
		row.MarkDeleted(false)
		if err := r.local.Upsert(ctx, row); err != nil {
			r.logger.Warn("failed to cache remote row",
				zap.String("id", row.EntityID()), zap.Error(err))
		}
	}
}

// Get returns one active entity owned by the caller.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	userID, err := r.user(ctx)
	if err != nil {
		return zero, err
	}

	e, err := r.local.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}
	if e.OwnerID() != userID {
		return zero, ErrNotAuthorized
	}
	return e, nil
}

// Insert creates an entity. The local write must succeed or the call fails;
// the remote insert is best-effort. On remote success the local row is
// replaced with the server's canonical copy and marked synced; on remote
// failure the row stays unsynced for the background sync to pick up. The
// caller never supplies the owner - it is stamped from the session.
func (r *Repository[T]) Insert(ctx context.Context, e T) error {
	userID, err := r.user(ctx)
	if err != nil {
		return err
	}

	e.EnsureID()
	e.SetOwner(userID)
	e.Touch(r.now())
	e.MarkSynced(false)
	e.MarkDeleted(false)

	if err := r.local.Upsert(ctx, e); err != nil {
		return fmt.Errorf("local insert failed: %w", err)
	}

	canonical, err := r.remote.Insert(ctx, e)
	if err != nil {
		r.logger.Warn("remote insert deferred to sync",
			zap.String("id", e.EntityID()), zap.Error(err))
		return nil
	}

	canonical.MarkSynced(true)
	canonical.MarkDeleted(false)
	if err := r.local.Upsert(ctx, canonical); err != nil {
		r.logger.Warn("failed to store canonical copy",
			zap.String("id", e.EntityID()), zap.Error(err))
	}
	e.MarkSynced(true)
	return nil
}

// Update overwrites an entity owned by the caller, write-through. Ownership
// is checked against the stored row, not the incoming value, so a forged
// owner field cannot reach another user's data.
func (r *Repository[T]) Update(ctx context.Context, e T) error {
	userID, err := r.user(ctx)
	if err != nil {
		return err
	}

	stored, err := r.local.Get(ctx, e.EntityID())
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if stored.OwnerID() != userID {
		return ErrNotAuthorized
	}

	e.SetOwner(userID)
	e.Touch(r.now())
	e.MarkSynced(false)
	e.MarkDeleted(false)

	if err := r.local.Upsert(ctx, e); err != nil {
		return fmt.Errorf("local update failed: %w", err)
	}

	if err := r.remote.Upsert(ctx, []T{e}); err != nil {
		r.logger.Warn("remote update deferred to sync",
			zap.String("id", e.EntityID()), zap.Error(err))
		return nil
	}

	e.MarkSynced(true)
	if err := r.local.Upsert(ctx, e); err != nil {
		r.logger.Warn("failed to record synced state",
			zap.String("id", e.EntityID()), zap.Error(err))
	}
	return nil
}

// Delete removes an entity owned by the caller: local tombstone first, then
// remote delete, then local purge only on remote acknowledgement. A failed
// remote delete leaves the tombstone for the background sync to retry.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	userID, err := r.user(ctx)
	if err != nil {
		return err
	}

	e, err := r.local.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if e.OwnerID() != userID {
		return ErrNotAuthorized
	}

	if err := r.local.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("local delete failed: %w", err)
	}

	if err := r.remote.Delete(ctx, id, userID); err != nil {
		r.logger.Warn("remote delete deferred to sync",
			zap.String("id", id), zap.Error(err))
		return nil
	}

	return r.local.HardDelete(ctx, id)
}

// Trashed returns the caller's tombstoned rows awaiting remote confirmation.
func (r *Repository[T]) Trashed(ctx context.Context) ([]T, error) {
	userID, err := r.user(ctx)
	if err != nil {
		return nil, err
	}
	return r.local.ListTrashed(ctx, userID)
}

// Watch streams the user's active entities: one snapshot immediately, then
// a fresh snapshot after every local change to this family's table. The
// empty-cache remote refill applies to every emission, same as List. The
// stream closes when ctx is cancelled.
func (r *Repository[T]) Watch(ctx context.Context) (<-chan []T, error) {
	userID, err := r.user(ctx)
	if err != nil {
		return nil, err
	}

	events, cancel := r.feed.Subscribe()
	out := make(chan []T, 1)

	go func() {
		defer cancel()
		defer close(out)

		emit := func() {
			items, err := r.local.ListActive(ctx, userID)
			if err != nil {
				r.logger.Warn("watch query failed", zap.Error(err))
				return
			}
			if len(items) == 0 {
				r.backfill(ctx, userID)
				// A successful refill re-emits through the feed.
			}
			select {
			case out <- items:
			case <-ctx.Done():
			}
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Table != r.table {
					continue
				}
				emit()
			}
		}
	}()

	return out, nil
}
