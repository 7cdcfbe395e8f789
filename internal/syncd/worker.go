package syncd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/remote"
	"github.com/rentora/rentora/internal/repo"
	"github.com/rentora/rentora/internal/store"
)

// Tables bundles the operations one sync worker needs for its entity
// family. Optional fields may be nil; the corresponding phase is skipped.
type Tables[T model.Entity] struct {
	Family string

	ListTrashed  func(ctx context.Context, userID string) ([]T, error)
	ListUnsynced func(ctx context.Context, userID string) ([]T, error)
	HardDelete   func(ctx context.Context, id string) error
	MarkSynced   func(ctx context.Context, ids []string) error

	RemoteUpsert func(ctx context.Context, rows []T) error
	RemoteDelete func(ctx context.Context, id, userID string) error
}

// Worker reconciles one entity family with the remote store.
//
// A run is: resolve user (fail if absent), purge confirmed tombstones, push
// unsynced rows. Tombstones are processed strictly sequentially, one remote
// round-trip at a time; the first failure aborts the run and leaves the
// remaining rows for the next pass. The unsynced push is a single bulk
// upsert keyed by id, so re-running it without intervening local mutations
// is a no-op.
type Worker[T model.Entity] struct {
	tables  Tables[T]
	session repo.Session
	logger  *zap.Logger
}

// NewWorker creates a sync worker for one entity family.
func NewWorker[T model.Entity](tables Tables[T], session repo.Session, logger *zap.Logger) *Worker[T] {
	return &Worker[T]{
		tables:  tables,
		session: session,
		logger:  logger.Named(tables.Family + "-sync"),
	}
}

// Name implements Job. Worker names double as registration keys.
func (w *Worker[T]) Name() string {
	return w.tables.Family + "-sync"
}

// Run implements Job.
func (w *Worker[T]) Run(ctx context.Context) error {
	userID, ok, err := w.session.UserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return repo.ErrNotAuthenticated
	}

	if err := w.processTrashed(ctx, userID); err != nil {
		return err
	}
	return w.processUnsynced(ctx, userID)
}

// processTrashed confirms tombstones against the remote store and purges
// them locally. No batching, no rollback: a failure leaves the rest of the
// tombstones untouched for the next run.
func (w *Worker[T]) processTrashed(ctx context.Context, userID string) error {
	if w.tables.ListTrashed == nil {
		return nil
	}

	trashed, err := w.tables.ListTrashed(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list tombstones: %w", err)
	}

	for _, row := range trashed {
		id := row.EntityID()
		if err := w.tables.RemoteDelete(ctx, id, userID); err != nil {
			return fmt.Errorf("remote delete of %s failed: %w", id, err)
		}
		if err := w.tables.HardDelete(ctx, id); err != nil {
			return fmt.Errorf("local purge of %s failed: %w", id, err)
		}
		w.logger.Info("tombstone purged", zap.String("id", id))
	}
	return nil
}

// processUnsynced pushes dirty rows in one bulk upsert and marks them
// synced locally on success.
func (w *Worker[T]) processUnsynced(ctx context.Context, userID string) error {
	rows, err := w.tables.ListUnsynced(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list unsynced rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := w.tables.RemoteUpsert(ctx, rows); err != nil {
		return fmt.Errorf("bulk upsert failed: %w", err)
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.EntityID()
	}
	if err := w.tables.MarkSynced(ctx, ids); err != nil {
		return fmt.Errorf("failed to mark rows synced: %w", err)
	}

	w.logger.Info("unsynced rows pushed", zap.Int("count", len(rows)))
	return nil
}

// NewFamilyWorkers builds the per-family sync workers over the local store
// and remote client. The profile worker has no tombstone phase; profiles
// are only ever replaced, not deleted.
func NewFamilyWorkers(st *store.Store, client *remote.Client, logger *zap.Logger) []Job {
	tenants := NewWorker(Tables[*model.Tenant]{
		Family:       "tenants",
		ListTrashed:  st.ListTrashedTenants,
		ListUnsynced: st.ListUnsyncedTenants,
		HardDelete:   st.HardDeleteTenant,
		MarkSynced:   st.MarkTenantsSynced,
		RemoteUpsert: client.UpsertTenants,
		RemoteDelete: client.DeleteTenant,
	}, st, logger)

	rooms := NewWorker(Tables[*model.Room]{
		Family:       "rooms",
		ListTrashed:  st.ListTrashedRooms,
		ListUnsynced: st.ListUnsyncedRooms,
		HardDelete:   st.HardDeleteRoom,
		MarkSynced:   st.MarkRoomsSynced,
		RemoteUpsert: client.UpsertRooms,
		RemoteDelete: client.DeleteRoom,
	}, st, logger)

	payments := NewWorker(Tables[*model.Payment]{
		Family:       "payments",
		ListTrashed:  st.ListTrashedPayments,
		ListUnsynced: st.ListUnsyncedPayments,
		HardDelete:   st.HardDeletePayment,
		MarkSynced:   st.MarkPaymentsSynced,
		RemoteUpsert: client.UpsertPayments,
		RemoteDelete: client.DeletePayment,
	}, st, logger)

	expenses := NewWorker(Tables[*model.Expense]{
		Family:       "expenses",
		ListTrashed:  st.ListTrashedExpenses,
		ListUnsynced: st.ListUnsyncedExpenses,
		HardDelete:   st.HardDeleteExpense,
		MarkSynced:   st.MarkExpensesSynced,
		RemoteUpsert: client.UpsertExpenses,
		RemoteDelete: client.DeleteExpense,
	}, st, logger)

	profiles := NewWorker(Tables[*model.UserProfile]{
		Family:       "profiles",
		ListUnsynced: st.ListUnsyncedProfiles,
		MarkSynced: func(ctx context.Context, ids []string) error {
			for _, id := range ids {
				if err := st.MarkProfileSynced(ctx, id); err != nil {
					return err
				}
			}
			return nil
		},
		RemoteUpsert: func(ctx context.Context, rows []*model.UserProfile) error {
			for _, p := range rows {
				if err := client.UpsertProfile(ctx, p); err != nil {
					return err
				}
			}
			return nil
		},
	}, st, logger)

	return []Job{tenants, rooms, payments, expenses, profiles}
}
