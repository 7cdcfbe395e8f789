package syncd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/repo"
	"github.com/rentora/rentora/internal/store"
)

// Notifier raises a user-facing notice about tenants who still owe rent.
type Notifier interface {
	NotifyUnpaid(ctx context.Context, tenants []*model.Tenant)
}

// UnpaidTenants is the daily notification job. Read-only: it lists the
// tenants with a positive balance and hands them to the notifier.
type UnpaidTenants struct {
	store    *store.Store
	notifier Notifier
	logger   *zap.Logger
}

// NewUnpaidTenants creates the notification job. notifier may be nil, in
// which case the job only logs.
func NewUnpaidTenants(st *store.Store, notifier Notifier, logger *zap.Logger) *UnpaidTenants {
	return &UnpaidTenants{
		store:    st,
		notifier: notifier,
		logger:   logger.Named("unpaid-tenants"),
	}
}

// Name implements Job.
func (u *UnpaidTenants) Name() string { return "unpaid-tenants" }

// Run implements Job.
func (u *UnpaidTenants) Run(ctx context.Context) error {
	userID, ok, err := u.store.UserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return repo.ErrNotAuthenticated
	}

	owing, err := u.store.ListOwingTenants(ctx, userID)
	if err != nil {
		return err
	}
	if len(owing) == 0 {
		return nil
	}

	u.logger.Info("tenants with outstanding balance", zap.Int("count", len(owing)))
	for _, t := range owing {
		u.logger.Info("unpaid tenant",
			zap.String("name", t.Name),
			zap.String("room", t.RoomNumber),
			zap.Int64("balance", t.Balance),
		)
	}

	if u.notifier != nil {
		u.notifier.NotifyUnpaid(ctx, owing)
	}
	return nil
}
