package syncd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/remote"
	"github.com/rentora/rentora/internal/repo"
	"github.com/rentora/rentora/internal/store"
)

// chargeDateLayout is the calendar-day key recorded after a rent charge.
const chargeDateLayout = "2006-01-02"

// EndOfMonth is the recurring rent-charge job. It only acts on the last
// calendar day of the month: each occupied room's monthly rent is added to
// its tenant's balance (or becomes the balance when it was zero), at most
// once per day, and the charged rows are pushed to remote.
type EndOfMonth struct {
	store  *store.Store
	client *remote.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewEndOfMonth creates the rent-charge job.
func NewEndOfMonth(st *store.Store, client *remote.Client, logger *zap.Logger) *EndOfMonth {
	return &EndOfMonth{
		store:  st,
		client: client,
		logger: logger.Named("end-of-month"),
		now:    time.Now,
	}
}

// Name implements Job.
func (e *EndOfMonth) Name() string { return "end-of-month-balance" }

// Run implements Job.
func (e *EndOfMonth) Run(ctx context.Context) error {
	userID, ok, err := e.store.UserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return repo.ErrNotAuthenticated
	}

	now := e.now()
	if !isLastDayOfMonth(now) {
		return nil
	}

	today := now.Format(chargeDateLayout)
	last, _, err := e.store.GetMeta(ctx, store.MetaKeyLastRentCharge)
	if err != nil {
		return err
	}
	if last == today {
		return nil
	}

	rooms, err := e.store.ListActiveRooms(ctx, userID)
	if err != nil {
		return err
	}
	rentByRoom := make(map[string]int64, len(rooms))
	for _, room := range rooms {
		rentByRoom[room.ID] = room.MonthlyRent
	}

	tenants, err := e.store.ListActiveTenants(ctx, userID)
	if err != nil {
		return err
	}

	charged := 0
	for _, tenant := range tenants {
		rent, found := rentByRoom[tenant.RoomID]
		if !found || rent == 0 {
			continue
		}

		balance := tenant.Balance + rent
		if tenant.Balance == 0 {
			balance = rent
		}
		if err := e.store.SetTenantBalance(ctx, tenant.ID, balance); err != nil {
			return fmt.Errorf("failed to charge tenant %s: %w", tenant.ID, err)
		}
		charged++
	}

	// Record the charge day before the push: charging must happen at most
	// once per day even if the remote push fails.
	if err := e.store.SetMeta(ctx, store.MetaKeyLastRentCharge, today); err != nil {
		return err
	}

	e.logger.Info("rent charged", zap.Int("tenants", charged), zap.String("day", today))

	dirty, err := e.store.ListUnsyncedTenants(ctx, userID)
	if err != nil {
		return err
	}
	if len(dirty) == 0 {
		return nil
	}
	if err := e.client.UpsertTenants(ctx, dirty); err != nil {
		// The 15-minute tenant worker retries the push.
		e.logger.Warn("rent charge push deferred to sync", zap.Error(err))
		return nil
	}
	ids := make([]string, len(dirty))
	for i, t := range dirty {
		ids[i] = t.ID
	}
	return e.store.MarkTenantsSynced(ctx, ids)
}

// isLastDayOfMonth reports whether t falls on its month's final day.
func isLastDayOfMonth(t time.Time) bool {
	return t.AddDate(0, 0, 1).Day() == 1
}
