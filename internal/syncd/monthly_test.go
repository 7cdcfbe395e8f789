package syncd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/remote"
	"github.com/rentora/rentora/internal/store"
)

// setupChargeStore seeds a store with a session, one room and one tenant.
func setupChargeStore(t *testing.T, rent, balance int64) (*store.Store, *model.Tenant) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.SaveSession(ctx, "user-1", "token"); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	room := &model.Room{
		ID:          model.NewID(),
		UserID:      "user-1",
		Number:      "101",
		MonthlyRent: rent,
		Occupied:    true,
	}
	room.Touch(time.Now().UTC())
	if err := st.UpsertRoom(ctx, room); err != nil {
		t.Fatalf("failed to seed room: %v", err)
	}

	tenant := &model.Tenant{
		ID:        model.NewID(),
		UserID:    "user-1",
		Name:      "Alice",
		RoomID:    room.ID,
		Balance:   balance,
		MovedInAt: time.Now().UTC(),
	}
	tenant.Touch(time.Now().UTC())
	tenant.Synced = true
	if err := st.UpsertTenant(ctx, tenant); err != nil {
		t.Fatalf("failed to seed tenant: %v", err)
	}

	return st, tenant
}

// offlineClient points at a closed port so remote pushes always fail and
// defer to the sync worker.
func offlineClient() *remote.Client {
	return remote.NewClient(remote.Config{
		BaseURL: "http://127.0.0.1:1",
		APIKey:  "test",
		Timeout: time.Second,
	}, nil, zap.NewNop())
}

func chargeJobAt(st *store.Store, day time.Time) *EndOfMonth {
	job := NewEndOfMonth(st, offlineClient(), zap.NewNop())
	job.now = func() time.Time { return day }
	return job
}

func TestChargeSkipsMidMonth(t *testing.T) {
	st, tenant := setupChargeStore(t, 900, 0)

	job := chargeJobAt(st, time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := st.GetTenant(context.Background(), tenant.ID)
	if err != nil {
		t.Fatalf("GetTenant failed: %v", err)
	}
	if got.Balance != 0 {
		t.Errorf("expected no charge mid-month, balance %d", got.Balance)
	}
}

func TestChargeOnLastDay(t *testing.T) {
	st, tenant := setupChargeStore(t, 900, 0)
	ctx := context.Background()

	job := chargeJobAt(st, time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC))
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := st.GetTenant(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("GetTenant failed: %v", err)
	}
	if got.Balance != 900 {
		t.Errorf("expected balance 900, got %d", got.Balance)
	}
	if got.Synced {
		t.Error("charged row must stay unsynced while offline")
	}
}

func TestChargeAddsToExistingDebt(t *testing.T) {
	st, tenant := setupChargeStore(t, 900, 300)
	ctx := context.Background()

	job := chargeJobAt(st, time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC))
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := st.GetTenant(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("GetTenant failed: %v", err)
	}
	if got.Balance != 1200 {
		t.Errorf("expected balance 1200, got %d", got.Balance)
	}
}

func TestChargeAtMostOncePerDay(t *testing.T) {
	st, tenant := setupChargeStore(t, 900, 0)
	ctx := context.Background()

	day := time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC)
	job := chargeJobAt(st, day)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Same calendar day, later hour: no second charge.
	job.now = func() time.Time { return day.Add(10 * time.Hour) }
	if err := job.Run(ctx); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	got, err := st.GetTenant(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("GetTenant failed: %v", err)
	}
	if got.Balance != 900 {
		t.Errorf("expected a single charge, balance %d", got.Balance)
	}
}

func TestChargeSkipsTenantsWithoutRoomRent(t *testing.T) {
	st, _ := setupChargeStore(t, 900, 0)
	ctx := context.Background()

	// A tenant pointing at a room this store does not know about.
	stray := &model.Tenant{
		ID:        model.NewID(),
		UserID:    "user-1",
		Name:      "Bob",
		RoomID:    model.NewID(),
		MovedInAt: time.Now().UTC(),
	}
	stray.Touch(time.Now().UTC())
	stray.Synced = true
	if err := st.UpsertTenant(ctx, stray); err != nil {
		t.Fatalf("failed to seed tenant: %v", err)
	}

	job := chargeJobAt(st, time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC))
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := st.GetTenant(ctx, stray.ID)
	if err != nil {
		t.Fatalf("GetTenant failed: %v", err)
	}
	if got.Balance != 0 {
		t.Errorf("expected no charge without a room, balance %d", got.Balance)
	}
}

func TestUnpaidTenantsNotifies(t *testing.T) {
	st, tenant := setupChargeStore(t, 900, 450)
	ctx := context.Background()

	var notified []*model.Tenant
	job := NewUnpaidTenants(st, notifierFunc(func(ctx context.Context, tenants []*model.Tenant) {
		notified = tenants
	}), zap.NewNop())

	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(notified) != 1 || notified[0].ID != tenant.ID {
		t.Errorf("expected the owing tenant notified, got %v", notified)
	}
}

func TestUnpaidTenantsNoDebtNoNotice(t *testing.T) {
	st, _ := setupChargeStore(t, 900, 0)

	called := false
	job := NewUnpaidTenants(st, notifierFunc(func(ctx context.Context, tenants []*model.Tenant) {
		called = true
	}), zap.NewNop())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if called {
		t.Error("expected no notification without owing tenants")
	}
}

// notifierFunc adapts a function to the Notifier interface.
type notifierFunc func(ctx context.Context, tenants []*model.Tenant)

func (f notifierFunc) NotifyUnpaid(ctx context.Context, tenants []*model.Tenant) {
	f(ctx, tenants)
}
