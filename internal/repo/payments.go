package repo

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/remote"
	"github.com/rentora/rentora/internal/store"
)

// Payments is the payment repository. Recording a payment also writes the
// paid tenant's new balance, which the caller computes (balance prior minus
// the amount paid); the store and the repository trust that value and never
// recompute it.
type Payments struct {
	*Repository[*model.Payment]
	store  *store.Store
	client *remote.Client
	logger *zap.Logger
}

// NewPayments wires the payment repository.
func NewPayments(st *store.Store, client *remote.Client, logger *zap.Logger) *Payments {
	local := Local[*model.Payment]{
		ListActive:  st.ListActivePayments,
		ListTrashed: st.ListTrashedPayments,
		Get:         st.GetPayment,
		Upsert:      st.UpsertPayment,
		SoftDelete:  st.SoftDeletePayment,
		HardDelete:  st.HardDeletePayment,
	}
	rem := Remote[*model.Payment]{
		List:   client.ListPayments,
		Insert: client.InsertPayment,
		Upsert: client.UpsertPayments,
		Delete: client.DeletePayment,
	}
	return &Payments{
		Repository: New("payments", store.TablePayments, st, st.Feed(), local, rem, logger),
		store:      st,
		client:     client,
		logger:     logger.Named("payments"),
	}
}

// Insert records a payment against a tenant and applies the caller-computed
// balance to that tenant, local first and remote best-effort.
func (p *Payments) Insert(ctx context.Context, payment *model.Payment, newBalance int64) error {
	tenant, err := p.store.GetTenant(ctx, payment.TenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	payment.TenantName = tenant.Name
	payment.RoomNumber = tenant.RoomNumber

	if err := p.Repository.Insert(ctx, payment); err != nil {
		return err
	}

	// The balance write follows the same split as room occupancy: a clean
	// tenant row gets a column-level partial update, a dirty or never-pushed
	// one is upserted whole so the balance write cannot hide its other
	// changes from the sync worker. Synced flips only on a remote ack.
	wasSynced := tenant.Synced
	if err := p.store.SetTenantBalance(ctx, payment.TenantID, newBalance); err != nil {
		p.logger.Warn("failed to update tenant balance locally",
			zap.String("tenant_id", payment.TenantID), zap.Error(err))
		return nil
	}

	if wasSynced {
		err = p.client.UpdateTenantBalance(ctx, payment.TenantID, newBalance)
	} else if tenant, err = p.store.GetTenant(ctx, payment.TenantID); err == nil {
		err = p.client.UpsertTenants(ctx, []*model.Tenant{tenant})
	}
	if err != nil {
		p.logger.Warn("remote balance update deferred to sync",
			zap.String("tenant_id", payment.TenantID), zap.Error(err))
		return nil
	}
	if err := p.store.MarkTenantsSynced(ctx, []string{payment.TenantID}); err != nil {
		p.logger.Warn("failed to record tenant sync state",
			zap.String("tenant_id", payment.TenantID), zap.Error(err))
	}
	return nil
}
