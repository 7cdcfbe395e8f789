package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rentora/rentora/internal/model"
)

const tenantColumns = `id, user_id, name, phone, room_id, room_number, balance,
	photo_path, moved_in_at, created_at, updated_at, is_synced, is_deleted`

// UpsertTenant inserts or replaces a tenant row by id, including its sync
// flags. Callers decide the flag values: fresh local writes come in with
// Synced=false, rows confirmed by the remote store come in with Synced=true.
func (s *Store) UpsertTenant(ctx context.Context, t *model.Tenant) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid tenant: %w", err)
	}

	query := `
	INSERT INTO tenants (` + tenantColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		name = excluded.name,
		phone = excluded.phone,
		room_id = excluded.room_id,
		room_number = excluded.room_number,
		balance = excluded.balance,
		photo_path = excluded.photo_path,
		moved_in_at = excluded.moved_in_at,
		updated_at = excluded.updated_at,
		is_synced = excluded.is_synced,
		is_deleted = excluded.is_deleted
	`

	_, err := s.conn.ExecContext(ctx, query,
		t.ID, t.UserID, t.Name, t.Phone, t.RoomID, t.RoomNumber, t.Balance,
		t.PhotoPath, timeToSQL(t.MovedInAt), timeToSQL(t.CreatedAt),
		timeToSQL(t.UpdatedAt), boolToInt(t.Synced), boolToInt(t.Deleted),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant: %w", err)
	}

	s.feed.Publish(Event{Table: TableTenants})
	return nil
}

// GetTenant retrieves a single tenant by id, tombstoned or not.
// Returns sql.ErrNoRows if the tenant is not found.
func (s *Store) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = ?", id)
	return scanTenant(row)
}

// ListActiveTenants returns the user's non-deleted tenants, newest move-in
// first.
func (s *Store) ListActiveTenants(ctx context.Context, userID string) ([]*model.Tenant, error) {
	return s.listTenants(ctx, userID, "is_deleted = 0", "ORDER BY moved_in_at DESC")
}

// ListTrashedTenants returns the user's soft-deleted tenants awaiting remote
// confirmation.
func (s *Store) ListTrashedTenants(ctx context.Context, userID string) ([]*model.Tenant, error) {
	return s.listTenants(ctx, userID, "is_deleted = 1", "ORDER BY updated_at ASC")
}

// ListUnsyncedTenants returns non-deleted tenants the remote store doesn't
// have an up-to-date copy of.
func (s *Store) ListUnsyncedTenants(ctx context.Context, userID string) ([]*model.Tenant, error) {
	return s.listTenants(ctx, userID, "is_synced = 0 AND is_deleted = 0", "ORDER BY updated_at ASC")
}

func (s *Store) listTenants(ctx context.Context, userID, where, order string) ([]*model.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM tenants WHERE user_id = ? AND " + where + " " + order
	rows, err := s.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*model.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}
	return tenants, nil
}

// MarkTenantsSynced flags the given rows as confirmed by the remote store.
func (s *Store) MarkTenantsSynced(ctx context.Context, ids []string) error {
	return s.markSynced(ctx, TableTenants, ids)
}

// SoftDeleteTenant tombstones a tenant locally. The row stays until the
// remote delete is acknowledged.
func (s *Store) SoftDeleteTenant(ctx context.Context, id string) error {
	return s.softDelete(ctx, TableTenants, id)
}

// HardDeleteTenant removes a tenant row outright. Idempotent.
func (s *Store) HardDeleteTenant(ctx context.Context, id string) error {
	return s.hardDelete(ctx, TableTenants, id)
}

// SetTenantBalance overwrites a tenant's balance with a caller-computed
// value and marks the row unsynced. The store never recomputes balances.
func (s *Store) SetTenantBalance(ctx context.Context, id string, balance int64) error {
	query := `
	UPDATE tenants SET balance = ?, is_synced = 0, updated_at = ?
	WHERE id = ?
	`
	if _, err := s.conn.ExecContext(ctx, query, balance, nowSQL(), id); err != nil {
		return fmt.Errorf("failed to set tenant balance: %w", err)
	}
	s.feed.Publish(Event{Table: TableTenants})
	return nil
}

// ListOwingTenants returns the user's active tenants with a positive
// balance, highest debt first. Read-only; used by the unpaid notification.
func (s *Store) ListOwingTenants(ctx context.Context, userID string) ([]*model.Tenant, error) {
	return s.listTenants(ctx, userID, "is_deleted = 0 AND balance > 0", "ORDER BY balance DESC")
}

// scanner abstracts sql.Row and sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(row scanner) (*model.Tenant, error) {
	var t model.Tenant
	var movedIn, createdAt, updatedAt string
	var synced, deleted int

	err := row.Scan(
		&t.ID, &t.UserID, &t.Name, &t.Phone, &t.RoomID, &t.RoomNumber,
		&t.Balance, &t.PhotoPath, &movedIn, &createdAt, &updatedAt,
		&synced, &deleted,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}

	t.MovedInAt = timeFromSQL(movedIn)
	t.CreatedAt = timeFromSQL(createdAt)
	t.UpdatedAt = timeFromSQL(updatedAt)
	t.Synced = synced != 0
	t.Deleted = deleted != 0
	return &t, nil
}
