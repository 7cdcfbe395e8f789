package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rentora/rentora/internal/model"
)

const paymentColumns = `id, user_id, tenant_id, tenant_name, room_number,
	amount, note, paid_at, created_at, updated_at, is_synced, is_deleted`

// UpsertPayment inserts or replaces a payment row by id.
func (s *Store) UpsertPayment(ctx context.Context, p *model.Payment) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid payment: %w", err)
	}

	query := `
	INSERT INTO payments (` + paymentColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		tenant_id = excluded.tenant_id,
		tenant_name = excluded.tenant_name,
		room_number = excluded.room_number,
		amount = excluded.amount,
		note = excluded.note,
		paid_at = excluded.paid_at,
		updated_at = excluded.updated_at,
		is_synced = excluded.is_synced,
		is_deleted = excluded.is_deleted
	`

	_, err := s.conn.ExecContext(ctx, query,
		p.ID, p.UserID, p.TenantID, p.TenantName, p.RoomNumber,
		p.Amount, p.Note, timeToSQL(p.PaidAt), timeToSQL(p.CreatedAt),
		timeToSQL(p.UpdatedAt), boolToInt(p.Synced), boolToInt(p.Deleted),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}

	s.feed.Publish(Event{Table: TablePayments})
	return nil
}

// GetPayment retrieves a single payment by id.
// Returns sql.ErrNoRows if the payment is not found.
func (s *Store) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	return scanPayment(row)
}

// ListActivePayments returns the user's non-deleted payments, newest first.
func (s *Store) ListActivePayments(ctx context.Context, userID string) ([]*model.Payment, error) {
	return s.listPayments(ctx, userID, "is_deleted = 0", "ORDER BY paid_at DESC")
}

// ListTrashedPayments returns the user's soft-deleted payments.
func (s *Store) ListTrashedPayments(ctx context.Context, userID string) ([]*model.Payment, error) {
	return s.listPayments(ctx, userID, "is_deleted = 1", "ORDER BY updated_at ASC")
}

// ListUnsyncedPayments returns non-deleted payments pending a remote push.
func (s *Store) ListUnsyncedPayments(ctx context.Context, userID string) ([]*model.Payment, error) {
	return s.listPayments(ctx, userID, "is_synced = 0 AND is_deleted = 0", "ORDER BY updated_at ASC")
}

func (s *Store) listPayments(ctx context.Context, userID, where, order string) ([]*model.Payment, error) {
	query := "SELECT " + paymentColumns + " FROM payments WHERE user_id = ? AND " + where + " " + order
	rows, err := s.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

// MarkPaymentsSynced flags the given rows as confirmed by the remote store.
func (s *Store) MarkPaymentsSynced(ctx context.Context, ids []string) error {
	return s.markSynced(ctx, TablePayments, ids)
}

// SoftDeletePayment tombstones a payment locally.
func (s *Store) SoftDeletePayment(ctx context.Context, id string) error {
	return s.softDelete(ctx, TablePayments, id)
}

// HardDeletePayment removes a payment row outright. Idempotent.
func (s *Store) HardDeletePayment(ctx context.Context, id string) error {
	return s.hardDelete(ctx, TablePayments, id)
}

func scanPayment(row scanner) (*model.Payment, error) {
	var p model.Payment
	var paidAt, createdAt, updatedAt string
	var synced, deleted int

	err := row.Scan(
		&p.ID, &p.UserID, &p.TenantID, &p.TenantName, &p.RoomNumber,
		&p.Amount, &p.Note, &paidAt, &createdAt, &updatedAt,
		&synced, &deleted,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.PaidAt = timeFromSQL(paidAt)
	p.CreatedAt = timeFromSQL(createdAt)
	p.UpdatedAt = timeFromSQL(updatedAt)
	p.Synced = synced != 0
	p.Deleted = deleted != 0
	return &p, nil
}
