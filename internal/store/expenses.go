package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rentora/rentora/internal/model"
)

const expenseColumns = `id, user_id, title, amount, category, spent_at,
	created_at, updated_at, is_synced, is_deleted`

// UpsertExpense inserts or replaces an expense row by id.
func (s *Store) UpsertExpense(ctx context.Context, e *model.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid expense: %w", err)
	}

	query := `
	INSERT INTO expenses (` + expenseColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		title = excluded.title,
		amount = excluded.amount,
		category = excluded.category,
		spent_at = excluded.spent_at,
		updated_at = excluded.updated_at,
		is_synced = excluded.is_synced,
		is_deleted = excluded.is_deleted
	`

	_, err := s.conn.ExecContext(ctx, query,
		e.ID, e.UserID, e.Title, e.Amount, e.Category, timeToSQL(e.SpentAt),
		timeToSQL(e.CreatedAt), timeToSQL(e.UpdatedAt),
		boolToInt(e.Synced), boolToInt(e.Deleted),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert expense: %w", err)
	}

	s.feed.Publish(Event{Table: TableExpenses})
	return nil
}

// GetExpense retrieves a single expense by id.
// Returns sql.ErrNoRows if the expense is not found.
func (s *Store) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	return scanExpense(row)
}

// ListActiveExpenses returns the user's non-deleted expenses, newest first.
func (s *Store) ListActiveExpenses(ctx context.Context, userID string) ([]*model.Expense, error) {
	return s.listExpenses(ctx, userID, "is_deleted = 0", "ORDER BY spent_at DESC")
}

// ListTrashedExpenses returns the user's soft-deleted expenses.
func (s *Store) ListTrashedExpenses(ctx context.Context, userID string) ([]*model.Expense, error) {
	return s.listExpenses(ctx, userID, "is_deleted = 1", "ORDER BY updated_at ASC")
}

// ListUnsyncedExpenses returns non-deleted expenses pending a remote push.
func (s *Store) ListUnsyncedExpenses(ctx context.Context, userID string) ([]*model.Expense, error) {
	return s.listExpenses(ctx, userID, "is_synced = 0 AND is_deleted = 0", "ORDER BY updated_at ASC")
}

func (s *Store) listExpenses(ctx context.Context, userID, where, order string) ([]*model.Expense, error) {
	query := "SELECT " + expenseColumns + " FROM expenses WHERE user_id = ? AND " + where + " " + order
	rows, err := s.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// MarkExpensesSynced flags the given rows as confirmed by the remote store.
func (s *Store) MarkExpensesSynced(ctx context.Context, ids []string) error {
	return s.markSynced(ctx, TableExpenses, ids)
}

// SoftDeleteExpense tombstones an expense locally.
func (s *Store) SoftDeleteExpense(ctx context.Context, id string) error {
	return s.softDelete(ctx, TableExpenses, id)
}

// HardDeleteExpense removes an expense row outright. Idempotent.
func (s *Store) HardDeleteExpense(ctx context.Context, id string) error {
	return s.hardDelete(ctx, TableExpenses, id)
}

func scanExpense(row scanner) (*model.Expense, error) {
	var e model.Expense
	var spentAt, createdAt, updatedAt string
	var synced, deleted int

	err := row.Scan(
		&e.ID, &e.UserID, &e.Title, &e.Amount, &e.Category,
		&spentAt, &createdAt, &updatedAt, &synced, &deleted,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}

	e.SpentAt = timeFromSQL(spentAt)
	e.CreatedAt = timeFromSQL(createdAt)
	e.UpdatedAt = timeFromSQL(updatedAt)
	e.Synced = synced != 0
	e.Deleted = deleted != 0
	return &e, nil
}
