package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rentora/rentora/internal/model"
)

const roomColumns = `id, user_id, number, monthly_rent, is_occupied,
	created_at, updated_at, is_synced, is_deleted`

// UpsertRoom inserts or replaces a room row by id, including its sync flags.
func (s *Store) UpsertRoom(ctx context.Context, r *model.Room) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid room: %w", err)
	}

	query := `
	INSERT INTO rooms (` + roomColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		number = excluded.number,
		monthly_rent = excluded.monthly_rent,
		is_occupied = excluded.is_occupied,
		updated_at = excluded.updated_at,
		is_synced = excluded.is_synced,
		is_deleted = excluded.is_deleted
	`

	_, err := s.conn.ExecContext(ctx, query,
		r.ID, r.UserID, r.Number, r.MonthlyRent, boolToInt(r.Occupied),
		timeToSQL(r.CreatedAt), timeToSQL(r.UpdatedAt),
		boolToInt(r.Synced), boolToInt(r.Deleted),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}

	s.feed.Publish(Event{Table: TableRooms})
	return nil
}

// GetRoom retrieves a single room by id.
// Returns sql.ErrNoRows if the room is not found.
func (s *Store) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE id = ?", id)
	return scanRoom(row)
}

// ListActiveRooms returns the user's non-deleted rooms ordered by number.
func (s *Store) ListActiveRooms(ctx context.Context, userID string) ([]*model.Room, error) {
	return s.listRooms(ctx, userID, "is_deleted = 0", "ORDER BY number ASC")
}

// ListTrashedRooms returns the user's soft-deleted rooms.
func (s *Store) ListTrashedRooms(ctx context.Context, userID string) ([]*model.Room, error) {
	return s.listRooms(ctx, userID, "is_deleted = 1", "ORDER BY updated_at ASC")
}

// ListUnsyncedRooms returns non-deleted rooms pending a remote push.
func (s *Store) ListUnsyncedRooms(ctx context.Context, userID string) ([]*model.Room, error) {
	return s.listRooms(ctx, userID, "is_synced = 0 AND is_deleted = 0", "ORDER BY updated_at ASC")
}

func (s *Store) listRooms(ctx context.Context, userID, where, order string) ([]*model.Room, error) {
	query := "SELECT " + roomColumns + " FROM rooms WHERE user_id = ? AND " + where + " " + order
	rows, err := s.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*model.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rooms: %w", err)
	}
	return rooms, nil
}

// MarkRoomsSynced flags the given rows as confirmed by the remote store.
func (s *Store) MarkRoomsSynced(ctx context.Context, ids []string) error {
	return s.markSynced(ctx, TableRooms, ids)
}

// SoftDeleteRoom tombstones a room locally.
func (s *Store) SoftDeleteRoom(ctx context.Context, id string) error {
	return s.softDelete(ctx, TableRooms, id)
}

// HardDeleteRoom removes a room row outright. Idempotent.
func (s *Store) HardDeleteRoom(ctx context.Context, id string) error {
	return s.hardDelete(ctx, TableRooms, id)
}

// SetRoomOccupied flips a room's occupancy flag and marks the row unsynced.
// Called from the tenant move-in and move-out paths.
func (s *Store) SetRoomOccupied(ctx context.Context, id string, occupied bool) error {
	query := `
	UPDATE rooms SET is_occupied = ?, is_synced = 0, updated_at = ?
	WHERE id = ?
	`
	if _, err := s.conn.ExecContext(ctx, query, boolToInt(occupied), nowSQL(), id); err != nil {
		return fmt.Errorf("failed to set room occupancy: %w", err)
	}
	s.feed.Publish(Event{Table: TableRooms})
	return nil
}

func scanRoom(row scanner) (*model.Room, error) {
	var r model.Room
	var createdAt, updatedAt string
	var occupied, synced, deleted int

	err := row.Scan(
		&r.ID, &r.UserID, &r.Number, &r.MonthlyRent, &occupied,
		&createdAt, &updatedAt, &synced, &deleted,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}

	r.Occupied = occupied != 0
	r.CreatedAt = timeFromSQL(createdAt)
	r.UpdatedAt = timeFromSQL(updatedAt)
	r.Synced = synced != 0
	r.Deleted = deleted != 0
	return &r, nil
}
