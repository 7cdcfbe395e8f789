package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/remote"
	"github.com/rentora/rentora/internal/store"
)

// Tenants is the tenant repository. On top of the generic skeleton it keeps
// the parent room's occupancy in step: moving a tenant in marks the room
// occupied, deleting the tenant frees it again, local first and remote
// best-effort like every other write.
type Tenants struct {
	*Repository[*model.Tenant]
	store  *store.Store
	client *remote.Client
	logger *zap.Logger
}

// NewTenants wires the tenant repository.
func NewTenants(st *store.Store, client *remote.Client, logger *zap.Logger) *Tenants {
	local := Local[*model.Tenant]{
		ListActive:  st.ListActiveTenants,
		ListTrashed: st.ListTrashedTenants,
		Get:         st.GetTenant,
		Upsert:      st.UpsertTenant,
		SoftDelete:  st.SoftDeleteTenant,
		HardDelete:  st.HardDeleteTenant,
	}
	rem := Remote[*model.Tenant]{
		List:   client.ListTenants,
		Insert: client.InsertTenant,
		Upsert: client.UpsertTenants,
		Delete: client.DeleteTenant,
	}
	return &Tenants{
		Repository: New("tenants", store.TableTenants, st, st.Feed(), local, rem, logger),
		store:      st,
		client:     client,
		logger:     logger.Named("tenants"),
	}
}

// Insert moves a tenant into a room. The room number is denormalized onto
// the tenant for display, and the room is flagged occupied.
func (t *Tenants) Insert(ctx context.Context, tenant *model.Tenant) error {
	room, err := t.store.GetRoom(ctx, tenant.RoomID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	tenant.RoomNumber = room.Number

	if err := t.Repository.Insert(ctx, tenant); err != nil {
		return err
	}

	t.setOccupied(ctx, tenant.RoomID, true)
	return nil
}

// Delete moves a tenant out, freeing the room on the way.
func (t *Tenants) Delete(ctx context.Context, id string) error {
	tenant, err := t.store.GetTenant(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := t.Repository.Delete(ctx, id); err != nil {
		return err
	}

	t.setOccupied(ctx, tenant.RoomID, false)
	return nil
}

// SetPhoto uploads a tenant photo to object storage and records its public
// URL on the tenant through the usual write-through update.
func (t *Tenants) SetPhoto(ctx context.Context, id string, data []byte, contentType string) (*model.Tenant, error) {
	tenant, err := t.Repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	path, err := t.client.Upload(ctx, remote.BucketTenantPhotos, tenant.UserID+"/"+tenant.ID, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("photo upload failed: %w", err)
	}
	tenant.PhotoPath = t.client.PublicURL(remote.BucketTenantPhotos, path)

	if err := t.Repository.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// setOccupied applies the dependent room write: local flag flip first, then
// a best-effort remote write. A room that was clean before the flip gets a
// column-level partial update; a room carrying other unsynced changes, or
// one never pushed at all, is sent whole through the bulk upsert so the
// flip cannot hide those changes from the sync worker. The row is marked
// synced only on an acknowledged remote write; failures are logged and
// left for the next sync pass.
func (t *Tenants) setOccupied(ctx context.Context, roomID string, occupied bool) {
	room, err := t.store.GetRoom(ctx, roomID)
	if err != nil {
		t.logger.Warn("failed to load room for occupancy update",
			zap.String("room_id", roomID), zap.Error(err))
		return
	}
	wasSynced := room.Synced

	if err := t.store.SetRoomOccupied(ctx, roomID, occupied); err != nil {
		t.logger.Warn("failed to update room occupancy locally",
			zap.String("room_id", roomID), zap.Error(err))
		return
	}

	if wasSynced {
		err = t.client.UpdateRoomOccupied(ctx, roomID, occupied)
	} else if room, err = t.store.GetRoom(ctx, roomID); err == nil {
		err = t.client.UpsertRooms(ctx, []*model.Room{room})
	}
	if err != nil {
		t.logger.Warn("remote occupancy update deferred to sync",
			zap.String("room_id", roomID), zap.Error(err))
		return
	}
	if err := t.store.MarkRoomsSynced(ctx, []string{roomID}); err != nil {
		t.logger.Warn("failed to record room sync state",
			zap.String("room_id", roomID), zap.Error(err))
	}
}
