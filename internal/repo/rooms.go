package repo

import (
	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/remote"
	"github.com/rentora/rentora/internal/store"
)

// Rooms is the room repository. Rooms have no side-channel writes of their
// own; occupancy flips come in from the tenant repository.
type Rooms struct {
	*Repository[*model.Room]
}

// NewRooms wires the room repository.
func NewRooms(st *store.Store, client *remote.Client, logger *zap.Logger) *Rooms {
	local := Local[*model.Room]{
		ListActive:  st.ListActiveRooms,
		ListTrashed: st.ListTrashedRooms,
		Get:         st.GetRoom,
		Upsert:      st.UpsertRoom,
		SoftDelete:  st.SoftDeleteRoom,
		HardDelete:  st.HardDeleteRoom,
	}
	rem := Remote[*model.Room]{
		List:   client.ListRooms,
		Insert: client.InsertRoom,
		Upsert: client.UpsertRooms,
		Delete: client.DeleteRoom,
	}
	return &Rooms{
		Repository: New("rooms", store.TableRooms, st, st.Feed(), local, rem, logger),
	}
}
