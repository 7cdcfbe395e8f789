package syncd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/remote"
	"github.com/rentora/rentora/internal/repo"
	"github.com/rentora/rentora/internal/store"
)

// fixedSession always resolves the same user.
type fixedSession struct {
	userID string
}

func (s fixedSession) UserID(ctx context.Context) (string, bool, error) {
	return s.userID, s.userID != "", nil
}

func expense(id string) *model.Expense {
	return &model.Expense{
		ID:      id,
		UserID:  "user-1",
		Title:   "Repair",
		Amount:  100,
		SpentAt: time.Now().UTC(),
	}
}

func TestWorkerRequiresSession(t *testing.T) {
	w := NewWorker(Tables[*model.Expense]{Family: "expenses"}, fixedSession{}, zap.NewNop())
	if err := w.Run(context.Background()); !errors.Is(err, repo.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestWorkerPushesUnsynced(t *testing.T) {
	var pushed []*model.Expense
	var marked []string

	w := NewWorker(Tables[*model.Expense]{
		Family: "expenses",
		ListUnsynced: func(ctx context.Context, userID string) ([]*model.Expense, error) {
			return []*model.Expense{expense("e-1"), expense("e-2")}, nil
		},
		MarkSynced: func(ctx context.Context, ids []string) error {
			marked = append(marked, ids...)
			return nil
		},
		RemoteUpsert: func(ctx context.Context, rows []*model.Expense) error {
			pushed = append(pushed, rows...)
			return nil
		},
	}, fixedSession{userID: "user-1"}, zap.NewNop())

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(pushed) != 2 {
		t.Errorf("expected 2 rows pushed, got %d", len(pushed))
	}
	if len(marked) != 2 || marked[0] != "e-1" || marked[1] != "e-2" {
		t.Errorf("expected both ids marked synced, got %v", marked)
	}
}

func TestWorkerLeavesRowsDirtyOnPushFailure(t *testing.T) {
	var marked []string

	w := NewWorker(Tables[*model.Expense]{
		Family: "expenses",
		ListUnsynced: func(ctx context.Context, userID string) ([]*model.Expense, error) {
			return []*model.Expense{expense("e-1")}, nil
		},
		MarkSynced: func(ctx context.Context, ids []string) error {
			marked = append(marked, ids...)
			return nil
		},
		RemoteUpsert: func(ctx context.Context, rows []*model.Expense) error {
			return errors.New("network down")
		},
	}, fixedSession{userID: "user-1"}, zap.NewNop())

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected push failure to surface")
	}
	if len(marked) != 0 {
		t.Errorf("rows must stay unsynced after a failed push, marked %v", marked)
	}
}

func TestWorkerPurgesTombstonesSequentially(t *testing.T) {
	var deleted, purged []string

	w := NewWorker(Tables[*model.Expense]{
		Family: "expenses",
		ListTrashed: func(ctx context.Context, userID string) ([]*model.Expense, error) {
			return []*model.Expense{expense("e-1"), expense("e-2"), expense("e-3")}, nil
		},
		ListUnsynced: func(ctx context.Context, userID string) ([]*model.Expense, error) {
			return nil, nil
		},
		HardDelete: func(ctx context.Context, id string) error {
			purged = append(purged, id)
			return nil
		},
		RemoteDelete: func(ctx context.Context, id, userID string) error {
			if id == "e-2" {
				return errors.New("remote rejected delete")
			}
			deleted = append(deleted, id)
			return nil
		},
	}, fixedSession{userID: "user-1"}, zap.NewNop())

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected tombstone failure to abort the run")
	}

	// Only rows confirmed by the remote are purged; the failed row and
	// everything after it wait for the next pass.
	if len(deleted) != 1 || deleted[0] != "e-1" {
		t.Errorf("expected only e-1 remotely deleted, got %v", deleted)
	}
	if len(purged) != 1 || purged[0] != "e-1" {
		t.Errorf("expected only e-1 purged locally, got %v", purged)
	}
}

// TestFamilyWorkersPushOfflineInsert runs the real store, repositories and
// workers end to end: a row created while the remote is unreachable stays
// dirty until a worker pass pushes it and flips it synced.
func TestFamilyWorkersPushOfflineInsert(t *testing.T) {
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.SaveSession(ctx, "user-1", "token"); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	// Insert through the repository against a dead remote.
	rooms := repo.NewRooms(st, offlineClient(), zap.NewNop())
	room := &model.Room{Number: "101", MonthlyRent: 500}
	if err := rooms.Insert(ctx, room); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	seeded, err := st.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if seeded.Synced {
		t.Fatal("offline insert must leave the row unsynced")
	}

	// A backend that records upserted rows by id.
	var mu sync.Mutex
	remoteRows := make(map[string]map[string]any)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/rest/v1/") {
			var rows []map[string]any
			if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			mu.Lock()
			for _, row := range rows {
				if id, ok := row["id"].(string); ok {
					remoteRows[id] = row
				}
			}
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := remote.NewClient(remote.Config{
		BaseURL: srv.URL,
		APIKey:  "test",
		Timeout: 2 * time.Second,
	}, st.AccessToken, zap.NewNop())

	for _, job := range NewFamilyWorkers(st, client, zap.NewNop()) {
		if err := job.Run(ctx); err != nil {
			t.Fatalf("%s failed: %v", job.Name(), err)
		}
	}

	mu.Lock()
	pushed := remoteRows[room.ID]
	mu.Unlock()
	if pushed == nil || pushed["number"] != "101" {
		t.Fatalf("expected the offline room on the remote, got %v", pushed)
	}

	got, err := st.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if !got.Synced {
		t.Error("expected room synced after the worker pass")
	}
}

func TestWorkerSkipsNilPhases(t *testing.T) {
	// A family without tombstones (profiles) has no ListTrashed.
	w := NewWorker(Tables[*model.Expense]{
		Family: "profiles",
		ListUnsynced: func(ctx context.Context, userID string) ([]*model.Expense, error) {
			return nil, nil
		},
	}, fixedSession{userID: "user-1"}, zap.NewNop())

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}
