package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/store"
)

func setupServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := DefaultConfig(zap.NewNop())
	cfg.Port = 0 // random available port
	server := NewServer(st, cfg)

	if err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })

	return server, st
}

func dialClient(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal message: %v", err)
	}
	return msg
}

func TestServerStartStop(t *testing.T) {
	server, _ := setupServer(t)
	if server.Addr() == "" {
		t.Fatal("server address is empty")
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	resp, err := http.Get("http://" + server.Addr() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("unexpected status %q", body.Status)
	}
}

func TestStoreChangeBroadcast(t *testing.T) {
	server, st := setupServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialClient(t, ctx, server)
	time.Sleep(100 * time.Millisecond) // let the subscription settle

	tenant := &model.Tenant{
		ID:        model.NewID(),
		UserID:    "user-1",
		Name:      "Alice",
		RoomID:    model.NewID(),
		MovedInAt: time.Now().UTC(),
	}
	tenant.Touch(time.Now().UTC())
	if err := st.UpsertTenant(ctx, tenant); err != nil {
		t.Fatalf("UpsertTenant failed: %v", err)
	}

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeTableChange {
		t.Fatalf("expected table_change, got %s", msg.Type)
	}
	var change TableChangeData
	if err := json.Unmarshal(msg.Data, &change); err != nil {
		t.Fatalf("failed to unmarshal change data: %v", err)
	}
	if change.Table != string(store.TableTenants) {
		t.Errorf("expected tenants change, got %q", change.Table)
	}
}

func TestNotifyUnpaidBroadcast(t *testing.T) {
	server, _ := setupServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialClient(t, ctx, server)
	time.Sleep(100 * time.Millisecond)

	server.NotifyUnpaid(ctx, []*model.Tenant{
		{Name: "Alice", RoomNumber: "101", Balance: 900},
	})

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeUnpaid {
		t.Fatalf("expected unpaid_tenants, got %s", msg.Type)
	}
	var rows []UnpaidTenantData
	if err := json.Unmarshal(msg.Data, &rows); err != nil {
		t.Fatalf("failed to unmarshal unpaid data: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Alice" || rows[0].Balance != 900 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestSyncCompleteBroadcast(t *testing.T) {
	server, _ := setupServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialClient(t, ctx, server)
	time.Sleep(100 * time.Millisecond)

	server.NotifySyncComplete("tenants-sync", nil)

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncComplete {
		t.Fatalf("expected sync_complete, got %s", msg.Type)
	}
	var payload SyncCompleteData
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.Job != "tenants-sync" || payload.Error != "" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestMultipleClients(t *testing.T) {
	server, _ := setupServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := dialClient(t, ctx, server)
	second := dialClient(t, ctx, server)
	time.Sleep(100 * time.Millisecond)

	if count := server.ClientCount(); count != 2 {
		t.Fatalf("expected 2 clients, got %d", count)
	}

	server.NotifyUnpaid(ctx, []*model.Tenant{{Name: "A", Balance: 1}})
	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, ctx, conn)
		if msg.Type != MessageTypeUnpaid {
			t.Errorf("expected unpaid_tenants, got %s", msg.Type)
		}
	}
}
