// Package dashboard provides a WebSocket server broadcasting local-store
// changes and sync activity to connected clients.
//
// The server subscribes to the store change feed and relays table-change
// events, periodic cache statistics, and the unpaid-tenant notifications
// raised by the daily job. Clients connect to /ws and receive JSON messages;
// no client input is processed.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
	"github.com/rentora/rentora/internal/store"
)

// MessageType tags a dashboard broadcast.
type MessageType string

const (
	// MessageTypeTableChange indicates rows in a local table changed.
	MessageTypeTableChange MessageType = "table_change"

	// MessageTypeStats carries cache row counts per table.
	MessageTypeStats MessageType = "stats"

	// MessageTypeUnpaid lists tenants with an outstanding balance.
	MessageTypeUnpaid MessageType = "unpaid_tenants"

	// MessageTypeSyncComplete reports a finished sync job run.
	MessageTypeSyncComplete MessageType = "sync_complete"
)

// Message is one dashboard broadcast.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// TableChangeData names the table that changed.
type TableChangeData struct {
	Table string `json:"table"`
}

// UnpaidTenantData is one owing tenant in an unpaid_tenants message.
type UnpaidTenantData struct {
	Name       string `json:"name"`
	RoomNumber string `json:"room_number"`
	Balance    int64  `json:"balance"`
}

// SyncCompleteData reports one finished sync job run.
type SyncCompleteData struct {
	Job   string `json:"job"`
	Error string `json:"error,omitempty"`
}

// StatsData carries per-table cache counts.
type StatsData struct {
	Tables map[string]store.Counts `json:"tables"`
}

// Config holds server settings.
type Config struct {
	// Port to listen on.
	Port int

	// StatsInterval is how often cache statistics are broadcast.
	StatsInterval time.Duration

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(logger *zap.Logger) *Config {
	return &Config{
		Port:          8090,
		StatsInterval: 30 * time.Second,
		Logger:        logger,
	}
}

// Server broadcasts store and sync activity over WebSocket.
type Server struct {
	addr     string
	st       *store.Store
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	statsInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

// NewServer creates a dashboard server over the given store.
func NewServer(st *store.Store, cfg *Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:          fmt.Sprintf(":%d", cfg.Port),
		st:            st,
		clients:       make(map[*websocket.Conn]bool),
		broadcast:     make(chan Message, 100),
		statsInterval: cfg.StatsInterval,
		ctx:           ctx,
		cancel:        cancel,
		logger:        cfg.Logger.Named("dashboard"),
	}
}

// Start begins serving and relaying events. Non-blocking.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(3)
	go s.broadcastLoop()
	go s.relayFeed()
	go s.statsLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("dashboard listening", zap.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("dashboard server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("dashboard shutdown error: %w", err)
	}

	s.wg.Wait()
	s.logger.Info("dashboard stopped")
	return nil
}

// Broadcast queues a message for all connected clients, dropping it when
// the queue is full.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Warn("broadcast queue full, dropping message", zap.String("type", string(msg.Type)))
	}
}

// NotifyUnpaid implements syncd.Notifier.
func (s *Server) NotifyUnpaid(ctx context.Context, tenants []*model.Tenant) {
	rows := make([]UnpaidTenantData, len(tenants))
	for i, t := range tenants {
		rows[i] = UnpaidTenantData{Name: t.Name, RoomNumber: t.RoomNumber, Balance: t.Balance}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	s.Broadcast(Message{Type: MessageTypeUnpaid, Data: data})
}

// NotifySyncComplete broadcasts the outcome of one sync job run. Wire it
// to the daemon's OnRunComplete hook.
func (s *Server) NotifySyncComplete(job string, err error) {
	payload := SyncCompleteData{Job: job}
	if err != nil {
		payload.Error = err.Error()
	}
	data, merr := json.Marshal(payload)
	if merr != nil {
		return
	}
	s.Broadcast(Message{Type: MessageTypeSyncComplete, Data: data})
}

// relayFeed turns store change events into table_change broadcasts.
func (s *Server) relayFeed() {
	defer s.wg.Done()

	events, cancel := s.st.Feed().Subscribe()
	defer cancel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, _ := json.Marshal(TableChangeData{Table: string(ev.Table)})
			s.Broadcast(Message{Type: MessageTypeTableChange, Data: data})
		}
	}
}

// statsLoop periodically broadcasts cache counts.
func (s *Server) statsLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.broadcastStats()
		}
	}
}

func (s *Server) broadcastStats() {
	stats := StatsData{Tables: make(map[string]store.Counts)}
	for _, table := range []store.Table{store.TableTenants, store.TableRooms, store.TablePayments, store.TableExpenses} {
		counts, err := s.st.TableCounts(s.ctx, table)
		if err != nil {
			s.logger.Warn("failed to count table", zap.String("table", string(table)), zap.Error(err))
			continue
		}
		stats.Tables[string(table)] = counts
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	s.Broadcast(Message{Type: MessageTypeStats, Data: data})
}

// broadcastLoop fans queued messages out to connected clients.
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Warn("failed to marshal message", zap.Error(err))
				continue
			}

			s.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				conns = append(conns, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Info("client connected", zap.Int("total", count))
	go s.readLoop(conn)
}

// readLoop keeps the connection alive and detects disconnects; client
// messages are ignored.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		count := len(s.clients)
		s.clientsMu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Info("client disconnected", zap.Int("total", count))
		return
	}
	s.clientsMu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	count := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": count,
	})
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
