// Package remote implements the hosted backend collaborators: the
// PostgREST-style table API, email/password auth, and object storage.
//
// The remote store is opaque ground truth when reachable. All table payloads
// are flat JSON objects with snake_case fields; the model structs carry the
// wire mapping in their tags. Upserts are keyed by the client-generated id,
// which is what makes the background sync re-runnable without duplicating
// rows.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rentora/rentora/internal/model"
)

// Table names on the remote store.
const (
	tableTenants  = "tenants"
	tableRooms    = "rooms"
	tablePayments = "payments"
	tableExpenses = "expenses"
	tableUsers    = "users"
)

// TokenFunc supplies the current access token, or "" when signed out.
type TokenFunc func(ctx context.Context) (string, error)

// Config holds connection settings for the hosted backend.
type Config struct {
	// BaseURL is the project root, e.g. https://xyz.example.co
	BaseURL string
	// APIKey is the public API key sent with every request.
	APIKey string
	// Timeout bounds each request. Zero means 15 seconds.
	Timeout time.Duration
}

// Client talks to the hosted table API.
type Client struct {
	http   *resty.Client
	token  TokenFunc
	logger *zap.Logger
}

// NewClient creates a table-API client. token may be nil for anonymous use.
func NewClient(cfg Config, token TokenFunc, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", cfg.APIKey)

	return &Client{
		http:   http,
		token:  token,
		logger: logger,
	}
}

// request builds a request with auth headers applied.
func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	req := c.http.R().SetContext(ctx)
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve access token: %w", err)
		}
		if token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// Health probes the backend. Used as the connectivity gate before sync runs.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/auth/v1/health")
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("backend unhealthy: status %d", resp.StatusCode())
	}
	return nil
}

// selectRows fetches all rows from a table matching the user partition.
func selectRows[T any](ctx context.Context, c *Client, table, userID string) ([]T, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var out []T
	resp, err := req.
		SetQueryParam("select", "*").
		SetQueryParam("user_id", "eq."+userID).
		SetResult(&out).
		Get("/rest/v1/" + table)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("select from %s failed: status %d: %s", table, resp.StatusCode(), resp.String())
	}
	return out, nil
}

// insertRow inserts one row and returns the server's canonical copy.
func insertRow[T any](ctx context.Context, c *Client, table string, row T) (T, error) {
	var zero T
	req, err := c.request(ctx)
	if err != nil {
		return zero, err
	}

	var out []T
	resp, err := req.
		SetHeader("Prefer", "return=representation").
		SetBody([]T{row}).
		SetResult(&out).
		Post("/rest/v1/" + table)
	if err != nil {
		return zero, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	if resp.IsError() {
		return zero, fmt.Errorf("insert into %s failed: status %d: %s", table, resp.StatusCode(), resp.String())
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("insert into %s returned no row", table)
	}
	return out[0], nil
}

// upsertRows bulk-upserts rows keyed by id. Re-running with the same rows is
// a no-op on the server, which is what makes the sync job idempotent.
func upsertRows[T any](ctx context.Context, c *Client, table string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetHeader("Prefer", "resolution=merge-duplicates").
		SetBody(rows).
		Post("/rest/v1/" + table)
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}
	if resp.IsError() {
		return fmt.Errorf("upsert into %s failed: status %d: %s", table, resp.StatusCode(), resp.String())
	}
	return nil
}

// patchRow applies a column-level partial update to one row.
func (c *Client) patchRow(ctx context.Context, table, id string, set map[string]any) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetQueryParam("id", "eq."+id).
		SetBody(set).
		Patch("/rest/v1/" + table)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", table, id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("update %s/%s failed: status %d: %s", table, id, resp.StatusCode(), resp.String())
	}
	return nil
}

// deleteRow deletes one row, scoped by the owning user.
func (c *Client) deleteRow(ctx context.Context, table, id, userID string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetQueryParam("id", "eq."+id).
		SetQueryParam("user_id", "eq."+userID).
		Delete("/rest/v1/" + table)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", table, id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete %s/%s failed: status %d: %s", table, id, resp.StatusCode(), resp.String())
	}
	return nil
}

// Tenants

func (c *Client) ListTenants(ctx context.Context, userID string) ([]*model.Tenant, error) {
	return selectRows[*model.Tenant](ctx, c, tableTenants, userID)
}

func (c *Client) InsertTenant(ctx context.Context, t *model.Tenant) (*model.Tenant, error) {
	return insertRow(ctx, c, tableTenants, t)
}

func (c *Client) UpsertTenants(ctx context.Context, tenants []*model.Tenant) error {
	return upsertRows(ctx, c, tableTenants, tenants)
}

func (c *Client) DeleteTenant(ctx context.Context, id, userID string) error {
	return c.deleteRow(ctx, tableTenants, id, userID)
}

// UpdateTenantBalance pushes a caller-computed balance as a partial update.
func (c *Client) UpdateTenantBalance(ctx context.Context, id string, balance int64) error {
	return c.patchRow(ctx, tableTenants, id, map[string]any{"balance": balance})
}

// Rooms

func (c *Client) ListRooms(ctx context.Context, userID string) ([]*model.Room, error) {
	return selectRows[*model.Room](ctx, c, tableRooms, userID)
}

func (c *Client) InsertRoom(ctx context.Context, r *model.Room) (*model.Room, error) {
	return insertRow(ctx, c, tableRooms, r)
}

func (c *Client) UpsertRooms(ctx context.Context, rooms []*model.Room) error {
	return upsertRows(ctx, c, tableRooms, rooms)
}

func (c *Client) DeleteRoom(ctx context.Context, id, userID string) error {
	return c.deleteRow(ctx, tableRooms, id, userID)
}

// UpdateRoomOccupied flips the remote occupancy flag as a partial update.
func (c *Client) UpdateRoomOccupied(ctx context.Context, id string, occupied bool) error {
	return c.patchRow(ctx, tableRooms, id, map[string]any{"is_occupied": occupied})
}

// Payments

func (c *Client) ListPayments(ctx context.Context, userID string) ([]*model.Payment, error) {
	return selectRows[*model.Payment](ctx, c, tablePayments, userID)
}

func (c *Client) InsertPayment(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	return insertRow(ctx, c, tablePayments, p)
}

func (c *Client) UpsertPayments(ctx context.Context, payments []*model.Payment) error {
	return upsertRows(ctx, c, tablePayments, payments)
}

func (c *Client) DeletePayment(ctx context.Context, id, userID string) error {
	return c.deleteRow(ctx, tablePayments, id, userID)
}

// Expenses

func (c *Client) ListExpenses(ctx context.Context, userID string) ([]*model.Expense, error) {
	return selectRows[*model.Expense](ctx, c, tableExpenses, userID)
}

func (c *Client) InsertExpense(ctx context.Context, e *model.Expense) (*model.Expense, error) {
	return insertRow(ctx, c, tableExpenses, e)
}

func (c *Client) UpsertExpenses(ctx context.Context, expenses []*model.Expense) error {
	return upsertRows(ctx, c, tableExpenses, expenses)
}

func (c *Client) DeleteExpense(ctx context.Context, id, userID string) error {
	return c.deleteRow(ctx, tableExpenses, id, userID)
}

// Profiles

// GetProfile fetches the singleton profile row. The users table is keyed by
// the auth user id directly, so the filter is on id rather than user_id.
func (c *Client) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var out []*model.UserProfile
	resp, err := req.
		SetQueryParam("select", "*").
		SetQueryParam("id", "eq."+userID).
		SetResult(&out).
		Get("/rest/v1/" + tableUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", tableUsers, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("select from %s failed: status %d: %s", tableUsers, resp.StatusCode(), resp.String())
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no remote profile for user %s", userID)
	}
	return out[0], nil
}

func (c *Client) UpsertProfile(ctx context.Context, p *model.UserProfile) error {
	return upsertRows(ctx, c, tableUsers, []*model.UserProfile{p})
}
