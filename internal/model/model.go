// Package model defines the rental-management entities shared by the local
// store, the remote table API and the repositories.
//
// Every mutable entity carries the same sync bookkeeping: a client-generated
// id, the owning user id as partition key, and two local-only flags. Synced
// reports whether the remote store holds an up-to-date copy; it is cleared on
// every local mutation and set only after an acknowledged remote round-trip.
// Deleted is the local soft-delete tombstone; a tombstoned row is purged
// locally only after the remote delete is confirmed.
//
// JSON tags describe the remote wire format (flat snake_case objects). The
// sync flags never cross the wire.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entity is the common surface of all syncable entity families. The mutators
// exist so the generic repository can stamp ownership and sync state without
// knowing the concrete type.
type Entity interface {
	// EntityID returns the client-generated unique id.
	EntityID() string
	// OwnerID returns the partition key (owning user id).
	OwnerID() string
	// EnsureID assigns a fresh client-generated id if none is set.
	EnsureID()
	// SetOwner stamps the partition key.
	SetOwner(userID string)
	// MarkSynced records whether the remote store holds this version.
	MarkSynced(synced bool)
	// MarkDeleted sets or clears the soft-delete tombstone.
	MarkDeleted(deleted bool)
	// Touch updates the modification timestamp, initializing the creation
	// timestamp on first touch.
	Touch(now time.Time)
}

// NewID generates a client-side entity id. Ids are created at insert time,
// before any remote round-trip, so offline inserts have stable identity.
func NewID() string {
	return uuid.NewString()
}

func ensureID(id *string) {
	if *id == "" {
		*id = NewID()
	}
}

// Room is a rentable unit. Occupied mirrors whether a non-deleted Tenant
// currently points at this room via RoomID.
type Room struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Number      string `json:"number"`
	MonthlyRent int64  `json:"monthly_rent"`
	Occupied    bool   `json:"is_occupied"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Synced  bool `json:"-"`
	Deleted bool `json:"-"`
}

func (r *Room) EntityID() string        { return r.ID }
func (r *Room) OwnerID() string         { return r.UserID }
func (r *Room) EnsureID()               { ensureID(&r.ID) }
func (r *Room) SetOwner(userID string)  { r.UserID = userID }
func (r *Room) MarkSynced(synced bool)  { r.Synced = synced }
func (r *Room) MarkDeleted(deleted bool) { r.Deleted = deleted }

func (r *Room) Touch(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}

// Validate checks the Room for storable field values.
func (r *Room) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if r.Number == "" {
		return fmt.Errorf("room number is required")
	}
	if r.MonthlyRent < 0 {
		return fmt.Errorf("monthly rent must not be negative (got %d)", r.MonthlyRent)
	}
	return nil
}

// Tenant is a renter occupying at most one room. RoomNumber is denormalized
// from the room for display. Balance is the amount currently owed; it is
// computed by the caller (payment flow or rent charge), never recomputed by
// the store.
type Tenant struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	RoomID     string `json:"room_id"`
	RoomNumber string `json:"room_number"`
	Balance    int64  `json:"balance"`
	PhotoPath  string `json:"photo_path,omitempty"`

	MovedInAt time.Time `json:"moved_in_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Synced  bool `json:"-"`
	Deleted bool `json:"-"`
}

func (t *Tenant) EntityID() string        { return t.ID }
func (t *Tenant) OwnerID() string         { return t.UserID }
func (t *Tenant) EnsureID()               { ensureID(&t.ID) }
func (t *Tenant) SetOwner(userID string)  { t.UserID = userID }
func (t *Tenant) MarkSynced(synced bool)  { t.Synced = synced }
func (t *Tenant) MarkDeleted(deleted bool) { t.Deleted = deleted }

func (t *Tenant) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// Validate checks the Tenant for storable field values.
func (t *Tenant) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("tenant name is required")
	}
	if t.RoomID == "" {
		return fmt.Errorf("room id is required")
	}
	if t.Balance < 0 {
		return fmt.Errorf("balance must not be negative (got %d)", t.Balance)
	}
	return nil
}

// Payment records money received from a tenant. TenantName and RoomNumber
// are denormalized for display. The paying flow also updates the tenant's
// Balance with its own client-side computation.
type Payment struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
	RoomNumber string `json:"room_number"`
	Amount     int64  `json:"amount"`
	Note       string `json:"note,omitempty"`

	PaidAt    time.Time `json:"paid_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Synced  bool `json:"-"`
	Deleted bool `json:"-"`
}

func (p *Payment) EntityID() string        { return p.ID }
func (p *Payment) OwnerID() string         { return p.UserID }
func (p *Payment) EnsureID()               { ensureID(&p.ID) }
func (p *Payment) SetOwner(userID string)  { p.UserID = userID }
func (p *Payment) MarkSynced(synced bool)  { p.Synced = synced }
func (p *Payment) MarkDeleted(deleted bool) { p.Deleted = deleted }

func (p *Payment) Touch(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// Validate checks the Payment for storable field values.
func (p *Payment) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.TenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if p.Amount <= 0 {
		return fmt.Errorf("amount must be positive (got %d)", p.Amount)
	}
	return nil
}

// Expense is a cost incurred by the owner (repairs, utilities, supplies).
type Expense struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Amount   int64  `json:"amount"`
	Category string `json:"category,omitempty"`

	SpentAt   time.Time `json:"spent_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Synced  bool `json:"-"`
	Deleted bool `json:"-"`
}

func (e *Expense) EntityID() string        { return e.ID }
func (e *Expense) OwnerID() string         { return e.UserID }
func (e *Expense) EnsureID()               { ensureID(&e.ID) }
func (e *Expense) SetOwner(userID string)  { e.UserID = userID }
func (e *Expense) MarkSynced(synced bool)  { e.Synced = synced }
func (e *Expense) MarkDeleted(deleted bool) { e.Deleted = deleted }

func (e *Expense) Touch(now time.Time) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
}

// Validate checks the Expense for storable field values.
func (e *Expense) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	if e.Amount <= 0 {
		return fmt.Errorf("amount must be positive (got %d)", e.Amount)
	}
	return nil
}

// UserProfile is the singleton per-user profile row. Its id is the auth
// user id, so UserID doubles as both identity and partition key.
type UserProfile struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	PhotoPath string `json:"photo_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Synced  bool `json:"-"`
	Deleted bool `json:"-"`
}

func (u *UserProfile) EntityID() string        { return u.UserID }
func (u *UserProfile) OwnerID() string         { return u.UserID }
func (u *UserProfile) EnsureID()               {}
func (u *UserProfile) SetOwner(userID string)  { u.UserID = userID }
func (u *UserProfile) MarkSynced(synced bool)  { u.Synced = synced }
func (u *UserProfile) MarkDeleted(deleted bool) { u.Deleted = deleted }

func (u *UserProfile) Touch(now time.Time) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

// Validate checks the UserProfile for storable field values.
func (u *UserProfile) Validate() error {
	if u.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	return nil
}
