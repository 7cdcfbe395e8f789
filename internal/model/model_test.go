package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEnsureIDIsStable(t *testing.T) {
	r := &Room{}
	r.EnsureID()
	if r.ID == "" {
		t.Fatal("expected an id to be generated")
	}

	first := r.ID
	r.EnsureID()
	if r.ID != first {
		t.Error("EnsureID must not replace an existing id")
	}
}

func TestTouchInitializesCreatedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tn := &Tenant{}

	tn.Touch(now)
	if !tn.CreatedAt.Equal(now) || !tn.UpdatedAt.Equal(now) {
		t.Errorf("expected both timestamps set, got created=%v updated=%v", tn.CreatedAt, tn.UpdatedAt)
	}

	later := now.Add(time.Hour)
	tn.Touch(later)
	if !tn.CreatedAt.Equal(now) {
		t.Error("CreatedAt must not change on later touches")
	}
	if !tn.UpdatedAt.Equal(later) {
		t.Error("UpdatedAt must follow the latest touch")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		entity  interface{ Validate() error }
		wantErr bool
	}{
		{"valid room", &Room{ID: "r", Number: "101", MonthlyRent: 500}, false},
		{"room without number", &Room{ID: "r"}, true},
		{"room negative rent", &Room{ID: "r", Number: "101", MonthlyRent: -1}, true},
		{"valid tenant", &Tenant{ID: "t", Name: "A", RoomID: "r"}, false},
		{"tenant without room", &Tenant{ID: "t", Name: "A"}, true},
		{"tenant negative balance", &Tenant{ID: "t", Name: "A", RoomID: "r", Balance: -5}, true},
		{"valid payment", &Payment{ID: "p", TenantID: "t", Amount: 100}, false},
		{"payment zero amount", &Payment{ID: "p", TenantID: "t"}, true},
		{"valid expense", &Expense{ID: "e", Title: "Paint", Amount: 20}, false},
		{"expense without title", &Expense{ID: "e", Amount: 20}, true},
		{"valid profile", &UserProfile{UserID: "u", Email: "a@b.c"}, false},
		{"profile without email", &UserProfile{UserID: "u"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.entity.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSyncFlagsStayLocal(t *testing.T) {
	tn := &Tenant{ID: "t", UserID: "u", Name: "A", RoomID: "r", Synced: true, Deleted: true}
	data, err := json.Marshal(tn)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, field := range []string{"Synced", "Deleted", "is_synced", "is_deleted"} {
		if strings.Contains(string(data), field) {
			t.Errorf("sync flag %q must not cross the wire: %s", field, data)
		}
	}
}

func TestProfileIDDoublesAsOwner(t *testing.T) {
	p := &UserProfile{}
	p.SetOwner("user-1")
	if p.EntityID() != "user-1" || p.OwnerID() != "user-1" {
		t.Errorf("expected id and owner to coincide, got id=%q owner=%q", p.EntityID(), p.OwnerID())
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"id":"user-1"`) {
		t.Errorf("profile wire id must be the user id: %s", data)
	}
}
