package store

import "sync"

// Table identifies an entity table in change events.
type Table string

const (
	TableRooms    Table = "rooms"
	TableTenants  Table = "tenants"
	TablePayments Table = "payments"
	TableExpenses Table = "expenses"
	TableProfiles Table = "profiles"
	// TableSession covers the meta table holding the signed-in user id.
	TableSession Table = "meta"
)

// Event signals that rows in a table changed. Events carry no row data;
// subscribers re-run their query against the store.
type Event struct {
	Table Table
}

// Feed broadcasts store change events to subscribers.
//
// This is the explicit observable that replaces framework-managed live
// queries: repositories subscribe, re-read on every event, and push fresh
// snapshots to their callers. Subscriber channels are buffered and events
// are coalescing - if a subscriber's buffer is full, the event is dropped,
// which is safe because a pending event already forces a full re-read.
type Feed struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release the subscription; the channel is closed afterwards.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++

	ch := make(chan Event, 16)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to all subscribers without blocking.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			// Buffer full: subscriber already has a pending re-read.
		}
	}
}

// Close tears down all subscriptions. Publish becomes a no-op.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
