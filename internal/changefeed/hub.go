// Package changefeed fans out row-change notifications from the database to
// in-process subscribers such as live rota views.
package changefeed

import (
	"log/slog"
	"sync"
)

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"

	// OpResync is delivered to every subscriber when a source may have
	// missed notifications, for example after a reconnect.
	OpResync Op = "RESYNC"
)

// TableShifts is the table rota views subscribe to.
const TableShifts = "shifts"

// Change describes one row change.
type Change struct {
	Table     string `json:"table"`
	Op        Op     `json:"op"`
	CompanyID string `json:"company_id,omitempty"`
}

// Publisher accepts changes from a source. Hub is the local publisher;
// NATSRelay forwards to other instances.
type Publisher interface {
	Publish(c Change)
}

// Subscriber is implemented by anything that hands out change subscriptions.
type Subscriber interface {
	Subscribe(table string, ops ...Op) (<-chan Change, func())
}

type subscription struct {
	table string
	ops   map[Op]bool // empty means all operations
	ch    chan Change
}

func (s *subscription) matches(c Change) bool {
	if c.Op == OpResync {
		return true
	}
	if s.table != c.Table {
		return false
	}
	return len(s.ops) == 0 || s.ops[c.Op]
}

// Hub maintains change subscriptions and delivers published changes to them.
//
// Delivery never blocks the publisher. Each subscription buffers a single
// pending change; further changes published before the subscriber drains
// it are coalesced into the pending one.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	logger *slog.Logger
}

var _ Subscriber = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[uint64]*subscription),
		logger: logger.With("component", "changefeed"),
	}
}

// Subscribe registers interest in changes to table, optionally limited to ops.
// The returned function releases the subscription and closes the channel;
// it is safe to call more than once.
func (h *Hub) Subscribe(table string, ops ...Op) (<-chan Change, func()) {
	sub := &subscription{
		table: table,
		ops:   make(map[Op]bool, len(ops)),
		ch:    make(chan Change, 1),
	}
	for _, op := range ops {
		sub.ops[op] = true
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(sub.ch)
			h.mu.Unlock()
		})
	}
	return sub.ch, release
}

// Publish delivers c to every matching subscription.
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if !sub.matches(c) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			// A change is already pending; the subscriber will refetch anyway.
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
