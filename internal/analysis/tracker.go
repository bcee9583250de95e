package analysis

import (
	"sync"
	"sync/atomic"
)

// Ticket identifies one analysis request for a subject's selected route.
type Ticket struct {
	Subject    string
	RouteID    string
	Generation uint64
}

// Tracker remembers which route each subject selected most recently so that
// results of superseded requests can be recognised and dropped.
type Tracker struct {
	next atomic.Uint64

	mu      sync.RWMutex
	current map[string]Ticket
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{current: make(map[string]Ticket)}
}

// Select records routeID as the subject's current selection and returns the
// ticket for the request that made it. Every call supersedes earlier tickets,
// even for the same route.
func (t *Tracker) Select(subject, routeID string) Ticket {
	ticket := Ticket{
		Subject:    subject,
		RouteID:    routeID,
		Generation: t.next.Add(1),
	}

	t.mu.Lock()
	t.current[subject] = ticket
	t.mu.Unlock()

	return ticket
}

// Current reports whether ticket is still the subject's latest selection.
func (t *Tracker) Current(ticket Ticket) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cur, ok := t.current[ticket.Subject]
	return ok && cur == ticket
}

// Selected returns the subject's currently selected route.
func (t *Tracker) Selected(subject string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cur, ok := t.current[subject]
	return cur.RouteID, ok
}

// Clear forgets a subject's selection, invalidating every outstanding ticket.
func (t *Tracker) Clear(subject string) {
	t.mu.Lock()
	delete(t.current, subject)
	t.mu.Unlock()
}
