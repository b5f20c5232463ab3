package player

import "activity-player/internal/domain"

// Kind says which attempt call a buffered payload is destined for.
type Kind int

const (
	KindProgress Kind = iota
	KindComplete
)

// Payload is a cumulative submission: every first attempt so far plus the
// total time spent. A later payload always supersedes an earlier one.
type Payload struct {
	Kind      Kind
	Answers   map[string]domain.FirstAttempt
	TimeSpent int
}

// Outbox holds at most one payload while no attempt id is known and hands
// it to flush exactly once when an id appears. Not safe for concurrent use;
// the player guards it with its own lock.
type Outbox struct {
	slot  *Payload
	flush func(attemptID string, p Payload)
}

func NewOutbox(flush func(attemptID string, p Payload)) *Outbox {
	return &Outbox{flush: flush}
}

// Hold buffers p. A held completion is never downgraded to a progress call.
func (o *Outbox) Hold(p Payload) {
	if o.slot != nil && o.slot.Kind == KindComplete && p.Kind != KindComplete {
		return
	}
	o.slot = &p
}

// Ready flushes the held payload, if any, against attemptID.
func (o *Outbox) Ready(attemptID string) bool {
	if o.slot == nil {
		return false
	}
	p := *o.slot
	o.slot = nil
	o.flush(attemptID, p)
	return true
}

// Pending reports whether a payload is waiting for an attempt id.
func (o *Outbox) Pending() bool {
	return o.slot != nil
}

func (o *Outbox) Clear() {
	o.slot = nil
}
