package status

import (
	"slices"
	"time"
)

// Value is the constraint satisfied by every per-entity status enumeration.
type Value interface {
	~string
}

// Transition records a single status change.
type Transition[S Value] struct {
	Timestamp      time.Time `json:"timestamp"`
	PreviousStatus S         `json:"previous_status"`
	NewStatus      S         `json:"new_status"`
}

// Tracker holds an entity's current status together with its transition log.
//
// The fields are unexported so the status can only move through
// Lifecycle.Transition; a tracker is obtained from NewTracker, Restore or
// Result.Tracker.
type Tracker[S Value] struct {
	current S
	history []Transition[S]
}

// NewTracker returns the tracker of a freshly created entity.
func NewTracker[S Value](initial S) Tracker[S] {
	return Tracker[S]{current: initial}
}

// Restore rebuilds a tracker from persisted state, verifying the log invariants.
func Restore[S Value](current S, history []Transition[S]) (Tracker[S], error) {
	t := Tracker[S]{current: current, history: slices.Clone(history)}
	if err := t.Verify(); err != nil {
		return Tracker[S]{}, err
	}

	return t, nil
}

// Current returns the entity's current status.
func (t Tracker[S]) Current() S {
	return t.current
}

// Initial returns the status the entity was created with.
func (t Tracker[S]) Initial() S {
	if len(t.history) == 0 {
		return t.current
	}

	return t.history[0].PreviousStatus
}

// History returns a copy of the transition log in chronological order.
func (t Tracker[S]) History() []Transition[S] {
	return slices.Clone(t.history)
}

// Len returns the number of recorded transitions.
func (t Tracker[S]) Len() int {
	return len(t.history)
}

// Last returns the most recent transition, if any.
func (t Tracker[S]) Last() (Transition[S], bool) {
	if len(t.history) == 0 {
		return Transition[S]{}, false
	}

	return t.history[len(t.history)-1], true
}

// EnteredAt returns when the entity moved into target, provided it is still
// there and got there through a recorded transition.
func (t Tracker[S]) EnteredAt(target S) (time.Time, bool) {
	last, ok := t.Last()
	if !ok || t.current != target {
		return time.Time{}, false
	}

	return last.Timestamp, true
}

// append returns a new tracker with tr appended. The receiver's backing array
// is never shared with the result.
func (t Tracker[S]) append(tr Transition[S]) Tracker[S] {
	history := make([]Transition[S], len(t.history), len(t.history)+1)
	copy(history, t.history)

	return Tracker[S]{
		current: tr.NewStatus,
		history: append(history, tr),
	}
}
