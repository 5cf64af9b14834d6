package status

import (
	"slices"
	"time"
)

// FieldChange is a derived column written together with a transition.
// A nil Value clears the column.
type FieldChange struct {
	Field string
	Value *time.Time
}

// Rule derives a field change from a transition. It reports false when the
// transition does not touch the field.
type Rule[S Value] func(prev, next S, at time.Time) (FieldChange, bool)

// StampWhileIn sets field to the transition instant when the entity enters
// target and clears it when the entity leaves target.
func StampWhileIn[S Value](field string, target S) Rule[S] {
	return func(prev, next S, at time.Time) (FieldChange, bool) {
		switch {
		case next == target:
			return FieldChange{Field: field, Value: &at}, true
		case prev == target:
			return FieldChange{Field: field, Value: nil}, true
		}

		return FieldChange{}, false
	}
}

// Result is the outcome of Lifecycle.Transition. The caller persists it.
type Result[S Value] struct {
	Previous S
	Status   S
	// Appended is nil when the transition was a no-op.
	Appended *Transition[S]
	Derived  []FieldChange

	tracker Tracker[S]
}

// NoOp reports whether the requested status equalled the current one.
func (r Result[S]) NoOp() bool {
	return r.Appended == nil
}

// Tracker returns the tracker after the transition.
func (r Result[S]) Tracker() Tracker[S] {
	return r.tracker
}

// Change returns the derived change for field, if any.
func (r Result[S]) Change(field string) (FieldChange, bool) {
	for _, c := range r.Derived {
		if c.Field == field {
			return c, true
		}
	}

	return FieldChange{}, false
}

// Lifecycle is the status enumeration of one entity type plus its derived
// field rules. Any member may follow any other member.
type Lifecycle[S Value] struct {
	entity  string
	allowed []S
	rules   []Rule[S]
}

func NewLifecycle[S Value](entity string, allowed ...S) *Lifecycle[S] {
	return &Lifecycle[S]{
		entity:  entity,
		allowed: slices.Clone(allowed),
	}
}

// With returns a copy of the lifecycle carrying the additional rules.
func (l *Lifecycle[S]) With(rules ...Rule[S]) *Lifecycle[S] {
	return &Lifecycle[S]{
		entity:  l.entity,
		allowed: l.allowed,
		rules:   append(slices.Clone(l.rules), rules...),
	}
}

func (l *Lifecycle[S]) Entity() string { return l.entity }

// Statuses returns the enumeration in declaration order.
func (l *Lifecycle[S]) Statuses() []S {
	return slices.Clone(l.allowed)
}

func (l *Lifecycle[S]) Valid(s S) bool {
	return slices.Contains(l.allowed, s)
}

// Parse converts raw input into a member of the enumeration.
func (l *Lifecycle[S]) Parse(raw string) (S, error) {
	s := S(raw)
	if !l.Valid(s) {
		return "", &InvalidStatusError{Entity: l.entity, Status: raw}
	}

	return s, nil
}

// Transition computes the new state for moving t to next at clock.Now().
// It has no side effects: t is left untouched.
func (l *Lifecycle[S]) Transition(t Tracker[S], next S, clock Clock) (Result[S], error) {
	if !l.Valid(next) {
		return Result[S]{}, &InvalidStatusError{Entity: l.entity, Status: string(next)}
	}

	prev := t.Current()
	if next == prev {
		return Result[S]{Previous: prev, Status: prev, tracker: t}, nil
	}

	at := clock.Now()
	tr := Transition[S]{Timestamp: at, PreviousStatus: prev, NewStatus: next}

	var derived []FieldChange

	for _, rule := range l.rules {
		if c, ok := rule(prev, next, at); ok {
			derived = append(derived, c)
		}
	}

	return Result[S]{
		Previous: prev,
		Status:   next,
		Appended: &tr,
		Derived:  derived,
		tracker:  t.append(tr),
	}, nil
}
