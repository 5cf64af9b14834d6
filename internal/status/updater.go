package status

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// Snapshot is the persisted status state of one entity as read by a Store.
type Snapshot[S Value] struct {
	ID      uuid.UUID
	Version int64
	Tracker Tracker[S]
}

//go:generate mockgen -source=updater.go -destination=store_mock.go -package=status
type Store[S Value] interface {
	// LoadStatus reads the current status, history and row version.
	LoadStatus(ctx context.Context, id uuid.UUID) (Snapshot[S], error)

	// SaveTransition writes res atomically, conditional on the row still
	// being at snap.Version. A stale snapshot fails with ErrConflict.
	SaveTransition(ctx context.Context, snap Snapshot[S], res Result[S]) error
}

// Outcome is what the updater reports after each attempt to change a status.
type Outcome struct {
	Entity string
	ID     uuid.UUID
	From   string
	To     string
	NoOp   bool
	Err    error
}

// Notifier receives transition outcomes. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, o Outcome)
}

const defaultAttempts = 3

// Updater runs the read, transition, conditional write cycle for one entity
// type and reports the outcome.
type Updater[S Value] struct {
	lifecycle *Lifecycle[S]
	store     Store[S]
	clock     Clock
	notifier  Notifier
	attempts  int
}

type UpdaterOption func(*updaterOptions)

type updaterOptions struct {
	clock    Clock
	notifier Notifier
	attempts int
}

// WithClock overrides the clock used to stamp transitions.
func WithClock(c Clock) UpdaterOption {
	return func(o *updaterOptions) { o.clock = c }
}

// WithNotifier sets where outcomes are reported.
func WithNotifier(n Notifier) UpdaterOption {
	return func(o *updaterOptions) { o.notifier = n }
}

// WithAttempts bounds how many times a conflicting write is retried.
func WithAttempts(n int) UpdaterOption {
	return func(o *updaterOptions) {
		if n > 0 {
			o.attempts = n
		}
	}
}

func NewUpdater[S Value](lc *Lifecycle[S], store Store[S], opts ...UpdaterOption) *Updater[S] {
	o := updaterOptions{
		clock:    SystemClock{},
		notifier: nopNotifier{},
		attempts: defaultAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Updater[S]{
		lifecycle: lc,
		store:     store,
		clock:     o.clock,
		notifier:  o.notifier,
		attempts:  o.attempts,
	}
}

func (u *Updater[S]) Lifecycle() *Lifecycle[S] {
	return u.lifecycle
}

// Apply moves entity id to next. Invalid statuses are rejected before any
// store call; conflicting writes are retried with a fresh read.
func (u *Updater[S]) Apply(ctx context.Context, id uuid.UUID, next S) (Result[S], error) {
	res, err := u.apply(ctx, id, next)

	u.notifier.Notify(ctx, Outcome{
		Entity: u.lifecycle.Entity(),
		ID:     id,
		From:   string(res.Previous),
		To:     string(next),
		NoOp:   err == nil && res.NoOp(),
		Err:    err,
	})

	return res, err
}

func (u *Updater[S]) apply(ctx context.Context, id uuid.UUID, next S) (Result[S], error) {
	if !u.lifecycle.Valid(next) {
		return Result[S]{}, &InvalidStatusError{Entity: u.lifecycle.Entity(), Status: string(next)}
	}

	var lastErr error

	for attempt := 1; attempt <= u.attempts; attempt++ {
		snap, err := u.store.LoadStatus(ctx, id)
		if err != nil {
			return Result[S]{}, Persistence("loading status", err)
		}

		res, err := u.lifecycle.Transition(snap.Tracker, next, u.clock)
		if err != nil {
			return Result[S]{}, err
		}

		if res.NoOp() {
			return res, nil
		}

		if err := CheckAppendOnly(snap.Tracker, res.Tracker()); err != nil {
			return Result[S]{}, err
		}

		err = u.store.SaveTransition(ctx, snap, res)
		if err == nil {
			return res, nil
		}

		if !errors.Is(err, ErrConflict) {
			return Result[S]{}, Persistence("saving transition", err)
		}

		slog.DebugContext(ctx, "status write conflict, retrying",
			"entity", u.lifecycle.Entity(), "id", id, "attempt", attempt)

		lastErr = err
	}

	return Result[S]{}, Persistence("saving transition", lastErr)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Outcome) {}
