package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Outcome of a MarkPresent call.
type Outcome string

const (
	Recorded      Outcome = "recorded"
	AlreadyMarked Outcome = "already_marked"
)

// Observer is notified after every MarkPresent call.
type Observer interface {
	ObserveMark(outcome Outcome, err error)
}

// Guard enforces at most one PRESENT record per identity and day.
// Check and append for a day run under that day's lock, so concurrent marks
// for the same identity cannot both record.
type Guard struct {
	store    Store
	now      func() time.Time
	loc      *time.Location
	observer Observer

	mu    sync.Mutex
	locks map[Day]*dayLock
}

// dayLock serializes one day. refs counts holders and waiters; the entry is
// removed when it drops to zero so a long-running process keeps no stale days.
type dayLock struct {
	mu   sync.Mutex
	refs int
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithClock overrides the wall clock used for record times.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// WithLocation sets the time zone that defines calendar days.
func WithLocation(loc *time.Location) GuardOption {
	return func(g *Guard) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithObserver registers an observer for mark outcomes.
func WithObserver(o Observer) GuardOption {
	return func(g *Guard) { g.observer = o }
}

// NewGuard creates a guard over store.
func NewGuard(store Store, opts ...GuardOption) *Guard {
	g := &Guard{
		store: store,
		now:   time.Now,
		loc:   time.Local,
		locks: make(map[Day]*dayLock),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Today returns the current calendar day in the guard's time zone.
func (g *Guard) Today() Day {
	return DayOf(g.now(), g.loc)
}

// Location returns the time zone that defines calendar days.
func (g *Guard) Location() *time.Location {
	return g.loc
}

// lockDay blocks until day's lock is held and returns its release function.
func (g *Guard) lockDay(day Day) (unlock func()) {
	g.mu.Lock()
	l, ok := g.locks[day]
	if !ok {
		l = &dayLock{}
		g.locks[day] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, day)
		}
		g.mu.Unlock()
	}
}


// MarkPresent records identityID as present on day unless it already is.
// Write failures are returned wrapped in ErrLedgerWrite and are not retried.
func (g *Guard) MarkPresent(ctx context.Context, identityID, displayName string, day Day) (Outcome, error) {
	outcome, err := g.markPresent(ctx, identityID, displayName, day)
	if g.observer != nil {
		g.observer.ObserveMark(outcome, err)
	}
	return outcome, err
}

func (g *Guard) markPresent(ctx context.Context, identityID, displayName string, day Day) (Outcome, error) {
	if identityID == "" {
		return "", errors.New("identity id is required")
	}

	unlock := g.lockDay(day)
	defer unlock()

	records, err := g.store.Load(ctx, day)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLedgerRead, err)
	}
	for _, r := range records {
		if r.IdentityID == identityID && r.Status == StatusPresent {
			return AlreadyMarked, nil
		}
	}

	rec := Record{
		DisplayName: displayName,
		IdentityID:  identityID,
		Date:        day,
		Time:        g.now().In(g.loc),
		Status:      StatusPresent,
	}
	if err := g.store.Append(ctx, day, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return AlreadyMarked, nil
		}
		return "", fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}
	return Recorded, nil
}

// Records returns the ledger of day. It waits for an in-flight mark of the
// same day to finish.
func (g *Guard) Records(ctx context.Context, day Day) ([]Record, error) {
	unlock := g.lockDay(day)
	defer unlock()

	records, err := g.store.Load(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerRead, err)
	}
	return records, nil
}
