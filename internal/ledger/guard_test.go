package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store with optional failure injection.
type memStore struct {
	mu        sync.Mutex
	days      map[Day][]Record
	appendErr error
	loadErr   error
	loads     int
}

func newMemStore() *memStore {
	return &memStore{days: make(map[Day][]Record)}
}

func (m *memStore) Load(_ context.Context, day Day) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]Record, len(m.days[day]))
	copy(out, m.days[day])
	return out, nil
}

func (m *memStore) Append(_ context.Context, day Day, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.days[day] = append(m.days[day], rec)
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func TestMarkPresent_Idempotent(t *testing.T) {
	loc := time.UTC
	clock := &fakeClock{t: time.Date(2024, 3, 11, 9, 0, 0, 0, loc)}
	store := newMemStore()
	g := NewGuard(store, WithClock(clock.Now), WithLocation(loc))
	ctx := context.Background()
	day := g.Today()

	outcome, err := g.MarkPresent(ctx, "001", "Ali", day)
	if err != nil || outcome != Recorded {
		t.Fatalf("first mark = %q, %v; want Recorded", outcome, err)
	}

	clock.Set(time.Date(2024, 3, 11, 9, 5, 0, 0, loc))
	outcome, err = g.MarkPresent(ctx, "001", "Ali", day)
	if err != nil || outcome != AlreadyMarked {
		t.Fatalf("second mark = %q, %v; want AlreadyMarked", outcome, err)
	}

	records := store.days[day]
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	if records[0].Clock() != "09:00:00" {
		t.Errorf("expected record timestamped 09:00:00, got %s", records[0].Clock())
	}
	if records[0].Status != StatusPresent || records[0].Date != day {
		t.Errorf("unexpected record %+v", records[0])
	}
}

func TestMarkPresent_DifferentIdentities(t *testing.T) {
	g := NewGuard(newMemStore())
	ctx := context.Background()
	day := g.Today()

	for _, id := range []string{"001", "002", "003"} {
		if outcome, err := g.MarkPresent(ctx, id, "Student "+id, day); err != nil || outcome != Recorded {
			t.Errorf("mark %s = %q, %v", id, outcome, err)
		}
	}
	records, err := g.Records(ctx, day)
	if err != nil || len(records) != 3 {
		t.Errorf("expected 3 records, got %d (%v)", len(records), err)
	}
}

func TestMarkPresent_DayBoundary(t *testing.T) {
	loc := time.FixedZone("TRT", 3*60*60)
	clock := &fakeClock{t: time.Date(2024, 3, 11, 23, 59, 59, 0, loc)}
	store := newMemStore()
	g := NewGuard(store, WithClock(clock.Now), WithLocation(loc))
	ctx := context.Background()

	first := g.Today()
	if outcome, _ := g.MarkPresent(ctx, "001", "Ali", first); outcome != Recorded {
		t.Fatalf("expected Recorded on first day, got %q", outcome)
	}

	clock.Set(time.Date(2024, 3, 12, 0, 0, 1, 0, loc))
	second := g.Today()
	if second == first {
		t.Fatal("expected a new day after midnight")
	}
	if outcome, _ := g.MarkPresent(ctx, "001", "Ali", second); outcome != Recorded {
		t.Errorf("expected Recorded on next day, got %q", outcome)
	}
	if len(store.days[first]) != 1 || len(store.days[second]) != 1 {
		t.Errorf("expected one record per day, got %d and %d", len(store.days[first]), len(store.days[second]))
	}
}

func TestMarkPresent_ConcurrentSameIdentity(t *testing.T) {
	store := newMemStore()
	g := NewGuard(store)
	ctx := context.Background()
	day := g.Today()

	const workers = 32
	outcomes := make([]Outcome, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i], _ = g.MarkPresent(ctx, "001", "Ali", day)
		}()
	}
	wg.Wait()

	recorded := 0
	for _, o := range outcomes {
		if o == Recorded {
			recorded++
		}
	}
	if recorded != 1 {
		t.Errorf("expected exactly one Recorded outcome, got %d", recorded)
	}
	if len(store.days[day]) != 1 {
		t.Errorf("expected exactly one persisted record, got %d", len(store.days[day]))
	}
}

func lockEntries(g *Guard) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}

func TestGuard_ReleasesDayLocks(t *testing.T) {
	store := newMemStore()
	g := NewGuard(store)
	ctx := context.Background()
	start := Day{Year: 2024, Month: time.January, Day: 1}

	var wg sync.WaitGroup
	for i := range 60 {
		day := DayOf(start.Start(time.UTC).AddDate(0, 0, i%20), time.UTC)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = g.MarkPresent(ctx, "001", "Ali", day)
		}()
		go func() {
			defer wg.Done()
			_, _ = g.Records(ctx, day)
		}()
	}
	wg.Wait()

	if n := lockEntries(g); n != 0 {
		t.Errorf("expected no day locks after all calls returned, got %d", n)
	}
	for i := range 20 {
		day := DayOf(start.Start(time.UTC).AddDate(0, 0, i), time.UTC)
		if len(store.days[day]) != 1 {
			t.Errorf("day %s: expected one record, got %d", day, len(store.days[day]))
		}
	}
}

func TestMarkPresent_WriteFailure(t *testing.T) {
	store := newMemStore()
	store.appendErr = errors.New("disk full")
	g := NewGuard(store)
	ctx := context.Background()
	day := g.Today()

	_, err := g.MarkPresent(ctx, "001", "Ali", day)
	if !errors.Is(err, ErrLedgerWrite) {
		t.Fatalf("expected ErrLedgerWrite, got %v", err)
	}
	if len(store.days[day]) != 0 {
		t.Fatal("nothing should be persisted after a failed write")
	}

	// The identity stays eligible once the store recovers.
	store.appendErr = nil
	if outcome, err := g.MarkPresent(ctx, "001", "Ali", day); err != nil || outcome != Recorded {
		t.Errorf("retry = %q, %v; want Recorded", outcome, err)
	}
}

func TestMarkPresent_LoadFailure(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("corrupt workbook")
	g := NewGuard(store)

	_, err := g.MarkPresent(context.Background(), "001", "Ali", g.Today())
	if !errors.Is(err, ErrLedgerRead) {
		t.Errorf("expected ErrLedgerRead, got %v", err)
	}
}

func TestMarkPresent_StoreRejectsDuplicate(t *testing.T) {
	store := newMemStore()
	store.appendErr = ErrDuplicate
	g := NewGuard(store)

	outcome, err := g.MarkPresent(context.Background(), "001", "Ali", g.Today())
	if err != nil || outcome != AlreadyMarked {
		t.Errorf("got %q, %v; want AlreadyMarked", outcome, err)
	}
}

func TestMarkPresent_RequiresIdentity(t *testing.T) {
	g := NewGuard(newMemStore())
	if _, err := g.MarkPresent(context.Background(), "", "Nobody", g.Today()); err == nil {
		t.Error("expected error for empty identity id")
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []Outcome
	errs     int
}

func (o *recordingObserver) ObserveMark(outcome Outcome, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
	if err != nil {
		o.errs++
	}
}

func TestMarkPresent_Observer(t *testing.T) {
	obs := &recordingObserver{}
	store := newMemStore()
	g := NewGuard(store, WithObserver(obs))
	ctx := context.Background()
	day := g.Today()

	_, _ = g.MarkPresent(ctx, "001", "Ali", day)
	_, _ = g.MarkPresent(ctx, "001", "Ali", day)
	store.appendErr = errors.New("boom")
	_, _ = g.MarkPresent(ctx, "002", "Veli", day)

	if len(obs.outcomes) != 3 || obs.outcomes[0] != Recorded || obs.outcomes[1] != AlreadyMarked || obs.errs != 1 {
		t.Errorf("unexpected observations %v (errors %d)", obs.outcomes, obs.errs)
	}
}

func TestSummary(t *testing.T) {
	g := NewGuard(newMemStore())
	ctx := context.Background()
	day := g.Today()
	_, _ = g.MarkPresent(ctx, "001", "Ali", day)
	_, _ = g.MarkPresent(ctx, "002", "Veli", day)

	s, err := g.Summary(ctx, day)
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if s.Total != 2 || s.Present != 2 || len(s.Names) != 2 || s.Names[1] != "Veli" {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Location != "" {
		t.Errorf("memory store has no location, got %q", s.Location)
	}

	empty := Summarize(Day{Year: 2024, Month: 1, Day: 1}, nil)
	if empty.Total != 0 || empty.Names == nil || empty.Records == nil {
		t.Errorf("empty summary should have non-nil slices: %+v", empty)
	}
}

func TestSummary_Fprint(t *testing.T) {
	s := Summarize(Day{Year: 2024, Month: 3, Day: 11}, []Record{
		{DisplayName: "Ali Veli", IdentityID: "1001", Status: StatusPresent},
	})
	s.Location = "attendance/yoklama_2024_03_11.xlsx"

	var buf strings.Builder
	s.Fprint(&buf)
	out := buf.String()
	for _, want := range []string{"2024-03-11", "yoklama_2024_03_11.xlsx", "Present: 1", "- Ali Veli"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}
