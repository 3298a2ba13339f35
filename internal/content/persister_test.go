package content

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/example/mapforge/internal/grid"
)

type fakeTimer struct {
	c       *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward, running due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at < c.timers[j].at })
		var next *fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= target {
				next = t
				break
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

type recorder struct {
	mu       sync.Mutex
	saves    []Document
	statuses []Status
	err      error
}

func (r *recorder) save(_ context.Context, d Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, d)
	return r.err
}

func (r *recorder) status(s Status, _ error) {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	r.mu.Unlock()
}

func newTestPersister(t *testing.T) (*Model, *Persister, *fakeClock, *recorder) {
	t.Helper()
	clock := &fakeClock{}
	rec := &recorder{}
	m := newHexModel()
	p := NewPersister(m.Document, rec.save, WithClock(clock), WithStatusFunc(rec.status)).Attach(m)
	return m, p, clock, rec
}

func TestBurstProducesSingleSave(t *testing.T) {
	m, p, clock, rec := newTestPersister(t)
	for i := 0; i < 25; i++ {
		m.StampTerrain(grid.Coord{Col: i, Row: 0}, "forest")
		clock.Advance(100 * time.Millisecond)
	}
	m.StampTerrain(grid.Coord{Col: 0, Row: 1}, "hills")
	clock.Advance(1999 * time.Millisecond)
	if len(rec.saves) != 0 {
		t.Fatalf("saved before quiet period: %d saves", len(rec.saves))
	}
	clock.Advance(time.Millisecond)
	if len(rec.saves) != 1 {
		t.Fatalf("expected exactly one save, got %d", len(rec.saves))
	}
	if got := len(rec.saves[0].Terrain); got != 26 {
		t.Fatalf("save should hold final state with 26 stamps, got %d", got)
	}
	if p.Dirty() {
		t.Fatal("successful save should clear dirty")
	}
	clock.Advance(10 * time.Second)
	if len(rec.saves) != 1 {
		t.Fatalf("no further saves expected, got %d", len(rec.saves))
	}
}

func TestStatusSequence(t *testing.T) {
	m, p, clock, rec := newTestPersister(t)
	m.SetWall(grid.Coord{Col: 1, Row: 1}, true)
	clock.Advance(DefaultSaveDelay)
	if s, _ := p.Status(); s != StatusSaved {
		t.Fatalf("status %v, want saved", s)
	}
	clock.Advance(DefaultSavedHold)
	if s, _ := p.Status(); s != StatusIdle {
		t.Fatalf("status %v, want idle", s)
	}
	want := []Status{StatusSaving, StatusSaved, StatusIdle}
	if len(rec.statuses) != len(want) {
		t.Fatalf("statuses %v, want %v", rec.statuses, want)
	}
	for i := range want {
		if rec.statuses[i] != want[i] {
			t.Fatalf("statuses %v, want %v", rec.statuses, want)
		}
	}
}

func TestFailedSaveStaysDirty(t *testing.T) {
	m, p, clock, rec := newTestPersister(t)
	rec.err = errors.New("disk full")
	m.StampTerrain(grid.Coord{Col: 2, Row: 2}, "water")
	clock.Advance(DefaultSaveDelay)
	s, err := p.Status()
	if s != StatusError || err == nil {
		t.Fatalf("status %v err %v, want error", s, err)
	}
	if !p.Dirty() {
		t.Fatal("failed save must leave content dirty")
	}
	if m.TerrainCount() != 1 {
		t.Fatal("failed save must not roll back state")
	}

	rec.err = nil
	m.StampTerrain(grid.Coord{Col: 3, Row: 2}, "water")
	clock.Advance(DefaultSaveDelay)
	if len(rec.saves) != 2 {
		t.Fatalf("expected retry save, got %d saves", len(rec.saves))
	}
	if len(rec.saves[1].Terrain) != 2 {
		t.Fatalf("retry should carry latest state, got %d stamps", len(rec.saves[1].Terrain))
	}
	if p.Dirty() {
		t.Fatal("dirty should clear after successful retry")
	}
}

func TestMutationDuringSaveKeepsDirty(t *testing.T) {
	clock := &fakeClock{}
	m := newHexModel()
	var saves int
	var p *Persister
	save := func(_ context.Context, d Document) error {
		saves++
		if saves == 1 {
			// A mutation lands while the first save is running.
			m.StampTerrain(grid.Coord{Col: 9, Row: 9}, "desert")
		}
		return nil
	}
	p = NewPersister(m.Document, save, WithClock(clock)).Attach(m)
	m.StampTerrain(grid.Coord{Col: 1, Row: 1}, "forest")
	clock.Advance(DefaultSaveDelay)
	if saves != 1 {
		t.Fatalf("expected first save, got %d", saves)
	}
	if !p.Dirty() {
		t.Fatal("mutation during save must keep the model dirty")
	}
	clock.Advance(DefaultSaveDelay)
	if saves != 2 {
		t.Fatalf("expected follow-up save, got %d", saves)
	}
	if p.Dirty() {
		t.Fatal("follow-up save should clear dirty")
	}
}

func TestFlushOnClose(t *testing.T) {
	m, p, clock, rec := newTestPersister(t)
	m.AddLabel("Keep", grid.Point{X: 10, Y: 10}, Medium)
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(rec.saves) != 1 {
		t.Fatalf("close should flush, got %d saves", len(rec.saves))
	}
	if rec.saves[0].Version != 2 {
		t.Fatalf("version %d, want 2", rec.saves[0].Version)
	}
	m.AddLabel("Late", grid.Point{X: 10, Y: 10}, Medium)
	clock.Advance(time.Minute)
	if len(rec.saves) != 1 {
		t.Fatalf("closed persister saved again: %d", len(rec.saves))
	}
}

func TestFlushWithoutChangesDoesNothing(t *testing.T) {
	_, p, _, rec := newTestPersister(t)
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(rec.saves) != 0 {
		t.Fatalf("clean flush saved %d times", len(rec.saves))
	}
}
