package content

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	DefaultSaveDelay = 2 * time.Second
	DefaultSavedHold = 2 * time.Second
)

// Status is the save state shown to the user.
type Status int

const (
	StatusIdle Status = iota
	StatusSaving
	StatusSaved
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// SaveFunc writes a document to durable storage.
type SaveFunc func(ctx context.Context, doc Document) error

// Timer is the subset of *time.Timer the persister needs.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed calls.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Persister debounces mutations into saves. Each MarkDirty re-arms the
// timer; when it fires the latest snapshot is saved. Failed saves leave the
// content dirty so the next cycle retries with current data.
type Persister struct {
	snapshot func() Document
	save     SaveFunc
	clock    Clock
	delay    time.Duration
	hold     time.Duration
	onStatus func(Status, error)

	saveMu sync.Mutex

	mu      sync.Mutex
	dirty   bool
	gen     uint64
	timer   Timer
	holdT   Timer
	status  Status
	lastErr error
	closed  bool
}

// PersisterOption configures a Persister.
type PersisterOption func(*Persister)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) PersisterOption {
	return func(p *Persister) { p.clock = c }
}

// WithSaveDelay sets the quiet period before a save.
func WithSaveDelay(d time.Duration) PersisterOption {
	return func(p *Persister) {
		if d > 0 {
			p.delay = d
		}
	}
}

// WithSavedHold sets how long the saved status is shown before reverting to
// idle.
func WithSavedHold(d time.Duration) PersisterOption {
	return func(p *Persister) {
		if d > 0 {
			p.hold = d
		}
	}
}

// WithStatusFunc registers a callback for status changes. It is called
// outside the persister's locks, possibly from a timer goroutine.
func WithStatusFunc(f func(Status, error)) PersisterOption {
	return func(p *Persister) { p.onStatus = f }
}

// NewPersister returns a persister saving snapshot() through save.
func NewPersister(snapshot func() Document, save SaveFunc, opts ...PersisterOption) *Persister {
	p := &Persister{
		snapshot: snapshot,
		save:     save,
		clock:    systemClock{},
		delay:    DefaultSaveDelay,
		hold:     DefaultSavedHold,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Attach wires m's mutation hook to p and returns p.
func (p *Persister) Attach(m *Model) *Persister {
	m.SetOnChange(p.MarkDirty)
	return p
}

// MarkDirty records a mutation and re-arms the debounce timer.
func (p *Persister) MarkDirty() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.dirty = true
	p.gen++
	p.armLocked()
}

func (p *Persister) armLocked() {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = p.clock.AfterFunc(p.delay, p.fire)
}

// Retry re-arms the timer when a previous save failed.
func (p *Persister) Retry() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty && !p.closed {
		p.armLocked()
	}
}

func (p *Persister) fire() {
	if !p.saveMu.TryLock() {
		// A save is in flight; look again after another quiet period.
		p.mu.Lock()
		if !p.closed {
			p.armLocked()
		}
		p.mu.Unlock()
		return
	}
	defer p.saveMu.Unlock()
	if err := p.saveLocked(context.Background()); err != nil {
		log.Printf("autosave: %v", err)
	}
}

// Flush saves immediately if there are unsaved changes, waiting for any
// in-flight save first.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	p.saveMu.Lock()
	defer p.saveMu.Unlock()
	return p.saveLocked(ctx)
}

// Close flushes pending changes and stops accepting new ones.
func (p *Persister) Close(ctx context.Context) error {
	err := p.Flush(ctx)
	p.mu.Lock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
	}
	if p.holdT != nil {
		p.holdT.Stop()
	}
	p.mu.Unlock()
	return err
}

// saveLocked runs one save cycle. saveMu must be held.
func (p *Persister) saveLocked(ctx context.Context) error {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return nil
	}
	gen := p.gen
	if p.holdT != nil {
		p.holdT.Stop()
		p.holdT = nil
	}
	p.mu.Unlock()

	doc := p.snapshot()
	doc.Version = doc.DerivedVersion()
	p.setStatus(StatusSaving, nil)

	err := p.save(ctx, doc)

	p.mu.Lock()
	if err != nil {
		p.mu.Unlock()
		p.setStatus(StatusError, err)
		return fmt.Errorf("save content: %w", err)
	}
	if p.gen == gen {
		p.dirty = false
	}
	if !p.closed {
		p.holdT = p.clock.AfterFunc(p.hold, p.revertSaved)
	}
	p.mu.Unlock()
	p.setStatus(StatusSaved, nil)
	return nil
}

func (p *Persister) revertSaved() {
	p.mu.Lock()
	if p.status != StatusSaved {
		p.mu.Unlock()
		return
	}
	p.status = StatusIdle
	f := p.onStatus
	p.mu.Unlock()
	if f != nil {
		f(StatusIdle, nil)
	}
}

func (p *Persister) setStatus(s Status, err error) {
	p.mu.Lock()
	p.status = s
	p.lastErr = err
	f := p.onStatus
	p.mu.Unlock()
	if f != nil {
		f(s, err)
	}
}

// Status returns the current save status and the last save error.
func (p *Persister) Status() (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.lastErr
}

// Dirty reports whether there are unsaved changes.
func (p *Persister) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}
