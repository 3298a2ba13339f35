package render

import (
	"context"
	"sync"
)

// frameDropThreshold bounds how many in-flight frames a burst of requests
// may cancel before one is allowed to finish.
const frameDropThreshold = 3

// Scheduler coalesces frame requests for one canvas. At most one request is
// pending; a newer request replaces it and cancels the frame in progress.
type Scheduler struct {
	draw    func(context.Context, Frame)
	pending chan Frame

	mu     sync.Mutex
	cancel context.CancelFunc
	drops  int
	closed bool

	done chan struct{}
}

// NewScheduler starts a worker that calls draw for each coalesced frame.
func NewScheduler(draw func(context.Context, Frame)) *Scheduler {
	s := &Scheduler{
		draw:    draw,
		pending: make(chan Frame, 1),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Scheduler) loop() {
	defer close(s.done)
	for f := range s.pending {
		ctx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		s.cancel = cancel
		s.mu.Unlock()

		s.draw(ctx, f)

		s.mu.Lock()
		s.cancel = nil
		if ctx.Err() == nil {
			s.drops = 0
		}
		s.mu.Unlock()
		cancel()
	}
}

// Request schedules f, replacing any frame not yet started.
func (s *Scheduler) Request(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.cancel != nil && s.drops < frameDropThreshold {
		s.cancel()
		s.drops++
	}
	select {
	case s.pending <- f:
	default:
		select {
		case <-s.pending:
		default:
		}
		s.pending <- f
	}
}

// Close cancels the frame in progress and waits for the worker to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	close(s.pending)
	s.mu.Unlock()
	<-s.done
}
