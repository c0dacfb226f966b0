package transports

import (
	"sync"

	"github.com/eapache/queue"
)

// -----------------------------------------------------------------------------

// Strand runs posted tasks one at a time, in FIFO order, on a single goroutine.
// Everything that touches a connection's state is posted to its strand, so no
// two of its callbacks ever run concurrently.
type Strand struct {
	mu      sync.Mutex
	tasks   *queue.Queue
	wake    chan struct{}
	stopped bool
	done    chan struct{}
}

// -----------------------------------------------------------------------------

// NewStrand starts a strand goroutine.
func NewStrand() *Strand {
	s := &Strand{
		tasks: queue.New(),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// -----------------------------------------------------------------------------

// Post enqueues fn. It never blocks, so tasks running on the strand may post
// further tasks. It returns false once the strand has been stopped.
func (s *Strand) Post(fn func()) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.tasks.Add(fn)
	s.mu.Unlock()

	s.signal()
	return true
}

// -----------------------------------------------------------------------------

// Await posts fn and blocks until it has run. Must not be called from the
// strand itself.
func (s *Strand) Await(fn func()) bool {
	ran := make(chan struct{})
	if !s.Post(func() {
		defer close(ran)
		fn()
	}) {
		return false
	}
	<-ran
	return true
}

// -----------------------------------------------------------------------------

// Stop refuses new tasks; the ones already queued still run before the strand
// goroutine exits and Done is closed.
func (s *Strand) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.signal()
}

// -----------------------------------------------------------------------------

// Done is closed when the strand goroutine has exited.
func (s *Strand) Done() <-chan struct{} {
	return s.done
}

// -----------------------------------------------------------------------------

func (s *Strand) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

func (s *Strand) run() {
	defer close(s.done)

	for {
		s.mu.Lock()
		if s.tasks.Length() == 0 {
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return
			}
			<-s.wake
			continue
		}
		fn := s.tasks.Remove().(func())
		s.mu.Unlock()

		fn()
	}
}
