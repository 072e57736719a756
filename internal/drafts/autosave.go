package drafts

import (
	"sync"
	"time"
)

// DefaultAutosaveDelay is the quiet period after the last input
const DefaultAutosaveDelay = 2 * time.Second

// Scheduler debounces input into one delayed action. A new Schedule call
// supersedes the pending one instead of queueing behind it.
type Scheduler struct {
	mu     sync.Mutex
	delay  time.Duration
	action func()
	timer  *time.Timer
	gen    uint64
	closed bool
}

func NewScheduler(delay time.Duration, action func()) *Scheduler {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Scheduler{delay: delay, action: action}
}

// Schedule (re)starts the countdown from now
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

// fire runs the action unless a later Schedule or Cancel got in first.
// Stop cannot recall a callback that already started, hence the generation.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	s.action()
}

// Cancel drops the pending action, if any
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// Flush cancels the countdown and runs the action right away, whether or
// not anything was pending. Used when the session goes away.
func (s *Scheduler) Flush() {
	s.Cancel()
	s.action()
}

// Pending reports whether an action is waiting to fire
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Close cancels and makes later Schedule calls no-ops
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.closed = true
}
