package scheduler

import (
	"log"
	"sync"
	"time"
)

// Clock abstracts timer creation so delay behavior is testable without
// real wall-clock waits.
type Clock interface {
	AfterFunc(d time.Duration, f func()) *time.Timer
}

// RealClock schedules on the system clock.
type RealClock struct{}

// AfterFunc calls time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) *time.Timer {
	return time.AfterFunc(d, f)
}

// Scheduler defers sell execution by a fixed delay from the moment Arm is
// called. Each Arm schedules exactly one non-repeating, non-cancelable
// invocation; arming the same token twice yields two independent attempts,
// so callers must arm at most once per token transition.
type Scheduler struct {
	clock Clock
	delay time.Duration

	mu     sync.Mutex
	action func(token string)
}

// New creates a scheduler firing action after delay. A nil clock defaults to
// the system clock.
func New(clock Clock, delay time.Duration, action func(token string)) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{clock: clock, delay: delay, action: action}
}

// Bind sets the action invoked when a timer fires. It exists so the scheduler
// and its consumer can be constructed in either order, and is safe to call
// while armed timers are firing.
func (s *Scheduler) Bind(action func(token string)) {
	s.mu.Lock()
	s.action = action
	s.mu.Unlock()
}

// Delay returns the configured sell delay.
func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// Arm schedules one sell attempt for token after the configured delay,
// measured from now. Re-arming at startup therefore restarts the wait rather
// than resuming it.
func (s *Scheduler) Arm(token string) {
	log.Printf("[scheduler] sell for %s armed in %s", token, s.delay)
	s.clock.AfterFunc(s.delay, func() {
		s.mu.Lock()
		action := s.action
		s.mu.Unlock()
		if action == nil {
			log.Printf("[scheduler] timer fired for %s with no action bound", token)
			return
		}
		action(token)
	})
}
