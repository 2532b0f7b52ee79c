package scheduler

import (
	"sync"
	"testing"
	"time"
)

// fakeClock collects scheduled functions and fires them on demand.
type fakeClock struct {
	mu     sync.Mutex
	timers []fakeTimer
}

type fakeTimer struct {
	d time.Duration
	f func()
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) *time.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, fakeTimer{d: d, f: f})
	// The returned timer is never used by the scheduler; a stopped real
	// timer keeps the signature honest without spawning goroutines.
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

func (c *fakeClock) fireAll() {
	c.mu.Lock()
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, t := range timers {
		t.f()
	}
}

func TestArmFiresActionWithConfiguredDelay(t *testing.T) {
	clock := &fakeClock{}
	var fired []string
	s := New(clock, 5*time.Minute, func(token string) {
		fired = append(fired, token)
	})

	s.Arm("0xaaa")

	if len(clock.timers) != 1 {
		t.Fatalf("expected 1 timer, got %d", len(clock.timers))
	}
	if clock.timers[0].d != 5*time.Minute {
		t.Errorf("timer delay = %s, want 5m", clock.timers[0].d)
	}
	if len(fired) != 0 {
		t.Errorf("action fired before delay elapsed")
	}

	clock.fireAll()
	if len(fired) != 1 || fired[0] != "0xaaa" {
		t.Errorf("fired = %v, want [0xaaa]", fired)
	}
}

func TestDoubleArmFiresTwice(t *testing.T) {
	clock := &fakeClock{}
	count := 0
	s := New(clock, time.Minute, func(string) { count++ })

	s.Arm("0xaaa")
	s.Arm("0xaaa")
	clock.fireAll()

	// No deduplication at this layer: two arms, two attempts.
	if count != 2 {
		t.Errorf("action fired %d times, want 2", count)
	}
}

func TestBindAfterConstruction(t *testing.T) {
	clock := &fakeClock{}
	s := New(clock, time.Minute, nil)
	s.Arm("0xaaa")

	var got string
	s.Bind(func(token string) { got = token })

	clock.fireAll()
	if got != "0xaaa" {
		t.Errorf("bound action got %q, want 0xaaa", got)
	}
}

// Bind and a firing timer may overlap; exercised under the race detector.
func TestBindConcurrentWithFire(t *testing.T) {
	clock := &fakeClock{}
	s := New(clock, time.Minute, nil)
	s.Arm("0xaaa")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Bind(func(string) {})
	}()
	go func() {
		defer wg.Done()
		clock.fireAll()
	}()
	wg.Wait()
}

func TestNilActionDoesNotPanic(t *testing.T) {
	clock := &fakeClock{}
	s := New(clock, time.Minute, nil)
	s.Arm("0xaaa")
	clock.fireAll()
}
