package resilience

import (
	"sync"
	"time"
)

// Scheduler runs deferred work, used to re-deliver a message once its backoff elapsed.
type Scheduler interface {
	// Schedule runs fn after delay. It returns ErrSchedulerClosed after Close.
	Schedule(delay time.Duration, fn func()) error
	// Close cancels all pending work and returns how many functions it dropped.
	// Functions already running are not interrupted.
	Close() int
}

// TimerScheduler is a Scheduler backed by time.AfterFunc.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[uint64]*time.Timer
	nextID uint64
	closed bool
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[uint64]*time.Timer),
	}
}

func (s *TimerScheduler) Schedule(delay time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}

	id := s.nextID
	s.nextID++

	// the callback blocks on mu until the timer is registered
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		_, pending := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()

		if pending {
			fn()
		}
	})

	return nil
}

func (s *TimerScheduler) Close() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	dropped := len(s.timers)

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}

	return dropped
}

// Pending returns the number of scheduled functions that have not fired yet.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.timers)
}
