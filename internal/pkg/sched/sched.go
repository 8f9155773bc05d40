// Package sched provides delayed, cancellable task scheduling for game
// phase transitions. Tasks carry the scheduler generation at the time
// they were queued; cancelling everything bumps the generation, so a
// timer that already fired but has not run yet is a no-op instead of
// poking at a session that no longer exists.
package sched

import (
	"sync"
	"time"
)

// Scheduler runs functions after a delay on the shared timer pool.
// The zero value is not usable; call New.
type Scheduler struct {
	mu     sync.Mutex
	nextID int64
	gen    int64
	timers map[int64]*time.Timer
}

// Task identifies one scheduled unit of work.
type Task struct {
	id int64
	s  *Scheduler
}

// New creates a Scheduler.
func New() *Scheduler {
	return &Scheduler{timers: make(map[int64]*time.Timer)}
}

// After schedules fn to run once after d. The returned Task can cancel
// it. If CancelAll runs before the timer fires, fn never runs.
func (s *Scheduler) After(d time.Duration, fn func()) Task {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	gen := s.gen

	t := time.AfterFunc(d, func() {
		s.mu.Lock()
		stale := s.gen != gen
		delete(s.timers, id)
		s.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
	s.timers[id] = t
	s.mu.Unlock()

	return Task{id: id, s: s}
}

// Cancel stops the task if it has not fired yet.
func (t Task) Cancel() {
	if t.s == nil {
		return
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if timer, ok := t.s.timers[t.id]; ok {
		timer.Stop()
		delete(t.s.timers, t.id)
	}
}

// CancelAll stops every outstanding task and invalidates any task
// callback already in flight.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of tasks not yet fired or cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
