// Package alarm implements ports.AlarmService with runtime timers.
package alarm

import (
	"sort"
	"sync"
	"time"

	"github.com/corey/idletab/internal/ports"
)

// Scheduler runs named alarms. Each alarm owns one goroutine that exits when
// the alarm is cleared, replaced, or the scheduler is closed.
type Scheduler struct {
	mu     sync.Mutex
	alarms map[string]chan struct{}
	fired  chan string
	wg     sync.WaitGroup
	closed bool
}

var _ ports.AlarmService = (*Scheduler)(nil)

// NewScheduler creates a scheduler. buffer is the number of fired names held
// for a slow consumer; further ticks are dropped.
func NewScheduler(buffer int) *Scheduler {
	if buffer < 1 {
		buffer = 1
	}
	return &Scheduler{
		alarms: make(map[string]chan struct{}),
		fired:  make(chan string, buffer),
	}
}

// Create schedules name after delay, then every period. A zero period fires
// once. An existing alarm with the same name is replaced.
func (s *Scheduler) Create(name string, delay, period time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if stop, ok := s.alarms[name]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	s.alarms[name] = stop
	s.wg.Add(1)
	go s.run(name, delay, period, stop)
}

func (s *Scheduler) run(name string, delay, period time.Duration, stop chan struct{}) {
	defer s.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-stop:
		return
	case <-timer.C:
		s.fire(name)
	}
	if period <= 0 {
		s.mu.Lock()
		if s.alarms[name] == stop {
			delete(s.alarms, name)
		}
		s.mu.Unlock()
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.fire(name)
		}
	}
}

func (s *Scheduler) fire(name string) {
	select {
	case s.fired <- name:
	default:
	}
}

// Clear cancels an alarm. Unknown names are ignored.
func (s *Scheduler) Clear(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, ok := s.alarms[name]; ok {
		close(stop)
		delete(s.alarms, name)
	}
}

// Pending returns the names of scheduled alarms, sorted.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.alarms))
	for name := range s.alarms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fired delivers alarm names as they fire.
func (s *Scheduler) Fired() <-chan string {
	return s.fired
}

// Close cancels every alarm and waits for their goroutines. Safe to call
// multiple times.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for name, stop := range s.alarms {
		close(stop)
		delete(s.alarms, name)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
