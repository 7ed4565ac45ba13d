// Timer scheduling for the panel engine.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"guidelight-panel/internal/logging"
)

// Timer is a scheduled callback. A Timer created by Every re-arms itself
// until stopped.
type Timer struct {
	id     uint64
	due    time.Time
	period time.Duration
	fn     func()
	index  int
	s      *Scheduler
}

// Stop cancels the timer. It reports whether the timer was still armed.
// Calling Stop more than once, or after the scheduler closed, is safe.
func (t *Timer) Stop() bool {
	if t == nil || t.s == nil {
		return false
	}
	return t.s.cancel(t)
}

// Due returns the next firing time.
func (t *Timer) Due() time.Time { return t.due }

// Scheduler fires callbacks in (deadline, creation order). Callbacks run one
// at a time on the goroutine calling Fire or Run, so timers with equal
// deadlines fire in the order they were scheduled.
type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	queue  timerQueue
	seq    uint64
	closed bool
	wake   chan struct{}
}

// New creates a Scheduler reading time from clock. A nil clock means System.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = System
	}
	return &Scheduler{clock: clock, wake: make(chan struct{}, 1)}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// After schedules fn to run once, d from now.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	return s.schedule(d, 0, fn)
}

// Every schedules fn to run every d, first firing d from now.
// A non-positive d yields a timer that never fires.
func (s *Scheduler) Every(d time.Duration, fn func()) *Timer {
	if d <= 0 {
		return &Timer{index: -1}
	}
	return s.schedule(d, d, fn)
}

func (s *Scheduler) schedule(d, period time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Timer{period: period, fn: fn, index: -1, s: s}
	if s.closed {
		return t
	}
	s.seq++
	t.id = s.seq
	t.due = s.clock.Now().Add(d)
	heap.Push(&s.queue, t)
	s.signal()
	return t
}

func (s *Scheduler) cancel(t *Timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&s.queue, t.index)
	return true
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Fire runs every timer due at the current clock time and returns how many
// callbacks ran. A periodic timer that fell more than a period behind fires
// once and is re-armed a full period after now.
func (s *Scheduler) Fire() int {
	n := 0
	for {
		fn := s.popDue()
		if fn == nil {
			return n
		}
		fn()
		n++
	}
}

func (s *Scheduler) popDue() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.queue.Len() == 0 {
		return nil
	}
	t := s.queue[0]
	if t.due.After(s.clock.Now()) {
		return nil
	}
	heap.Pop(&s.queue)
	if t.period > 0 {
		// Re-armed before the callback runs so the callback may Stop it.
		s.seq++
		t.id = s.seq
		now := s.clock.Now()
		t.due = t.due.Add(t.period)
		if !t.due.After(now) {
			t.due = now.Add(t.period)
		}
		heap.Push(&s.queue, t)
	}
	return t.fn
}

func (s *Scheduler) nextDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		return 0, false
	}
	d := s.queue[0].due.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	return d, true
}

// Run fires timers against the wall clock until ctx is done or the
// scheduler is closed.
func (s *Scheduler) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Debug("scheduler started")
	defer log.Debug("scheduler stopped")
	for {
		s.Fire()
		if s.isClosed() {
			return
		}
		var timerC <-chan time.Time
		var timer *time.Timer
		if d, ok := s.nextDelay(); ok {
			timer = time.NewTimer(d)
			timerC = timer.C
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.wake:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Close cancels every armed timer. Later After/Every calls return timers
// that never fire. Close is idempotent.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, t := range s.queue {
		t.index = -1
	}
	s.queue = nil
	s.signal()
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// signal wakes Run so it can recompute its sleep. Callers hold s.mu.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

type timerQueue []*Timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].id < q[j].id
	}
	return q[i].due.Before(q[j].due)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*Timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
