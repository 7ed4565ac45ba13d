package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestAfterFiresOnceWhenDue(t *testing.T) {
	clock := NewManual(epoch)
	s := New(clock)
	var fired int
	s.After(800*time.Millisecond, func() { fired++ })

	clock.Add(799 * time.Millisecond)
	assert.Equal(t, 0, s.Fire())
	clock.Add(time.Millisecond)
	assert.Equal(t, 1, s.Fire())
	clock.Add(time.Hour)
	assert.Equal(t, 0, s.Fire())
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, s.Pending())
}

func TestEqualDeadlinesFireInScheduleOrder(t *testing.T) {
	clock := NewManual(epoch)
	s := New(clock)
	var order []string
	for _, name := range []string{"a", "b", "c", "d"} {
		name := name
		s.After(time.Second, func() { order = append(order, name) })
	}
	s.After(500*time.Millisecond, func() { order = append(order, "early") })

	clock.Add(time.Second)
	require.Equal(t, 5, s.Fire())
	assert.Equal(t, []string{"early", "a", "b", "c", "d"}, order)
}

func TestEveryKeepsCadence(t *testing.T) {
	clock := NewManual(epoch)
	s := New(clock)
	var ticks int
	tm := s.Every(3*time.Second, func() { ticks++ })

	clock.Add(3 * time.Second)
	assert.Equal(t, 1, s.Fire())
	assert.Equal(t, epoch.Add(6*time.Second), tm.Due())

	// Firing late but within a period keeps the original grid.
	clock.Add(4 * time.Second)
	assert.Equal(t, 1, s.Fire())
	assert.Equal(t, epoch.Add(9*time.Second), tm.Due())

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	clock.Add(time.Minute)
	assert.Equal(t, 0, s.Fire())
	assert.Equal(t, 2, ticks)
}

func TestEverySkipsMissedPeriods(t *testing.T) {
	clock := NewManual(epoch)
	s := New(clock)
	var ticks int
	tm := s.Every(3*time.Second, func() { ticks++ })

	clock.Add(time.Hour)
	assert.Equal(t, 1, s.Fire())
	assert.Equal(t, 1, ticks)
	assert.Equal(t, epoch.Add(time.Hour+3*time.Second), tm.Due())

	clock.Add(3 * time.Second)
	assert.Equal(t, 1, s.Fire())
	assert.Equal(t, 2, ticks)
}

func TestCallbackMayStopItsOwnPeriodicTimer(t *testing.T) {
	clock := NewManual(epoch)
	s := New(clock)
	var tm *Timer
	var ticks int
	tm = s.Every(time.Second, func() {
		ticks++
		tm.Stop()
	})
	clock.Add(5 * time.Second)
	s.Fire()
	assert.Equal(t, 1, ticks)
	assert.Equal(t, 0, s.Pending())
}

func TestCallbackMayScheduleMore(t *testing.T) {
	clock := NewManual(epoch)
	s := New(clock)
	var order []int
	s.After(0, func() {
		order = append(order, 1)
		s.After(0, func() { order = append(order, 2) })
	})
	s.Fire()
	assert.Equal(t, []int{1, 2}, order)
}

func TestCloseCancelsEverythingAndIsIdempotent(t *testing.T) {
	clock := NewManual(epoch)
	s := New(clock)
	one := s.After(time.Second, func() { t.Fatal("one-shot fired after Close") })
	tick := s.Every(time.Second, func() { t.Fatal("ticker fired after Close") })

	s.Close()
	s.Close()
	assert.False(t, one.Stop())
	assert.False(t, tick.Stop())

	late := s.After(0, func() { t.Fatal("timer scheduled after Close fired") })
	assert.False(t, late.Stop())
	clock.Add(time.Hour)
	assert.Equal(t, 0, s.Fire())
}

func TestEveryRejectsNonPositivePeriod(t *testing.T) {
	s := New(NewManual(epoch))
	tm := s.Every(0, func() {})
	assert.False(t, tm.Stop())
	assert.Equal(t, 0, s.Pending())
}

func TestRunFiresAgainstWallClock(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	s.After(5*time.Millisecond, func() {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
	})
	s.After(5*time.Millisecond, func() {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		close(done)
	})

	go s.Run(ctx)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timers did not fire")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, order)
}

func TestRunReturnsOnClose(t *testing.T) {
	s := New(nil)
	finished := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(finished)
	}()
	s.Close()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
