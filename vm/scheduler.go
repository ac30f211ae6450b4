package vm

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/daedalus-js/daedalus/object"
)

// Clock is the time source for timers and wait.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock returns a Clock backed by the system time.
func RealClock() Clock { return realClock{} }

// FakeClock is a Clock whose Sleep advances time instantly.
type FakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

// NewFakeClock returns a FakeClock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	c.slept = append(c.slept, d)
	return nil
}

// Advance moves the clock forward without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Slept returns the duration of every Sleep call so far.
func (c *FakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// Elapsed returns the total time slept.
func (c *FakeClock) Elapsed() time.Duration {
	var total time.Duration
	for _, d := range c.Slept() {
		total += d
	}
	return total
}

type timer struct {
	id       int
	due      time.Time
	seq      uint64
	interval time.Duration
	repeat   bool
	fn       object.Object
	args     []object.Object
	index    int
}

// timerQueue orders timers by due time, then by scheduling order.
type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*timer)
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

type scheduler struct {
	clock  Clock
	queue  timerQueue
	timers map[int]*timer
	nextID int
	seq    uint64
	limit  int
}

func newScheduler(clock Clock, limit int) *scheduler {
	return &scheduler{
		clock:  clock,
		timers: map[int]*timer{},
		nextID: 1,
		limit:  limit,
	}
}

// add schedules fn after delay and returns the timer id.
func (s *scheduler) add(fn object.Object, delay time.Duration, args []object.Object, repeat bool) (int, error) {
	if s.limit > 0 && len(s.timers) >= s.limit {
		return 0, object.RangeErrorf("too many pending timers (limit %d)", s.limit)
	}
	if delay < 0 {
		delay = 0
	}
	t := &timer{
		id:       s.nextID,
		due:      s.clock.Now().Add(delay),
		seq:      s.seq,
		interval: delay,
		repeat:   repeat,
		fn:       fn,
		args:     args,
	}
	s.nextID++
	s.seq++
	s.timers[t.id] = t
	heap.Push(&s.queue, t)
	return t.id, nil
}

func (s *scheduler) cancel(id int) bool {
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
	return true
}

func (s *scheduler) pending() int { return len(s.timers) }

// untilNext reports how long until the earliest timer is due. ok is false
// when nothing is scheduled.
func (s *scheduler) untilNext() (d time.Duration, ok bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	d = s.queue[0].due.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	return d, true
}

// popDue removes the earliest timer if it is due. Intervals are re-armed
// relative to now.
func (s *scheduler) popDue() *timer {
	if len(s.queue) == 0 {
		return nil
	}
	now := s.clock.Now()
	if s.queue[0].due.After(now) {
		return nil
	}
	t := heap.Pop(&s.queue).(*timer)
	if t.repeat {
		t.due = now.Add(t.interval)
		t.seq = s.seq
		s.seq++
		heap.Push(&s.queue, t)
	} else {
		delete(s.timers, t.id)
	}
	return t
}
