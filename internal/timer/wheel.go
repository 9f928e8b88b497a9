// Package timer implements the min-ordered timer wheel: an ordered set of
// scheduled callbacks backed by a single kernel timer descriptor (a Linux
// timerfd), so the reactor can multiplex it alongside socket descriptors
// instead of polling a wall-clock on every loop iteration.
package timer

import (
	"container/heap"
	"time"

	"golang.org/x/sys/unix"
)

// minInterval is the shortest delay ever programmed into the kernel timer;
// a callback that asks for an already-past expiration (including one added
// from inside another callback) still gets this much delay rather than 0,
// which timerfd treats as "disarm".
const minInterval = time.Millisecond

// Entry is a single scheduled callback, ordered by Expiration with
// insertion sequence as a deterministic tiebreaker.
type Entry struct {
	Expiration time.Time
	Callback   func()
	Repeat     bool
	Interval   time.Duration

	seq   uint64
	index int
}

// Wheel owns the kernel timer descriptor and the ordered set of entries.
type Wheel struct {
	fd      int
	entries entryHeap
	seq     uint64
}

// New creates a Wheel with its own timerfd. Failure to create the
// descriptor is fatal per the bootstrap contract — the caller should abort
// startup on error.
func New() (*Wheel, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Wheel{fd: fd}, nil
}

// Fd returns the timer descriptor for registration with the reactor's
// multiplexer (level-triggered: the descriptor stays readable until the
// fire count is drained by ProcessReady).
func (w *Wheel) Fd() int { return w.fd }

// Close releases the kernel timer descriptor.
func (w *Wheel) Close() error {
	return unix.Close(w.fd)
}

// Add schedules callback to run after delay, computing
// expiration = now + delay. If the new entry becomes the earliest, the
// kernel timer is reprogrammed to fire in max(delay, 1ms).
func (w *Wheel) Add(delay time.Duration, callback func(), repeat bool, interval time.Duration) *Entry {
	e := &Entry{
		Expiration: time.Now().Add(delay),
		Callback:   callback,
		Repeat:     repeat,
		Interval:   interval,
		seq:        w.seq,
	}
	w.seq++
	heap.Push(&w.entries, e)
	if w.entries[0] == e {
		w.reprogram(delay)
	}
	return e
}

// ProcessReady drains and discards the kernel timer's fire count, runs
// every entry whose Expiration is <= now in ascending expiration order,
// reinserts repeating entries at expiration+interval (not now+interval),
// and reprograms the kernel timer for the new head, if any remains.
func (w *Wheel) ProcessReady() {
	var count [8]byte
	_, _ = unix.Read(w.fd, count[:]) // fire count; value itself is unused

	now := time.Now()
	var due []*Entry
	for len(w.entries) > 0 && !w.entries[0].Expiration.After(now) {
		due = append(due, heap.Pop(&w.entries).(*Entry))
	}

	for _, e := range due {
		e.Callback()
		if e.Repeat {
			e.Expiration = e.Expiration.Add(e.Interval)
			heap.Push(&w.entries, e)
		}
	}

	if len(w.entries) > 0 {
		w.reprogram(time.Until(w.entries[0].Expiration))
	}
}

// reprogram arms the kernel timer to fire once after max(delay, minInterval).
func (w *Wheel) reprogram(delay time.Duration) {
	if delay < minInterval {
		delay = minInterval
	}
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(delay.Nanoseconds()),
	}
	_ = unix.TimerfdSettime(w.fd, 0, &spec, nil)
}

// entryHeap implements container/heap ordered by Expiration, insertion
// sequence breaking ties deterministically.
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if !h[i].Expiration.Equal(h[j].Expiration) {
		return h[i].Expiration.Before(h[j].Expiration)
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*Entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
