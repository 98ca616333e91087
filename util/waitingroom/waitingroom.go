package waitingroom

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// WaitingRoom calls functions when the time of the time source reaches their deadlines.
// Functions with the same deadline are called in the order they were added
type WaitingRoom struct {
	mutex      sync.Mutex
	d          map[int64][]func()
	timeSource func() int64
	period     time.Duration
	stopped    atomic.Bool
	stopCh     chan struct{}
}

var defaultPollingPeriod = 10 * time.Millisecond

// New starts the waiting room. Time source returns milliseconds
func New(timeSource func() int64, pollEvery ...time.Duration) *WaitingRoom {
	ret := &WaitingRoom{
		d:          make(map[int64][]func()),
		timeSource: timeSource,
		period:     defaultPollingPeriod,
		stopCh:     make(chan struct{}),
	}
	if len(pollEvery) > 0 && pollEvery[0] > 0 {
		ret.period = pollEvery[0]
	}
	go ret.polling()
	return ret
}

func (d *WaitingRoom) polling() {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
		}
		for _, fun := range d.due(d.timeSource()) {
			if d.stopped.Load() {
				return
			}
			fun()
		}
	}
}

// due removes and returns functions with deadline not after now, in the order of deadlines
func (d *WaitingRoom) due(now int64) []func() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	deadlines := make([]int64, 0)
	for t := range d.d {
		if t <= now {
			deadlines = append(deadlines, t)
		}
	}
	sort.Slice(deadlines, func(i, j int) bool {
		return deadlines[i] < deadlines[j]
	})
	ret := make([]func(), 0)
	for _, t := range deadlines {
		ret = append(ret, d.d[t]...)
		delete(d.d, t)
	}
	return ret
}

// Stop stops polling. Returns number of functions which were never called
func (d *WaitingRoom) Stop() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped.Swap(true) {
		return 0
	}
	close(d.stopCh)
	ret := 0
	for _, lst := range d.d {
		ret += len(lst)
	}
	d.d = make(map[int64][]func())
	return ret
}

// WaitUntil schedules fun to be called when time reaches the deadline.
// Returns false if the waiting room is already stopped
func (d *WaitingRoom) WaitUntil(deadline int64, fun func()) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped.Load() {
		return false
	}
	d.d[deadline] = append(d.d[deadline], fun)
	return true
}

// CallDelayed schedules fun to be called after delayMillis from now
func (d *WaitingRoom) CallDelayed(delayMillis int64, fun func()) bool {
	return d.WaitUntil(d.timeSource()+delayMillis, fun)
}

// Len number of functions waiting
func (d *WaitingRoom) Len() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	ret := 0
	for _, lst := range d.d {
		ret += len(lst)
	}
	return ret
}
