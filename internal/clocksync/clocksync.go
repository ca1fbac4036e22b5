// Package clocksync maintains the client's running estimate of offset to
// server time, per spec.md §4.C. Latency samples arrive from TIME replies,
// pass through a windowed median filter, and the filter's output becomes
// the current offset.
package clocksync

import (
	"sync"
	"time"

	"github.com/doismellburning/samoyed/internal/medianfilter"
	"github.com/doismellburning/samoyed/internal/snaperr"
)

// DefaultWindow is the design-default median filter length
// (LATENCY_MEDIAN_FILTER_LEN), odd so the middle element is a genuine
// sample rather than an average of two.
const DefaultWindow = 199

// Estimator tracks offset_to_server_us behind a mutex. The zero value is not
// usable; construct with New.
type Estimator struct {
	mu        sync.Mutex
	filter    *medianfilter.Filter
	offsetUs  int64
	lastValid bool // whether offsetUs currently reflects a filter read (vs. initial 0)
}

// New constructs an Estimator with the given median filter window.
func New(window int) *Estimator {
	if window <= 0 {
		window = DefaultWindow
	}

	return &Estimator{filter: medianfilter.New(window)} //nolint:exhaustruct
}

// InsertLatency pushes a new (c2s-s2c)/2 latency sample in microseconds
// through the median filter; the filter's output replaces offset_to_server_us.
func (e *Estimator) InsertLatency(us int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.offsetUs = e.filter.Insert(us)
	e.lastValid = true
}

// Reset reinitializes the filter and sets offset_to_server_us = 0; IsReady
// becomes false until the filter fills again.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.filter.Reset()
	e.offsetUs = 0
	e.lastValid = false
}

// Offset returns the current offset estimate in microseconds. It blocks on
// the estimator's mutex and always returns the value current at that moment;
// it does not fall back to an earlier value when the lock is contended. The
// critical sections under this lock are a few field reads and one filter
// insert, so waits are short.
func (e *Estimator) Offset() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.offsetUs
}

// IsReady reports whether the underlying median filter is full.
func (e *Estimator) IsReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.filter.Full()
}

// ServerNow returns gettimeofday_us() + Offset(), in server-time
// microseconds. Fails with NotSynchronized if the offset is zero (unset) or
// the estimator isn't ready yet.
//
// now is normalized via UnixMicro rather than a monotonic time.Time read:
// mixing a monotonic-clock reading with a server-reported offset would
// silently corrupt the arithmetic the moment the two clocks' epochs
// disagree, since time.Now() carries a monotonic component that has no
// relationship to wall-clock microseconds since the Unix epoch.
func (e *Estimator) ServerNow(now time.Time) (int64, error) {
	e.mu.Lock()
	offset := e.offsetUs
	ready := e.filter.Full()
	valid := e.lastValid
	e.mu.Unlock()

	if !ready || !valid || offset == 0 {
		return 0, snaperr.New(snaperr.NotSynchronized, "server_now", nil)
	}

	return now.UnixMicro() + offset, nil
}
