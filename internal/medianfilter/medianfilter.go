// Package medianfilter implements a fixed-window running median over signed
// 64-bit integer samples, per spec.md §4.B.
//
// The window is a ring buffer of raw insertion order (to know what to evict)
// alongside a separately maintained sorted order (to read the middle element
// in O(1)). Each insert evicts the oldest sample and re-sorts in the new one,
// which is O(N) — acceptable per spec.md §4.B for N ≤ ~200.
package medianfilter

// Filter is a windowed median filter of fixed capacity N. The zero value is
// not usable; construct with New.
type Filter struct {
	capacity int
	ring     []int64 // insertion order, ring.next wraps
	sorted   []int64 // same N elements, kept sorted
	next     int     // index in ring for the next insert
	count    int     // number of inserts since the last Reset, saturates at capacity
}

// New constructs a Filter with the given window capacity. capacity must be
// >= 1; an odd capacity is conventional (spec.md default 199) so the middle
// element is a genuine median rather than an average of two.
func New(capacity int) *Filter {
	if capacity < 1 {
		capacity = 1
	}

	return &Filter{
		capacity: capacity,
		ring:     make([]int64, capacity),
		sorted:   make([]int64, 0, capacity),
	}
}

// Insert pushes a new sample into the window, evicting the oldest once the
// window is full, and returns the new median.
func (f *Filter) Insert(sample int64) int64 {
	if f.count < f.capacity {
		f.sorted = insertSorted(f.sorted, sample)
		f.ring[f.next] = sample
		f.count++
	} else {
		oldest := f.ring[f.next]
		f.sorted = removeSorted(f.sorted, oldest)
		f.sorted = insertSorted(f.sorted, sample)
		f.ring[f.next] = sample
	}

	f.next = (f.next + 1) % f.capacity

	return f.Median()
}

// Median returns the current middle element of the sorted window. Returns 0
// if no samples have been inserted yet — callers should consult Full or a
// higher-level is_ready() gate first.
func (f *Filter) Median() int64 {
	if len(f.sorted) == 0 {
		return 0
	}

	return f.sorted[len(f.sorted)/2]
}

// Full reports whether N inserts have occurred since construction or the
// last Reset. Per spec.md §3's invariant, this flips true exactly once per
// session-reset and never back until Reset is called.
func (f *Filter) Full() bool {
	return f.count >= f.capacity
}

// Reset clears the window and its full flag.
func (f *Filter) Reset() {
	f.sorted = f.sorted[:0]
	f.next = 0
	f.count = 0

	for i := range f.ring {
		f.ring[i] = 0
	}
}

// insertSorted inserts v into sorted slice s, preserving order.
func insertSorted(s []int64, v int64) []int64 {
	i := searchInsertIndex(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v

	return s
}

// removeSorted removes the first occurrence of v from sorted slice s.
func removeSorted(s []int64, v int64) []int64 {
	i := searchInsertIndex(s, v)
	if i >= len(s) || s[i] != v {
		// Shouldn't happen given Insert/Insert's own bookkeeping, but don't
		// panic on a ring/sorted desync — leave the window untouched.
		return s
	}

	return append(s[:i], s[i+1:]...)
}

// searchInsertIndex returns the index of v in sorted slice s, or the index
// at which it should be inserted to keep s sorted.
func searchInsertIndex(s []int64, v int64) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo
}
