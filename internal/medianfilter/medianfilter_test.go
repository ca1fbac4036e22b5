package medianfilter

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFullFlipsExactlyOnceAtCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 32).Draw(t, "capacity")
		f := New(capacity)

		for i := 0; i < capacity-1; i++ {
			f.Insert(rapid.Int64().Draw(t, "sample"))
			require.False(t, f.Full(), "must not be full before the Nth insert")
		}

		f.Insert(rapid.Int64().Draw(t, "sample"))
		assert.True(t, f.Full())
	})
}

func TestResetClearsFull(t *testing.T) {
	f := New(4)
	for i := 0; i < 4; i++ {
		f.Insert(int64(i))
	}

	require.True(t, f.Full())

	f.Reset()
	assert.False(t, f.Full())
}

func TestMedianWithinWindowBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 16).Draw(t, "capacity")
		f := New(capacity)

		n := rapid.IntRange(1, 40).Draw(t, "n")
		samples := make([]int64, 0, n)

		for i := 0; i < n; i++ {
			s := rapid.Int64Range(-1000, 1000).Draw(t, "sample")
			samples = append(samples, s)
			med := f.Insert(s)

			window := samples
			if len(window) > capacity {
				window = window[len(window)-capacity:]
			}

			sorted := append([]int64(nil), window...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

			assert.GreaterOrEqual(t, med, sorted[0])
			assert.LessOrEqual(t, med, sorted[len(sorted)-1])
			assert.Equal(t, sorted[len(sorted)/2], med)
		}
	})
}

func TestSortedOrderMaintainedAfterEviction(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 16).Draw(t, "capacity")
		f := New(capacity)

		n := rapid.IntRange(1, 40).Draw(t, "n")
		for i := 0; i < n; i++ {
			f.Insert(rapid.Int64Range(-1000, 1000).Draw(t, "sample"))

			require.LessOrEqual(t, len(f.sorted), capacity)
			for j := 1; j < len(f.sorted); j++ {
				require.LessOrEqual(t, f.sorted[j-1], f.sorted[j])
			}
		}
	})
}
