package clocksync

import (
	"testing"
	"time"

	"github.com/doismellburning/samoyed/internal/snaperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestServerNowNotSynchronizedBeforeReady(t *testing.T) {
	e := New(5)

	_, err := e.ServerNow(time.Now())
	require.Error(t, err)
	assert.True(t, snaperr.Is(err, snaperr.NotSynchronized))
}

func TestIsReadyFlipsAfterWindowFills(t *testing.T) {
	e := New(5)

	for i := 0; i < 4; i++ {
		e.InsertLatency(int64(i))
		require.False(t, e.IsReady())
	}

	e.InsertLatency(100)
	assert.True(t, e.IsReady())
}

func TestResetClearsReadyAndOffset(t *testing.T) {
	e := New(3)
	for i := 0; i < 3; i++ {
		e.InsertLatency(int64(1000 + i))
	}

	require.True(t, e.IsReady())
	require.NotZero(t, e.Offset())

	e.Reset()
	assert.False(t, e.IsReady())
	assert.Zero(t, e.Offset())
}

func TestServerNowMonotonicUnderConstantOffset(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := New(3)

		offset := rapid.Int64Range(-1_000_000, 1_000_000).Draw(t, "offset")
		if offset == 0 {
			offset = 1
		}

		for i := 0; i < 3; i++ {
			e.InsertLatency(offset)
		}

		base := time.UnixMicro(rapid.Int64Range(0, 1_000_000_000_000).Draw(t, "base"))

		prev, err := e.ServerNow(base)
		require.NoError(t, err)

		for i := 1; i <= 5; i++ {
			next, err := e.ServerNow(base.Add(time.Duration(i) * time.Millisecond))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, next, prev)
			prev = next
		}
	})
}

func TestInsertLatencyMedianWithinSampleBounds(t *testing.T) {
	e := New(5)

	samples := []int64{10, 20, 30, 1000, 25}
	for _, s := range samples {
		e.InsertLatency(s)
	}

	off := e.Offset()
	assert.GreaterOrEqual(t, off, int64(10))
	assert.LessOrEqual(t, off, int64(1000))
}
