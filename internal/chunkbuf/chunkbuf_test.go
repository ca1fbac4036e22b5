package chunkbuf

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkAt(ts int64) Chunk {
	return Chunk{
		TimestampUs: ts,
		DurationUs:  20_000,
		Fragments:   []Fragment{{Bytes: []byte{byte(ts)}}},
	}
}

func TestPushPopFIFOOrder(t *testing.T) {
	b := New(4, nil)

	for i := int64(0); i < 4; i++ {
		b.Push(chunkAt(i * 20_000))
	}

	assert.Equal(t, 4, b.Len())

	for i := int64(0); i < 4; i++ {
		c, ok := b.Pop(10 * time.Millisecond)
		require.True(t, ok)
		assert.Equal(t, i*20_000, c.TimestampUs)
	}
}

func TestPopTimesOutWhenEmpty(t *testing.T) {
	b := New(4, nil)

	_, ok := b.Pop(20 * time.Millisecond)
	assert.False(t, ok)
}

func TestPushDropsNewChunkWhenFullPastWait(t *testing.T) {
	var dropped Chunk

	var mu sync.Mutex

	b := NewWithPushWait(1, func(c Chunk) {
		mu.Lock()
		dropped = c
		mu.Unlock()
	}, 20*time.Millisecond)

	b.Push(chunkAt(0))
	b.Push(chunkAt(20_000)) // buffer full; should wait then drop this one

	assert.Equal(t, 1, b.Len())

	mu.Lock()
	got := dropped
	mu.Unlock()

	assert.Equal(t, int64(20_000), got.TimestampUs)

	c, ok := b.Pop(10 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, int64(0), c.TimestampUs, "the oldest chunk must survive, not the new one")
}

func TestDrainEmptiesBuffer(t *testing.T) {
	b := New(2, nil)
	b.Push(chunkAt(0))
	b.Push(chunkAt(1))

	drained := b.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, b.Len())
}
