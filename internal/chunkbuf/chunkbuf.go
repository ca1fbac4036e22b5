// Package chunkbuf implements the bounded FIFO of decoded, timestamped PCM
// chunks described in spec.md §4.D: the decoder produces into it, the
// scheduler drains it. It is built on sync.Mutex + sync.Cond rather than a
// plain buffered channel because the producer's backpressure policy needs a
// bounded wait (1000 ms) followed by a drop-the-new-chunk decision — a
// channel send alone can't express "wait up to N ms, then give up and take
// a different action" without an accompanying timer goroutine per send.
package chunkbuf

import (
	"sync"
	"time"
)

// Fragment is one contiguous byte run of a chunk's PCM payload. Fragment
// chains exist because the platform allocator may not yield one block large
// enough for the whole payload; on a flat heap a chain degenerates to a
// single fragment.
type Fragment struct {
	Bytes []byte
}

// Chunk is a timestamped PCM payload: an ordered fragment chain whose
// concatenation is interleaved signed PCM samples, plus the authoritative
// duration computed by the decoder.
type Chunk struct {
	TimestampUs int64
	DurationUs  int64
	Fragments   []Fragment
}

// Bytes returns the concatenation of all fragments. Allocates; callers on a
// hot path should walk Fragments directly instead.
func (c Chunk) Bytes() []byte {
	n := 0
	for _, f := range c.Fragments {
		n += len(f.Bytes)
	}

	out := make([]byte, 0, n)
	for _, f := range c.Fragments {
		out = append(out, f.Bytes...)
	}

	return out
}

// DropFunc is called, with the dropped chunk, whenever the producer must
// discard a chunk because the buffer stayed full past the wait timeout.
type DropFunc func(Chunk)

// PushWaitDefault is the design-default producer wait (spec.md §4.D) before
// a full buffer drops the incoming chunk.
const PushWaitDefault = 1000 * time.Millisecond

// Buffer is a bounded FIFO of Chunk. The zero value is not usable;
// construct with New.
type Buffer struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []Chunk
	capacity int
	onDrop   DropFunc
	pushWait time.Duration
}

// New constructs a Buffer with the given capacity (design default 50,
// covering roughly 1 s of audio at 20 ms/chunk) and the design-default
// 1000 ms producer wait. onDrop may be nil.
func New(capacity int, onDrop DropFunc) *Buffer {
	return NewWithPushWait(capacity, onDrop, PushWaitDefault)
}

// NewWithPushWait is New with an explicit producer wait, mainly so tests
// don't have to pay the full 1000 ms to exercise the drop path.
func NewWithPushWait(capacity int, onDrop DropFunc, pushWait time.Duration) *Buffer {
	if capacity < 1 {
		capacity = 1
	}

	b := &Buffer{ //nolint:exhaustruct
		capacity: capacity,
		onDrop:   onDrop,
		pushWait: pushWait,
	}
	b.notEmpty = sync.NewCond(&b.mu)
	b.notFull = sync.NewCond(&b.mu)

	return b
}

// Push appends a chunk. If the buffer is full, it waits up to the
// configured push-wait for room; if still full after the wait, it drops the
// new chunk (not the oldest) and invokes onDrop, per spec.md §4.D and §3's
// overflow invariant.
func (b *Buffer) Push(c Chunk) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) >= b.capacity && !b.waitNotFullLocked(b.pushWait) {
		if b.onDrop != nil {
			b.onDrop(c)
		}

		return
	}

	b.items = append(b.items, c)
	b.notEmpty.Signal()
}

// waitNotFullLocked waits, with mu held, until len(items) < capacity or the
// timeout elapses. Returns true if room became available. Must be called
// with b.mu locked; returns with b.mu locked.
func (b *Buffer) waitNotFullLocked(timeout time.Duration) bool {
	return waitLocked(&b.mu, b.notFull, timeout, func() bool { return len(b.items) < b.capacity })
}

// waitNotEmptyLocked waits, with mu held, until len(items) > 0 or the
// timeout elapses.
func (b *Buffer) waitNotEmptyLocked(timeout time.Duration) bool {
	return waitLocked(&b.mu, b.notEmpty, timeout, func() bool { return len(b.items) > 0 })
}

// waitLocked blocks on cond until satisfied() or timeout elapses, with mu
// held throughout (Cond.Wait releases and reacquires it internally). A
// background timer broadcasts cond once the deadline passes so a waiter
// blocked in Wait() is woken even with nothing else signaling it.
func waitLocked(mu *sync.Mutex, cond *sync.Cond, timeout time.Duration, satisfied func() bool) bool {
	expired := false

	timer := time.AfterFunc(timeout, func() {
		mu.Lock()
		expired = true
		cond.Broadcast()
		mu.Unlock()
	})
	defer timer.Stop()

	for !satisfied() && !expired {
		cond.Wait()
	}

	return satisfied()
}

// Pop dequeues the oldest chunk, waiting up to timeout for one to arrive.
// Returns ok=false on timeout; callers use this for liveness checking per
// spec.md §4.D.
func (b *Buffer) Pop(timeout time.Duration) (Chunk, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 && !b.waitNotEmptyLocked(timeout) {
		return Chunk{}, false //nolint:exhaustruct
	}

	c := b.items[0]
	b.items = b.items[1:]
	b.notFull.Signal()

	return c, true
}

// Len returns the current number of queued chunks.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.items)
}

// Drain removes and returns every queued chunk, leaving the buffer empty,
// and wakes any producer waiting for room. Neither the session teardown nor
// the scheduler's Resyncing path calls it; chunks queued at those points
// stay in the buffer until popped.
func (b *Buffer) Drain() []Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.items
	b.items = nil
	b.notFull.Broadcast()

	return out
}
