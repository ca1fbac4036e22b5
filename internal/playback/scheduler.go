// Package playback implements the scheduler collaborator from spec.md §4.G:
// a state machine (Idle / Resyncing / Locked) that dequeues decoded chunks,
// hard-syncs on the first one after a settings change, then soft-adjusts the
// sink's clock trim to stay phase-locked with the server.
package playback

import (
	"context"
	"time"

	"github.com/doismellburning/samoyed/internal/audiosink"
	"github.com/doismellburning/samoyed/internal/chunkbuf"
	"github.com/doismellburning/samoyed/internal/clocksync"
	"github.com/doismellburning/samoyed/internal/medianfilter"
	"github.com/doismellburning/samoyed/internal/samlog"
	"github.com/doismellburning/samoyed/internal/snaperr"
	"github.com/doismellburning/samoyed/internal/snapclient"
)

// ShortBufferLen is SHORT_BUFFER_LEN, the steady-state trim median filter's
// window: short enough to react quickly to drift, odd so the middle sample
// is a genuine reading rather than an interpolation.
const ShortBufferLen = 11

// HardResyncThresholdUs is HARD_RESYNC_THRESHOLD: an |avg| beyond this drops
// the current chunk and forces a full resync instead of trimming.
const HardResyncThresholdUs = 3000

// MaxOffsetUs is MAX_OFFSET, the steady-state dead-band: trims are only
// nudged once the smoothed age error leaves ±MaxOffsetUs.
const MaxOffsetUs = 50

// IdlePollInterval is how often Idle re-checks the settings mailbox while
// no settings have arrived yet.
const IdlePollInterval = 50 * time.Millisecond

// DequeueTimeout bounds how long Resyncing/Locked wait for the next chunk
// before re-checking for context cancellation or a settings change.
const DequeueTimeout = 500 * time.Millisecond

// WriteTimeoutUs is the "long timeout" spec.md §4.G calls for when draining
// a chunk's fragments onto the sink.
const WriteTimeoutUs = int64(2 * time.Second / time.Microsecond)

// NotSynchronizedRetryDelay is how long Resyncing/Locked sleep before
// retrying when the clock estimator isn't ready yet, per spec.md §7's
// ActionRetryShort policy for NotSynchronized.
const NotSynchronizedRetryDelay = 10 * time.Millisecond

// State is the scheduler's playback state.
type State int

const (
	Idle State = iota
	Resyncing
	Locked
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resyncing:
		return "resyncing"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// Clock abstracts the one-shot hardware timer spec.md §4.G arms for hard
// sync, letting tests substitute an instant fake instead of really sleeping.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
	// SleepUntil blocks until d has elapsed (or ctx is canceled) and returns
	// the actual elapsed duration, mirroring "read the timer's actual
	// counter value to record true wake delay".
	SleepUntil(ctx context.Context, d time.Duration) time.Duration
}

// RealClock drives the scheduler against the actual wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) SleepUntil(ctx context.Context, d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}

	start := time.Now()
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	return time.Since(start)
}

// Scheduler runs the playback state machine described in spec.md §4.G.
type Scheduler struct {
	Buf     *chunkbuf.Buffer
	Clock   *clocksync.Estimator
	Mailbox *snapclient.Mailbox
	Sink    audiosink.Sink
	WallClock Clock
	Log     *samlog.Logger

	// DacLatencyUs is the server-reported SERVER_SETTINGS latency, folded
	// into age per spec.md §4.G's formula. Set from Settings.LatencyMs on
	// each settings change, mirroring main.c's clientDacLatency assignment.
	DacLatencyUs int64

	state      State
	settings   snapclient.Settings
	trim       audiosink.Trim
	shortFilter *medianfilter.Filter
}

// New builds a Scheduler in the Idle state.
func New(buf *chunkbuf.Buffer, clock *clocksync.Estimator, mailbox *snapclient.Mailbox, sink audiosink.Sink, log *samlog.Logger) *Scheduler {
	return &Scheduler{
		Buf:         buf,
		Clock:       clock,
		Mailbox:     mailbox,
		Sink:        sink,
		WallClock:   RealClock{},
		Log:         log,
		state:       Idle,
		trim:        audiosink.TrimNominal,
		shortFilter: medianfilter.New(ShortBufferLen),
	} //nolint:exhaustruct
}

// State returns the scheduler's current state, for diagnostics/tests.
func (s *Scheduler) State() State {
	return s.state
}

// Run drives the state machine until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if newSettings, ok := s.Mailbox.Take(); ok {
			s.onSettingsChanged(newSettings)
		}

		switch s.state {
		case Idle:
			s.runIdle(ctx)
		case Resyncing:
			s.runResyncing(ctx)
		case Locked:
			s.runLocked(ctx)
		}
	}
}

func (s *Scheduler) onSettingsChanged(newSettings snapclient.Settings) {
	if s.state != Idle {
		_ = s.Sink.Stop()
	}

	s.settings = newSettings
	s.DacLatencyUs = int64(newSettings.LatencyMs) * 1000
	s.trim = audiosink.TrimNominal
	s.shortFilter.Reset()

	if err := s.Sink.Configure(newSettings.SampleRate, newSettings.BitsPerSample, newSettings.Channels); err != nil {
		s.logWarn("sink configure failed", "err", err)

		s.state = Idle

		return
	}

	s.state = Resyncing
}

func (s *Scheduler) runIdle(ctx context.Context) {
	s.WallClock.SleepUntil(ctx, IdlePollInterval)
}

func (s *Scheduler) runResyncing(ctx context.Context) {
	chunk, ok := s.Buf.Pop(DequeueTimeout)
	if !ok {
		return
	}

	age, err := s.age(chunk)
	if err != nil {
		// Chunk is already freed (dropped, not requeued) per spec.md §7.
		s.backoffIfRetryable(ctx, err)

		return
	}

	if age >= 0 {
		// Already late: discard and keep trying.
		return
	}

	s.hardSync(ctx, chunk, age)
}

// hardSync implements spec.md §4.G's initial-sync sequence: prime the first
// fragment, sleep out the remaining (-age) microseconds, start the sink,
// then flush the rest of the chunk.
func (s *Scheduler) hardSync(ctx context.Context, chunk chunkbuf.Chunk, age int64) {
	wait := time.Duration(-age) * time.Microsecond

	primed := 0

	if len(chunk.Fragments) > 0 {
		n, err := s.Sink.Prime(chunk.Fragments[0].Bytes)
		if err != nil {
			s.logWarn("sink prime failed", "err", err)

			s.state = Idle

			return
		}

		primed = n
	}

	actual := s.WallClock.SleepUntil(ctx, wait)

	if err := s.Sink.Start(); err != nil {
		s.logWarn("sink start failed", "err", err)

		s.state = Idle

		return
	}

	s.Log.Debug("hard sync", "wantUs", -age, "actualUs", actual.Microseconds())

	if err := s.flushChunkFrom(chunk, primed); err != nil {
		s.logWarn("hard sync flush failed", "err", err)

		s.state = Idle

		return
	}

	s.state = Locked
}

// flushChunkFrom writes chunk's fragment chain to the sink, skipping the
// first skipBytes already staged by Prime.
func (s *Scheduler) flushChunkFrom(chunk chunkbuf.Chunk, skipBytes int) error {
	return s.writeFragments(chunk.Fragments, skipBytes)
}

// writeFragments advances chunk's fragment chain one fragment at a time
// rather than concatenating it first, per spec.md §4.G and scenario 6: on a
// constrained heap a chunk's PCM payload may arrive as several disjoint
// blocks, and the sink must drain each as it's reached. skipBytes bytes
// already staged by Prime are skipped from the front of the chain, possibly
// spanning more than one fragment.
func (s *Scheduler) writeFragments(fragments []chunkbuf.Fragment, skipBytes int) error {
	for _, f := range fragments {
		b := f.Bytes

		if skipBytes > 0 {
			if skipBytes >= len(b) {
				skipBytes -= len(b)

				continue
			}

			b = b[skipBytes:]
			skipBytes = 0
		}

		if err := s.writeAll(b); err != nil {
			return err
		}
	}

	return nil
}

func (s *Scheduler) writeAll(bytes []byte) error {
	for len(bytes) > 0 {
		n, err := s.Sink.Write(bytes, WriteTimeoutUs)
		if err != nil {
			return err
		}

		if n <= 0 {
			break
		}

		bytes = bytes[n:]
	}

	return nil
}

func (s *Scheduler) runLocked(ctx context.Context) {
	chunk, ok := s.Buf.Pop(DequeueTimeout)
	if !ok {
		return
	}

	age, err := s.age(chunk)
	if err != nil {
		s.backoffIfRetryable(ctx, err)

		return
	}

	ageExpected := -chunk.DurationUs
	avg := s.shortFilter.Insert(age - ageExpected)

	if abs64(avg) > HardResyncThresholdUs {
		// Drop this chunk, force a clean resync rather than trim out of a
		// large error.
		s.state = Resyncing

		return
	}

	direction := audiosink.TrimNominal

	switch {
	case avg < -MaxOffsetUs:
		direction = audiosink.TrimSlow
	case avg > MaxOffsetUs:
		direction = audiosink.TrimFast
	}

	if direction != s.trim {
		if err := s.Sink.Trim(direction); err != nil {
			s.logWarn("sink trim failed", "err", err)
		} else {
			s.trim = direction
		}
	}

	if err := s.writeFragments(chunk.Fragments, 0); err != nil {
		s.logWarn("locked write failed", "err", err)

		s.state = Resyncing
	}
}

// age computes spec.md §4.G's age = server_now() - chunk_timestamp -
// buffer_ms + dac_latency_us, all in microseconds.
func (s *Scheduler) age(chunk chunkbuf.Chunk) (int64, error) {
	now, err := s.Clock.ServerNow(s.WallClock.Now())
	if err != nil {
		return 0, err
	}

	bufferUs := int64(s.settings.BufferMs) * 1000

	return now - chunk.TimestampUs - bufferUs + s.DacLatencyUs, nil
}

// backoffIfRetryable sleeps NotSynchronizedRetryDelay when err's policy is
// snaperr.ActionRetryShort (the NotSynchronized case: the clock estimator
// hasn't filled its window yet), per spec.md §7. Any other kind is a no-op
// here; the caller has already dropped the chunk by not requeuing it.
func (s *Scheduler) backoffIfRetryable(ctx context.Context, err error) {
	kind, ok := snaperr.As(err)
	if !ok {
		return
	}

	if snaperr.Policy(kind) == snaperr.ActionRetryShort {
		s.WallClock.SleepUntil(ctx, NotSynchronizedRetryDelay)
	}
}

func (s *Scheduler) logWarn(msg string, kv ...interface{}) {
	if s.Log != nil {
		s.Log.Warn(msg, kv...)
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}
