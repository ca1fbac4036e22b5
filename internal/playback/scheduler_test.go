package playback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doismellburning/samoyed/internal/audiosink"
	"github.com/doismellburning/samoyed/internal/chunkbuf"
	"github.com/doismellburning/samoyed/internal/clocksync"
	"github.com/doismellburning/samoyed/internal/samlog"
	"github.com/doismellburning/samoyed/internal/snapclient"
)

// fakeClock never actually sleeps, so hard-sync tests run instantly; Now()
// is a fixed instant advanced manually between phases.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) SleepUntil(ctx context.Context, d time.Duration) time.Duration {
	f.now = f.now.Add(d)

	return d
}

func newReadyClock(t *testing.T, offsetUs int64) *clocksync.Estimator {
	t.Helper()

	est := clocksync.New(1)
	est.InsertLatency(offsetUs)

	return est
}

func chunkAt(ts, dur int64, payload []byte) chunkbuf.Chunk {
	return chunkbuf.Chunk{
		TimestampUs: ts,
		DurationUs:  dur,
		Fragments:   []chunkbuf.Fragment{{Bytes: payload}},
	}
}

func TestHardSyncPrimesThenStartsThenFlushes(t *testing.T) {
	buf := chunkbuf.New(4, nil)
	sink := &audiosink.RecordingSink{} //nolint:exhaustruct
	clock := &fakeClock{now: time.UnixMicro(1_000_000)}
	est := newReadyClock(t, 1)

	sched := New(buf, est, &snapclient.Mailbox{}, sink, samlog.Default())
	sched.WallClock = clock
	sched.settings = snapclient.Settings{BufferMs: 0} //nolint:exhaustruct

	// server_now() == clock.now + 1us (offset 1); chunk timestamp in the
	// future by 10ms means age = now + 1 - ts - 0 = -9999us, i.e. not yet due.
	chunk := chunkAt(clock.now.UnixMicro()+10_000, 20_000, []byte{1, 2, 3, 4})
	buf.Push(chunk)

	sched.state = Resyncing
	sched.runResyncing(context.Background())

	assert.Equal(t, Locked, sched.State())
	assert.Equal(t, 1, sink.Started)
	require.Len(t, sink.Writes, 1)
	assert.True(t, sink.Writes[0].Primed)
}

func TestResyncDiscardsLateChunks(t *testing.T) {
	buf := chunkbuf.New(4, nil)
	sink := &audiosink.RecordingSink{} //nolint:exhaustruct
	clock := &fakeClock{now: time.UnixMicro(1_000_000)}
	est := newReadyClock(t, 1)

	sched := New(buf, est, &snapclient.Mailbox{}, sink, samlog.Default())
	sched.WallClock = clock
	sched.settings = snapclient.Settings{BufferMs: 0} //nolint:exhaustruct

	// Chunk timestamped in the past: age = now - ts >= 0, already late.
	late := chunkAt(clock.now.UnixMicro()-5_000, 20_000, []byte{1, 2})
	buf.Push(late)

	sched.state = Resyncing
	sched.runResyncing(context.Background())

	assert.Equal(t, Resyncing, sched.State())
	assert.Equal(t, 0, sink.Started)
}

func TestLockedHardResyncOnLargeDrift(t *testing.T) {
	buf := chunkbuf.New(4, nil)
	sink := &audiosink.RecordingSink{} //nolint:exhaustruct
	clock := &fakeClock{now: time.UnixMicro(1_000_000)}
	est := newReadyClock(t, 1)

	sched := New(buf, est, &snapclient.Mailbox{}, sink, samlog.Default())
	sched.WallClock = clock
	sched.settings = snapclient.Settings{BufferMs: 0} //nolint:exhaustruct
	sched.state = Locked

	// age - ageExpected will be huge: chunk timestamp far in the past,
	// duration small, so the error blows past HardResyncThresholdUs.
	drifted := chunkAt(clock.now.UnixMicro()-50_000, 1_000, []byte{1, 2})
	buf.Push(drifted)

	sched.runLocked(context.Background())

	assert.Equal(t, Resyncing, sched.State())
}

func TestLockedAppliesTrimWithinDeadband(t *testing.T) {
	buf := chunkbuf.New(4, nil)
	sink := &audiosink.RecordingSink{} //nolint:exhaustruct
	clock := &fakeClock{now: time.UnixMicro(1_000_000)}
	est := newReadyClock(t, 1)

	sched := New(buf, est, &snapclient.Mailbox{}, sink, samlog.Default())
	sched.WallClock = clock
	sched.settings = snapclient.Settings{BufferMs: 0} //nolint:exhaustruct
	sched.state = Locked

	// Pick ts so age == -chunkDuration + 1us (the scheduler's nominal steady
	// state, one chunk ahead, plus the estimator's 1us offset), so avg is 1us
	// and stays inside the dead-band for every repeat of the same chunk shape.
	for i := 0; i < ShortBufferLen; i++ {
		c := chunkAt(clock.now.UnixMicro()+20_000, 20_000, []byte{1, 2})
		buf.Push(c)
		sched.runLocked(context.Background())
	}

	assert.Equal(t, Locked, sched.State())
	assert.Equal(t, audiosink.TrimNominal, sched.trim)
	assert.Empty(t, sink.Trims)
}

func TestSettingsChangeReconfiguresAndEntersResyncing(t *testing.T) {
	buf := chunkbuf.New(4, nil)
	sink := &audiosink.RecordingSink{} //nolint:exhaustruct
	est := newReadyClock(t, 1)
	mailbox := &snapclient.Mailbox{}

	sched := New(buf, est, mailbox, sink, samlog.Default())
	sched.WallClock = &fakeClock{now: time.UnixMicro(0)}

	mailbox.Put(snapclient.Settings{SampleRate: 44100, BitsPerSample: 16, Channels: 2, BufferMs: 20}) //nolint:exhaustruct

	newSettings, ok := mailbox.Take()
	require.True(t, ok)

	sched.onSettingsChanged(newSettings)

	assert.Equal(t, Resyncing, sched.State())
	assert.Equal(t, 44100, sink.SampleRate)
	assert.Equal(t, audiosink.TrimNominal, sched.trim)
}

func TestIdleSleepsWithoutTouchingSink(t *testing.T) {
	buf := chunkbuf.New(4, nil)
	sink := &audiosink.RecordingSink{} //nolint:exhaustruct
	est := newReadyClock(t, 1)

	sched := New(buf, est, &snapclient.Mailbox{}, sink, samlog.Default())
	sched.WallClock = &fakeClock{now: time.UnixMicro(0)}

	sched.runIdle(context.Background())

	assert.Equal(t, 0, sink.Started)
	assert.Equal(t, 0, sink.Stopped)
}
