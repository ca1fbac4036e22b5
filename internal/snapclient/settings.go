package snapclient

import "sync"

// Settings mirrors spec.md §3's Snapcast settings tuple. Mutated only by the
// session's dispatch loop; consumed by the scheduler via Mailbox.
type Settings struct {
	BufferMs        int
	LatencyMs       int
	ChunkDurationMs int
	Codec           string
	SampleRate      int
	Channels        int
	BitsPerSample   int
	Muted           bool
	Volume          int
}

// Mailbox is the single-slot, value-copied, overwrite-on-full channel
// between the protocol session and the playback scheduler described in
// spec.md §5. It is deliberately not a buffered channel: a channel send
// would block (or require a select-default dance) on a slot that's already
// full, where the spec wants the newest snapshot to simply replace the old.
type Mailbox struct {
	mu  sync.Mutex
	val Settings
	has bool
}

// Put overwrites the mailbox with a new settings snapshot.
func (m *Mailbox) Put(s Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.val = s
	m.has = true
}

// Take returns the pending snapshot, if any, and clears it. ok is false if
// no snapshot has arrived since the last Take.
func (m *Mailbox) Take() (Settings, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.has {
		return Settings{}, false //nolint:exhaustruct
	}

	m.has = false

	return m.val, true
}

// Peek returns the current snapshot without clearing it, for callers that
// need the latest known settings even when nothing "new" has arrived
// (e.g. the decoder needs sampleRate/channels right after CODEC_HEADER).
func (m *Mailbox) Peek() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.val
}
