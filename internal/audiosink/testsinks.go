package audiosink

import "sync"

// NullSink discards all audio; useful when no hardware is present (e.g. a
// discovery-only smoke test) and as a base for other sinks.
type NullSink struct {
	mu   sync.Mutex
	trim Trim
}

func (s *NullSink) Configure(int, int, int) error { return nil }
func (s *NullSink) Start() error                  { return nil }
func (s *NullSink) Stop() error                   { return nil }
func (s *NullSink) Prime(b []byte) (int, error)    { return len(b), nil }
func (s *NullSink) Write(b []byte, _ int64) (int, error) {
	return len(b), nil
}

func (s *NullSink) Trim(dir Trim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trim = dir

	return nil
}

// WrittenChunk records one Write/Prime call against a RecordingSink, for
// assertions in the end-to-end scenario tests of spec.md §8.
type WrittenChunk struct {
	Bytes  []byte
	Primed bool
}

// RecordingSink captures every byte handed to it, plus the trim/start/stop
// call sequence, so tests can assert on scheduler behavior without needing
// real hardware.
type RecordingSink struct {
	mu sync.Mutex

	SampleRate, Bits, Channels int
	Started, Stopped           int
	Trims                      []Trim
	Writes                     []WrittenChunk
	currentTrim                Trim
}

func (s *RecordingSink) Configure(sampleRate, bits, channels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SampleRate, s.Bits, s.Channels = sampleRate, bits, channels

	return nil
}

func (s *RecordingSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Started++

	return nil
}

func (s *RecordingSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Stopped++

	return nil
}

func (s *RecordingSink) Prime(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := append([]byte(nil), b...)
	s.Writes = append(s.Writes, WrittenChunk{Bytes: cp, Primed: true})

	return len(b), nil
}

func (s *RecordingSink) Write(b []byte, _ int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := append([]byte(nil), b...)
	s.Writes = append(s.Writes, WrittenChunk{Bytes: cp, Primed: false})

	return len(b), nil
}

func (s *RecordingSink) Trim(dir Trim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir == s.currentTrim {
		return nil
	}

	s.currentTrim = dir
	s.Trims = append(s.Trims, dir)

	return nil
}

// AllBytes concatenates every recorded write/prime, in call order.
func (s *RecordingSink) AllBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []byte
	for _, w := range s.Writes {
		out = append(out, w.Bytes...)
	}

	return out
}
