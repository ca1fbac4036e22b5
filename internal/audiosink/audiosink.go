// Package audiosink implements the abstract audio sink collaborator from
// spec.md §6 and §4.G: configure/start/stop/prime/write/trim against a
// PCM output device whose clock can be nudged by about ±0.1% to stay
// phase-locked with the server.
package audiosink

// Trim selects one of three precomputed clock dividers.
type Trim int

const (
	TrimSlow    Trim = -1 // nominal × 0.999
	TrimNominal Trim = 0
	TrimFast    Trim = 1 // nominal × 1.001
)

// Sink is the collaborator the playback scheduler drives, per spec.md §6.
type Sink interface {
	// Configure (re)establishes the sink's format and precomputes its three
	// clock dividers for this rate, per spec.md §4.G's "precompute at
	// configure-time" design note.
	Configure(sampleRate, bits, channels int) error
	Start() error
	Stop() error
	// Prime stages bytes into the sink's output buffer without starting
	// playback; used for hard-sync cold start.
	Prime(bytes []byte) (int, error)
	// Write blocks up to timeout delivering bytes to the sink, returning the
	// number actually written.
	Write(bytes []byte, timeoutUs int64) (int, error)
	// Trim selects a clock divider; a no-op if dir equals the current trim.
	Trim(dir Trim) error
}
