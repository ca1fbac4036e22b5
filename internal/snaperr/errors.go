// Package snaperr defines the error taxonomy shared across the Snapcast
// client and the policy for how each kind is handled.
package snaperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can dispatch on Policy without string
// matching.
type Kind int

const (
	// Transport covers socket and DNS failures.
	Transport Kind = iota
	// MalformedFrame covers wire framing violations (length fields that
	// overrun the buffer, truncated reads, etc).
	MalformedFrame
	// UnknownCodec covers a CODEC_HEADER naming a codec we don't support.
	UnknownCodec
	// UnsupportedMessageType covers a base header type byte we don't know.
	UnsupportedMessageType
	// DecodeFailed covers a single-chunk Opus/PCM decode failure.
	DecodeFailed
	// AllocFailed covers fragment allocation failure.
	AllocFailed
	// NotSynchronized covers a server_now() call before the clock estimator
	// is ready.
	NotSynchronized
	// ConfigRejected covers a configuration value rejected at session start.
	ConfigRejected
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case MalformedFrame:
		return "malformed_frame"
	case UnknownCodec:
		return "unknown_codec"
	case UnsupportedMessageType:
		return "unsupported_message_type"
	case DecodeFailed:
		return "decode_failed"
	case AllocFailed:
		return "alloc_failed"
	case NotSynchronized:
		return "not_synchronized"
	case ConfigRejected:
		return "config_rejected"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with the Kind that classifies it and the
// operation during which it occurred.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error of the given kind.
func New(kind Kind, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// As extracts the Kind of err if it is (or wraps) a *Error, returning ok=false
// otherwise.
func As(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// Is reports whether err is (or wraps) a *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := As(err)
	return ok && k == kind
}

// Action is what a session-level caller should do in response to an error of
// a given Kind, per spec.md §7.
type Action int

const (
	// ActionReconnect closes the session, backs off, and reconnects.
	ActionReconnect Action = iota
	// ActionFatal stops the protocol task; the user must fix configuration.
	ActionFatal
	// ActionDropChunk drops the chunk in flight and continues.
	ActionDropChunk
	// ActionRetryShort sleeps briefly (10ms) and retries.
	ActionRetryShort
)

// Policy returns the handling action for a given error Kind, per spec.md §7's
// policy table.
func Policy(kind Kind) Action {
	switch kind {
	case Transport, MalformedFrame:
		return ActionReconnect
	case UnknownCodec, ConfigRejected:
		return ActionFatal
	case DecodeFailed, AllocFailed:
		return ActionDropChunk
	case NotSynchronized:
		return ActionRetryShort
	case UnsupportedMessageType:
		return ActionDropChunk
	default:
		return ActionReconnect
	}
}
