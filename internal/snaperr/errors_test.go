package snaperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapsKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(Transport, "dial", cause)

	kind, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, Transport, kind)
	assert.True(t, Is(err, Transport))
	assert.False(t, Is(err, MalformedFrame))
	assert.ErrorIs(t, err, cause)
}

func TestAsFalseOnPlainError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}

func TestPolicyMatchesSpecTable(t *testing.T) {
	cases := []struct {
		kind Kind
		want Action
	}{
		{Transport, ActionReconnect},
		{MalformedFrame, ActionReconnect},
		{UnknownCodec, ActionFatal},
		{ConfigRejected, ActionFatal},
		{DecodeFailed, ActionDropChunk},
		{AllocFailed, ActionDropChunk},
		{NotSynchronized, ActionRetryShort},
		{UnsupportedMessageType, ActionDropChunk},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Policy(c.kind), c.kind.String())
	}
}
