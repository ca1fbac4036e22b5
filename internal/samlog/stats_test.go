package samlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsLineEmptyFormatReturnsBareMessage(t *testing.T) {
	assert.Equal(t, "buffer=3", StatsLine("", time.Now(), "buffer=3"))
}

func TestStatsLinePrefixesFormattedTimestamp(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 34, 56, 0, time.UTC)
	assert.Equal(t, "12:34:56 buffer=3", StatsLine("%H:%M:%S", now, "buffer=3"))
}

