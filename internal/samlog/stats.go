package samlog

import (
	"time"

	"github.com/lestrrat-go/strftime"
)

// StatsLine prefixes message with a strftime-formatted timestamp, mirroring
// the teacher's -T "timestamp-format" option (kissutil.go, xmit.go) that
// precedes received-frame lines with a user-chosen strftime string. An empty
// format, or one strftime rejects, yields the bare message.
func StatsLine(format string, now time.Time, message string) string {
	if format == "" {
		return message
	}

	formatted, err := strftime.Format(format, now)
	if err != nil {
		return message
	}

	return formatted + " " + message
}
