package audiohal

import (
	"github.com/warthog618/go-gpiocdev"
)

// gpiodLine is the slice of *gpiocdev.Line this package depends on, mirroring
// the production code's gpiod_line test-double seam: a mock satisfying this
// interface can drive unit tests without real GPIO hardware or the
// gpio-sim kernel module.
type gpiodLine interface {
	SetValue(v int) error
	Close() error
}

// GPIOMuteLED mirrors the server's mute flag onto a GPIO line (e.g. to
// drive a front-panel LED). A failed line write is discarded silently, not
// reported to the caller, and never fatal: losing the mute indicator must
// not interrupt playback.
type GPIOMuteLED struct {
	line   gpiodLine
	invert bool
	volume uint8
}

// NewGPIOMuteLED requests the given chip/line offset as an output and
// returns a HAL that drives it whenever SetMute is called.
func NewGPIOMuteLED(chip string, offset int, invert bool) (*GPIOMuteLED, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}

	return &GPIOMuteLED{line: line, invert: invert}, nil
}

// SetMute drives the GPIO line high when muted (or low, if invert is set).
// Errors are swallowed: a failing mute LED must not take down the session.
func (h *GPIOMuteLED) SetMute(muted bool) {
	level := 0
	if muted {
		level = 1
	}

	if h.invert {
		level = 1 - level
	}

	_ = h.line.SetValue(level)
}

// SetVolume records the volume; this collaborator has no volume hardware of
// its own (volume is the sink's concern), so it's tracked only for
// diagnostics.
func (h *GPIOMuteLED) SetVolume(volume uint8) {
	h.volume = volume
}

// Close releases the underlying GPIO line.
func (h *GPIOMuteLED) Close() error {
	return h.line.Close()
}
