package audiohal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockGPIODLine is a test double for gpiodLine that records calls without
// requiring GPIO hardware or the gpio-sim kernel module.
type mockGPIODLine struct {
	value  int
	closed bool
}

func (m *mockGPIODLine) SetValue(v int) error {
	m.value = v

	return nil
}

func (m *mockGPIODLine) Close() error {
	m.closed = true

	return nil
}

func TestGPIOMuteLEDActivate(t *testing.T) {
	mock := &mockGPIODLine{}
	h := &GPIOMuteLED{line: mock, invert: false}

	h.SetMute(true)
	assert.Equal(t, 1, mock.value)
}

func TestGPIOMuteLEDDeactivate(t *testing.T) {
	mock := &mockGPIODLine{}
	h := &GPIOMuteLED{line: mock, invert: false}

	h.SetMute(false)
	assert.Equal(t, 0, mock.value)
}

func TestGPIOMuteLEDInvertActivate(t *testing.T) {
	mock := &mockGPIODLine{}
	h := &GPIOMuteLED{line: mock, invert: true}

	h.SetMute(true)
	assert.Equal(t, 0, mock.value)
}

func TestGPIOMuteLEDInvertDeactivate(t *testing.T) {
	mock := &mockGPIODLine{}
	h := &GPIOMuteLED{line: mock, invert: true}

	h.SetMute(false)
	assert.Equal(t, 1, mock.value)
}

func TestGPIOMuteLEDCloseReleasesLine(t *testing.T) {
	mock := &mockGPIODLine{}
	h := &GPIOMuteLED{line: mock}

	require := assert.New(t)
	require.NoError(h.Close())
	require.True(mock.closed)
}
