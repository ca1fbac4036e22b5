// Package audiohal implements the audio-HAL collaborator from spec.md §6:
// set_mute(bool) and set_volume(u8 0..100), invoked by the protocol session
// on SERVER_SETTINGS.
package audiohal

// HAL is the abstract collaborator; snapclient.Client depends on its own
// narrower copy of this interface so this package stays an implementation
// detail, not a dependency every caller must import.
type HAL interface {
	SetMute(muted bool)
	SetVolume(volume uint8)
}

// NullHAL discards mute/volume changes; used when no hardware mute
// indicator is wired up.
type NullHAL struct{}

func (NullHAL) SetMute(bool)    {}
func (NullHAL) SetVolume(uint8) {}
