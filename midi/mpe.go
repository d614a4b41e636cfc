package midi

import "strings"

// Mode selects how incoming channels are remapped for MIDI Polyphonic
// Expression. In the lower zone, channel 0 carries zone-wide messages and
// channels 1..15 are member voices; in the upper zone, channel 15 is the
// master and channels 0..14 are members, normalized to 1..15 so downstream
// code sees the same member numbering either way. Omni passes channels
// through untouched.
type Mode uint8

const (
	Omni Mode = iota
	LowerZone
	UpperZone
)

// ModeFromEnv parses the MPE_MODE environment value. Unknown values fall
// back to Omni. "mpe" is an alias for the lower zone, the common default of
// MPE controllers.
func ModeFromEnv(value string) Mode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "lower", "mpe":
		return LowerZone
	case "upper":
		return UpperZone
	default:
		return Omni
	}
}

// Remap normalizes a channel number under the zone policy: the zone master
// becomes channel 0, members become 1..15.
func (m Mode) Remap(channel uint8) uint8 {
	switch m {
	case LowerZone:
		return channel // master already 0, members already 1..15
	case UpperZone:
		if channel == 15 {
			return 0
		}
		return channel + 1
	default:
		return channel
	}
}
