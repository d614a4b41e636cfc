// Package midi converts raw device messages into typed, block-aligned events
// for the render thread. Device enumeration and port I/O live in the
// adapters; this package only owns parsing, channel remapping and timing.
package midi

import harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"

const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusControlChange = 0xB0
	statusPitchBend     = 0xE0
)

// Parse converts a 1-3 byte raw MIDI message into a typed event. A NoteOn
// with velocity 0 is remapped to NoteOff. Unrecognized status bytes report
// ok=false and are dropped by the caller.
func Parse(raw []byte) (ev harmoniq.MIDIEvent, ok bool) {
	if len(raw) == 0 {
		return ev, false
	}
	status := raw[0] & 0xF0
	channel := raw[0] & 0x0F
	switch status {
	case statusNoteOff:
		if len(raw) < 3 {
			return ev, false
		}
		return harmoniq.MIDIEvent{Kind: harmoniq.NoteOff, Channel: channel, Data1: raw[1] & 0x7F, Data2: raw[2] & 0x7F}, true
	case statusNoteOn:
		if len(raw) < 3 {
			return ev, false
		}
		kind := harmoniq.NoteOn
		if raw[2]&0x7F == 0 {
			kind = harmoniq.NoteOff
		}
		return harmoniq.MIDIEvent{Kind: kind, Channel: channel, Data1: raw[1] & 0x7F, Data2: raw[2] & 0x7F}, true
	case statusControlChange:
		if len(raw) < 3 {
			return ev, false
		}
		return harmoniq.MIDIEvent{Kind: harmoniq.ControlChange, Channel: channel, Data1: raw[1] & 0x7F, Data2: raw[2] & 0x7F}, true
	case statusPitchBend:
		if len(raw) < 3 {
			return ev, false
		}
		return harmoniq.MIDIEvent{Kind: harmoniq.PitchBend, Channel: channel, Data1: raw[1] & 0x7F, Data2: raw[2] & 0x7F}, true
	}
	return ev, false
}
