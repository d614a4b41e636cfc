package harmoniq

// MIDIEventKind tags the variants of MIDIEvent the core understands. Raw
// messages with other status bytes are dropped at the ingress.
type MIDIEventKind uint8

const (
	NoteOff MIDIEventKind = iota
	NoteOn
	ControlChange
	PitchBend
)

// MIDIEvent is a typed MIDI message time-stamped with an offset into the
// current audio block (0 <= Offset < blockSize). The meaning of Data1/Data2
// depends on Kind: note/velocity for notes, controller/value for control
// changes, LSB/MSB for pitch bend.
type MIDIEvent struct {
	Kind    MIDIEventKind
	Channel uint8
	Data1   uint8
	Data2   uint8
	Offset  int
}

func (e MIDIEvent) Note() uint8     { return e.Data1 }
func (e MIDIEvent) Velocity() uint8 { return e.Data2 }

// Controller and ControlValue address ControlChange events.
func (e MIDIEvent) Controller() uint8   { return e.Data1 }
func (e MIDIEvent) ControlValue() uint8 { return e.Data2 }

// Bend returns the 14-bit pitch bend value, 8192 = center.
func (e MIDIEvent) Bend() int {
	return int(e.Data1) | int(e.Data2)<<7
}
