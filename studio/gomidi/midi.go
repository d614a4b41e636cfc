// Package gomidi feeds hardware MIDI input into the dispatcher using the
// rtmidi driver of gitlab.com/gomidi/midi.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/BobTheZombie/Harmoniq-Studio-sub001/midi"
)

type (
	RTMIDIContext struct {
		driver     *rtmididrv.Driver
		currentIn  drivers.In
		dispatcher *midi.Dispatcher
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}
)

// NewContext opens the rtmidi driver. A failed driver is not an error;
// the context just has no devices then.
func NewContext(dispatcher *midi.Dispatcher) *RTMIDIContext {
	c := &RTMIDIContext{dispatcher: dispatcher}
	c.driver, _ = rtmididrv.New()
	return c
}

// InputDevices iterates over the available MIDI inputs.
func (c *RTMIDIContext) InputDevices(yield func(RTMIDIDevice) bool) {
	if c.driver == nil {
		return
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		if !yield(RTMIDIDevice{context: c, in: in}) {
			return
		}
	}
}

// TryToOpenBy opens the first input whose name starts with namePrefix, or
// just the first input when takeFirst is set.
func (c *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	var opened bool
	var openErr error
	c.InputDevices(func(d RTMIDIDevice) bool {
		if takeFirst || strings.HasPrefix(d.String(), namePrefix) {
			openErr = d.Open()
			opened = openErr == nil
			return false
		}
		return true
	})
	if opened || openErr != nil {
		return openErr
	}
	if takeFirst {
		return errors.New("no MIDI inputs available")
	}
	return fmt.Errorf("no MIDI input starting with %q", namePrefix)
}

// Open the device, closing the currently open one if necessary.
func (d RTMIDIDevice) Open() error {
	c := d.context
	if c.currentIn == d.in {
		return nil
	}
	if c.driver == nil {
		return errors.New("no driver available")
	}
	if c.HasDeviceOpen() {
		c.currentIn.Close()
	}
	c.currentIn = d.in
	if err := d.in.Open(); err != nil {
		c.currentIn = nil
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	if _, err := gomidi.ListenTo(d.in, c.handleMessage); err != nil {
		d.in.Close()
		c.currentIn = nil
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	return nil
}

func (d RTMIDIDevice) String() string { return d.in.String() }

func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

// handleMessage runs on the driver's callback goroutine. It must never
// block; the dispatcher ring drops on overflow.
func (c *RTMIDIContext) handleMessage(msg gomidi.Message, timestampms int32) {
	raw := midi.RawMessage{TimestampUs: int64(timestampms) * 1000}
	n := copy(raw.Data[:], msg)
	raw.Len = uint8(n)
	c.dispatcher.Push(raw)
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.driver.Close()
}
