// Package portaudio outputs audio through PortAudio in blocking write mode.
// The stream's own buffering paces the render loop, so no bridge queue is
// needed; WriteAudio copies a block into the stream buffer and blocks until
// the device has taken it.
package portaudio

import (
	"errors"
	"fmt"

	pa "github.com/gordonklaus/portaudio"

	harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"
)

type Context struct {
	sampleRate int
	channels   int
	blockSize  int
	device     *pa.DeviceInfo
}

type Output struct {
	stream *pa.Stream
	buf    []float32
}

// NewContext initializes PortAudio and resolves the default output device.
func NewContext(sampleRate, channels, blockSize int) (*Context, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("cannot initialize portaudio: %w", err)
	}
	d, err := pa.DefaultOutputDevice()
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("cannot open default output device: %w", err)
	}
	if d.MaxOutputChannels < channels {
		pa.Terminate()
		return nil, fmt.Errorf("device %q has %d output channels, need %d", d.Name, d.MaxOutputChannels, channels)
	}
	return &Context{sampleRate: sampleRate, channels: channels, blockSize: blockSize, device: d}, nil
}

// DeviceName reports the output device the context resolved.
func (c *Context) DeviceName() string { return c.device.Name }

func (c *Context) Output() (harmoniq.AudioSink, error) {
	o := &Output{buf: make([]float32, c.blockSize*c.channels)}
	stream, err := pa.OpenDefaultStream(0, c.channels, float64(c.sampleRate), c.blockSize, &o.buf)
	if err != nil {
		return nil, fmt.Errorf("cannot open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("cannot start portaudio stream: %w", err)
	}
	o.stream = stream
	return o, nil
}

func (c *Context) Close() error {
	if err := pa.Terminate(); err != nil {
		return fmt.Errorf("cannot terminate portaudio: %w", err)
	}
	return nil
}

// WriteAudio blocks until the device has consumed the block. Output
// underflow is reported by PortAudio itself and not treated as fatal.
func (o *Output) WriteAudio(buffer []float32) error {
	if len(buffer) != len(o.buf) {
		return fmt.Errorf("block of %d samples does not match stream buffer of %d", len(buffer), len(o.buf))
	}
	copy(o.buf, buffer)
	if err := o.stream.Write(); err != nil {
		if errors.Is(err, pa.OutputUnderflowed) {
			return nil
		}
		return fmt.Errorf("cannot write to portaudio stream: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	if err := o.stream.Stop(); err != nil {
		o.stream.Close()
		return fmt.Errorf("cannot stop portaudio stream: %w", err)
	}
	if err := o.stream.Close(); err != nil {
		return fmt.Errorf("cannot close portaudio stream: %w", err)
	}
	return nil
}
