package harmoniq

// AudioSink consumes interleaved float32 audio, one block at a time. The
// write may apply backpressure; it is called from the render loop, never from
// the device callback.
type AudioSink interface {
	WriteAudio(buffer []float32) error
	Close() error
}

// AudioContext represents the connection to an audio backend. Output opens a
// sink to the default output device.
type AudioContext interface {
	Output() (AudioSink, error)
	Close() error
}
