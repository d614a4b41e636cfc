package engine

import harmoniq "github.com/BobTheZombie/Harmoniq-Studio-sub001"

// Compensator is a per-channel circular delay line used by plugin-delay
// compensation to hold back the faster branch at a merge point. With a delay
// of zero it degenerates to a pass-through. Reconfiguring the delay length
// clears the buffer to zero.
type Compensator struct {
	buffers   [][]float32
	writePos  []int
	delay     int
	capacity  int
	blockSize int
}

func NewCompensator() *Compensator { return &Compensator{} }

// Configure sizes the delay line. Allocation happens here, never in Process.
func (d *Compensator) Configure(channels, delaySamples, blockSize int) {
	if blockSize < 1 {
		blockSize = 1
	}
	if delaySamples < 0 {
		delaySamples = 0
	}
	capacity := delaySamples + blockSize
	if len(d.buffers) != channels || d.capacity != capacity {
		d.buffers = make([][]float32, channels)
		for c := range d.buffers {
			d.buffers[c] = make([]float32, capacity)
		}
		d.writePos = make([]int, channels)
	} else if d.delay != delaySamples || d.blockSize != blockSize {
		for c := range d.buffers {
			for i := range d.buffers[c] {
				d.buffers[c][i] = 0
			}
			d.writePos[c] = 0
		}
	}
	d.delay = delaySamples
	d.capacity = capacity
	d.blockSize = blockSize
}

// Process delays the buffer contents in place by the configured amount.
func (d *Compensator) Process(buf *harmoniq.PortBuffer) {
	if d.delay == 0 || d.capacity == 0 {
		return
	}
	for c := 0; c < buf.Channels() && c < len(d.buffers); c++ {
		storage := d.buffers[c]
		write := d.writePos[c] % d.capacity
		read := write - d.delay
		if read < 0 {
			read += d.capacity
		}
		ch := buf.Channel(c)
		for i := range ch {
			delayed := storage[read]
			storage[write] = ch[i]
			ch[i] = delayed
			write++
			if write == d.capacity {
				write = 0
			}
			read++
			if read == d.capacity {
				read = 0
			}
		}
		d.writePos[c] = write
	}
}

// Reset zeroes the delay memory without reallocating.
func (d *Compensator) Reset() {
	for c := range d.buffers {
		for i := range d.buffers[c] {
			d.buffers[c][i] = 0
		}
		d.writePos[c] = 0
	}
}

func (d *Compensator) DelaySamples() int { return d.delay }
