package harmoniq

// PortBuffer is a fixed-capacity planar container of channels × frames
// float32 samples. Channels are individually addressable slices; there is no
// interleaving at the graph layer. The executor clears every port buffer
// before each block, so nodes may assume their inputs start out silent unless
// a source was copied in.
type PortBuffer struct {
	data     []float32
	channels [][]float32
	frames   int
}

// NewPortBuffer allocates a buffer with the given channel count and frame
// capacity. Zero channels or zero frames are legal; such a buffer simply has
// nothing to address.
func NewPortBuffer(channels, frames int) *PortBuffer {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}
	b := &PortBuffer{
		data:     make([]float32, channels*frames),
		channels: make([][]float32, channels),
		frames:   frames,
	}
	for c := 0; c < channels; c++ {
		b.channels[c] = b.data[c*frames : (c+1)*frames]
	}
	return b
}

func (b *PortBuffer) Channels() int { return len(b.channels) }
func (b *PortBuffer) Frames() int   { return b.frames }

// Channel returns the sample slice of one channel.
func (b *PortBuffer) Channel(c int) []float32 { return b.channels[c] }

// Clear zeroes every sample in the buffer.
func (b *PortBuffer) Clear() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// CopyFrom copies src channel-wise into b. Channel counts may differ; the
// extra channels on either side are left untouched (callers clear first).
func (b *PortBuffer) CopyFrom(src *PortBuffer) {
	n := len(b.channels)
	if len(src.channels) < n {
		n = len(src.channels)
	}
	for c := 0; c < n; c++ {
		copy(b.channels[c], src.channels[c])
	}
}

// AddFrom sums src channel-wise into b.
func (b *PortBuffer) AddFrom(src *PortBuffer) {
	n := len(b.channels)
	if len(src.channels) < n {
		n = len(src.channels)
	}
	for c := 0; c < n; c++ {
		dst := b.channels[c]
		s := src.channels[c]
		m := len(dst)
		if len(s) < m {
			m = len(s)
		}
		for i := 0; i < m; i++ {
			dst[i] += s[i]
		}
	}
}

// Interleave writes frames×deviceChannels samples into sink in the natural
// frame·channels + channel order. When the device advertises fewer channels
// than the buffer holds, the extra channels are truncated; when it advertises
// more, the missing channels are zero-filled.
func (b *PortBuffer) Interleave(sink []float32, deviceChannels int) {
	if deviceChannels <= 0 {
		return
	}
	frames := len(sink) / deviceChannels
	if frames > b.frames {
		frames = b.frames
	}
	for f := 0; f < frames; f++ {
		for c := 0; c < deviceChannels; c++ {
			if c < len(b.channels) {
				sink[f*deviceChannels+c] = b.channels[c][f]
			} else {
				sink[f*deviceChannels+c] = 0
			}
		}
	}
}
