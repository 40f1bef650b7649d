package buffer

import "fmt"

// Planar holds one float64 slice per channel, all of the same frame length.
// Its storage is reused across blocks.
//
// Planar is not safe for concurrent use.
type Planar struct {
	frames int
	data   [][]float64
}

// NewPlanar returns an empty planar buffer for the given channel count.
func NewPlanar(channels int) (*Planar, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("planar channel count must be > 0: %d", channels)
	}
	return &Planar{data: make([][]float64, channels)}, nil
}

// Channels returns the number of channels.
func (p *Planar) Channels() int { return len(p.data) }

// Frames returns the current frame length of every channel.
func (p *Planar) Frames() int { return p.frames }

// Channel returns the samples of channel ch.
func (p *Planar) Channel(ch int) []float64 { return p.data[ch] }

// Resize sets the frame length, reusing existing capacity when possible.
// Frames beyond the previous length are zeroed.
func (p *Planar) Resize(frames int) {
	frames = max(frames, 0)
	for ch, s := range p.data {
		old := len(s)
		if frames > cap(s) {
			grown := make([]float64, frames)
			copy(grown, s)
			s = grown
		}
		s = s[:frames]
		if frames > old {
			clear(s[old:])
		}
		p.data[ch] = s
	}
	p.frames = frames
}

// Clear zeroes every channel without changing the length.
func (p *Planar) Clear() {
	for _, s := range p.data {
		clear(s)
	}
}

// Deinterleave resizes to len(src)/Channels() frames and splits src into
// the channels.
func (p *Planar) Deinterleave(src []float32) error {
	channels := len(p.data)
	if len(src)%channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrPartialFrame, len(src), channels)
	}

	p.Resize(len(src) / channels)
	for ch, s := range p.data {
		for i := range s {
			s[i] = float64(src[i*channels+ch])
		}
	}
	return nil
}

// Interleave writes frames from index from onward into dst as interleaved
// float32 and returns the number of frames written. It stops at the end of
// the buffer or when dst is full.
func (p *Planar) Interleave(dst []float32, from int) int {
	channels := len(p.data)
	from = max(from, 0)
	frames := min(p.frames-from, len(dst)/channels)
	if frames <= 0 {
		return 0
	}

	for ch, s := range p.data {
		for i, v := range s[from : from+frames] {
			dst[i*channels+ch] = float32(v)
		}
	}
	return frames
}
