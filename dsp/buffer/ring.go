package buffer

import (
	"errors"
	"fmt"
)

// ErrPartialFrame is returned when a write is not a whole number of frames.
var ErrPartialFrame = errors.New("buffer: sample count is not a multiple of the channel count")

// Ring is a growable FIFO of interleaved float32 frames.
//
// Ring is not safe for concurrent use.
type Ring struct {
	channels int
	data     []float32
	head     int // read position in samples
	size     int // stored samples
}

// NewRing returns an empty ring for the given channel count with room for
// frames frames before the first growth.
func NewRing(channels, frames int) (*Ring, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("ring channel count must be > 0: %d", channels)
	}
	if frames < 1 {
		frames = 1
	}
	return &Ring{channels: channels, data: make([]float32, frames*channels)}, nil
}

// Channels returns the number of interleaved channels per frame.
func (r *Ring) Channels() int { return r.channels }

// Len returns the number of queued frames.
func (r *Ring) Len() int { return r.size / r.channels }

// Cap returns the number of frames the ring holds before it grows.
func (r *Ring) Cap() int { return len(r.data) / r.channels }

// Write appends interleaved samples, growing the ring when needed.
func (r *Ring) Write(samples []float32) error {
	if len(samples)%r.channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrPartialFrame, len(samples), r.channels)
	}
	if len(samples) == 0 {
		return nil
	}
	if r.size+len(samples) > len(r.data) {
		r.grow(r.size + len(samples))
	}

	tail := (r.head + r.size) % len(r.data)
	n := copy(r.data[tail:], samples)
	copy(r.data, samples[n:])
	r.size += len(samples)
	return nil
}

// Read moves up to maxFrames frames into dst and returns the frame count.
// It never writes past maxFrames*Channels() samples or past len(dst).
func (r *Ring) Read(dst []float32, maxFrames int) int {
	frames := min(maxFrames, r.Len(), len(dst)/r.channels)
	if frames <= 0 {
		return 0
	}

	count := frames * r.channels
	n := copy(dst[:count], r.data[r.head:min(r.head+count, len(r.data))])
	copy(dst[n:count], r.data)
	r.advance(count)
	return frames
}

// Reset empties the ring without releasing its storage.
func (r *Ring) Reset() {
	r.head = 0
	r.size = 0
}

func (r *Ring) advance(samples int) {
	r.size -= samples
	if r.size == 0 {
		r.head = 0
		return
	}
	r.head = (r.head + samples) % len(r.data)
}

func (r *Ring) grow(need int) {
	n := max(2*len(r.data), need)
	n += (r.channels - n%r.channels) % r.channels

	grown := make([]float32, n)
	first := copy(grown, r.data[r.head:min(r.head+r.size, len(r.data))])
	copy(grown[first:r.size], r.data)
	r.data = grown
	r.head = 0
}
