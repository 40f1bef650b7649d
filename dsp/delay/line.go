// Package delay provides a circular delay line with integer and
// fractional taps.
package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-shift/dsp/interp"
)

// Line is a circular delay line.
//
// Taps are measured from the write head: after Write(x), Read(1) returns x.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line of fixed size.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples. Delays outside [1, Len()] are
// clamped.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	if delay < 1 {
		delay = 1
	}
	if delay > size {
		delay = size
	}
	return d.buffer[(d.writePos-delay+size)%size]
}

// ReadFractional reads with cubic Hermite interpolation. The delay is
// clamped to [1, Len()-1].
func (d *Line) ReadFractional(delay float64) float64 {
	size := len(d.buffer)
	if size < 2 {
		return d.Read(1)
	}
	if math.IsNaN(delay) || delay < 1 {
		delay = 1
	}
	maxDelay := float64(size - 1)
	if delay > maxDelay {
		delay = maxDelay
	}

	p := int(math.Floor(delay))
	t := delay - float64(p)

	x0 := d.Read(p)
	x1 := d.Read(p + 1)
	// Linear extrapolation at the ends keeps ramps exact.
	xm1 := 2*x0 - x1
	if p > 1 {
		xm1 = d.Read(p - 1)
	}
	x2 := 2*x1 - x0
	if p+2 <= size {
		x2 = d.Read(p + 2)
	}
	return interp.Hermite4(t, xm1, x0, x1, x2)
}

// Reset clears line state.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}
