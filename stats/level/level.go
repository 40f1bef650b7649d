package level

import (
	"fmt"
	"math"
)

// ClipThreshold is the absolute sample value counted as clipped.
const ClipThreshold = 1.0

// Stats holds level statistics of one channel or of a whole stream.
//
//nolint:revive
type Stats struct {
	Frames         int
	DC             float64 // mean
	RMS            float64
	RMS_dB         float64
	Peak           float64 // max |x|
	Peak_dB        float64
	PeakPos        int // frame index of the first peak
	CrestFactor_dB float64
	Clipped        int // samples with |x| >= ClipThreshold
	ZeroCrossings  int
}

// AmplitudeToDB converts a linear amplitude to decibels: 20 * log10(|v|).
// Returns -Inf for zero.
func AmplitudeToDB(v float64) float64 {
	a := math.Abs(v)
	if a == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(a)
}

// Meter accumulates per-channel statistics over interleaved float32 blocks.
type Meter struct {
	channels int
	frames   int

	sum     []float64
	comp    []float64 // Kahan compensation for sum
	sumSq   []float64
	peak    []float64
	peakPos []int
	clipped []int
	zc      []int
	last    []float64
}

// NewMeter returns an empty meter for the given channel count.
func NewMeter(channels int) (*Meter, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("level: channel count must be > 0: %d", channels)
	}

	return &Meter{
		channels: channels,
		sum:      make([]float64, channels),
		comp:     make([]float64, channels),
		sumSq:    make([]float64, channels),
		peak:     make([]float64, channels),
		peakPos:  make([]int, channels),
		clipped:  make([]int, channels),
		zc:       make([]int, channels),
		last:     make([]float64, channels),
	}, nil
}

// Channels returns the channel count.
func (m *Meter) Channels() int { return m.channels }

// Frames returns the number of frames seen since the last Reset.
func (m *Meter) Frames() int { return m.frames }

// Update adds a block of interleaved frames.
func (m *Meter) Update(samples []float32) error {
	if len(samples)%m.channels != 0 {
		return fmt.Errorf("level: %d samples is not a whole number of %d-channel frames", len(samples), m.channels)
	}

	for i, s := range samples {
		ch := i % m.channels
		frame := m.frames + i/m.channels
		x := float64(s)

		y := x - m.comp[ch]
		t := m.sum[ch] + y
		m.comp[ch] = (t - m.sum[ch]) - y
		m.sum[ch] = t

		m.sumSq[ch] += x * x

		a := math.Abs(x)
		if a > m.peak[ch] {
			m.peak[ch] = a
			m.peakPos[ch] = frame
		}

		if a >= ClipThreshold {
			m.clipped[ch]++
		}

		if frame > 0 && m.last[ch]*x < 0 {
			m.zc[ch]++
		}

		m.last[ch] = x
	}

	m.frames += len(samples) / m.channels

	return nil
}

// Channel returns the statistics of channel ch.
func (m *Meter) Channel(ch int) Stats {
	if ch < 0 || ch >= m.channels {
		return finish(Stats{}, 0, 0)
	}

	s := Stats{
		Frames:        m.frames,
		Peak:          m.peak[ch],
		PeakPos:       m.peakPos[ch],
		Clipped:       m.clipped[ch],
		ZeroCrossings: m.zc[ch],
	}

	return finish(s, m.sum[ch], m.sumSq[ch])
}

// Total returns statistics over all channels: the loudest peak, the RMS
// of all samples, and summed clip and crossing counts.
func (m *Meter) Total() Stats {
	s := Stats{Frames: m.frames}

	var sum, sumSq float64
	for ch := range m.channels {
		sum += m.sum[ch]
		sumSq += m.sumSq[ch]
		s.Clipped += m.clipped[ch]
		s.ZeroCrossings += m.zc[ch]

		if m.peak[ch] > s.Peak {
			s.Peak = m.peak[ch]
			s.PeakPos = m.peakPos[ch]
		}
	}

	return finish(s, sum/float64(m.channels), sumSq/float64(m.channels))
}

// Reset clears all accumulated statistics.
func (m *Meter) Reset() {
	m.frames = 0
	for ch := range m.channels {
		m.sum[ch] = 0
		m.comp[ch] = 0
		m.sumSq[ch] = 0
		m.peak[ch] = 0
		m.peakPos[ch] = 0
		m.clipped[ch] = 0
		m.zc[ch] = 0
		m.last[ch] = 0
	}
}

// finish derives the mean-based and dB fields from per-frame sums.
func finish(s Stats, sum, sumSq float64) Stats {
	if s.Frames == 0 {
		s.RMS_dB = math.Inf(-1)
		s.Peak_dB = math.Inf(-1)
		s.CrestFactor_dB = math.Inf(-1)

		return s
	}

	n := float64(s.Frames)
	s.DC = sum / n
	s.RMS = math.Sqrt(sumSq / n)
	s.RMS_dB = AmplitudeToDB(s.RMS)
	s.Peak_dB = AmplitudeToDB(s.Peak)

	if s.RMS > 0 {
		s.CrestFactor_dB = AmplitudeToDB(s.Peak / s.RMS)
	}

	return s
}
