package pitch

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-shift/dsp/delay"
)

const (
	// DefaultGrainMs is the sweep window used by NewDelayShifter.
	DefaultGrainMs = 50.0

	minGrainMs      = 10.0
	maxGrainMs      = 200.0
	minGrainSamples = 16
	delayLineGuard  = 8
)

// DelayShifter performs streaming time-domain pitch shifting with two
// modulated delay taps.
//
// Each tap sweeps its delay across a grain window at rate (1 - ratio) and
// the taps are half a window apart. Their sin²/cos² gains sum to one, and
// each tap is silent at the instant its delay wraps, so the output stays
// continuous.
//
// Latency is half the grain window. At a ratio of 1 the output is an exact
// delayed copy of the input.
type DelayShifter struct {
	sampleRate float64
	pitchRatio float64
	grainMs    float64

	grain int
	line  *delay.Line
	phase float64
}

// NewDelayShifter constructs a time-domain shifter with DefaultGrainMs.
func NewDelayShifter(sampleRate float64) (*DelayShifter, error) {
	if !isFinitePositive(sampleRate) {
		return nil, fmt.Errorf("delay shifter sample rate must be positive and finite: %f", sampleRate)
	}

	d := &DelayShifter{
		sampleRate: sampleRate,
		pitchRatio: 1,
		grainMs:    DefaultGrainMs,
	}
	if err := d.rebuild(); err != nil {
		return nil, err
	}

	return d, nil
}

// SampleRate returns the current sample rate in Hz.
func (d *DelayShifter) SampleRate() float64 { return d.sampleRate }

// PitchRatio returns the pitch ratio.
func (d *DelayShifter) PitchRatio() float64 { return d.pitchRatio }

// PitchSemitones returns the current pitch shift in semitones.
func (d *DelayShifter) PitchSemitones() float64 { return RatioToSemitones(d.pitchRatio) }

// Grain returns the sweep window in milliseconds.
func (d *DelayShifter) Grain() float64 { return d.grainMs }

// GrainSamples returns the sweep window in samples.
func (d *DelayShifter) GrainSamples() int { return d.grain }

// Latency returns the input-to-output delay in samples.
func (d *DelayShifter) Latency() int { return d.grain / 2 }

// SetPitchRatio updates the pitch ratio.
func (d *DelayShifter) SetPitchRatio(ratio float64) error {
	if err := validateRatio(ratio); err != nil {
		return fmt.Errorf("delay shifter: %w", err)
	}
	d.pitchRatio = ratio
	return nil
}

// SetPitchSemitones updates pitch shift in semitones.
func (d *DelayShifter) SetPitchSemitones(semitones float64) error {
	ratio, err := semitonesRatio(semitones)
	if err != nil {
		return fmt.Errorf("delay shifter: %w", err)
	}
	d.pitchRatio = ratio
	return nil
}

// SetGrain updates the sweep window in milliseconds and clears state.
func (d *DelayShifter) SetGrain(ms float64) error {
	if ms < minGrainMs || ms > maxGrainMs || math.IsNaN(ms) {
		return fmt.Errorf("delay shifter grain must be in [%f, %f] ms: %f", minGrainMs, maxGrainMs, ms)
	}
	old := d.grainMs
	d.grainMs = ms
	if err := d.rebuild(); err != nil {
		d.grainMs = old
		_ = d.rebuild()
		return err
	}
	return nil
}

// Reset clears the delay line and the sweep phase.
func (d *DelayShifter) Reset() {
	d.line.Reset()
	d.phase = 0
}

// Process shifts src into dst. len(dst) must be at least len(src).
func (d *DelayShifter) Process(dst, src []float64) error {
	if err := checkProcessLen(dst, src); err != nil {
		return err
	}

	w := float64(d.grain)
	step := (1 - d.pitchRatio) / w

	for i, x := range src {
		d.line.Write(x)

		p0 := d.phase
		p1 := p0 + 0.5
		if p1 >= 1 {
			p1--
		}

		g0 := math.Sin(math.Pi * p0)
		g0 *= g0

		dst[i] = g0*d.line.ReadFractional(1+p0*w) + (1-g0)*d.line.ReadFractional(1+p1*w)

		d.phase += step
		d.phase -= math.Floor(d.phase)
	}

	return nil
}

func (d *DelayShifter) rebuild() error {
	half := int(math.Round(d.grainMs * 0.001 * d.sampleRate / 2))
	grain := max(2*half, minGrainSamples)

	line, err := delay.New(grain + delayLineGuard)
	if err != nil {
		return fmt.Errorf("delay shifter: %w", err)
	}

	d.grain = grain
	d.line = line
	d.phase = 0

	return nil
}
