package pitch

import (
	"fmt"
	"math"
)

const (
	// MinPitchRatio is the lowest supported pitch ratio (two octaves down).
	MinPitchRatio = 0.25
	// MaxPitchRatio is the highest supported pitch ratio (two octaves up).
	MaxPitchRatio = 4.0
	// MinSemitones and MaxSemitones bound SetPitchSemitones.
	MinSemitones = -24.0
	MaxSemitones = 24.0

	pitchIdentityEps = 1e-9
)

// Shifter defines the shared API for interchangeable streaming pitch engines.
type Shifter interface {
	SampleRate() float64

	PitchRatio() float64
	PitchSemitones() float64
	SetPitchRatio(ratio float64) error
	SetPitchSemitones(semitones float64) error

	// Latency is the constant delay in samples between input and output.
	Latency() int
	Reset()
	// Process consumes len(src) samples and writes the same number to dst.
	// dst and src may be the same slice.
	Process(dst, src []float64) error
}

var (
	_ Shifter = (*SpectralShifter)(nil)
	_ Shifter = (*DelayShifter)(nil)
)

// SemitonesToRatio converts a semitone offset into a frequency ratio.
func SemitonesToRatio(semitones float64) float64 {
	return math.Pow(2, semitones/12.0)
}

// RatioToSemitones converts a frequency ratio into a semitone offset.
func RatioToSemitones(ratio float64) float64 {
	return 12.0 * math.Log2(ratio)
}

func validateRatio(ratio float64) error {
	if !isFinitePositive(ratio) || ratio < MinPitchRatio || ratio > MaxPitchRatio {
		return fmt.Errorf("pitch ratio must be in [%f, %f]: %f", MinPitchRatio, MaxPitchRatio, ratio)
	}
	return nil
}

func semitonesRatio(semitones float64) (float64, error) {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return 0, fmt.Errorf("pitch semitones must be finite: %f", semitones)
	}
	ratio := SemitonesToRatio(semitones)
	if err := validateRatio(ratio); err != nil {
		return 0, fmt.Errorf("pitch semitones out of range: %w", err)
	}
	return ratio, nil
}

func checkProcessLen(dst, src []float64) error {
	if len(dst) < len(src) {
		return fmt.Errorf("pitch: output holds %d samples, input has %d", len(dst), len(src))
	}
	return nil
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
