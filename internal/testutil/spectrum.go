package testutil

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-shift/dsp/window"
)

// DominantFrequency returns the frequency of the strongest spectral peak
// in signal, refined by parabolic interpolation of log magnitudes.
// The analysis length is the largest power of two that fits in signal.
func DominantFrequency(signal []float64, sampleRate float64) (float64, error) {
	n := 1
	for n*2 <= len(signal) {
		n *= 2
	}
	if n < 8 {
		return 0, errors.New("testutil: signal too short for spectrum")
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return 0, fmt.Errorf("testutil: failed to create FFT plan: %w", err)
	}

	w := window.Generate(window.TypeHann, n, window.WithPeriodic())
	in := make([]complex128, n)
	out := make([]complex128, n)
	for i := range n {
		in[i] = complex(signal[i]*w[i], 0)
	}

	if err := plan.Forward(out, in); err != nil {
		return 0, fmt.Errorf("testutil: forward FFT failed: %w", err)
	}

	mags := make([]float64, n/2+1)
	peak := 1
	for k := 1; k <= n/2; k++ {
		mags[k] = math.Hypot(real(out[k]), imag(out[k]))
		if mags[k] > mags[peak] {
			peak = k
		}
	}

	bin := float64(peak)
	if peak > 1 && peak < n/2 {
		a := math.Log(mags[peak-1] + 1e-30)
		b := math.Log(mags[peak] + 1e-30)
		c := math.Log(mags[peak+1] + 1e-30)
		if den := a - 2*b + c; den != 0 {
			bin += 0.5 * (a - c) / den
		}
	}

	return bin * sampleRate / float64(n), nil
}

// RMS returns the root-mean-square level of x.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
