package resample

import (
	"fmt"
	"math"
)

// ConvertInterleaved resamples interleaved float32 frames from inRate to
// outRate. The filter delay is removed, so output frame m lines up with
// time m/outRate. The output holds round(frames*outRate/inRate) frames.
func ConvertInterleaved(samples []float32, channels int, inRate, outRate float64, opts ...Option) ([]float32, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("resample: channel count must be > 0: %d", channels)
	}

	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("resample: %d samples is not a whole number of %d-channel frames", len(samples), channels)
	}

	frames := len(samples) / channels

	probe, err := NewForRates(inRate, outRate, opts...)
	if err != nil {
		return nil, err
	}

	up, down := probe.Ratio()
	outFrames := int(math.Round(float64(frames) * float64(up) / float64(down)))
	skip := int(math.Round(probe.Delay()))
	// Enough trailing silence to push skip+outFrames outputs through.
	pad := (skip+1)*down/up + 2

	out := make([]float32, outFrames*channels)
	in := make([]float64, frames+pad)
	rendered := make([]float64, 0, outFrames+skip+up)

	for ch := range channels {
		r := probe
		if ch > 0 {
			r.Reset()
		}

		for i := range frames {
			in[i] = float64(samples[i*channels+ch])
		}

		rendered = r.Process(rendered[:0], in)
		if len(rendered) < skip+outFrames {
			return nil, fmt.Errorf("resample: rendered %d frames, need %d", len(rendered), skip+outFrames)
		}

		for i, v := range rendered[skip : skip+outFrames] {
			out[i*channels+ch] = float32(v)
		}
	}

	return out, nil
}
