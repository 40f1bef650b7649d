package dither

import (
	"math"
	"math/rand/v2"
)

// Quantizer performs bit-depth quantization with optional dither noise.
type Quantizer struct {
	bitDepth        int
	ditherType      DitherType
	ditherAmplitude float64
	limit           bool
	rng             *rand.Rand

	// derived from bitDepth
	bitMul  float64
	bitDiv  float64
	limitLo int
	limitHi int
}

// NewQuantizer creates a new Quantizer. The default configuration is:
// 16-bit, triangular dither, amplitude 1.0, limiting enabled.
func NewQuantizer(opts ...Option) (*Quantizer, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	quant := &Quantizer{
		bitDepth:        cfg.bitDepth,
		ditherType:      cfg.ditherType,
		ditherAmplitude: cfg.ditherAmplitude,
		limit:           cfg.limit,
		rng:             cfg.rng,
	}

	if quant.rng == nil {
		quant.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	quant.bitMul = math.Exp2(float64(quant.bitDepth-1)) - 0.5
	quant.bitDiv = 1.0 / quant.bitMul
	quant.limitLo = -int(math.Round(quant.bitMul + 0.5))
	quant.limitHi = int(math.Round(quant.bitMul - 0.5))

	return quant, nil
}

// ProcessInteger quantizes the input (expected in [-1, +1]) to an integer
// in the bit-depth range.
func (q *Quantizer) ProcessInteger(input float64) int {
	result := q.quantize(q.bitMul * input)

	if q.limit {
		result = max(q.limitLo, min(q.limitHi, result))
	}

	return result
}

// QuantizeInto writes the integer form of every sample of src into dst.
// It converts min(len(dst), len(src)) samples and returns that count.
func (q *Quantizer) QuantizeInto(dst []int, src []float32) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = q.ProcessInteger(float64(src[i]))
	}

	return n
}

// quantize adds dither noise per the configured type and rounds down.
func (q *Quantizer) quantize(input float64) int {
	switch q.ditherType {
	case DitherRectangular:
		noise := q.ditherAmplitude * (q.rng.Float64() - 0.5)
		return int(math.Floor(input + noise))
	case DitherTriangular:
		noise := q.ditherAmplitude * (q.rng.Float64() - q.rng.Float64())
		return int(math.Floor(input + noise))
	default:
		return int(math.Floor(input))
	}
}

// BitDepth returns the target bit depth.
func (q *Quantizer) BitDepth() int { return q.bitDepth }

// DitherType returns the dither noise type.
func (q *Quantizer) DitherType() DitherType { return q.ditherType }

// DitherAmplitude returns the dither noise amplitude.
func (q *Quantizer) DitherAmplitude() float64 { return q.ditherAmplitude }

// Limit returns whether output limiting is enabled.
func (q *Quantizer) Limit() bool { return q.limit }
