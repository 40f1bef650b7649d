package resample

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-shift/dsp/delay"
)

var (
	// ErrInvalidRatio indicates an invalid up/down ratio.
	ErrInvalidRatio = errors.New("resample: invalid ratio")
	// ErrInvalidRate indicates an invalid input/output sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
)

// Quality controls default anti-aliasing filter settings.
type Quality int

const (
	// QualityFast prioritizes lower CPU usage.
	QualityFast Quality = iota
	// QualityBalanced is the default quality/performance trade-off.
	QualityBalanced
	// QualityBest prioritizes stopband attenuation and passband flatness.
	QualityBest
)

// String returns the name accepted by [ParseQuality].
func (q Quality) String() string {
	switch q {
	case QualityFast:
		return "fast"
	case QualityBalanced:
		return "balanced"
	case QualityBest:
		return "best"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// ParseQuality resolves "fast", "balanced" or "best".
func ParseQuality(name string) (Quality, error) {
	for q := QualityFast; q <= QualityBest; q++ {
		if strings.EqualFold(strings.TrimSpace(name), q.String()) {
			return q, nil
		}
	}
	return QualityBalanced, fmt.Errorf("resample: unknown quality: %q", name)
}

// Profile exposes default filter parameters for each quality mode.
type Profile struct {
	TapsPerPhase      int
	CutoffScale       float64
	KaiserBeta        float64
	NominalStopbandDB float64
}

// QualityProfile returns the default profile used by quality mode q.
func QualityProfile(q Quality) Profile {
	switch q {
	case QualityFast:
		return Profile{TapsPerPhase: 16, CutoffScale: 0.88, KaiserBeta: 5.0, NominalStopbandDB: 55}
	case QualityBest:
		return Profile{TapsPerPhase: 64, CutoffScale: 0.96, KaiserBeta: 9.0, NominalStopbandDB: 90}
	default:
		return Profile{TapsPerPhase: 32, CutoffScale: 0.92, KaiserBeta: 7.5, NominalStopbandDB: 75}
	}
}

type config struct {
	quality      Quality
	tapsPerPhase int
	maxDen       int
}

// Option configures the resampler.
type Option func(*config)

// WithQuality selects a predefined anti-aliasing quality mode.
func WithQuality(q Quality) Option {
	return func(cfg *config) {
		cfg.quality = q
	}
}

// WithTapsPerPhase overrides taps per polyphase branch.
func WithTapsPerPhase(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.tapsPerPhase = n
		}
	}
}

// WithMaxDenominator caps denominator size for rate-ratio approximation.
func WithMaxDenominator(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxDen = n
		}
	}
}

func newConfig(opts []Option) config {
	cfg := config{quality: QualityBalanced, maxDen: 4096}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.tapsPerPhase <= 0 {
		cfg.tapsPerPhase = QualityProfile(cfg.quality).TapsPerPhase
	}

	return cfg
}

// Resampler performs streaming rational sample-rate conversion of one
// channel with a polyphase FIR.
type Resampler struct {
	up      int
	down    int
	quality Quality
	nTaps   int

	phases [][]float64
	line   *delay.Line

	phase      int
	inputIndex int
	totalIn    int
}

// NewRational creates a resampler for ratio up/down.
func NewRational(up, down int, opts ...Option) (*Resampler, error) {
	if up <= 0 || down <= 0 {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidRatio, up, down)
	}

	g := gcd(up, down)
	up /= g
	down /= g

	cfg := newConfig(opts)

	phases, nTaps, err := designPolyphaseFIR(up, down, cfg.tapsPerPhase, QualityProfile(cfg.quality))
	if err != nil {
		return nil, err
	}

	longest := 0
	for _, p := range phases {
		longest = max(longest, len(p))
	}

	line, err := delay.New(longest)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	return &Resampler{
		up:      up,
		down:    down,
		quality: cfg.quality,
		nTaps:   nTaps,
		phases:  phases,
		line:    line,
	}, nil
}

// NewForRates creates a resampler by approximating outRate/inRate as a ratio.
func NewForRates(inRate, outRate float64, opts ...Option) (*Resampler, error) {
	if !(inRate > 0) || !(outRate > 0) || math.IsInf(inRate, 0) || math.IsInf(outRate, 0) {
		return nil, fmt.Errorf("%w: %f -> %f", ErrInvalidRate, inRate, outRate)
	}

	up, down := approximateRatio(outRate/inRate, newConfig(opts).maxDen)

	return NewRational(up, down, opts...)
}

// Reset clears internal filter state.
func (r *Resampler) Reset() {
	r.phase = 0
	r.inputIndex = 0
	r.totalIn = 0
	r.line.Reset()
}

// Process appends the output produced by input to dst and returns the
// extended slice. State carries over between calls, so splitting the input
// into blocks does not change the result.
func (r *Resampler) Process(dst, input []float64) []float64 {
	for _, x := range input {
		r.line.Write(x)

		for r.inputIndex == r.totalIn {
			var y float64
			for k, c := range r.phases[r.phase] {
				y += c * r.line.Read(k+1)
			}

			dst = append(dst, y)

			r.phase += r.down
			r.inputIndex += r.phase / r.up
			r.phase %= r.up
		}

		r.totalIn++
	}

	return dst
}

// Delay returns the filter group delay in output samples.
func (r *Resampler) Delay() float64 {
	return 0.5 * float64(r.nTaps-1) / float64(r.down)
}

// Ratio returns reduced up/down conversion factors.
func (r *Resampler) Ratio() (up, down int) {
	return r.up, r.down
}

// Quality returns the configured quality mode.
func (r *Resampler) Quality() Quality {
	return r.quality
}
