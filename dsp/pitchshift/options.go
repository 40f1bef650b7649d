package pitchshift

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-shift/dsp/pitch"
	"github.com/cwbudde/algo-shift/dsp/window"
)

// EngineKind selects the engine an Adapter builds for each channel.
type EngineKind int

const (
	// EngineSpectral uses [pitch.SpectralShifter].
	EngineSpectral EngineKind = iota
	// EngineDelay uses [pitch.DelayShifter].
	EngineDelay
)

// String returns the engine name as accepted by [ParseEngineKind].
func (k EngineKind) String() string {
	switch k {
	case EngineSpectral:
		return "spectral"
	case EngineDelay:
		return "delay"
	default:
		return fmt.Sprintf("EngineKind(%d)", int(k))
	}
}

// ParseEngineKind resolves "spectral" or "delay".
func ParseEngineKind(name string) (EngineKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "spectral":
		return EngineSpectral, nil
	case "delay":
		return EngineDelay, nil
	default:
		return EngineSpectral, fmt.Errorf("pitchshift: unknown engine: %q", name)
	}
}

type config struct {
	engine     EngineKind
	frameSize  int
	windowType window.Type
	grainMs    float64
	logger     zerolog.Logger
}

func defaultConfig() config {
	return config{
		engine:     EngineSpectral,
		frameSize:  pitch.DefaultSpectralFrameSize,
		windowType: window.TypeHann,
		grainMs:    pitch.DefaultGrainMs,
		logger:     zerolog.Nop(),
	}
}

// Option configures an Adapter at construction.
type Option func(*config)

// WithEngine selects the engine kind. It is kept across Configure.
func WithEngine(kind EngineKind) Option {
	return func(cfg *config) {
		cfg.engine = kind
	}
}

// WithFrameSize sets the FFT frame size of the spectral engine. It must be
// a power of two of at least 256.
func WithFrameSize(size int) Option {
	return func(cfg *config) {
		cfg.frameSize = size
	}
}

// WithWindow sets the STFT window shape of the spectral engine. The delay
// engine ignores it.
func WithWindow(t window.Type) Option {
	return func(cfg *config) {
		cfg.windowType = t
	}
}

// WithGrain sets the sweep window of the delay engine in milliseconds.
func WithGrain(ms float64) Option {
	return func(cfg *config) {
		cfg.grainMs = ms
	}
}

// WithLogger sets the logger for engine lifecycle events. The default
// discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
