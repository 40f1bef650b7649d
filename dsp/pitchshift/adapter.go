package pitchshift

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-shift/dsp/pitch"
)

// Adapter forwards interleaved float32 audio through one pitch engine per
// channel.
type Adapter struct {
	cfg       config
	log       zerolog.Logger
	semitones float64
	eng       *engine
	closed    bool
}

// New creates an Adapter and its engine for the given stream format.
func New(sampleRate float64, channels int, opts ...Option) (*Adapter, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	a := &Adapter{cfg: cfg, log: cfg.logger}

	eng, err := a.build(sampleRate, channels)
	if err != nil {
		return nil, err
	}

	a.eng = eng
	a.log.Debug().
		Float64("sample_rate", sampleRate).
		Int("channels", channels).
		Stringer("engine", cfg.engine).
		Int("latency", eng.latency).
		Msg("pitch engine created")

	return a, nil
}

// Configure replaces the engine with a fresh one for the new stream format.
// The current pitch is carried over. Queued output is discarded. On error
// the previous engine stays installed.
func (a *Adapter) Configure(sampleRate float64, channels int) error {
	if a.closed {
		return ErrClosed
	}

	eng, err := a.build(sampleRate, channels)
	if err != nil {
		return err
	}

	old := a.eng
	a.eng = eng
	old.release()

	a.log.Debug().
		Float64("sample_rate", sampleRate).
		Int("channels", channels).
		Float64("old_sample_rate", old.sampleRate).
		Int("old_channels", old.channels).
		Int("latency", eng.latency).
		Msg("pitch engine replaced")

	return nil
}

// SetPitchSemitones sets the pitch shift for subsequent Process calls.
// semitones must be finite and within [-24, 24]; otherwise the previous
// setting is kept.
func (a *Adapter) SetPitchSemitones(semitones float64) error {
	if a.closed {
		return ErrClosed
	}

	if math.IsNaN(semitones) || math.IsInf(semitones, 0) ||
		semitones < pitch.MinSemitones || semitones > pitch.MaxSemitones {
		return fmt.Errorf("%w: %f", ErrInvalidPitch, semitones)
	}

	if err := a.eng.setSemitones(semitones); err != nil {
		_ = a.eng.setSemitones(a.semitones)
		return err
	}

	a.semitones = semitones

	return nil
}

// Process feeds frames interleaved frames from input and writes at most
// outputCapacity rendered frames to output. It returns the number of frames
// written. Frames that do not fit stay queued for later calls.
func (a *Adapter) Process(input []float32, frames, channels int, output []float32, outputCapacity int) (int, error) {
	if a.closed {
		return 0, ErrClosed
	}

	if frames < 0 || outputCapacity < 0 {
		return 0, fmt.Errorf("%w: frames=%d capacity=%d", ErrShortBuffer, frames, outputCapacity)
	}

	if channels != a.eng.channels {
		return 0, fmt.Errorf("%w: got %d, configured %d", ErrChannelMismatch, channels, a.eng.channels)
	}

	// Compare in frames so huge counts cannot overflow frames*channels.
	if frames > len(input)/channels {
		return 0, fmt.Errorf("%w: input holds %d frames, need %d", ErrShortBuffer, len(input)/channels, frames)
	}

	if outputCapacity > len(output)/channels {
		return 0, fmt.Errorf("%w: output holds %d frames, need %d", ErrShortBuffer, len(output)/channels, outputCapacity)
	}

	if err := a.eng.feed(input[:frames*channels], frames); err != nil {
		return 0, err
	}

	if outputCapacity == 0 {
		return 0, nil
	}

	return a.eng.queue.Read(output[:outputCapacity*channels], outputCapacity), nil
}

// Flush feeds Latency frames of silence so that every frame fed so far is
// queued. Drain the queue with Process calls that pass zero input frames.
func (a *Adapter) Flush() error {
	if a.closed {
		return ErrClosed
	}

	return a.eng.feed(nil, a.eng.latency)
}

// Reset clears engine history, latency compensation and queued output.
// The format and pitch are kept.
func (a *Adapter) Reset() {
	if a.closed {
		return
	}

	a.eng.reset()
	a.log.Debug().Msg("pitch engine reset")
}

// Close releases the engine. Further calls return ErrClosed. Close is
// idempotent.
func (a *Adapter) Close() error {
	if a.closed {
		return nil
	}

	a.eng.release()
	a.closed = true
	a.log.Debug().Msg("pitch engine closed")

	return nil
}

// Latency returns the engine latency in frames that the adapter hides.
func (a *Adapter) Latency() int {
	if a.closed {
		return 0
	}

	return a.eng.latency
}

// Available returns the number of queued frames ready for output.
func (a *Adapter) Available() int {
	if a.closed {
		return 0
	}

	return a.eng.queue.Len()
}

// SampleRate returns the configured sample rate in Hz.
func (a *Adapter) SampleRate() float64 { return a.eng.sampleRate }

// Channels returns the configured channel count.
func (a *Adapter) Channels() int { return a.eng.channels }

// PitchSemitones returns the pitch shift in semitones.
func (a *Adapter) PitchSemitones() float64 { return a.semitones }

// PitchRatio returns the pitch shift as a frequency ratio.
func (a *Adapter) PitchRatio() float64 { return pitch.SemitonesToRatio(a.semitones) }

// Engine returns the engine kind.
func (a *Adapter) Engine() EngineKind { return a.cfg.engine }

func (a *Adapter) build(sampleRate float64, channels int) (*engine, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: %f", ErrInvalidSampleRate, sampleRate)
	}

	if channels < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	return newEngine(&a.cfg, sampleRate, channels, a.semitones)
}
