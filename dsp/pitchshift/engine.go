package pitchshift

import (
	"fmt"

	"github.com/cwbudde/algo-shift/dsp/buffer"
	"github.com/cwbudde/algo-shift/dsp/pitch"
)

// engine is one configured set of per-channel shifters plus the
// output queue and latency bookkeeping that belong to them.
type engine struct {
	sampleRate float64
	channels   int
	latency    int

	shifters []pitch.Shifter
	queue    *buffer.Ring

	// pending counts rendered frames still to drop for latency compensation.
	pending int

	in       *buffer.Planar
	out      *buffer.Planar
	rendered []float32
}

func newEngine(cfg *config, sampleRate float64, channels int, semitones float64) (*engine, error) {
	shifters := make([]pitch.Shifter, channels)

	for ch := range shifters {
		s, err := newShifter(cfg, sampleRate)
		if err != nil {
			return nil, err
		}

		if err := s.SetPitchSemitones(semitones); err != nil {
			return nil, err
		}

		shifters[ch] = s
	}

	queue, err := buffer.NewRing(channels, shifters[0].Latency())
	if err != nil {
		return nil, err
	}

	in, err := buffer.NewPlanar(channels)
	if err != nil {
		return nil, err
	}

	out, err := buffer.NewPlanar(channels)
	if err != nil {
		return nil, err
	}

	e := &engine{
		sampleRate: sampleRate,
		channels:   channels,
		latency:    shifters[0].Latency(),
		shifters:   shifters,
		queue:      queue,
		in:         in,
		out:        out,
	}
	e.pending = e.latency

	return e, nil
}

func newShifter(cfg *config, sampleRate float64) (pitch.Shifter, error) {
	switch cfg.engine {
	case EngineSpectral:
		s, err := pitch.NewSpectralShifter(sampleRate)
		if err != nil {
			return nil, err
		}

		if cfg.frameSize != s.FrameSize() {
			if err := s.SetFrameSize(cfg.frameSize); err != nil {
				return nil, err
			}
		}

		if cfg.windowType != s.WindowType() {
			if err := s.SetWindowType(cfg.windowType); err != nil {
				return nil, err
			}
		}

		return s, nil
	case EngineDelay:
		d, err := pitch.NewDelayShifter(sampleRate)
		if err != nil {
			return nil, err
		}

		if cfg.grainMs != d.Grain() {
			if err := d.SetGrain(cfg.grainMs); err != nil {
				return nil, err
			}
		}

		return d, nil
	default:
		return nil, fmt.Errorf("pitchshift: unknown engine: %d", int(cfg.engine))
	}
}

func (e *engine) setSemitones(semitones float64) error {
	for _, s := range e.shifters {
		if err := s.SetPitchSemitones(semitones); err != nil {
			return err
		}
	}

	return nil
}

func (e *engine) reset() {
	for _, s := range e.shifters {
		s.Reset()
	}

	e.queue.Reset()
	e.pending = e.latency
}

// feed renders frames interleaved frames from input (nil means silence)
// and queues everything past the latency still pending.
func (e *engine) feed(input []float32, frames int) error {
	if frames <= 0 {
		return nil
	}

	if input == nil {
		e.in.Resize(frames)
		e.in.Clear()
	} else if err := e.in.Deinterleave(input[:frames*e.channels]); err != nil {
		return err
	}

	e.out.Resize(frames)
	for ch := range e.channels {
		if err := e.shifters[ch].Process(e.out.Channel(ch), e.in.Channel(ch)); err != nil {
			return fmt.Errorf("pitchshift: channel %d: %w", ch, err)
		}
	}

	skip := min(e.pending, frames)
	e.pending -= skip

	keep := frames - skip
	if keep == 0 {
		return nil
	}

	need := keep * e.channels
	if cap(e.rendered) < need {
		e.rendered = make([]float32, need)
	}

	rendered := e.rendered[:need]
	e.out.Interleave(rendered, skip)

	return e.queue.Write(rendered)
}

// release drops every reference the engine holds.
func (e *engine) release() {
	e.shifters = nil
	e.queue = nil
	e.in = nil
	e.out = nil
	e.rendered = nil
}
