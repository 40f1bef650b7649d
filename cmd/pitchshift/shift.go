package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/cwbudde/algo-shift/dsp/dither"
	"github.com/cwbudde/algo-shift/dsp/pitchshift"
	"github.com/cwbudde/algo-shift/dsp/resample"
	"github.com/cwbudde/algo-shift/dsp/window"
	"github.com/cwbudde/algo-shift/internal/audiofile"
	"github.com/cwbudde/algo-shift/stats/level"
)

// run decodes the input, shifts it and writes the output WAV.
func run(cfg config, logger zerolog.Logger) error {
	in, err := audiofile.Decode(cfg.Input)
	if err != nil {
		return err
	}

	logger.Info().
		Str("input", cfg.Input).
		Int("sample_rate", in.SampleRate).
		Int("channels", in.Channels).
		Dur("duration", in.Duration()).
		Msg("decoded")

	if err := logLevels(logger, "input", in); err != nil {
		return err
	}

	out, err := shiftClip(in, cfg, logger)
	if err != nil {
		return err
	}

	out, err = convertRate(out, cfg, logger)
	if err != nil {
		return err
	}

	if err := logLevels(logger, "output", out); err != nil {
		return err
	}

	dt, err := dither.ParseDitherType(cfg.Dither)
	if err != nil {
		return err
	}

	qopts := []dither.Option{dither.WithBitDepth(cfg.Bits), dither.WithDitherType(dt)}
	if cfg.Seed != 0 {
		qopts = append(qopts, dither.WithSeed(cfg.Seed))
	}

	q, err := dither.NewQuantizer(qopts...)
	if err != nil {
		return err
	}

	f, err := os.Create(cfg.Output)
	if err != nil {
		return err
	}

	if err := audiofile.EncodeWAV(f, out, cfg.Bits, q); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	logger.Info().
		Str("output", cfg.Output).
		Int("bits", cfg.Bits).
		Stringer("dither", dt).
		Int("frames", out.Frames()).
		Msg("written")

	return nil
}

// shiftClip streams clip through a pitchshift.Adapter in blocks of
// cfg.Block frames and returns a clip of the same length.
func shiftClip(clip *audiofile.Clip, cfg config, logger zerolog.Logger) (*audiofile.Clip, error) {
	kind, err := pitchshift.ParseEngineKind(cfg.Engine)
	if err != nil {
		return nil, err
	}

	win, err := window.ParseType(cfg.Window)
	if err != nil {
		return nil, err
	}

	adapter, err := pitchshift.New(float64(clip.SampleRate), clip.Channels,
		pitchshift.WithEngine(kind),
		pitchshift.WithFrameSize(cfg.FrameSize),
		pitchshift.WithWindow(win),
		pitchshift.WithGrain(cfg.GrainMs),
		pitchshift.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	// Close only drops references and never fails here.
	defer func() { _ = adapter.Close() }()

	if err := adapter.SetPitchSemitones(cfg.Semitones); err != nil {
		return nil, err
	}

	logger.Info().
		Stringer("engine", kind).
		Float64("semitones", cfg.Semitones).
		Float64("ratio", adapter.PitchRatio()).
		Int("latency", adapter.Latency()).
		Msg("shifting")

	ch := clip.Channels
	frames := clip.Frames()
	out := make([]float32, frames*ch)
	written := 0

	for pos := 0; pos < frames; pos += cfg.Block {
		n := min(cfg.Block, frames-pos)

		got, err := adapter.Process(clip.Samples[pos*ch:(pos+n)*ch], n, ch, out[written*ch:], frames-written)
		if err != nil {
			return nil, fmt.Errorf("process at frame %d: %w", pos, err)
		}

		written += got
	}

	if err := adapter.Flush(); err != nil {
		return nil, err
	}

	for written < frames && adapter.Available() > 0 {
		got, err := adapter.Process(nil, 0, ch, out[written*ch:], frames-written)
		if err != nil {
			return nil, err
		}

		written += got
	}

	logger.Debug().Int("frames", written).Msg("drained")

	return &audiofile.Clip{SampleRate: clip.SampleRate, Channels: ch, Samples: out[:written*ch]}, nil
}

// convertRate resamples clip to cfg.Rate. A zero rate or a matching rate
// returns clip unchanged.
func convertRate(clip *audiofile.Clip, cfg config, logger zerolog.Logger) (*audiofile.Clip, error) {
	if cfg.Rate == 0 || cfg.Rate == clip.SampleRate {
		return clip, nil
	}

	quality, err := resample.ParseQuality(cfg.Quality)
	if err != nil {
		return nil, err
	}

	samples, err := resample.ConvertInterleaved(clip.Samples, clip.Channels,
		float64(clip.SampleRate), float64(cfg.Rate), resample.WithQuality(quality))
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("from", clip.SampleRate).
		Int("to", cfg.Rate).
		Stringer("quality", quality).
		Msg("resampled")

	return &audiofile.Clip{SampleRate: cfg.Rate, Channels: clip.Channels, Samples: samples}, nil
}

// logLevels meters clip and logs its levels. Clipping is logged as a
// warning because the quantizer clamps those samples.
func logLevels(logger zerolog.Logger, label string, clip *audiofile.Clip) error {
	meter, err := level.NewMeter(clip.Channels)
	if err != nil {
		return err
	}

	if err := meter.Update(clip.Samples); err != nil {
		return err
	}

	total := meter.Total()

	logger.Debug().
		Str("stage", label).
		Float64("peak_db", total.Peak_dB).
		Float64("rms_db", total.RMS_dB).
		Float64("dc", total.DC).
		Msg("levels")

	if total.Clipped > 0 {
		logger.Warn().
			Str("stage", label).
			Int("clipped", total.Clipped).
			Float64("peak_db", total.Peak_dB).
			Msg("samples at or above full scale")
	}

	return nil
}
