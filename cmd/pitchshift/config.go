package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-shift/dsp/dither"
	"github.com/cwbudde/algo-shift/dsp/pitch"
	"github.com/cwbudde/algo-shift/dsp/pitchshift"
	"github.com/cwbudde/algo-shift/dsp/resample"
	"github.com/cwbudde/algo-shift/dsp/window"
)

type config struct {
	Input     string
	Output    string
	Semitones float64
	Engine    string
	FrameSize int
	Window    string
	GrainMs   float64
	Block     int
	Bits      int
	Dither    string
	Seed      uint64
	Rate      int
	Quality   string
	LogLevel  string
}

// loadConfig reads defaults from PITCHSHIFT_* environment variables.
func loadConfig() config {
	return config{
		Output:    getenv("PITCHSHIFT_OUTPUT", ""),
		Semitones: getenvFloat("PITCHSHIFT_SEMITONES", 0),
		Engine:    getenv("PITCHSHIFT_ENGINE", pitchshift.EngineSpectral.String()),
		FrameSize: getenvInt("PITCHSHIFT_FRAME", pitch.DefaultSpectralFrameSize),
		Window:    getenv("PITCHSHIFT_WINDOW", window.TypeHann.String()),
		GrainMs:   getenvFloat("PITCHSHIFT_GRAIN", pitch.DefaultGrainMs),
		Block:     getenvInt("PITCHSHIFT_BLOCK", 1024),
		Bits:      getenvInt("PITCHSHIFT_BITS", 16),
		Dither:    getenv("PITCHSHIFT_DITHER", dither.DitherTriangular.String()),
		Seed:      uint64(getenvInt("PITCHSHIFT_SEED", 0)),
		Rate:      getenvInt("PITCHSHIFT_RATE", 0),
		Quality:   getenv("PITCHSHIFT_RESAMPLE_QUALITY", resample.QualityBalanced.String()),
		LogLevel:  getenv("PITCHSHIFT_LOG_LEVEL", "info"),
	}
}

// parseFlags applies command-line overrides on top of cfg and validates
// the result.
func parseFlags(cfg config, args []string, stderr io.Writer) (config, error) {
	fs := flag.NewFlagSet("pitchshift", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.Output, "o", cfg.Output, "output WAV path (default: <input>.shifted.wav)")
	fs.Float64Var(&cfg.Semitones, "semitones", cfg.Semitones, "pitch shift in semitones, -24..24")
	fs.StringVar(&cfg.Engine, "engine", cfg.Engine, "pitch engine: spectral or delay")
	fs.IntVar(&cfg.FrameSize, "frame", cfg.FrameSize, "spectral FFT frame size (power of two >= 256)")
	fs.StringVar(&cfg.Window, "window", cfg.Window, "spectral window: rectangular, hann, hamming, blackman or triangle")
	fs.Float64Var(&cfg.GrainMs, "grain", cfg.GrainMs, "delay engine window in milliseconds")
	fs.IntVar(&cfg.Block, "block", cfg.Block, "frames per process call")
	fs.IntVar(&cfg.Bits, "bits", cfg.Bits, "output bit depth: 16 or 24")
	fs.StringVar(&cfg.Dither, "dither", cfg.Dither, "dither: none, rect or tpdf")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "dither seed, 0 for random")
	fs.IntVar(&cfg.Rate, "rate", cfg.Rate, "output sample rate in Hz, 0 keeps the input rate")
	fs.StringVar(&cfg.Quality, "quality", cfg.Quality, "resampling quality: fast, balanced or best")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pitchshift [flags] input\n\n")
		fmt.Fprintf(stderr, "Shifts the pitch of a WAV, MP3 or Ogg Vorbis file and writes a WAV file,\noptionally at a new sample rate.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  pitchshift -semitones 7 vocals.wav\n")
		fmt.Fprintf(stderr, "  pitchshift -engine delay -semitones -12 -o low.wav loop.ogg\n")
		fmt.Fprintf(stderr, "  pitchshift -semitones 3 -rate 48000 -bits 24 take.mp3\n")
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return cfg, fmt.Errorf("expected exactly one input file, got %d", fs.NArg())
	}

	cfg.Input = fs.Arg(0)
	if cfg.Output == "" {
		cfg.Output = strings.TrimSuffix(cfg.Input, filepath.Ext(cfg.Input)) + ".shifted.wav"
	}

	return cfg, cfg.validate()
}

func (c config) validate() error {
	if _, err := pitchshift.ParseEngineKind(c.Engine); err != nil {
		return err
	}

	if _, err := window.ParseType(c.Window); err != nil {
		return err
	}

	if _, err := dither.ParseDitherType(c.Dither); err != nil {
		return err
	}

	if _, err := resample.ParseQuality(c.Quality); err != nil {
		return err
	}

	if c.Rate < 0 {
		return fmt.Errorf("output rate must be >= 0: %d", c.Rate)
	}

	if c.Bits != 16 && c.Bits != 24 {
		return fmt.Errorf("bit depth must be 16 or 24: %d", c.Bits)
	}

	if c.Block < 1 {
		return fmt.Errorf("block size must be > 0: %d", c.Block)
	}

	if c.Semitones < pitch.MinSemitones || c.Semitones > pitch.MaxSemitones {
		return fmt.Errorf("semitones must be in [%g, %g]: %g", pitch.MinSemitones, pitch.MaxSemitones, c.Semitones)
	}

	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
