// Command pitchshift changes the pitch of an audio file without changing
// its duration.
//
// Usage:
//
//	pitchshift [flags] input
//
// Input may be WAV, MP3 or Ogg Vorbis. Output is always integer PCM WAV.
// Every flag has a PITCHSHIFT_* environment default, for example
// PITCHSHIFT_SEMITONES or PITCHSHIFT_LOG_LEVEL.
//
// Examples:
//
//	pitchshift -semitones 7 vocals.wav
//	pitchshift -engine delay -semitones -12 -o low.wav loop.ogg
//	pitchshift -bits 24 -dither none -semitones 2.5 take.mp3
package main

import (
	"errors"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := parseFlags(loadConfig(), os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Msg("invalid arguments")
	}

	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		lvl = l
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
	}
	log.Logger = log.Level(lvl)

	if err := run(cfg, log.Logger); err != nil {
		log.Fatal().Err(err).Str("input", cfg.Input).Msg("pitch shift failed")
	}
}
