package audiofile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Decode reads the file at path. The decoder is chosen by extension:
// .wav, .mp3, .ogg or .oga.
func Decode(path string) (*Clip, error) {
	var decode func(io.ReadSeeker) (*Clip, error)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		decode = DecodeWAV
	case ".mp3":
		decode = DecodeMP3
	case ".ogg", ".oga":
		decode = DecodeVorbis
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	clip, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return clip, nil
}

// DecodeWAV reads an integer PCM WAV stream.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a PCM wav stream", ErrInvalidFile)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("%w: empty wav buffer", ErrInvalidFile)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}

	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrInvalidFile, bitDepth)
	}

	scale := 1 / float64(int64(1)<<(bitDepth-1))
	samples := make([]float32, len(buf.Data))

	// 8-bit WAV is unsigned with silence at 128.
	offset := 0.0
	if bitDepth == 8 {
		offset = unsigned8Offset
	}

	for i, v := range buf.Data {
		samples[i] = float32((float64(v) - offset) * scale)
	}

	clip := &Clip{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Samples:    samples,
	}
	if clip.SampleRate == 0 {
		clip.SampleRate = buf.Format.SampleRate
	}

	if clip.Channels == 0 {
		clip.Channels = buf.Format.NumChannels
	}

	if clip.SampleRate <= 0 || clip.Channels <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrInvalidFile, clip.SampleRate, clip.Channels)
	}

	return clip, nil
}

// DecodeMP3 reads an MPEG-1/2 Layer III stream. The decoder always yields
// 16-bit stereo.
func DecodeMP3(r io.ReadSeeker) (*Clip, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float32(v) / 32768
	}

	const channels = 2
	samples = samples[:len(samples)/channels*channels]

	return &Clip{SampleRate: dec.SampleRate(), Channels: channels, Samples: samples}, nil
}

// DecodeVorbis reads an Ogg Vorbis stream.
func DecodeVorbis(r io.ReadSeeker) (*Clip, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	return &Clip{SampleRate: format.SampleRate, Channels: format.Channels, Samples: samples}, nil
}
