package audiofile

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-shift/dsp/dither"
)

const (
	wavFormatPCM    = 1
	unsigned8Offset = 128
)

// EncodeWAV writes clip as integer PCM WAV at bitDepth bits. Samples are
// quantized by q, which must be configured for the same bit depth. A nil q
// truncates without dither. 8-bit output is written unsigned, as WAV
// requires.
func EncodeWAV(w io.WriteSeeker, clip *Clip, bitDepth int, q *dither.Quantizer) error {
	if clip == nil || clip.SampleRate <= 0 || clip.Channels <= 0 {
		return fmt.Errorf("%w: clip has no valid format", ErrInvalidFile)
	}

	if q == nil {
		var err error

		q, err = dither.NewQuantizer(dither.WithBitDepth(bitDepth), dither.WithDitherType(dither.DitherNone))
		if err != nil {
			return err
		}
	}

	if q.BitDepth() != bitDepth {
		return fmt.Errorf("audiofile: quantizer bit depth %d does not match %d", q.BitDepth(), bitDepth)
	}

	data := make([]int, clip.Frames()*clip.Channels)
	q.QuantizeInto(data, clip.Samples)

	if bitDepth == 8 {
		for i := range data {
			data[i] += unsigned8Offset
		}
	}

	enc := wav.NewEncoder(w, clip.SampleRate, bitDepth, clip.Channels, wavFormatPCM)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: clip.Channels, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audiofile: write wav: %w", err)
	}

	return enc.Close()
}
