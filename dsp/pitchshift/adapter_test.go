package pitchshift

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-shift/dsp/pitch"
	"github.com/cwbudde/algo-shift/dsp/window"
	"github.com/cwbudde/algo-shift/internal/testutil"
)

const sentinel = float32(-12345)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		channels   int
		opts       []Option
		wantErr    error
	}{
		{name: "zero rate", sampleRate: 0, channels: 2, wantErr: ErrInvalidSampleRate},
		{name: "negative rate", sampleRate: -48000, channels: 2, wantErr: ErrInvalidSampleRate},
		{name: "NaN rate", sampleRate: math.NaN(), channels: 2, wantErr: ErrInvalidSampleRate},
		{name: "Inf rate", sampleRate: math.Inf(1), channels: 2, wantErr: ErrInvalidSampleRate},
		{name: "zero channels", sampleRate: 48000, channels: 0, wantErr: ErrInvalidChannels},
		{name: "negative channels", sampleRate: 48000, channels: -2, wantErr: ErrInvalidChannels},
		{name: "bad frame size", sampleRate: 48000, channels: 1, opts: []Option{WithFrameSize(1000)}},
		{name: "bad grain", sampleRate: 48000, channels: 1, opts: []Option{WithEngine(EngineDelay), WithGrain(2)}},
		{name: "bad window", sampleRate: 48000, channels: 1, opts: []Option{WithWindow(window.Type(42))}},
		{name: "bad engine", sampleRate: 48000, channels: 1, opts: []Option{WithEngine(EngineKind(9))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.sampleRate, tt.channels, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, a)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	a, err := New(44100, 2)
	require.NoError(t, err)

	assert.Equal(t, 44100.0, a.SampleRate())
	assert.Equal(t, 2, a.Channels())
	assert.Equal(t, EngineSpectral, a.Engine())
	assert.Equal(t, pitch.DefaultSpectralFrameSize, a.Latency())
	assert.Zero(t, a.PitchSemitones())
	assert.Equal(t, 1.0, a.PitchRatio())
	assert.Zero(t, a.Available())
}

func TestProcessNeverExceedsCapacity(t *testing.T) {
	for _, kind := range []EngineKind{EngineSpectral, EngineDelay} {
		for _, sr := range []float64{8000, 44100, 96000} {
			for _, channels := range []int{1, 2, 6} {
				a, err := New(sr, channels, WithEngine(kind), WithFrameSize(512))
				require.NoError(t, err)
				require.NoError(t, a.SetPitchSemitones(-7))

				for _, capacity := range []int{0, 1, 17, 256, 1024} {
					for _, frames := range []int{0, 1, 64, 1000} {
						in := make([]float32, frames*channels)
						out := make([]float32, (capacity+3)*channels)
						fill(out, sentinel)

						n, err := a.Process(in, frames, channels, out, capacity)
						require.NoError(t, err)
						require.GreaterOrEqual(t, n, 0)
						require.LessOrEqual(t, n, capacity, "%s sr=%v ch=%d", kind, sr, channels)
						testutil.RequireUntouched(t, out, n*channels, sentinel)
					}
				}
			}
		}
	}
}

func TestProcessZeroCapacityWritesNothing(t *testing.T) {
	a, err := New(48000, 2, WithEngine(EngineDelay))
	require.NoError(t, err)

	in := testutil.Interleave(
		testutil.DeterministicNoise(1, 0.5, 4096),
		testutil.DeterministicNoise(2, 0.5, 4096),
	)
	out := make([]float32, 64)
	fill(out, sentinel)

	n, err := a.Process(in, 4096, 2, out, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	testutil.RequireUntouched(t, out, 0, sentinel)

	// Input is still consumed.
	assert.Equal(t, 4096-a.Latency(), a.Available())
}

func TestProcessEarlyCallsReturnNothing(t *testing.T) {
	a, err := New(48000, 1)
	require.NoError(t, err)

	out := make([]float32, 128)
	n, err := a.Process(make([]float32, 128), 128, 1, out, 128)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessQueuedFramesCarryOver(t *testing.T) {
	a, err := New(48000, 1, WithEngine(EngineDelay))
	require.NoError(t, err)

	in := testutil.Interleave(testutil.DeterministicNoise(5, 0.5, 3000))
	out := make([]float32, 3000)

	n, err := a.Process(in, 3000, 1, out, 100)
	require.NoError(t, err)
	require.Equal(t, 100, n)

	queued := a.Available()
	require.Equal(t, 3000-a.Latency()-100, queued)

	n, err = a.Process(nil, 0, 1, out[100:], 2900)
	require.NoError(t, err)
	assert.Equal(t, queued, n)
	assert.Zero(t, a.Available())

	// At 0 semitones the delay engine is an exact delayed copy.
	assert.Equal(t, in[:100+queued], out[:100+queued])
}

func TestProcessPreconditions(t *testing.T) {
	a, err := New(48000, 2)
	require.NoError(t, err)

	out := make([]float32, 8)

	_, err = a.Process(make([]float32, 8), 4, 1, out, 4)
	require.ErrorIs(t, err, ErrChannelMismatch)

	_, err = a.Process(make([]float32, 7), 4, 2, out, 4)
	require.ErrorIs(t, err, ErrShortBuffer)

	_, err = a.Process(make([]float32, 8), 4, 2, out, 5)
	require.ErrorIs(t, err, ErrShortBuffer)

	_, err = a.Process(make([]float32, 8), -1, 2, out, 4)
	require.ErrorIs(t, err, ErrShortBuffer)

	_, err = a.Process(make([]float32, 8), 4, 2, out, -1)
	require.ErrorIs(t, err, ErrShortBuffer)

	// Counts whose sample total overflows int are rejected, not sliced.
	huge := math.MaxInt/2 + 1

	require.NotPanics(t, func() {
		_, err = a.Process(make([]float32, 4), huge, 2, out, 4)
	})
	require.ErrorIs(t, err, ErrShortBuffer)

	require.NotPanics(t, func() {
		_, err = a.Process(make([]float32, 8), 4, 2, out, huge)
	})
	require.ErrorIs(t, err, ErrShortBuffer)
	assert.Zero(t, a.Available())
}

func TestResetReproducible(t *testing.T) {
	for _, kind := range []EngineKind{EngineSpectral, EngineDelay} {
		t.Run(kind.String(), func(t *testing.T) {
			a, err := New(48000, 2, WithEngine(kind))
			require.NoError(t, err)
			require.NoError(t, a.SetPitchSemitones(5))

			in := testutil.Interleave(
				testutil.DeterministicSine(330, 48000, 0.4, 12000),
				testutil.DeterministicNoise(9, 0.3, 12000),
			)

			first := render(t, a, in, 2, 480, 300)
			a.Reset()
			assert.Zero(t, a.Available())
			second := render(t, a, in, 2, 480, 300)

			require.Equal(t, first, second)
			assert.Equal(t, 5.0, a.PitchSemitones())
		})
	}
}

func TestZeroSemitonesIsIdentity(t *testing.T) {
	for _, kind := range []EngineKind{EngineSpectral, EngineDelay} {
		t.Run(kind.String(), func(t *testing.T) {
			const (
				sampleRate = 48000.0
				frames     = 20000
			)

			a, err := New(sampleRate, 2, WithEngine(kind))
			require.NoError(t, err)

			sine := testutil.DeterministicSine(440, sampleRate, 0.5, frames)
			in := testutil.Interleave(sine, testutil.DeterministicNoise(4, 0.5, frames))

			out := render(t, a, in, 2, 1024, 700)
			require.Len(t, out, len(in))

			for i := range in {
				require.InDelta(t, in[i], out[i], 1e-6, "sample %d", i)
			}

			left := testutil.Deinterleave(out, 2)[0]
			got, err := testutil.DominantFrequency(left, sampleRate)
			require.NoError(t, err)
			assert.InEpsilon(t, 440.0, got, 0.01)
		})
	}
}

func TestBlockSizeDoesNotChangeOutput(t *testing.T) {
	for _, kind := range []EngineKind{EngineSpectral, EngineDelay} {
		t.Run(kind.String(), func(t *testing.T) {
			const frames = 9000

			in := testutil.Interleave(
				testutil.DeterministicSine(250, 44100, 0.5, frames),
				testutil.DeterministicNoise(3, 0.4, frames),
			)

			fixed, err := New(44100, 2, WithEngine(kind))
			require.NoError(t, err)
			require.NoError(t, fixed.SetPitchSemitones(-4))
			want := render(t, fixed, in, 2, 512, frames)

			varied, err := New(44100, 2, WithEngine(kind))
			require.NoError(t, err)
			require.NoError(t, varied.SetPitchSemitones(-4))

			got := make([]float32, 0, len(in))
			buf := make([]float32, frames*2)
			blocks := []int{1, 4096, 37, 700, 2}

			for pos, i := 0, 0; pos < frames; i++ {
				n := min(blocks[i%len(blocks)], frames-pos)

				w, err := varied.Process(in[pos*2:(pos+n)*2], n, 2, buf, frames)
				require.NoError(t, err)

				got = append(got, buf[:w*2]...)
				pos += n
			}

			require.NoError(t, varied.Flush())
			for varied.Available() > 0 {
				w, err := varied.Process(nil, 0, 2, buf, frames)
				require.NoError(t, err)

				got = append(got, buf[:w*2]...)
			}

			require.Len(t, got, len(want))
			for i := range want {
				require.InDelta(t, want[i], got[i], 1e-6, "sample %d", i)
			}
		})
	}
}

func TestWithWindowShapesSpectralOutput(t *testing.T) {
	const (
		sampleRate = 48000.0
		frames     = 24000
	)

	in := testutil.Interleave(testutil.DeterministicSine(440, sampleRate, 0.5, frames))

	hann, err := New(sampleRate, 1)
	require.NoError(t, err)
	require.NoError(t, hann.SetPitchSemitones(7))
	withHann := render(t, hann, in, 1, 1024, 1024)

	hamming, err := New(sampleRate, 1, WithWindow(window.TypeHamming))
	require.NoError(t, err)
	require.NoError(t, hamming.SetPitchSemitones(7))
	withHamming := render(t, hamming, in, 1, 1024, 1024)

	require.Len(t, withHamming, len(withHann))
	assert.NotEqual(t, withHann, withHamming)

	got, err := testutil.DominantFrequency(testutil.Deinterleave(withHamming, 1)[0], sampleRate)
	require.NoError(t, err)
	assert.InEpsilon(t, 440*pitch.SemitonesToRatio(7), got, 0.02)
}

func TestPitchRoundTrip(t *testing.T) {
	const (
		sampleRate = 48000.0
		inFreq     = 440.0
		frames     = 1 << 16
	)

	tests := []struct {
		kind EngineKind
		// tolerance in Hz around inFreq after shifting up and back down
		tolHz float64
	}{
		{kind: EngineSpectral, tolHz: 0.02 * inFreq},
		// One grain-rate modulation sideband plus 1%.
		{kind: EngineDelay, tolHz: 1000/pitch.DefaultGrainMs + 0.01*inFreq},
	}

	tail := func(x []float32) []float64 {
		return testutil.Deinterleave(x[len(x)-16384:], 1)[0]
	}

	in := testutil.Interleave(testutil.DeterministicSine(inFreq, sampleRate, 0.5, frames))

	for _, tt := range tests {
		for _, semitones := range []float64{3.5, 7, 12} {
			t.Run(fmt.Sprintf("%s_%+.1f", tt.kind, semitones), func(t *testing.T) {
				up, err := New(sampleRate, 1, WithEngine(tt.kind))
				require.NoError(t, err)
				require.NoError(t, up.SetPitchSemitones(semitones))

				down, err := New(sampleRate, 1, WithEngine(tt.kind))
				require.NoError(t, err)
				require.NoError(t, down.SetPitchSemitones(-semitones))

				shifted := render(t, up, in, 1, 2048, 2048)
				restored := render(t, down, shifted, 1, 2048, 2048)

				if tt.kind == EngineSpectral {
					got, err := testutil.DominantFrequency(tail(shifted), sampleRate)
					require.NoError(t, err)
					assert.InEpsilon(t, inFreq*pitch.SemitonesToRatio(semitones), got, 0.02)
				}

				got, err := testutil.DominantFrequency(tail(restored), sampleRate)
				require.NoError(t, err)
				assert.InDelta(t, inFreq, got, tt.tolHz)
			})
		}
	}
}

func TestConfigureChangesChannelCount(t *testing.T) {
	a, err := New(48000, 2, WithEngine(EngineDelay))
	require.NoError(t, err)
	require.NoError(t, a.SetPitchSemitones(3))

	stereo := make([]float32, 2*2000)
	out := make([]float32, 2*2000)
	_, err = a.Process(stereo, 2000, 2, out, 2000)
	require.NoError(t, err)

	for _, channels := range []int{1, 6} {
		require.NoError(t, a.Configure(44100, channels))
		assert.Equal(t, channels, a.Channels())
		assert.Equal(t, 44100.0, a.SampleRate())
		assert.Equal(t, 3.0, a.PitchSemitones())
		assert.Zero(t, a.Available())

		_, err = a.Process(stereo, 2000, 2, out, 2000)
		require.ErrorIs(t, err, ErrChannelMismatch)

		const frames = 3000
		in := make([]float32, frames*channels)
		for i := range in {
			in[i] = 0.25
		}

		// Exactly sized input; output has a guard tail past the capacity.
		dst := make([]float32, frames*channels+16)
		fill(dst, sentinel)

		n, err := a.Process(in, frames, channels, dst, frames)
		require.NoError(t, err)
		assert.Equal(t, frames-a.Latency(), n)
		testutil.RequireUntouched(t, dst, n*channels, sentinel)
	}
}

func TestConfigureFailureKeepsEngine(t *testing.T) {
	a, err := New(48000, 2)
	require.NoError(t, err)

	require.ErrorIs(t, a.Configure(0, 2), ErrInvalidSampleRate)
	require.ErrorIs(t, a.Configure(48000, 0), ErrInvalidChannels)

	assert.Equal(t, 48000.0, a.SampleRate())
	assert.Equal(t, 2, a.Channels())

	in := make([]float32, 2*4096)
	out := make([]float32, 2*4096)
	n, err := a.Process(in, 4096, 2, out, 4096)
	require.NoError(t, err)
	assert.Equal(t, 4096-a.Latency(), n)
}

func TestSetPitchSemitones(t *testing.T) {
	a, err := New(48000, 1)
	require.NoError(t, err)

	require.NoError(t, a.SetPitchSemitones(12))
	assert.InDelta(t, 2.0, a.PitchRatio(), 1e-12)

	for _, st := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 24.01, -30} {
		err := a.SetPitchSemitones(st)
		require.ErrorIs(t, err, ErrInvalidPitch)
	}

	assert.Equal(t, 12.0, a.PitchSemitones())

	require.NoError(t, a.SetPitchSemitones(-24))
	require.NoError(t, a.SetPitchSemitones(24))

	a.Reset()
	assert.Equal(t, 24.0, a.PitchSemitones())
}

func TestFlushDrainsTail(t *testing.T) {
	a, err := New(44100, 2, WithFrameSize(1024))
	require.NoError(t, err)

	const frames = 500
	in := testutil.Interleave(
		testutil.DeterministicNoise(1, 0.5, frames),
		testutil.DeterministicNoise(2, 0.5, frames),
	)

	out := make([]float32, 2*frames)
	n, err := a.Process(in, frames, 2, out, frames)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, a.Flush())
	assert.Equal(t, frames, a.Available())

	n, err = a.Process(nil, 0, 2, out, frames)
	require.NoError(t, err)
	assert.Equal(t, frames, n)
}

func TestClose(t *testing.T) {
	a, err := New(48000, 2)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err = a.Process(make([]float32, 2), 1, 2, make([]float32, 2), 1)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, a.Configure(48000, 2), ErrClosed)
	require.ErrorIs(t, a.SetPitchSemitones(1), ErrClosed)
	require.ErrorIs(t, a.Flush(), ErrClosed)

	a.Reset()
	assert.Zero(t, a.Latency())
	assert.Zero(t, a.Available())
}

func TestLoggerReceivesLifecycleEvents(t *testing.T) {
	var buf bytes.Buffer

	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	a, err := New(48000, 1, WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, a.Configure(44100, 2))
	a.Reset()
	require.NoError(t, a.Close())

	logs := buf.String()
	for _, msg := range []string{"pitch engine created", "pitch engine replaced", "pitch engine reset", "pitch engine closed"} {
		assert.Contains(t, logs, msg)
	}
}

func TestParseEngineKind(t *testing.T) {
	for _, kind := range []EngineKind{EngineSpectral, EngineDelay} {
		got, err := ParseEngineKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}

	_, err := ParseEngineKind("rubberband")
	require.Error(t, err)
}

// render streams in through a in blocks, flushes, and drains the queue with
// the given output capacity per call.
func render(t *testing.T, a *Adapter, in []float32, channels, block, capacity int) []float32 {
	t.Helper()

	total := len(in) / channels
	out := make([]float32, 0, len(in))
	buf := make([]float32, capacity*channels)

	for pos := 0; pos < total; pos += block {
		n := min(block, total-pos)

		got, err := a.Process(in[pos*channels:(pos+n)*channels], n, channels, buf, capacity)
		require.NoError(t, err)

		out = append(out, buf[:got*channels]...)
	}

	require.NoError(t, a.Flush())

	for a.Available() > 0 {
		got, err := a.Process(nil, 0, channels, buf, capacity)
		require.NoError(t, err)
		require.Positive(t, got)

		out = append(out, buf[:got*channels]...)
	}

	return out
}

func fill(buf []float32, v float32) {
	for i := range buf {
		buf[i] = v
	}
}
