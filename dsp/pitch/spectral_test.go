package pitch

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-shift/dsp/window"
	"github.com/cwbudde/algo-shift/internal/testutil"
)

func TestNewSpectralShifter(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		wantErr    bool
	}{
		{name: "valid 44100", sampleRate: 44100, wantErr: false},
		{name: "valid 48000", sampleRate: 48000, wantErr: false},
		{name: "invalid zero", sampleRate: 0, wantErr: true},
		{name: "invalid negative", sampleRate: -1, wantErr: true},
		{name: "invalid NaN", sampleRate: math.NaN(), wantErr: true},
		{name: "invalid +Inf", sampleRate: math.Inf(1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSpectralShifter(tt.sampleRate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSpectralShifter() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				return
			}

			if got := s.SampleRate(); got != tt.sampleRate {
				t.Fatalf("SampleRate() = %f, want %f", got, tt.sampleRate)
			}

			if got := s.PitchRatio(); got != 1 {
				t.Fatalf("PitchRatio() = %f, want 1", got)
			}

			if got := s.FrameSize(); got != DefaultSpectralFrameSize {
				t.Fatalf("FrameSize() = %d, want %d", got, DefaultSpectralFrameSize)
			}

			if got := s.Hop(); got != DefaultSpectralFrameSize/SpectralOverlap {
				t.Fatalf("Hop() = %d, want %d", got, DefaultSpectralFrameSize/SpectralOverlap)
			}

			if got := s.Latency(); got != DefaultSpectralFrameSize {
				t.Fatalf("Latency() = %d, want %d", got, DefaultSpectralFrameSize)
			}

			if got := s.WindowType(); got != window.TypeHann {
				t.Fatalf("WindowType() = %v, want hann", got)
			}
		})
	}
}

func TestSpectralShifterSettersValidate(t *testing.T) {
	s, err := NewSpectralShifter(48000)
	if err != nil {
		t.Fatalf("NewSpectralShifter() error = %v", err)
	}

	for _, ratio := range []float64{0, 0.1, 6, math.NaN(), math.Inf(1)} {
		if err := s.SetPitchRatio(ratio); err == nil {
			t.Fatalf("expected error for pitch ratio %v", ratio)
		}
	}

	if got := s.PitchRatio(); got != 1 {
		t.Fatalf("rejected ratios changed PitchRatio() to %v", got)
	}

	for _, st := range []float64{math.NaN(), math.Inf(-1), 24.5, -25} {
		if err := s.SetPitchSemitones(st); err == nil {
			t.Fatalf("expected error for semitones %v", st)
		}
	}

	if err := s.SetPitchSemitones(7); err != nil {
		t.Fatalf("SetPitchSemitones() error = %v", err)
	}

	if got := s.PitchSemitones(); math.Abs(got-7) > 1e-12 {
		t.Fatalf("PitchSemitones() = %v, want 7", got)
	}

	if err := s.SetPitchSemitones(24); err != nil {
		t.Fatalf("SetPitchSemitones(24) error = %v", err)
	}

	if err := s.SetFrameSize(1000); err == nil {
		t.Fatal("expected error for non power-of-two frame size")
	}

	if err := s.SetFrameSize(128); err == nil {
		t.Fatal("expected error for too-small frame size")
	}

	if err := s.SetFrameSize(1024); err != nil {
		t.Fatalf("SetFrameSize() error = %v", err)
	}

	if s.Latency() != 1024 || s.Hop() != 256 {
		t.Fatalf("after SetFrameSize(1024): latency=%d hop=%d", s.Latency(), s.Hop())
	}

	if err := s.SetWindowType(window.Type(99)); err == nil {
		t.Fatal("expected error for invalid window type")
	}

	if err := s.SetWindowType(window.TypeHamming); err != nil {
		t.Fatalf("SetWindowType() error = %v", err)
	}
}

func TestSpectralShifterProcessShortOutput(t *testing.T) {
	s, err := NewSpectralShifter(48000)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Process(make([]float64, 3), make([]float64, 4)); err == nil {
		t.Fatal("expected error when dst is shorter than src")
	}
}

func TestSpectralShifterIdentityIsDelayedCopy(t *testing.T) {
	for _, wt := range []window.Type{window.TypeHann, window.TypeHamming} {
		t.Run(wt.String(), func(t *testing.T) {
			s, err := NewSpectralShifter(48000)
			if err != nil {
				t.Fatal(err)
			}

			if err := s.SetWindowType(wt); err != nil {
				t.Fatal(err)
			}

			in := testutil.DeterministicNoise(7, 0.5, 12000)
			out := processChunked(t, s, in, []int{1, 17, 512, 333, 4096})

			lat := s.Latency()
			for i := 0; i+lat < len(out); i++ {
				if d := math.Abs(out[i+lat] - in[i]); d > 1e-9 {
					t.Fatalf("sample %d: got %v want %v (diff %g)", i, out[i+lat], in[i], d)
				}
			}

			for i := range lat {
				if math.Abs(out[i]) > 1e-12 {
					t.Fatalf("warm-up sample %d = %v, want ~0", i, out[i])
				}
			}
		})
	}
}

func TestSpectralShifterPitchAccuracy(t *testing.T) {
	const (
		sampleRate = 48000.0
		inFreq     = 440.0
	)

	for _, semitones := range []float64{7, -5, 12, -12, 3.5} {
		s, err := NewSpectralShifter(sampleRate)
		if err != nil {
			t.Fatal(err)
		}

		if err := s.SetPitchSemitones(semitones); err != nil {
			t.Fatal(err)
		}

		in := testutil.DeterministicSine(inFreq, sampleRate, 0.5, 65536)
		out := make([]float64, len(in))
		if err := s.Process(out, in); err != nil {
			t.Fatalf("Process() error = %v", err)
		}

		testutil.RequireFinite(t, out)

		got, err := testutil.DominantFrequency(out[len(out)-16384:], sampleRate)
		if err != nil {
			t.Fatal(err)
		}

		want := inFreq * SemitonesToRatio(semitones)
		if math.Abs(got-want)/want > 0.02 {
			t.Errorf("semitones %+.1f: dominant %.1f Hz, want %.1f Hz", semitones, got, want)
		}
	}
}

func TestSpectralShifterChunkingInvariant(t *testing.T) {
	newShifter := func() *SpectralShifter {
		s, err := NewSpectralShifter(44100)
		if err != nil {
			t.Fatal(err)
		}

		if err := s.SetPitchSemitones(-3); err != nil {
			t.Fatal(err)
		}

		return s
	}

	in := testutil.DeterministicNoise(3, 0.3, 9000)

	whole := processChunked(t, newShifter(), in, []int{len(in)})
	pieces := processChunked(t, newShifter(), in, []int{1, 2, 3, 511, 64, 2049})

	testutil.RequireSliceNearlyEqual(t, pieces, whole, 0)
}

func TestSpectralShifterResetReproducible(t *testing.T) {
	s, err := NewSpectralShifter(48000)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetPitchSemitones(5); err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicSine(330, 48000, 0.4, 10000)

	first := make([]float64, len(in))
	if err := s.Process(first, in); err != nil {
		t.Fatal(err)
	}

	s.Reset()

	second := make([]float64, len(in))
	if err := s.Process(second, in); err != nil {
		t.Fatal(err)
	}

	testutil.RequireSliceNearlyEqual(t, second, first, 0)
}

func TestSpectralShifterInPlace(t *testing.T) {
	a, _ := NewSpectralShifter(48000)
	b, _ := NewSpectralShifter(48000)
	_ = a.SetPitchSemitones(4)
	_ = b.SetPitchSemitones(4)

	in := testutil.DeterministicNoise(11, 0.5, 5000)

	want := make([]float64, len(in))
	if err := a.Process(want, in); err != nil {
		t.Fatal(err)
	}

	buf := append([]float64(nil), in...)
	if err := b.Process(buf, buf); err != nil {
		t.Fatal(err)
	}

	testutil.RequireSliceNearlyEqual(t, buf, want, 0)
}

func processChunked(t *testing.T, s Shifter, in []float64, sizes []int) []float64 {
	t.Helper()

	out := make([]float64, len(in))
	pos := 0

	for i := 0; pos < len(in); i++ {
		n := min(sizes[i%len(sizes)], len(in)-pos)
		if err := s.Process(out[pos:pos+n], in[pos:pos+n]); err != nil {
			t.Fatalf("Process() error = %v", err)
		}

		pos += n
	}

	return out
}
