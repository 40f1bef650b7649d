//nolint:funcorder
package pitch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-shift/dsp/interp"
	"github.com/cwbudde/algo-shift/dsp/window"
)

const (
	// DefaultSpectralFrameSize is the FFT size used by NewSpectralShifter.
	DefaultSpectralFrameSize = 2048
	// SpectralOverlap is the number of frames overlapping each sample.
	SpectralOverlap = 4

	minSpectralFrameSize = 256
	maxSpectralFrameSize = 1 << 15
)

// SpectralShifter performs streaming frequency-domain pitch shifting.
//
// Input is framed with a periodic window at a hop of FrameSize/4. Every
// analysis bin is moved to k*ratio with linear interpolation of magnitude
// and instantaneous frequency, and phases are accumulated per bin. The
// synthesis frames are windowed again and overlap-added.
//
// The engine delays its input by exactly FrameSize samples. At a ratio of
// 1 the spectrum passes through unchanged, so the output is the delayed
// input up to FFT round-off.
type SpectralShifter struct {
	sampleRate float64
	pitchRatio float64
	frameSize  int
	hop        int
	windowType window.Type

	plan *algofft.Plan[complex128]

	windowCoeffs []float64
	synthWindow  []float64
	omega        []float64

	inFIFO  []float64
	outFIFO []float64
	accum   []float64
	rover   int

	frame     []float64
	spectrum  []complex128
	synth     []complex128
	timeFrame []complex128

	prevPhase   []float64
	sumPhase    []float64
	magnitudes  []float64
	instFreqs   []float64
	shiftedMag  []float64
	shiftedFreq []float64
}

// NewSpectralShifter creates a spectral shifter with a Hann window and
// DefaultSpectralFrameSize.
func NewSpectralShifter(sampleRate float64) (*SpectralShifter, error) {
	if !isFinitePositive(sampleRate) {
		return nil, fmt.Errorf("spectral shifter sample rate must be positive and finite: %f", sampleRate)
	}

	s := &SpectralShifter{
		sampleRate: sampleRate,
		pitchRatio: 1,
		frameSize:  DefaultSpectralFrameSize,
		windowType: window.TypeHann,
	}

	if err := s.rebuildState(); err != nil {
		return nil, err
	}

	return s, nil
}

// SampleRate returns the current sample rate in Hz.
func (s *SpectralShifter) SampleRate() float64 { return s.sampleRate }

// PitchRatio returns the pitch ratio.
func (s *SpectralShifter) PitchRatio() float64 { return s.pitchRatio }

// PitchSemitones returns the current pitch shift in semitones.
func (s *SpectralShifter) PitchSemitones() float64 { return RatioToSemitones(s.pitchRatio) }

// FrameSize returns the FFT frame size.
func (s *SpectralShifter) FrameSize() int { return s.frameSize }

// Hop returns the analysis and synthesis hop in samples.
func (s *SpectralShifter) Hop() int { return s.hop }

// WindowType returns the STFT window shape.
func (s *SpectralShifter) WindowType() window.Type { return s.windowType }

// Latency returns the input-to-output delay in samples.
func (s *SpectralShifter) Latency() int { return s.frameSize }

// SetPitchRatio updates the pitch ratio. It takes effect at the next frame.
func (s *SpectralShifter) SetPitchRatio(ratio float64) error {
	if err := validateRatio(ratio); err != nil {
		return fmt.Errorf("spectral shifter: %w", err)
	}

	s.pitchRatio = ratio

	return nil
}

// SetPitchSemitones updates pitch shift in semitones.
func (s *SpectralShifter) SetPitchSemitones(semitones float64) error {
	ratio, err := semitonesRatio(semitones)
	if err != nil {
		return fmt.Errorf("spectral shifter: %w", err)
	}

	s.pitchRatio = ratio

	return nil
}

// SetFrameSize updates the FFT frame size and clears all state.
// size must be a power of two in [256, 32768].
func (s *SpectralShifter) SetFrameSize(size int) error {
	if size < minSpectralFrameSize || size > maxSpectralFrameSize || !isPowerOf2(size) {
		return fmt.Errorf("spectral frame size must be a power of two in [%d, %d]: %d",
			minSpectralFrameSize, maxSpectralFrameSize, size)
	}

	old := s.frameSize
	s.frameSize = size

	if err := s.rebuildState(); err != nil {
		s.frameSize = old
		_ = s.rebuildState()

		return err
	}

	return nil
}

// SetWindowType updates the STFT window shape and clears all state.
func (s *SpectralShifter) SetWindowType(t window.Type) error {
	if !t.Valid() {
		return fmt.Errorf("spectral shifter: invalid window type: %d", int(t))
	}

	old := s.windowType
	s.windowType = t

	if err := s.rebuildState(); err != nil {
		s.windowType = old
		_ = s.rebuildState()

		return err
	}

	return nil
}

// Reset clears buffered audio and phase tracking state.
func (s *SpectralShifter) Reset() {
	clear(s.inFIFO)
	clear(s.outFIFO)
	clear(s.accum)
	clear(s.prevPhase)
	clear(s.sumPhase)
	s.rover = s.frameSize - s.hop
}

// Process shifts src into dst. len(dst) must be at least len(src).
func (s *SpectralShifter) Process(dst, src []float64) error {
	if err := checkProcessLen(dst, src); err != nil {
		return err
	}

	fill := s.frameSize - s.hop

	for i, x := range src {
		s.inFIFO[s.rover] = x
		dst[i] = s.outFIFO[s.rover-fill]
		s.rover++

		if s.rover >= s.frameSize {
			s.rover = fill

			if err := s.processFrame(); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *SpectralShifter) processFrame() error {
	vecmath.MulBlock(s.frame, s.inFIFO, s.windowCoeffs)

	for i, v := range s.frame {
		s.spectrum[i] = complex(v, 0)
	}

	if err := s.plan.Forward(s.spectrum, s.spectrum); err != nil {
		return fmt.Errorf("spectral shifter: forward FFT failed: %w", err)
	}

	if math.Abs(s.pitchRatio-1) <= pitchIdentityEps {
		s.passThrough()
	} else {
		s.shiftBins()
	}

	if err := s.plan.Inverse(s.timeFrame, s.synth); err != nil {
		return fmt.Errorf("spectral shifter: inverse FFT failed: %w", err)
	}

	for i, v := range s.timeFrame {
		s.frame[i] = real(v)
	}

	vecmath.MulBlockInPlace(s.frame, s.synthWindow)
	vecmath.AddBlockInPlace(s.accum, s.frame)

	copy(s.outFIFO, s.accum[:s.hop])
	copy(s.accum, s.accum[s.hop:])
	clear(s.accum[s.frameSize-s.hop:])
	copy(s.inFIFO, s.inFIFO[s.hop:])

	return nil
}

// passThrough copies the analysis spectrum and keeps phase tracking in
// step, so a later ratio change continues from the current phases.
func (s *SpectralShifter) passThrough() {
	half := s.frameSize / 2

	copy(s.synth, s.spectrum)

	for k := 0; k <= half; k++ {
		phase := math.Atan2(imag(s.spectrum[k]), real(s.spectrum[k]))
		s.prevPhase[k] = phase
		s.sumPhase[k] = phase
	}
}

func (s *SpectralShifter) shiftBins() {
	half := s.frameSize / 2
	hopF := float64(s.hop)
	ratio := s.pitchRatio

	for k := 0; k <= half; k++ {
		re := real(s.spectrum[k])
		im := imag(s.spectrum[k])
		s.magnitudes[k] = binMagnitude(re, im)
		phase := math.Atan2(im, re)

		delta := wrapPhase(phase - s.prevPhase[k] - s.omega[k]*hopF)

		s.instFreqs[k] = s.omega[k] + delta/hopF
		s.prevPhase[k] = phase
	}

	for k := 0; k <= half; k++ {
		srcK := float64(k) / ratio
		if srcK > float64(half) {
			s.shiftedMag[k] = 0
			s.shiftedFreq[k] = s.omega[k]

			continue
		}

		lo := int(srcK)
		frac := srcK - float64(lo)
		hi := min(lo+1, half)
		s.shiftedMag[k] = interp.Linear(frac, s.magnitudes[lo], s.magnitudes[hi])
		s.shiftedFreq[k] = interp.Linear(frac, s.instFreqs[lo], s.instFreqs[hi]) * ratio
	}

	for k := 0; k <= half; k++ {
		s.sumPhase[k] = wrapPhase(s.sumPhase[k] + s.shiftedFreq[k]*hopF)
		s.synth[k] = complex(
			s.shiftedMag[k]*math.Cos(s.sumPhase[k]),
			s.shiftedMag[k]*math.Sin(s.sumPhase[k]),
		)
	}

	// Mirror for real-valued IFFT.
	s.synth[0] = complex(real(s.synth[0]), 0)
	s.synth[half] = complex(real(s.synth[half]), 0)

	for k := 1; k < half; k++ {
		v := s.synth[k]
		s.synth[s.frameSize-k] = complex(real(v), -imag(v))
	}
}

func (s *SpectralShifter) rebuildState() error {
	plan, err := algofft.NewPlan64(s.frameSize)
	if err != nil {
		return fmt.Errorf("spectral shifter: failed to create FFT plan: %w", err)
	}

	hop := s.frameSize / SpectralOverlap

	coeffs := window.Generate(s.windowType, s.frameSize, window.WithPeriodic())
	if len(coeffs) != s.frameSize {
		return fmt.Errorf("spectral shifter: window generation failed for size %d", s.frameSize)
	}

	gain, err := window.OverlapGain(coeffs, hop)
	if err != nil {
		return fmt.Errorf("spectral shifter: %w", err)
	}

	s.plan = plan
	s.hop = hop
	s.windowCoeffs = coeffs
	s.synthWindow = make([]float64, s.frameSize)
	vecmath.ScaleBlock(s.synthWindow, coeffs, 1/gain)

	bins := s.frameSize/2 + 1

	s.omega = make([]float64, bins)
	for k := range bins {
		s.omega[k] = 2 * math.Pi * float64(k) / float64(s.frameSize)
	}

	s.inFIFO = make([]float64, s.frameSize)
	s.outFIFO = make([]float64, s.hop)
	s.accum = make([]float64, s.frameSize)
	s.frame = make([]float64, s.frameSize)
	s.spectrum = make([]complex128, s.frameSize)
	s.synth = make([]complex128, s.frameSize)
	s.timeFrame = make([]complex128, s.frameSize)

	s.prevPhase = make([]float64, bins)
	s.sumPhase = make([]float64, bins)
	s.magnitudes = make([]float64, bins)
	s.instFreqs = make([]float64, bins)
	s.shiftedMag = make([]float64, bins)
	s.shiftedFreq = make([]float64, bins)

	s.rover = s.frameSize - s.hop

	return nil
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}

	return x - math.Pi
}

func isPowerOf2(v int) bool {
	return v > 0 && (v&(v-1)) == 0
}
