// Package pitch provides streaming mono pitch-shift engines.
//
// Included engines:
//   - SpectralShifter: Frequency-domain phase-vocoder bin shifter.
//   - DelayShifter: Time-domain shifter with two crossfaded modulated taps.
//   - Shifter: Shared interface for interchangeable engines.
//
// Engines are sample-synchronous: every call to Process produces exactly as
// many samples as it consumes, delayed by Latency(). A Shifter is not safe
// for concurrent use.
package pitch
