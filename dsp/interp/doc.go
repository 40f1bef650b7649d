// Package interp provides interpolation primitives used by delay-based and
// spectral DSP blocks.
//
//   - [Linear]:   2-point linear interpolation
//   - [Hermite4]: 4-point cubic Hermite (good default for fractional delays)
package interp
