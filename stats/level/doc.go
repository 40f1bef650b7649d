// Package level meters interleaved audio: peak, RMS, DC offset, crest
// factor, zero crossings and full-scale clipping, per channel and overall.
//
// A [Meter] is fed block by block, so it can follow a stream without
// holding it in memory.
package level
