// Package buffer provides reusable sample containers for streaming DSP.
//
// [Planar] holds per-channel float64 scratch that is reused across blocks
// and converts to and from interleaved float32. [Ring] is a growable FIFO
// of interleaved float32 frames, used to hold rendered audio until a
// caller has room for it.
package buffer
