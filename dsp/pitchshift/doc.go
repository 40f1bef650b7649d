// Package pitchshift adapts the streaming engines of package pitch to
// interleaved multi-channel float32 buffers.
//
// An [Adapter] owns one engine per channel. It hides the engine warm-up
// latency, so rendered output is time-aligned with the input, and it
// queues rendered frames that do not fit into the caller's output buffer
// until a later call.
//
// The first calls after [New], [Adapter.Configure] or [Adapter.Reset] may
// return zero frames while the engine fills its latency. [Adapter.Flush]
// pushes the tail out at end of stream.
//
// An Adapter is not safe for concurrent use.
package pitchshift
