package audiofile

import "time"

// Clip is a decoded audio stream held in memory.
type Clip struct {
	SampleRate int
	Channels   int
	// Samples holds interleaved frames normalized to [-1, 1].
	Samples []float32
}

// Frames returns the number of whole frames in the clip.
func (c *Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the playback length of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}
