package pitchshift

import "errors"

var (
	// ErrInvalidSampleRate reports a sample rate that is not positive and finite.
	ErrInvalidSampleRate = errors.New("pitchshift: invalid sample rate")
	// ErrInvalidChannels reports a channel count below one.
	ErrInvalidChannels = errors.New("pitchshift: invalid channel count")
	// ErrChannelMismatch reports a process call whose channel count differs
	// from the configured one.
	ErrChannelMismatch = errors.New("pitchshift: channel count mismatch")
	// ErrShortBuffer reports an input or output slice smaller than the
	// declared frame count.
	ErrShortBuffer = errors.New("pitchshift: buffer too short")
	// ErrInvalidPitch reports a non-finite or out-of-range semitone value.
	ErrInvalidPitch = errors.New("pitchshift: invalid pitch shift")
	// ErrClosed is returned by every call on a closed adapter.
	ErrClosed = errors.New("pitchshift: adapter closed")
)
