// Package audiofile loads audio files into interleaved float32 clips and
// writes clips back as integer PCM WAV.
package audiofile
