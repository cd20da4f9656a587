// Package audio turns uploaded bytes into normalized in-memory PCM and
// provides the pure operations the transcription pipeline runs on it:
// chunk planning, silence scanning, and per-chunk encoding.
package audio

import (
	"encoding/binary"
	"math"
)

// Canonical stream parameters. Every Stream produced by Normalize has
// exactly these, so all downstream math assumes them.
const (
	// SampleRate is the canonical sample rate in Hz.
	SampleRate = 16000

	// Channels is the canonical channel count.
	Channels = 1

	// SampleWidth is the canonical bytes per sample (16-bit).
	SampleWidth = 2

	// bytesPerMs is the PCM byte count covering one millisecond.
	bytesPerMs = SampleRate * Channels * SampleWidth / 1000
)

// Stream is decoded audio held in memory: 16 kHz mono 16-bit little-endian
// PCM. It is owned by a single pipeline invocation and discarded at the end
// of the run.
type Stream struct {
	PCM []byte
}

// DurationMs returns the total duration in milliseconds.
func (s *Stream) DurationMs() int {
	return len(s.PCM) / bytesPerMs
}

// Slice returns the sub-stream covering [startMs, endMs), clamped to the
// stream bounds. The returned stream shares the underlying buffer; callers
// must treat it as read-only.
func (s *Stream) Slice(startMs, endMs int) *Stream {
	total := s.DurationMs()
	startMs = max(0, min(startMs, total))
	endMs = max(startMs, min(endMs, total))
	return &Stream{PCM: s.PCM[startMs*bytesPerMs : endMs*bytesPerMs]}
}

// sample returns the i-th 16-bit sample.
func (s *Stream) sample(i int) int16 {
	return int16(binary.LittleEndian.Uint16(s.PCM[i*SampleWidth:]))
}

// sampleCount returns the number of complete samples in the stream.
func (s *Stream) sampleCount() int {
	return len(s.PCM) / SampleWidth
}

// MeanDBFS returns the RMS level of the whole stream in dBFS.
// Digital silence returns -inf.
func (s *Stream) MeanDBFS() float64 {
	n := s.sampleCount()
	if n == 0 {
		return math.Inf(-1)
	}

	var sum float64
	for i := 0; i < n; i++ {
		v := float64(s.sample(i))
		sum += v * v
	}

	rms := math.Sqrt(sum/float64(n)) / math.MaxInt16
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}
