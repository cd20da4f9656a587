package audio

import "math"

// Silence scan parameters.
const (
	// silenceFrameMs is the analysis frame length for the silence scan.
	silenceFrameMs = 10

	// SilenceFloorDB is the hard floor for the silence threshold.
	// Quieter thresholds would classify room tone as speech.
	SilenceFloorDB = -50.0

	// SilenceMarginDB is subtracted from the stream's mean level to derive
	// an adaptive threshold for loud or quiet recordings.
	SilenceMarginDB = 14.0

	// MinSilenceMs is the minimum run of quiet frames that counts as
	// silence. Shorter dips are treated as part of speech.
	MinSilenceMs = 150
)

// SilenceThreshold returns the detection threshold for the stream:
// max(SilenceFloorDB, mean level - SilenceMarginDB).
func SilenceThreshold(s *Stream) float64 {
	return max(SilenceFloorDB, s.MeanDBFS()-SilenceMarginDB)
}

// FirstNonSilentMs returns the start of the first non-silent region in
// milliseconds. Leading silence shorter than minSilenceMs does not count
// as silence, so the region starts at 0 in that case. Returns false when
// the whole stream is below the threshold.
func FirstNonSilentMs(s *Stream, thresholdDB float64, minSilenceMs int) (int, bool) {
	frames := s.DurationMs() / silenceFrameMs
	if frames == 0 {
		return 0, false
	}

	onset := -1
	for f := 0; f < frames; f++ {
		if frameDBFS(s, f) >= thresholdDB {
			onset = f
			break
		}
	}
	if onset < 0 {
		return 0, false
	}

	// The leading quiet stretch only qualifies as silence if it is long
	// enough; otherwise treat the audio as speech from the start.
	if onset*silenceFrameMs < minSilenceMs {
		return 0, true
	}
	return onset * silenceFrameMs, true
}

// frameDBFS returns the RMS level of one analysis frame in dBFS.
func frameDBFS(s *Stream, frame int) float64 {
	samplesPerFrame := SampleRate * silenceFrameMs / 1000
	start := frame * samplesPerFrame
	end := min(start+samplesPerFrame, s.sampleCount())
	if start >= end {
		return math.Inf(-1)
	}

	var sum float64
	for i := start; i < end; i++ {
		v := float64(s.sample(i))
		sum += v * v
	}

	rms := math.Sqrt(sum/float64(end-start)) / math.MaxInt16
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}
