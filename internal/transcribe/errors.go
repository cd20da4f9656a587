package transcribe

import "errors"

// Quality-gate errors. These are terminal for a pipeline run; the fix is a
// user-initiated re-run with different input, never an automatic retry.
var (
	// ErrEmptyTranscript indicates no chunk produced any text.
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrTranscriptTooShort indicates the joined transcript is below the
	// minimum character threshold.
	ErrTranscriptTooShort = errors.New("transcript too short")

	// ErrProbeMismatch indicates the probe sample's text does not overlap
	// the aggregate transcript, suggesting the audio that was transcribed
	// is not the audio that was uploaded (wrong file, corrupted codec,
	// silent track).
	ErrProbeMismatch = errors.New("probe transcript mismatch")
)
