package transcribe

import (
	"context"
	"errors"
	"strings"

	"github.com/dkim-lab/voicenote/internal/apierr"
	"github.com/dkim-lab/voicenote/internal/audio"
)

// Probe window bounds in milliseconds. The sample starts at the first
// non-silent onset (minus a short lead-in) and grows when the API rejects
// the clip as too short.
const (
	probeDefaultMs   = 10_000
	probeMinMs       = 3_000
	probeMaxMs       = 30_000
	probeRetryFloor  = 15_000
	probeLeadInMs    = 250
	probeMinSourceMs = 150
	probeMaxAttempts = 4
)

// ProbeSampler transcribes a short sample clipped from the source audio.
// The probe text is the independent reference the quality gate compares the
// aggregate transcript against. Probing is best-effort: any failure yields
// an empty probe and the run continues with the overlap check skipped.
type ProbeSampler struct {
	transcriber Transcriber
	language    string
}

// ProbeOption configures a ProbeSampler.
type ProbeOption func(*ProbeSampler)

// WithProbeLanguage sets the ISO 639-1 language hint for the probe.
func WithProbeLanguage(lang string) ProbeOption {
	return func(p *ProbeSampler) { p.language = lang }
}

// NewProbeSampler creates a ProbeSampler.
func NewProbeSampler(t Transcriber, opts ...ProbeOption) *ProbeSampler {
	p := &ProbeSampler{transcriber: t}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe samples speech near the first non-silent onset and transcribes it.
// When the API rejects the clip as too short, the window doubles (bounded
// to 30s and the remaining audio) and the sample is retried. Returns empty
// text, not an error, when no usable probe can be produced; the only error
// is context cancellation.
func (p *ProbeSampler) Probe(ctx context.Context, src *audio.Stream) (string, error) {
	total := src.DurationMs()
	if total < probeMinSourceMs {
		return "", nil
	}

	threshold := audio.SilenceThreshold(src)
	onset, ok := audio.FirstNonSilentMs(src, threshold, audio.MinSilenceMs)
	if !ok {
		// Entirely silent audio still gets one probe attempt from the
		// start; the aggregate gate decides what silence means.
		onset = 0
	}

	start := onset - probeLeadInMs
	if start < 0 {
		start = 0
	}
	remaining := total - start

	window := clampMs(probeDefaultMs, probeMinMs, remaining)

	for attempt := 0; attempt < probeMaxAttempts; attempt++ {
		sample := src.Slice(start, start+window)
		text, err := p.transcriber.Transcribe(ctx, Request{
			Audio:    audio.EncodeWAV(sample),
			Filename: "probe.wav",
			Language: p.language,
		})
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !errors.Is(err, apierr.ErrAudioTooShort) || window >= probeMaxMs {
			return "", nil
		}

		next := window * 2
		if next < probeRetryFloor {
			next = probeRetryFloor
		}
		if next > probeMaxMs {
			next = probeMaxMs
		}
		if next > remaining {
			next = remaining
		}
		if next <= window {
			// Cannot grow further; give up rather than resend the same clip.
			return "", nil
		}
		window = next
	}
	return "", nil
}

func clampMs(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		// lo exceeded hi: the remaining audio is shorter than the minimum
		// window, so take everything there is.
		v = hi
	}
	return v
}
