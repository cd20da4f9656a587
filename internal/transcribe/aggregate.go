package transcribe

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Quality gate defaults.
const (
	// DefaultMinTranscriptChars is the minimum length (in characters) of a
	// usable transcript.
	DefaultMinTranscriptChars = 30

	// DefaultMinProbeOverlap is the minimum fraction of probe tokens that
	// must also appear in the aggregate transcript.
	DefaultMinProbeOverlap = 0.15

	// minTokenLen drops single-character tokens, which match too easily to
	// carry any verification signal.
	minTokenLen = 2
)

// Stats summarizes a dispatch run for reporting.
type Stats struct {
	Total  int // Chunks planned.
	Failed int // Chunks that produced no text: errored, or empty after trimming.
}

// Gate joins per-chunk results into one transcript and verifies it.
type Gate struct {
	minChars   int
	minOverlap float64
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithMinChars sets the minimum transcript length in characters.
func WithMinChars(n int) GateOption {
	return func(g *Gate) {
		if n > 0 {
			g.minChars = n
		}
	}
}

// WithMinOverlap sets the minimum probe token overlap ratio.
func WithMinOverlap(r float64) GateOption {
	return func(g *Gate) {
		if r > 0 {
			g.minOverlap = r
		}
	}
}

// NewGate creates a Gate with default thresholds.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		minChars:   DefaultMinTranscriptChars,
		minOverlap: DefaultMinProbeOverlap,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Aggregate joins results in chunk order and runs the quality checks.
// Failed chunks are skipped, not replaced with placeholders. The joined
// transcript is returned alongside the gate error so callers can surface
// what was rejected.
func (g *Gate) Aggregate(results []Result, probeText string) (string, Stats, error) {
	stats := Stats{Total: len(results)}

	parts := make([]string, 0, len(results))
	for _, res := range results {
		text := strings.TrimSpace(res.Text)
		if !res.Succeeded || text == "" {
			// An empty success contributed nothing to the transcript; the
			// partial-failure warning should count it like an error.
			stats.Failed++
			continue
		}
		parts = append(parts, text)
	}
	transcript := strings.Join(parts, "\n")

	if transcript == "" {
		return transcript, stats, fmt.Errorf("%d/%d chunks produced text: %w",
			stats.Total-stats.Failed, stats.Total, ErrEmptyTranscript)
	}

	if n := utf8.RuneCountInString(transcript); n < g.minChars {
		return transcript, stats, fmt.Errorf("transcript has %d characters, minimum is %d: %w",
			n, g.minChars, ErrTranscriptTooShort)
	}

	if probe := strings.TrimSpace(probeText); probe != "" {
		if ratio, checked := overlapRatio(probe, transcript); checked && ratio < g.minOverlap {
			return transcript, stats, fmt.Errorf("probe overlap %.2f below %.2f (probe %q): %w",
				ratio, g.minOverlap, probe, ErrProbeMismatch)
		}
	}

	return transcript, stats, nil
}

// overlapRatio computes the fraction of probe tokens that also appear in the
// transcript. Returns checked=false when the probe tokenizes to nothing
// (punctuation-only output), in which case the check carries no signal.
func overlapRatio(probe, transcript string) (ratio float64, checked bool) {
	probeTokens := tokenSet(probe)
	if len(probeTokens) == 0 {
		return 0, false
	}
	transcriptTokens := tokenSet(transcript)

	shared := 0
	for tok := range probeTokens {
		if transcriptTokens[tok] {
			shared++
		}
	}
	return float64(shared) / float64(len(probeTokens)), true
}

// tokenSet splits text into a set of case-folded letter/digit runs.
// Runs shorter than minTokenLen are dropped.
func tokenSet(text string) map[string]bool {
	tokens := make(map[string]bool)
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			if tok := b.String(); utf8.RuneCountInString(tok) >= minTokenLen {
				tokens[tok] = true
			}
			b.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
