package audio

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dkim-lab/voicenote/internal/ffmpeg"
)

// allowedFormats lists the container extensions accepted for upload.
// Matches the set accepted by the transcription API.
var allowedFormats = map[string]bool{
	"flac": true,
	"m4a":  true,
	"mp3":  true,
	"mp4":  true,
	"mpeg": true,
	"mpga": true,
	"oga":  true,
	"ogg":  true,
	"wav":  true,
	"webm": true,
}

// AllowedFormat reports whether the declared extension (with or without a
// leading dot, any case) is accepted.
func AllowedFormat(ext string) bool {
	return allowedFormats[normalizeExt(ext)]
}

// AllowedFormatsList returns a sorted, comma-separated list for error
// messages. Sorted for deterministic output in tests and user-facing text.
func AllowedFormatsList() string {
	formats := make([]string, 0, len(allowedFormats))
	for ext := range allowedFormats {
		formats = append(formats, ext)
	}
	slices.Sort(formats)
	return strings.Join(formats, ", ")
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Normalizer decodes uploaded audio bytes into the canonical in-memory
// stream (16 kHz mono 16-bit PCM) using FFmpeg.
type Normalizer struct {
	ffmpegPath string
	cmd        commandRunner
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) NormalizerOption {
	return func(n *Normalizer) { n.cmd = r }
}

// NewNormalizer creates a Normalizer using the FFmpeg binary at ffmpegPath.
func NewNormalizer(ffmpegPath string, opts ...NormalizerOption) (*Normalizer, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	n := &Normalizer{
		ffmpegPath: ffmpegPath,
		cmd:        ffmpeg.NewExecutor(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Normalize decodes the uploaded bytes and resamples them to the canonical
// stream. The declared extension gates the accepted format set and serves
// as a container hint; if decoding with the hint fails, one retry without
// it lets FFmpeg sniff the content. Staged temp files are removed on every
// exit path.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, ext string) (*Stream, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	ext = normalizeExt(ext)
	if !allowedFormats[ext] {
		return nil, fmt.Errorf("unsupported format %q (supported: %s): %w",
			ext, AllowedFormatsList(), ErrUnsupportedFormat)
	}

	pcm, err := n.decode(ctx, data, "."+ext)
	if err != nil {
		// Degrade: retry once without the format hint so FFmpeg sniffs
		// the content. Never retried against the network.
		pcm, err = n.decode(ctx, data, "")
	}
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: decoder produced no samples", ErrDecodeFailed)
	}

	return &Stream{PCM: pcm}, nil
}

// DurationMs measures the total duration of the uploaded audio.
// Container metadata from the decoder's probe output is preferred (no full
// decode); if that yields nothing, falls back to decoding and counting
// samples. Returns ErrDurationUnavailable when both paths fail.
func (n *Normalizer) DurationMs(ctx context.Context, data []byte, ext string) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyInput
	}

	path, cleanup, err := stage(data, "."+normalizeExt(ext))
	if err == nil {
		output, _ := n.cmd.RunOutput(ctx, n.ffmpegPath, []string{"-hide_banner", "-i", path, "-f", "null", "-"})
		cleanup()
		if d, perr := parseDurationOutput(output); perr == nil && d > 0 {
			return int(d / time.Millisecond), nil
		}
	}

	stream, err := n.Normalize(ctx, data, ext)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDurationUnavailable, err)
	}
	if ms := stream.DurationMs(); ms > 0 {
		return ms, nil
	}
	return 0, ErrDurationUnavailable
}

// decode stages the bytes to a temp file and runs FFmpeg to produce
// canonical PCM on stdout.
func (n *Normalizer) decode(ctx context.Context, data []byte, suffix string) ([]byte, error) {
	path, cleanup, err := stage(data, suffix)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"pipe:1",
	}

	stdout, stderr, err := n.cmd.RunPipe(ctx, n.ffmpegPath, args, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v\nOutput: %s", ErrDecodeFailed, err, stderr)
	}
	return stdout, nil
}

// stage writes data to a temp file for the external decoder and returns its
// path with a cleanup function. FFmpeg needs seekable input for several
// containers (m4a/mp4), so piping stdin is not enough.
func stage(data []byte, suffix string) (string, func(), error) {
	f, err := os.CreateTemp("", "voicenote-*"+suffix)
	if err != nil {
		return "", nil, fmt.Errorf("failed to stage audio: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to stage audio: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to stage audio: %w", err)
	}
	return path, cleanup, nil
}

// parseDurationOutput extracts duration from FFmpeg stderr.
// Looks for: "Duration: HH:MM:SS.ms"
func parseDurationOutput(output string) (time.Duration, error) {
	durationRe := regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	matches := durationRe.FindStringSubmatch(output)
	if matches == nil {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output")
	}
	return parseTimeComponents(matches[1], matches[2], matches[3], matches[4]), nil
}

// parseTimeComponents converts HH:MM:SS.ms strings to Duration.
func parseTimeComponents(hours, minutes, seconds, fractional string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	// Normalize fractional part to milliseconds.
	// Input may be 1-6+ digits (e.g., ".4", ".45", ".456", ".456789").
	frac, _ := strconv.Atoi(fractional)
	ms := frac
	switch n := len(fractional); {
	case n == 1:
		ms = frac * 100
	case n == 2:
		ms = frac * 10
	case n > 3:
		for i := n; i > 3; i-- {
			ms /= 10
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
}
