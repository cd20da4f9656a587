// Package pipeline orchestrates the audio-to-transcript flow: normalize,
// plan chunks, dispatch transcriptions in parallel with a verification
// probe, then aggregate behind the quality gate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dkim-lab/voicenote/internal/audio"
	"github.com/dkim-lab/voicenote/internal/format"
	"github.com/dkim-lab/voicenote/internal/transcribe"
)

// MaxDurationMs caps accepted recordings at two hours. Longer meetings
// should be split before upload.
const MaxDurationMs = 2 * 60 * 60 * 1000

// ErrAudioTooLong indicates the recording exceeds the duration cap.
var ErrAudioTooLong = errors.New("audio too long")

// Normalizer decodes uploaded bytes into the canonical PCM stream and
// measures duration from container metadata. *audio.Normalizer implements
// this.
type Normalizer interface {
	Normalize(ctx context.Context, data []byte, ext string) (*audio.Stream, error)
	DurationMs(ctx context.Context, data []byte, ext string) (int, error)
}

// Dispatcher transcribes planned chunks. *transcribe.Dispatcher implements
// this.
type Dispatcher interface {
	Dispatch(ctx context.Context, chunks []audio.Chunk) ([]transcribe.Result, error)
}

// Prober produces the verification probe text. *transcribe.ProbeSampler
// implements this.
type Prober interface {
	Probe(ctx context.Context, src *audio.Stream) (string, error)
}

// Input is one uploaded recording.
type Input struct {
	Data     []byte
	Filename string // Extension declares the container format.
}

// Result is a verified transcript with run statistics.
type Result struct {
	Transcript string
	Probe      string
	Duration   time.Duration
	Stats      transcribe.Stats
}

// Pipeline runs uploads end to end. Collaborators are injected so tests can
// run the full flow without FFmpeg or the network.
type Pipeline struct {
	normalizer Normalizer
	dispatcher Dispatcher
	prober     Prober
	gate       *transcribe.Gate
	chunkMs    int
	maxMs      int
	warn       func(string)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunkMs sets the chunk duration in milliseconds.
func WithChunkMs(ms int) Option {
	return func(p *Pipeline) {
		if ms > 0 {
			p.chunkMs = ms
		}
	}
}

// WithMaxDurationMs sets the recording duration cap in milliseconds.
func WithMaxDurationMs(ms int) Option {
	return func(p *Pipeline) {
		if ms > 0 {
			p.maxMs = ms
		}
	}
}

// WithGate sets the quality gate.
func WithGate(g *transcribe.Gate) Option {
	return func(p *Pipeline) { p.gate = g }
}

// WithWarn sets the sink for non-fatal warnings (partial chunk failures).
func WithWarn(fn func(string)) Option {
	return func(p *Pipeline) { p.warn = fn }
}

// New creates a Pipeline.
func New(n Normalizer, d Dispatcher, pr Prober, opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizer: n,
		dispatcher: d,
		prober:     pr,
		gate:       transcribe.NewGate(),
		chunkMs:    audio.DefaultChunkMs,
		maxMs:      MaxDurationMs,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one upload and returns the verified transcript.
// The dispatcher and the probe sampler run concurrently; the probe never
// fails the run by itself, only through the gate's overlap check.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	ext := strings.TrimPrefix(filepath.Ext(in.Filename), ".")

	// Cheap metadata probe first, so an over-long upload is rejected before
	// paying for a full decode. Unavailable metadata falls through to the
	// decoded-length check below.
	if ms, err := p.normalizer.DurationMs(ctx, in.Data, ext); err == nil && ms > p.maxMs {
		return nil, p.tooLongError(ms)
	}

	stream, err := p.normalizer.Normalize(ctx, in.Data, ext)
	if err != nil {
		return nil, err
	}

	durationMs := stream.DurationMs()
	if durationMs > p.maxMs {
		return nil, p.tooLongError(durationMs)
	}

	res := &Result{Duration: time.Duration(durationMs) * time.Millisecond}

	chunks := audio.Plan(stream, p.chunkMs)
	if len(chunks) == 0 {
		return res, nil
	}

	var (
		results []transcribe.Result
		probe   string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var derr error
		results, derr = p.dispatcher.Dispatch(gctx, chunks)
		return derr
	})
	g.Go(func() error {
		var perr error
		probe, perr = p.prober.Probe(gctx, stream)
		return perr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	transcript, stats, err := p.gate.Aggregate(results, probe)
	res.Transcript = transcript
	res.Probe = probe
	res.Stats = stats
	if err != nil {
		return res, err
	}

	if stats.Failed > 0 && p.warn != nil {
		p.warn(fmt.Sprintf("%s chunks transcribed; %d failed and were skipped",
			format.Ratio(stats.Total-stats.Failed, stats.Total), stats.Failed))
	}
	return res, nil
}

func (p *Pipeline) tooLongError(durationMs int) error {
	return fmt.Errorf("recording is %s, maximum is %s: %w",
		format.Duration(time.Duration(durationMs)*time.Millisecond),
		format.Duration(time.Duration(p.maxMs)*time.Millisecond),
		ErrAudioTooLong)
}
