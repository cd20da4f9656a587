package transcribe

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dkim-lab/voicenote/internal/audio"
)

// Result is the outcome of transcribing one chunk. Failed chunks keep their
// slot with Succeeded false so the transcript stays index-aligned.
type Result struct {
	ChunkIndex int
	Text       string
	Succeeded  bool
	Err        error // Nil when Succeeded.
}

// ProgressFunc is called after each chunk finishes, success or failure.
// Calls are serialized and completed is monotonically increasing, so a sink
// that prints or renders progress never sees it go backwards.
type ProgressFunc func(completed, total int)

// Encoder compresses a PCM stream into an upload payload.
// *audio.MP3Encoder implements this.
type Encoder interface {
	Encode(ctx context.Context, s *audio.Stream) ([]byte, error)
}

// Dispatcher transcribes planned chunks through a bounded worker pool.
// Each chunk is encoded and uploaded independently; one failing chunk never
// aborts the others.
type Dispatcher struct {
	transcriber Transcriber
	encoder     Encoder
	concurrency int
	language    string
	progress    ProgressFunc
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithConcurrency sets the maximum number of parallel transcriptions.
func WithConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithLanguage sets the ISO 639-1 language hint for every chunk.
func WithLanguage(lang string) DispatcherOption {
	return func(d *Dispatcher) { d.language = lang }
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) DispatcherOption {
	return func(d *Dispatcher) { d.progress = fn }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(t Transcriber, enc Encoder, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		transcriber: t,
		encoder:     enc,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch transcribes all chunks and returns one Result per chunk, in chunk
// order regardless of completion order. Per-chunk failures are recorded in
// their slot; the only error returned is context cancellation, which discards
// the whole run.
func (d *Dispatcher) Dispatch(ctx context.Context, chunks []audio.Chunk) ([]Result, error) {
	total := len(chunks)
	if total == 0 {
		return nil, nil
	}

	workers := d.concurrency
	if workers > total {
		workers = total
	}

	results := make([]Result, total)
	sem := make(chan struct{}, workers)

	// The increment and the callback must be one step: a bare counter lets a
	// later finisher deliver its count first and the sink observe progress
	// running backwards.
	var progressMu sync.Mutex
	completed := 0
	report := func() {
		if d.progress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		completed++
		d.progress(completed, total)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			results[chunk.Index] = d.transcribeChunk(gctx, chunk)
			if gctx.Err() != nil {
				// A cancelled run reports no partial progress.
				return gctx.Err()
			}
			report()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Dispatcher) transcribeChunk(ctx context.Context, chunk audio.Chunk) Result {
	res := Result{ChunkIndex: chunk.Index}

	payload, err := d.encoder.Encode(ctx, chunk.Audio)
	if err != nil {
		res.Err = fmt.Errorf("chunk %d encode: %w", chunk.Index, err)
		return res
	}

	text, err := d.transcriber.Transcribe(ctx, Request{
		Audio:    payload,
		Filename: fmt.Sprintf("chunk_%d.mp3", chunk.Index),
		Language: d.language,
	})
	if err != nil {
		res.Err = fmt.Errorf("chunk %d: %w", chunk.Index, err)
		return res
	}

	res.Text = text
	res.Succeeded = true
	return res
}
