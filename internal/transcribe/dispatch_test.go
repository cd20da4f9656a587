package transcribe_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkim-lab/voicenote/internal/audio"
	"github.com/dkim-lab/voicenote/internal/transcribe"
)

// mockTranscriber implements transcribe.Transcriber with a function field.
type mockTranscriber struct {
	transcribe func(ctx context.Context, req transcribe.Request) (string, error)
}

func (m *mockTranscriber) Transcribe(ctx context.Context, req transcribe.Request) (string, error) {
	return m.transcribe(ctx, req)
}

// mockEncoder implements the chunk encoder with a function field.
type mockEncoder struct {
	encode func(ctx context.Context, s *audio.Stream) ([]byte, error)
}

func (m *mockEncoder) Encode(ctx context.Context, s *audio.Stream) ([]byte, error) {
	return m.encode(ctx, s)
}

func passthroughEncoder() *mockEncoder {
	return &mockEncoder{encode: func(_ context.Context, s *audio.Stream) ([]byte, error) {
		return s.PCM, nil
	}}
}

// planChunks builds n chunks of 100ms each.
func planChunks(n int) []audio.Chunk {
	src := &audio.Stream{PCM: make([]byte, n*100*32)}
	return audio.Plan(src, 100)
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	t.Run("results land in chunk order regardless of completion order", func(t *testing.T) {
		t.Parallel()

		chunks := planChunks(5)
		tr := &mockTranscriber{transcribe: func(_ context.Context, req transcribe.Request) (string, error) {
			// Later chunks finish first.
			var idx int
			fmt.Sscanf(req.Filename, "chunk_%d.mp3", &idx)
			time.Sleep(time.Duration(len(chunks)-idx) * 5 * time.Millisecond)
			return fmt.Sprintf("text-%d", idx), nil
		}}

		d := transcribe.NewDispatcher(tr, passthroughEncoder(), transcribe.WithConcurrency(5))
		results, err := d.Dispatch(context.Background(), chunks)
		if err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}

		if len(results) != 5 {
			t.Fatalf("len(results) = %d, want 5", len(results))
		}
		for i, res := range results {
			if res.ChunkIndex != i {
				t.Errorf("results[%d].ChunkIndex = %d", i, res.ChunkIndex)
			}
			if want := fmt.Sprintf("text-%d", i); res.Text != want {
				t.Errorf("results[%d].Text = %q, want %q", i, res.Text, want)
			}
			if !res.Succeeded {
				t.Errorf("results[%d].Succeeded = false", i)
			}
		}
	})

	t.Run("one failing chunk does not abort the rest", func(t *testing.T) {
		t.Parallel()

		chunks := planChunks(4)
		tr := &mockTranscriber{transcribe: func(_ context.Context, req transcribe.Request) (string, error) {
			if strings.HasPrefix(req.Filename, "chunk_2.") {
				return "", errors.New("boom")
			}
			return "ok", nil
		}}

		d := transcribe.NewDispatcher(tr, passthroughEncoder())
		results, err := d.Dispatch(context.Background(), chunks)
		if err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}

		for i, res := range results {
			wantOK := i != 2
			if res.Succeeded != wantOK {
				t.Errorf("results[%d].Succeeded = %v, want %v", i, res.Succeeded, wantOK)
			}
		}
		if results[2].Err == nil {
			t.Error("failed chunk should record its error")
		}
	})

	t.Run("encode failure is recorded per chunk", func(t *testing.T) {
		t.Parallel()

		chunks := planChunks(2)
		enc := &mockEncoder{encode: func(_ context.Context, s *audio.Stream) ([]byte, error) {
			return nil, audio.ErrEncodeFailed
		}}
		tr := &mockTranscriber{transcribe: func(context.Context, transcribe.Request) (string, error) {
			t.Error("transcriber should not run when encoding fails")
			return "", nil
		}}

		d := transcribe.NewDispatcher(tr, enc)
		results, err := d.Dispatch(context.Background(), chunks)
		if err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
		for i, res := range results {
			if res.Succeeded {
				t.Errorf("results[%d].Succeeded = true, want false", i)
			}
			if !errors.Is(res.Err, audio.ErrEncodeFailed) {
				t.Errorf("results[%d].Err = %v, want ErrEncodeFailed", i, res.Err)
			}
		}
	})

	t.Run("progress reports every chunk exactly once", func(t *testing.T) {
		t.Parallel()

		chunks := planChunks(6)
		tr := &mockTranscriber{transcribe: func(context.Context, transcribe.Request) (string, error) {
			return "ok", nil
		}}

		var mu sync.Mutex
		var seen []int
		d := transcribe.NewDispatcher(tr, passthroughEncoder(),
			transcribe.WithConcurrency(1), // serial: progress must be strictly increasing
			transcribe.WithProgress(func(completed, total int) {
				if total != 6 {
					t.Errorf("total = %d, want 6", total)
				}
				mu.Lock()
				seen = append(seen, completed)
				mu.Unlock()
			}),
		)

		if _, err := d.Dispatch(context.Background(), chunks); err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}

		if len(seen) != 6 {
			t.Fatalf("progress calls = %d, want 6", len(seen))
		}
		for i, c := range seen {
			if c != i+1 {
				t.Errorf("progress[%d] = %d, want %d", i, c, i+1)
			}
		}
	})

	t.Run("progress never regresses under concurrency", func(t *testing.T) {
		t.Parallel()

		chunks := planChunks(2)

		// Barrier: both chunks finish transcription at the same moment, so
		// both workers race to deliver their completion.
		var barrier sync.WaitGroup
		barrier.Add(len(chunks))
		tr := &mockTranscriber{transcribe: func(context.Context, transcribe.Request) (string, error) {
			barrier.Done()
			barrier.Wait()
			return "ok", nil
		}}

		var mu sync.Mutex
		var seen []int
		d := transcribe.NewDispatcher(tr, passthroughEncoder(),
			transcribe.WithConcurrency(2),
			transcribe.WithProgress(func(completed, total int) {
				// Stall the first delivery; a racing second delivery must
				// wait rather than arrive ahead of it.
				if completed == 1 {
					time.Sleep(20 * time.Millisecond)
				}
				mu.Lock()
				seen = append(seen, completed)
				mu.Unlock()
			}),
		)

		if _, err := d.Dispatch(context.Background(), chunks); err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
		for i := 1; i < len(seen); i++ {
			if seen[i] < seen[i-1] {
				t.Fatalf("progress regressed: %v", seen)
			}
		}
		if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
			t.Errorf("progress sequence = %v, want [1 2]", seen)
		}
	})

	t.Run("cancellation discards the run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		chunks := planChunks(8)
		tr := &mockTranscriber{transcribe: func(ctx context.Context, _ transcribe.Request) (string, error) {
			cancel()
			<-ctx.Done()
			return "", ctx.Err()
		}}

		d := transcribe.NewDispatcher(tr, passthroughEncoder(), transcribe.WithConcurrency(2))
		results, err := d.Dispatch(ctx, chunks)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if results != nil {
			t.Error("cancelled run should not return partial results")
		}
	})

	t.Run("no chunks yields no results", func(t *testing.T) {
		t.Parallel()

		tr := &mockTranscriber{transcribe: func(context.Context, transcribe.Request) (string, error) {
			t.Error("transcriber should not run")
			return "", nil
		}}
		d := transcribe.NewDispatcher(tr, passthroughEncoder())

		results, err := d.Dispatch(context.Background(), nil)
		if err != nil || results != nil {
			t.Errorf("Dispatch(nil) = (%v, %v), want (nil, nil)", results, err)
		}
	})
}
