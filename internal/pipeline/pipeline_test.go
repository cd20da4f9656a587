package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dkim-lab/voicenote/internal/audio"
	"github.com/dkim-lab/voicenote/internal/pipeline"
	"github.com/dkim-lab/voicenote/internal/transcribe"
)

type mockNormalizer struct {
	normalize  func(ctx context.Context, data []byte, ext string) (*audio.Stream, error)
	durationMs func(ctx context.Context, data []byte, ext string) (int, error)
}

func (m *mockNormalizer) Normalize(ctx context.Context, data []byte, ext string) (*audio.Stream, error) {
	return m.normalize(ctx, data, ext)
}

func (m *mockNormalizer) DurationMs(ctx context.Context, data []byte, ext string) (int, error) {
	if m.durationMs == nil {
		return 0, audio.ErrDurationUnavailable
	}
	return m.durationMs(ctx, data, ext)
}

type mockDispatcher struct {
	dispatch func(ctx context.Context, chunks []audio.Chunk) ([]transcribe.Result, error)
}

func (m *mockDispatcher) Dispatch(ctx context.Context, chunks []audio.Chunk) ([]transcribe.Result, error) {
	return m.dispatch(ctx, chunks)
}

type mockProber struct {
	probe func(ctx context.Context, src *audio.Stream) (string, error)
}

func (m *mockProber) Probe(ctx context.Context, src *audio.Stream) (string, error) {
	return m.probe(ctx, src)
}

// streamOf returns a PCM stream of the given duration at the canonical
// 16kHz mono 16-bit rate.
func streamOf(ms int) *audio.Stream {
	return &audio.Stream{PCM: make([]byte, ms*32)}
}

func normalizerOf(s *audio.Stream) *mockNormalizer {
	return &mockNormalizer{normalize: func(context.Context, []byte, string) (*audio.Stream, error) {
		return s, nil
	}}
}

func echoDispatcher(text string) *mockDispatcher {
	return &mockDispatcher{dispatch: func(_ context.Context, chunks []audio.Chunk) ([]transcribe.Result, error) {
		results := make([]transcribe.Result, len(chunks))
		for i := range chunks {
			results[i] = transcribe.Result{ChunkIndex: i, Text: fmt.Sprintf("%s %d", text, i), Succeeded: true}
		}
		return results, nil
	}}
}

func fixedProber(text string) *mockProber {
	return &mockProber{probe: func(context.Context, *audio.Stream) (string, error) {
		return text, nil
	}}
}

func TestRun(t *testing.T) {
	t.Parallel()

	input := pipeline.Input{Data: []byte("upload"), Filename: "meeting.m4a"}

	t.Run("end to end with matching probe", func(t *testing.T) {
		t.Parallel()

		var gotExt string
		n := &mockNormalizer{normalize: func(_ context.Context, data []byte, ext string) (*audio.Stream, error) {
			gotExt = ext
			return streamOf(125_000), nil
		}}
		var gotChunks int
		d := &mockDispatcher{dispatch: func(_ context.Context, chunks []audio.Chunk) ([]transcribe.Result, error) {
			gotChunks = len(chunks)
			return echoDispatcher("segment transcript text").dispatch(nil, chunks)
		}}

		p := pipeline.New(n, d, fixedProber("segment transcript"))
		res, err := p.Run(context.Background(), input)
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}

		if gotExt != "m4a" {
			t.Errorf("ext = %q, want m4a", gotExt)
		}
		if gotChunks != 3 {
			t.Errorf("chunks = %d, want 3 (60s + 60s + 5s)", gotChunks)
		}
		if res.Duration != 125*time.Second {
			t.Errorf("Duration = %v, want 2m5s", res.Duration)
		}
		if strings.Count(res.Transcript, "\n") != 2 {
			t.Errorf("transcript should join 3 chunks: %q", res.Transcript)
		}
		if res.Stats.Total != 3 || res.Stats.Failed != 0 {
			t.Errorf("stats = %+v", res.Stats)
		}
	})

	t.Run("normalize failure aborts the run", func(t *testing.T) {
		t.Parallel()

		n := &mockNormalizer{normalize: func(context.Context, []byte, string) (*audio.Stream, error) {
			return nil, audio.ErrDecodeFailed
		}}
		p := pipeline.New(n, echoDispatcher("x"), fixedProber(""))
		if _, err := p.Run(context.Background(), input); !errors.Is(err, audio.ErrDecodeFailed) {
			t.Errorf("error = %v, want ErrDecodeFailed", err)
		}
	})

	t.Run("recording over the cap is rejected", func(t *testing.T) {
		t.Parallel()

		// No metadata duration: the cap still holds via the decoded length.
		p := pipeline.New(normalizerOf(streamOf(10_000)), echoDispatcher("x"), fixedProber(""),
			pipeline.WithMaxDurationMs(5_000))
		_, err := p.Run(context.Background(), input)
		if !errors.Is(err, pipeline.ErrAudioTooLong) {
			t.Errorf("error = %v, want ErrAudioTooLong", err)
		}
	})

	t.Run("over-cap metadata duration rejects before decoding", func(t *testing.T) {
		t.Parallel()

		n := &mockNormalizer{
			durationMs: func(context.Context, []byte, string) (int, error) {
				return 3 * 60 * 60 * 1000, nil
			},
			normalize: func(context.Context, []byte, string) (*audio.Stream, error) {
				t.Error("over-long upload should not be decoded")
				return nil, nil
			},
		}
		p := pipeline.New(n, echoDispatcher("x"), fixedProber(""))
		_, err := p.Run(context.Background(), input)
		if !errors.Is(err, pipeline.ErrAudioTooLong) {
			t.Errorf("error = %v, want ErrAudioTooLong", err)
		}
	})

	t.Run("empty recording yields an empty result without dispatch", func(t *testing.T) {
		t.Parallel()

		d := &mockDispatcher{dispatch: func(context.Context, []audio.Chunk) ([]transcribe.Result, error) {
			t.Error("dispatcher should not run")
			return nil, nil
		}}
		p := pipeline.New(normalizerOf(&audio.Stream{}), d, fixedProber(""))
		res, err := p.Run(context.Background(), input)
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if res.Transcript != "" || res.Duration != 0 {
			t.Errorf("result = %+v, want empty", res)
		}
	})

	t.Run("gate failure still returns the transcript and stats", func(t *testing.T) {
		t.Parallel()

		p := pipeline.New(normalizerOf(streamOf(60_000)), echoDispatcher("alpha beta gamma delta epsilon zeta"),
			fixedProber("unrelated probe words entirely different vocabulary here"))
		res, err := p.Run(context.Background(), input)
		if !errors.Is(err, transcribe.ErrProbeMismatch) {
			t.Fatalf("error = %v, want ErrProbeMismatch", err)
		}
		if res == nil || res.Transcript == "" {
			t.Error("rejected transcript should still be returned for inspection")
		}
		if res.Stats.Total != 1 {
			t.Errorf("stats = %+v", res.Stats)
		}
	})

	t.Run("partial chunk failure warns but succeeds", func(t *testing.T) {
		t.Parallel()

		d := &mockDispatcher{dispatch: func(_ context.Context, chunks []audio.Chunk) ([]transcribe.Result, error) {
			results := make([]transcribe.Result, len(chunks))
			for i := range chunks {
				if i == 1 {
					results[i] = transcribe.Result{ChunkIndex: i, Err: errors.New("boom")}
					continue
				}
				results[i] = transcribe.Result{
					ChunkIndex: i,
					Text:       strings.Repeat("filler text ", 3),
					Succeeded:  true,
				}
			}
			return results, nil
		}}

		var warning string
		p := pipeline.New(normalizerOf(streamOf(180_000)), d, fixedProber("filler text"),
			pipeline.WithWarn(func(msg string) { warning = msg }))
		res, err := p.Run(context.Background(), input)
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if res.Stats.Failed != 1 {
			t.Errorf("stats.Failed = %d, want 1", res.Stats.Failed)
		}
		if !strings.Contains(warning, "2/3") {
			t.Errorf("warning = %q, want success ratio", warning)
		}
	})

	t.Run("dispatch failure aborts the run", func(t *testing.T) {
		t.Parallel()

		d := &mockDispatcher{dispatch: func(context.Context, []audio.Chunk) ([]transcribe.Result, error) {
			return nil, context.Canceled
		}}
		p := pipeline.New(normalizerOf(streamOf(60_000)), d, fixedProber(""))
		if _, err := p.Run(context.Background(), input); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("probe and dispatch run concurrently", func(t *testing.T) {
		t.Parallel()

		probeStarted := make(chan struct{})
		d := &mockDispatcher{dispatch: func(ctx context.Context, chunks []audio.Chunk) ([]transcribe.Result, error) {
			select {
			case <-probeStarted:
			case <-time.After(2 * time.Second):
				t.Error("probe did not start while dispatch was running")
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return echoDispatcher("concurrent run produced this text").dispatch(ctx, chunks)
		}}
		pr := &mockProber{probe: func(context.Context, *audio.Stream) (string, error) {
			close(probeStarted)
			return "concurrent run", nil
		}}

		p := pipeline.New(normalizerOf(streamOf(60_000)), d, pr)
		if _, err := p.Run(context.Background(), input); err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	})

	t.Run("custom chunk duration is honored", func(t *testing.T) {
		t.Parallel()

		var gotChunks int
		d := &mockDispatcher{dispatch: func(_ context.Context, chunks []audio.Chunk) ([]transcribe.Result, error) {
			gotChunks = len(chunks)
			return echoDispatcher("thirty second chunk text").dispatch(nil, chunks)
		}}
		p := pipeline.New(normalizerOf(streamOf(90_000)), d, fixedProber("thirty second"),
			pipeline.WithChunkMs(30_000))
		if _, err := p.Run(context.Background(), input); err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if gotChunks != 3 {
			t.Errorf("chunks = %d, want 3", gotChunks)
		}
	})
}
