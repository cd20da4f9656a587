package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dkim-lab/voicenote/internal/audio"
	"github.com/dkim-lab/voicenote/internal/config"
	"github.com/dkim-lab/voicenote/internal/ffmpeg"
	"github.com/dkim-lab/voicenote/internal/format"
	"github.com/dkim-lab/voicenote/internal/lang"
	"github.com/dkim-lab/voicenote/internal/pipeline"
	"github.com/dkim-lab/voicenote/internal/transcribe"
)

// DefaultLanguage is the transcription language when neither flag nor
// config sets one. The service's users record in Korean.
const DefaultLanguage = "ko"

// defaultChunkSeconds is the chunk length when neither flag nor config
// sets one.
const defaultChunkSeconds = 60

// clampParallel constrains parallel request count to [1, MaxRecommendedParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > transcribe.MaxRecommendedParallel {
		return transcribe.MaxRecommendedParallel
	}
	return n
}

// loadInput validates and reads the audio file.
// Validation order: file exists -> format -> non-empty.
func loadInput(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("cannot access input file: %w", err)
	}

	ext := filepath.Ext(path)
	if !audio.AllowedFormat(ext) {
		return nil, fmt.Errorf("unsupported format %q (supported: %s): %w",
			strings.TrimPrefix(ext, "."), audio.AllowedFormatsList(), ErrUnsupportedFormat)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- user-specified input file
	if err != nil {
		return nil, fmt.Errorf("cannot read input file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyUpload, path)
	}
	return data, nil
}

// runOptions collects the flags shared by note and transcribe.
type runOptions struct {
	language     string
	parallel     int
	chunkSeconds int
}

// resolve fills unset options from config, then defaults, and validates the
// language. Locales reduce to their base code, which is all the API accepts.
func (o *runOptions) resolve(cfg config.Config) error {
	if o.language == "" {
		o.language = cfg.Language
	}
	if o.language == "" {
		o.language = DefaultLanguage
	}
	if err := lang.Validate(o.language); err != nil {
		return err
	}
	o.language = lang.BaseCode(o.language)
	if o.parallel == 0 {
		o.parallel = cfg.Concurrency
	}
	if o.parallel == 0 {
		o.parallel = transcribe.DefaultConcurrency
	}
	o.parallel = clampParallel(o.parallel)
	if o.chunkSeconds == 0 {
		o.chunkSeconds = cfg.ChunkSeconds
	}
	if o.chunkSeconds <= 0 {
		o.chunkSeconds = defaultChunkSeconds
	}
	return nil
}

// addRunFlags registers the shared transcription flags on cmd.
func addRunFlags(cmd *cobra.Command, o *runOptions) {
	cmd.Flags().StringVarP(&o.language, "language", "l", "", "Audio language (ISO 639-1 code, default: ko)")
	cmd.Flags().IntVarP(&o.parallel, "parallel", "p", 0, "Max concurrent API requests (1-10)")
	cmd.Flags().IntVar(&o.chunkSeconds, "chunk-seconds", 0, "Chunk length in seconds (default: 60)")
}

// buildPipeline wires the transcription pipeline from the environment.
func buildPipeline(ctx context.Context, env *Env, apiKey string, opts runOptions) (*pipeline.Pipeline, error) {
	ffmpegPath, err := env.FFmpegLocator.Locate()
	if err != nil {
		return nil, err
	}
	env.FFmpegLocator.CheckVersion(ctx, ffmpeg.NewExecutor(), ffmpegPath)

	normalizer, err := audio.NewNormalizer(ffmpegPath)
	if err != nil {
		return nil, err
	}
	encoder, err := audio.NewMP3Encoder(ffmpegPath)
	if err != nil {
		return nil, err
	}

	transcriber := env.TranscriberFactory.NewTranscriber(apiKey)
	dispatcher := transcribe.NewDispatcher(transcriber, encoder,
		transcribe.WithConcurrency(opts.parallel),
		transcribe.WithLanguage(opts.language),
		transcribe.WithProgress(func(completed, total int) {
			fmt.Fprintf(env.Stderr, "Transcribing... %s\n", format.Ratio(completed, total))
		}),
	)
	prober := transcribe.NewProbeSampler(transcriber,
		transcribe.WithProbeLanguage(opts.language))

	return pipeline.New(normalizer, dispatcher, prober,
		pipeline.WithChunkMs(opts.chunkSeconds*1000),
		pipeline.WithWarn(func(msg string) {
			fmt.Fprintf(env.Stderr, "Warning: %s\n", msg)
		}),
	), nil
}

// apiKey reads the OpenAI key from the environment.
func apiKey(env *Env) (string, error) {
	key := env.Getenv(EnvOpenAIAPIKey)
	if key == "" {
		return "", fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvOpenAIAPIKey)
	}
	return key, nil
}

// writeFileExcl creates the output file, refusing to overwrite.
// O_EXCL atomically checks existence and creates the file.
func writeFileExcl(path, content string) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.WriteString(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()
	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}
	return nil
}
