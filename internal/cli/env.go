// Package cli implements the voicenote commands: note, transcribe, and
// config.
package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dkim-lab/voicenote/internal/config"
	"github.com/dkim-lab/voicenote/internal/ffmpeg"
	"github.com/dkim-lab/voicenote/internal/note"
	"github.com/dkim-lab/voicenote/internal/summarize"
	"github.com/dkim-lab/voicenote/internal/transcribe"
)

// EnvOpenAIAPIKey is the environment variable holding the API key.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// transcribeHTTPTimeout bounds one transcription upload round-trip.
const transcribeHTTPTimeout = 3 * time.Minute

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Factories for domain objects
	FFmpegLocator      FFmpegLocator
	ConfigLoader       ConfigLoader
	TranscriberFactory TranscriberFactory
	SummarizerFactory  SummarizerFactory
	PDFExporter        PDFExporter
}

// FFmpegLocator finds the FFmpeg binary and checks its version.
type FFmpegLocator interface {
	Locate() (string, error)
	CheckVersion(ctx context.Context, exec *ffmpeg.Executor, ffmpegPath string) bool
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// TranscriberFactory creates transcribers for audio-to-text conversion.
type TranscriberFactory interface {
	NewTranscriber(apiKey string) transcribe.Transcriber
}

// SummarizerFactory creates summarizers for transcript structuring.
type SummarizerFactory interface {
	NewSummarizer(apiKey string) summarize.Summarizer
}

// PDFExporter converts a rendered note to PDF.
type PDFExporter interface {
	Export(ctx context.Context, mdText, outPath string) error
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) { e.Now = fn }
}

// WithFFmpegLocator sets the FFmpeg locator.
func WithFFmpegLocator(l FFmpegLocator) EnvOption {
	return func(e *Env) { e.FFmpegLocator = l }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithTranscriberFactory sets the transcriber factory.
func WithTranscriberFactory(f TranscriberFactory) EnvOption {
	return func(e *Env) { e.TranscriberFactory = f }
}

// WithSummarizerFactory sets the summarizer factory.
func WithSummarizerFactory(f SummarizerFactory) EnvOption {
	return func(e *Env) { e.SummarizerFactory = f }
}

// WithPDFExporter sets the PDF exporter.
func WithPDFExporter(p PDFExporter) EnvOption {
	return func(e *Env) { e.PDFExporter = p }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr:             os.Stderr,
		Getenv:             os.Getenv,
		Now:                time.Now,
		FFmpegLocator:      ffmpeg.NewLocator(),
		ConfigLoader:       &defaultConfigLoader{},
		TranscriberFactory: &defaultTranscriberFactory{},
		SummarizerFactory:  &defaultSummarizerFactory{},
		PDFExporter:        note.NewPDFExporter(),
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultTranscriberFactory implements TranscriberFactory using OpenAI.
type defaultTranscriberFactory struct{}

func (defaultTranscriberFactory) NewTranscriber(apiKey string) transcribe.Transcriber {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: transcribeHTTPTimeout}
	return transcribe.NewOpenAITranscriber(openai.NewClientWithConfig(cfg))
}

// defaultSummarizerFactory implements SummarizerFactory using OpenAI.
type defaultSummarizerFactory struct{}

func (defaultSummarizerFactory) NewSummarizer(apiKey string) summarize.Summarizer {
	return summarize.NewOpenAISummarizer(openai.NewClient(apiKey))
}

// Compile-time interface verification.
var (
	_ FFmpegLocator      = (*ffmpeg.Locator)(nil)
	_ ConfigLoader       = (*defaultConfigLoader)(nil)
	_ TranscriberFactory = (*defaultTranscriberFactory)(nil)
	_ SummarizerFactory  = (*defaultSummarizerFactory)(nil)
	_ PDFExporter        = (*note.PDFExporter)(nil)
)
