package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dkim-lab/voicenote/internal/apierr"
	"github.com/dkim-lab/voicenote/internal/audio"
	"github.com/dkim-lab/voicenote/internal/cli"
	"github.com/dkim-lab/voicenote/internal/config"
	"github.com/dkim-lab/voicenote/internal/ffmpeg"
	"github.com/dkim-lab/voicenote/internal/lang"
	"github.com/dkim-lab/voicenote/internal/note"
	"github.com/dkim-lab/voicenote/internal/pipeline"
	"github.com/dkim-lab/voicenote/internal/summarize"
	"github.com/dkim-lab/voicenote/internal/transcribe"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitSummary       = 6
	ExitInterrupt     = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create the CLI environment with production defaults.
	env := cli.DefaultEnv()

	// Root command.
	rootCmd := &cobra.Command{
		Use:     "voicenote",
		Short:   "Turn meeting recordings into transcripts and structured notes",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Subcommands.
	rootCmd.AddCommand(cli.NoteCmd(env))
	rootCmd.AddCommand(cli.TranscribeCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, cli.ErrAPIKeyMissing) ||
		errors.Is(err, note.ErrNoConverter) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrUnsupportedFormat) ||
		errors.Is(err, cli.ErrEmptyUpload) || errors.Is(err, cli.ErrOutputExists) ||
		errors.Is(err, audio.ErrUnsupportedFormat) || errors.Is(err, audio.ErrEmptyInput) ||
		errors.Is(err, pipeline.ErrAudioTooLong) || errors.Is(err, config.ErrUnknownKey) ||
		errors.Is(err, lang.ErrInvalid) {
		return ExitValidation
	}

	// Transcription errors (ExitTranscription = 5), including quality-gate
	// rejections: the transcript existed but was not trustworthy.
	if errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, audio.ErrDecodeFailed) || errors.Is(err, audio.ErrEncodeFailed) ||
		errors.Is(err, transcribe.ErrEmptyTranscript) ||
		errors.Is(err, transcribe.ErrTranscriptTooShort) ||
		errors.Is(err, transcribe.ErrProbeMismatch) {
		return ExitTranscription
	}

	// Summary errors (ExitSummary = 6).
	if errors.Is(err, summarize.ErrAllModelsFailed) || errors.Is(err, summarize.ErrEmptyTranscript) {
		return ExitSummary
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"flag needs an argument",
	"invalid argument",
	"if any flags in the group",
	"accepts ",
	"requires at least",
	"requires at most",
	"unknown command",
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
