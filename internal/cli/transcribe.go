package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dkim-lab/voicenote/internal/config"
	"github.com/dkim-lab/voicenote/internal/format"
	"github.com/dkim-lab/voicenote/internal/pipeline"
)

// deriveTranscriptPath converts an audio file path to a transcript path.
// Example: "meeting.m4a" -> "meeting.txt"
func deriveTranscriptPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".txt"
}

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var (
		output string
		opts   runOptions
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file to text",
		Long: `Transcribe an audio file using OpenAI's transcription API.

The audio is normalized to 16kHz mono, split into fixed chunks, transcribed
in parallel, and verified against an independently transcribed probe sample
before the transcript is written.

Supported formats: flac, m4a, mp3, mp4, mpeg, mpga, oga, ogg, wav, webm`,
		Example: `  voicenote transcribe meeting.m4a
  voicenote transcribe meeting.m4a -o transcript.txt
  voicenote transcribe lecture.mp3 -l en -p 8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, env, args[0], output, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <input>.txt)")
	addRunFlags(cmd, &opts)

	return cmd
}

// runTranscribe executes the transcription pipeline and writes the raw
// transcript.
func runTranscribe(cmd *cobra.Command, env *Env, inputPath, output string, opts runOptions) error {
	ctx := cmd.Context()

	data, err := loadInput(inputPath)
	if err != nil {
		return err
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}
	if err := opts.resolve(cfg); err != nil {
		return err
	}

	output = config.ResolveOutputPath(output, cfg.OutputDir,
		deriveTranscriptPath(filepath.Base(inputPath)))

	key, err := apiKey(env)
	if err != nil {
		return err
	}

	p, err := buildPipeline(ctx, env, key, opts)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, pipeline.Input{Data: data, Filename: inputPath})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Transcription complete (%s of audio)\n",
		format.Duration(res.Duration))

	if err := writeFileExcl(output, res.Transcript+"\n"); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Done: %s\n", output)
	return nil
}
