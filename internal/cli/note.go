package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dkim-lab/voicenote/internal/config"
	"github.com/dkim-lab/voicenote/internal/note"
	"github.com/dkim-lab/voicenote/internal/pipeline"
	"github.com/dkim-lab/voicenote/internal/summarize"
)

// Document type flag values.
const (
	docTypeAuto     = "auto"
	docTypeGeneral  = string(summarize.DocGeneral)
	docTypeResearch = string(summarize.DocResearch)
)

// NoteCmd creates the note command: the full upload-to-note flow.
// The env parameter provides injectable dependencies for testing.
func NoteCmd(env *Env) *cobra.Command {
	var (
		output  string
		pdf     bool
		docType string
		meta    note.Meta
		opts    runOptions
	)

	cmd := &cobra.Command{
		Use:   "note <audio-file>",
		Short: "Turn a meeting recording into a structured note",
		Long: `Transcribe a meeting recording, summarize it, and render a Korean
meeting-minutes or research-note markdown document.

The document type is detected from the summary unless --type forces one.
Research notes get an extra extraction pass for objective, methods,
results, and limitations.`,
		Example: `  voicenote note meeting.m4a --title "정기 운영회의" --date 2026-01-15
  voicenote note lab.mp3 --type research --project "IRB-2026-014" --pdf
  voicenote note standup.wav -o standup.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNote(cmd, env, args[0], output, pdf, docType, meta, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output markdown path (default: derived from title)")
	cmd.Flags().BoolVar(&pdf, "pdf", false, "Also export a PDF next to the markdown")
	cmd.Flags().StringVar(&docType, "type", docTypeAuto, "Document type: auto, general, research")
	cmd.Flags().StringVar(&meta.Title, "title", "", "Meeting title")
	cmd.Flags().StringVar(&meta.Date, "date", "", "Meeting date (free-form, e.g. 2026-01-15 or '26년 1월 15일')")
	cmd.Flags().StringVar(&meta.Place, "place", "", "Meeting place")
	cmd.Flags().StringVar(&meta.Attendees, "attendees", "", "Attendees")
	cmd.Flags().StringVar(&meta.Host, "host", "", "Meeting host")
	cmd.Flags().StringVar(&meta.Scribe, "scribe", "", "Scribe")
	cmd.Flags().StringVar(&meta.Project, "project", "", "Project identifier (research notes)")
	addRunFlags(cmd, &opts)

	return cmd
}

// runNote executes transcription, summarization, classification, and
// rendering.
func runNote(cmd *cobra.Command, env *Env, inputPath, output string, pdf bool, docTypeFlag string, meta note.Meta, opts runOptions) error {
	ctx := cmd.Context()

	if docTypeFlag != docTypeAuto && docTypeFlag != docTypeGeneral && docTypeFlag != docTypeResearch {
		return fmt.Errorf("invalid --type %q (valid: auto, general, research)", docTypeFlag)
	}

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

	key, err := apiKey(env)
	if err != nil {
		return err
	}

	// === TRANSCRIPTION ===

	p, err := buildPipeline(ctx, env, key, opts)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, pipeline.Input{Data: data, Filename: inputPath})
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Stderr, "Transcription complete")

	// === SUMMARY ===

	fmt.Fprintln(env.Stderr, "Summarizing...")
	summarizer := env.SummarizerFactory.NewSummarizer(key)
	summary, err := summarizer.Summarize(ctx, res.Transcript, meta.Date)
	if err != nil {
		return err
	}

	docType := summarize.Classify(summary)
	if docTypeFlag != docTypeAuto {
		docType = summarize.DocType(docTypeFlag)
	}
	fmt.Fprintf(env.Stderr, "Document type: %s\n", docType)

	var enrich *summarize.ResearchEnrich
	if docType == summarize.DocResearch {
		fmt.Fprintln(env.Stderr, "Extracting research structure...")
		enrich, err = summarizer.Enrich(ctx, res.Transcript, meta.Date, summary)
		if err != nil {
			// A research note without enrichment is still a usable general
			// note; degrade instead of discarding the summary.
			fmt.Fprintf(env.Stderr, "Warning: research enrichment failed: %v\n", err)
			docType = summarize.DocGeneral
			enrich = nil
		}
	}

	// === RENDER & SAVE ===

	mdText, err := note.Render(docType, note.Context{
		Meta:       meta,
		Summary:    summary,
		Enrich:     enrich,
		Transcript: res.Transcript,
	})
	if err != nil {
		return err
	}

	slug := note.SafeSlug(meta.Title, note.DefaultBaseName(docType, env.Now()))
	output = config.ResolveOutputPath(output, cfg.OutputDir, slug+".md")

	if err := writeFileExcl(output, ""); err != nil {
		return err
	}
	if err := note.SaveMarkdown(output, mdText); err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Saved: %s\n", output)

	if pdf {
		pdfPath := strings.TrimSuffix(output, ".md") + ".pdf"
		if err := env.PDFExporter.Export(ctx, mdText, pdfPath); err != nil {
			return fmt.Errorf("PDF export failed: %w", err)
		}
		fmt.Fprintf(env.Stderr, "Saved: %s\n", pdfPath)
	}

	return nil
}
