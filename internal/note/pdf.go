package note

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os/exec"
	"strings"
)

// htmlWrap embeds the note in a minimal page for wkhtmltopdf. System Korean
// fonts are declared explicitly; the converter's defaults render Hangul as
// boxes on most hosts.
const htmlWrap = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<style>
  @page { size: A4; margin: 20mm; }
  body {
    font-family: "Noto Sans CJK KR", "Noto Sans KR", "Nanum Gothic", "Malgun Gothic", "Apple SD Gothic Neo", sans-serif;
    font-size: 12pt;
    line-height: 1.5;
    word-break: keep-all;
  }
  pre { white-space: pre-wrap; font-family: inherit; }
</style>
</head>
<body>
<pre>%s</pre>
</body>
</html>`

// PDFExporter converts markdown notes to PDF through whichever converter
// binary is installed: pandoc renders the markdown properly, wkhtmltopdf is
// the fallback and renders the raw text preformatted.
type PDFExporter struct {
	lookPath func(string) (string, error)
	run      func(ctx context.Context, path string, args []string, stdin []byte) (string, error)
}

// PDFOption configures a PDFExporter.
type PDFOption func(*PDFExporter)

// WithLookPath sets the binary resolver (for testing).
func WithLookPath(fn func(string) (string, error)) PDFOption {
	return func(e *PDFExporter) { e.lookPath = fn }
}

// WithRun sets the command runner (for testing).
func WithRun(fn func(ctx context.Context, path string, args []string, stdin []byte) (string, error)) PDFOption {
	return func(e *PDFExporter) { e.run = fn }
}

// NewPDFExporter creates a PDFExporter backed by the system converters.
func NewPDFExporter(opts ...PDFOption) *PDFExporter {
	e := &PDFExporter{
		lookPath: exec.LookPath,
		run:      runCommand,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes the markdown as a PDF at outPath. Converters are tried in
// order of output quality; ErrNoConverter means none is installed.
func (e *PDFExporter) Export(ctx context.Context, mdText, outPath string) error {
	if path, err := e.lookPath("pandoc"); err == nil {
		args := []string{"-f", "markdown", "-o", outPath}
		if _, rerr := e.run(ctx, path, args, []byte(mdText)); rerr == nil {
			return nil
		}
		// Fall through: pandoc without a PDF engine fails at runtime even
		// though the binary resolves.
	}

	if path, err := e.lookPath("wkhtmltopdf"); err == nil {
		page := fmt.Sprintf(htmlWrap, html.EscapeString(mdText))
		args := []string{"--encoding", "utf-8", "--quiet", "-", outPath}
		if out, rerr := e.run(ctx, path, args, []byte(page)); rerr != nil {
			return fmt.Errorf("wkhtmltopdf failed: %v\nOutput: %s", rerr, out)
		}
		return nil
	}

	return ErrNoConverter
}

func runCommand(ctx context.Context, path string, args []string, stdin []byte) (string, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}
