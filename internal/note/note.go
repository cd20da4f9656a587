// Package note renders structured summaries into Korean markdown notes and
// exports them to disk as markdown or PDF.
package note

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/dkim-lab/voicenote/internal/summarize"
)

// Meta describes the meeting a note documents.
type Meta struct {
	Title     string
	Date      string // Free-form; what the user typed, not necessarily ISO.
	Place     string
	Attendees string
	Host      string
	Scribe    string
	Project   string
}

// Context is everything a template needs to render a note.
type Context struct {
	Meta       Meta
	Summary    *summarize.Summary
	Enrich     *summarize.ResearchEnrich // Nil for general notes.
	Transcript string
}

var (
	meetingTmpl  = template.Must(template.New("meeting").Parse(meetingTemplate))
	researchTmpl = template.Must(template.New("research").Parse(researchTemplate))
)

// Render produces the markdown note for the document type.
// Research notes require Enrich; a nil Enrich falls back to the general
// template rather than rendering empty sections.
func Render(docType summarize.DocType, ctx Context) (string, error) {
	if ctx.Summary == nil {
		ctx.Summary = &summarize.Summary{}
	}

	tmpl := meetingTmpl
	switch docType {
	case summarize.DocGeneral:
	case summarize.DocResearch:
		if ctx.Enrich != nil {
			tmpl = researchTmpl
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDocType, docType)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, ctx); err != nil {
		return "", fmt.Errorf("failed to render note: %w", err)
	}
	return b.String(), nil
}

var slugRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeSlug converts a title to an ASCII-safe filename stem, capped at 120
// bytes. Korean titles collapse to the fallback since non-ASCII runs are
// replaced wholesale.
func SafeSlug(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		s = fallback
	}
	s = slugRe.ReplaceAllString(s, "_")
	if len(s) > 120 {
		s = s[:120]
	}
	if strings.Trim(s, "_") == "" {
		return fallback
	}
	return s
}

// DefaultBaseName builds the fallback filename stem for untitled notes,
// e.g. "research_note_20260115_0930".
func DefaultBaseName(docType summarize.DocType, now time.Time) string {
	prefix := "meeting_notes_"
	if docType == summarize.DocResearch {
		prefix = "research_note_"
	}
	return prefix + now.Format("20060102_1504")
}

// utf8BOM keeps the saved markdown readable in Windows Notepad, which still
// guesses a legacy encoding for plain UTF-8 Korean text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SaveMarkdown writes the note to path with a UTF-8 BOM.
func SaveMarkdown(path, text string) error {
	data := append(append([]byte{}, utf8BOM...), text...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}
