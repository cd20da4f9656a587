// Package summarize turns a raw transcript into structured note content:
// a summary with decisions and action items, a document-type classification,
// and optional research enrichment.
package summarize

// DocType selects which note template a summary renders into.
type DocType string

// Document types.
const (
	DocGeneral  DocType = "general"
	DocResearch DocType = "research"
)

// Action is one action item extracted from the transcript.
// Only these three keys are accepted from the model; anything else is
// dropped during normalization.
type Action struct {
	Owner string `json:"owner"`
	Task  string `json:"task"`
	Due   string `json:"due,omitempty"` // ISO date (YYYY-MM-DD) or empty.
}

// Summary is the structured summary of a transcript.
type Summary struct {
	Brief     string   `json:"brief"`
	Bullets   []string `json:"bullets"`
	Decisions []string `json:"decisions"`
	Actions   []Action `json:"actions"`
	TypeHint  string   `json:"type_hint"` // "research" or "general".
}

// ResearchEnrich is the extra structure extracted for research recordings.
type ResearchEnrich struct {
	Objective   string   `json:"objective"`
	Methods     []string `json:"methods"`
	Results     []string `json:"results"`
	Limitations string   `json:"limitations"`
	Actions     []Action `json:"actions"`
}
