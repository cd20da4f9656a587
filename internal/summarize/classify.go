package summarize

import "strings"

// researchKeywords mark a summary as research material when the model's own
// hint is inconclusive. Korean terms cover the lab-meeting vocabulary the
// service sees most.
var researchKeywords = []string{
	"실험", "IRB", "프로토콜", "피험자", "데이터셋", "분석계획",
	"hypothesis", "protocol", "assay",
}

// Classify decides the document type for a summary. The model's type hint
// wins when it is recognizable; otherwise the bullets are scanned for
// research vocabulary.
func Classify(s *Summary) DocType {
	switch strings.ToLower(strings.TrimSpace(s.TypeHint)) {
	case "research":
		return DocResearch
	case "general", "meeting", "일반", "회의":
		return DocGeneral
	}

	bullets := strings.Join(s.Bullets, " ")
	for _, kw := range researchKeywords {
		if strings.Contains(bullets, kw) {
			return DocResearch
		}
	}
	return DocGeneral
}
