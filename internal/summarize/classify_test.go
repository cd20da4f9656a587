package summarize_test

import (
	"testing"

	"github.com/dkim-lab/voicenote/internal/summarize"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		summary summarize.Summary
		want    summarize.DocType
	}{
		{
			name:    "research hint wins",
			summary: summarize.Summary{TypeHint: "research"},
			want:    summarize.DocResearch,
		},
		{
			name:    "hint is case-insensitive",
			summary: summarize.Summary{TypeHint: " Research "},
			want:    summarize.DocResearch,
		},
		{
			name: "general hint overrides research bullets",
			summary: summarize.Summary{
				TypeHint: "general",
				Bullets:  []string{"실험 프로토콜 변경 논의"},
			},
			want: summarize.DocGeneral,
		},
		{
			name:    "korean meeting hint",
			summary: summarize.Summary{TypeHint: "회의"},
			want:    summarize.DocGeneral,
		},
		{
			name: "unknown hint falls back to bullet scan",
			summary: summarize.Summary{
				TypeHint: "unknown",
				Bullets:  []string{"다음 회의 일정 조율", "IRB 제출 서류 준비"},
			},
			want: summarize.DocResearch,
		},
		{
			name: "english research vocabulary",
			summary: summarize.Summary{
				Bullets: []string{"review assay results before Friday"},
			},
			want: summarize.DocResearch,
		},
		{
			name: "no hint and no keywords",
			summary: summarize.Summary{
				Bullets: []string{"점심 메뉴 결정", "주간 일정 공유"},
			},
			want: summarize.DocGeneral,
		},
		{
			name:    "empty summary",
			summary: summarize.Summary{},
			want:    summarize.DocGeneral,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := summarize.Classify(&tt.summary); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
