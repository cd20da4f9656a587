package lang_test

import (
	"errors"
	"testing"

	"github.com/dkim-lab/voicenote/internal/lang"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"pt-BR", "pt-br"},
		{"pt_BR", "pt-br"},
		{"KO", "ko"},
		{"en", "en"},
	}
	for _, tt := range tests {
		if got := lang.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := []string{"", "ko", "en", "pt-BR", "zh_CN", "JA"}
	for _, l := range valid {
		if err := lang.Validate(l); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", l, err)
		}
	}

	invalid := []string{"xx", "korean", "12"}
	for _, l := range invalid {
		if err := lang.Validate(l); !errors.Is(err, lang.ErrInvalid) {
			t.Errorf("Validate(%q) = %v, want ErrInvalid", l, err)
		}
	}
}

func TestBaseCode(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"", ""},
		{"ko", "ko"},
		{"pt-BR", "pt"},
		{"zh_CN", "zh"},
		{"EN-us", "en"},
	}
	for _, tt := range tests {
		if got := lang.BaseCode(tt.in); got != tt.want {
			t.Errorf("BaseCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
