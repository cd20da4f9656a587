package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dkim-lab/voicenote/internal/config"
	"github.com/dkim-lab/voicenote/internal/lang"
	"github.com/dkim-lab/voicenote/internal/transcribe"
)

func TestClampParallel(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want int }{
		{-3, 1},
		{0, 1},
		{1, 1},
		{6, 6},
		{transcribe.MaxRecommendedParallel, transcribe.MaxRecommendedParallel},
		{99, transcribe.MaxRecommendedParallel},
	}
	for _, tt := range tests {
		if got := clampParallel(tt.in); got != tt.want {
			t.Errorf("clampParallel(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDeriveTranscriptPath(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"meeting.m4a", "meeting.txt"},
		{"/tmp/audio/lecture.mp3", "/tmp/audio/lecture.txt"},
		{"noext", "noext.txt"},
	}
	for _, tt := range tests {
		if got := deriveTranscriptPath(tt.in); got != tt.want {
			t.Errorf("deriveTranscriptPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadInput(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := loadInput(filepath.Join(t.TempDir(), "nope.m4a"))
		if !errors.Is(err, ErrFileNotFound) {
			t.Errorf("error = %v, want ErrFileNotFound", err)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(t.TempDir(), "notes.txt")
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := loadInput(p); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(t.TempDir(), "silent.m4a")
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := loadInput(p); !errors.Is(err, ErrEmptyUpload) {
			t.Errorf("error = %v, want ErrEmptyUpload", err)
		}
	})

	t.Run("readable audio file", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(t.TempDir(), "meeting.m4a")
		if err := os.WriteFile(p, []byte("audio-bytes"), 0o644); err != nil {
			t.Fatal(err)
		}
		data, err := loadInput(p)
		if err != nil {
			t.Fatalf("loadInput() error: %v", err)
		}
		if string(data) != "audio-bytes" {
			t.Errorf("data = %q", data)
		}
	})
}

func TestRunOptionsResolve(t *testing.T) {
	t.Parallel()

	t.Run("defaults when nothing is set", func(t *testing.T) {
		t.Parallel()
		o := runOptions{}
		if err := o.resolve(config.Config{}); err != nil {
			t.Fatalf("resolve() error: %v", err)
		}
		if o.language != DefaultLanguage {
			t.Errorf("language = %q, want %q", o.language, DefaultLanguage)
		}
		if o.parallel != transcribe.DefaultConcurrency {
			t.Errorf("parallel = %d, want %d", o.parallel, transcribe.DefaultConcurrency)
		}
		if o.chunkSeconds != defaultChunkSeconds {
			t.Errorf("chunkSeconds = %d, want %d", o.chunkSeconds, defaultChunkSeconds)
		}
	})

	t.Run("config fills unset options", func(t *testing.T) {
		t.Parallel()
		o := runOptions{}
		cfg := config.Config{Language: "en", Concurrency: 3, ChunkSeconds: 45}
		if err := o.resolve(cfg); err != nil {
			t.Fatalf("resolve() error: %v", err)
		}
		if o.language != "en" || o.parallel != 3 || o.chunkSeconds != 45 {
			t.Errorf("opts = %+v", o)
		}
	})

	t.Run("flags win over config", func(t *testing.T) {
		t.Parallel()
		o := runOptions{language: "ja", parallel: 2, chunkSeconds: 30}
		cfg := config.Config{Language: "en", Concurrency: 8, ChunkSeconds: 90}
		if err := o.resolve(cfg); err != nil {
			t.Fatalf("resolve() error: %v", err)
		}
		if o.language != "ja" || o.parallel != 2 || o.chunkSeconds != 30 {
			t.Errorf("opts = %+v", o)
		}
	})

	t.Run("locale reduces to its base code", func(t *testing.T) {
		t.Parallel()
		o := runOptions{language: "pt-BR"}
		if err := o.resolve(config.Config{}); err != nil {
			t.Fatalf("resolve() error: %v", err)
		}
		if o.language != "pt" {
			t.Errorf("language = %q, want pt", o.language)
		}
	})

	t.Run("invalid language is rejected", func(t *testing.T) {
		t.Parallel()
		o := runOptions{language: "klingon"}
		if err := o.resolve(config.Config{}); !errors.Is(err, lang.ErrInvalid) {
			t.Errorf("error = %v, want lang.ErrInvalid", err)
		}
	})

	t.Run("parallel is clamped", func(t *testing.T) {
		t.Parallel()
		o := runOptions{parallel: 50}
		if err := o.resolve(config.Config{}); err != nil {
			t.Fatalf("resolve() error: %v", err)
		}
		if o.parallel != transcribe.MaxRecommendedParallel {
			t.Errorf("parallel = %d, want %d", o.parallel, transcribe.MaxRecommendedParallel)
		}
	})
}

func TestAPIKey(t *testing.T) {
	t.Parallel()

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()
		env := NewEnv(WithGetenv(func(string) string { return "" }))
		if _, err := apiKey(env); !errors.Is(err, ErrAPIKeyMissing) {
			t.Errorf("error = %v, want ErrAPIKeyMissing", err)
		}
	})

	t.Run("key from environment", func(t *testing.T) {
		t.Parallel()
		env := NewEnv(WithGetenv(func(name string) string {
			if name == EnvOpenAIAPIKey {
				return "sk-test"
			}
			return ""
		}))
		key, err := apiKey(env)
		if err != nil || key != "sk-test" {
			t.Errorf("apiKey() = (%q, %v)", key, err)
		}
	})
}

func TestWriteFileExcl(t *testing.T) {
	t.Parallel()

	t.Run("creates a new file", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(t.TempDir(), "out.txt")
		if err := writeFileExcl(p, "transcript\n"); err != nil {
			t.Fatalf("writeFileExcl() error: %v", err)
		}
		data, err := os.ReadFile(p)
		if err != nil || string(data) != "transcript\n" {
			t.Errorf("content = (%q, %v)", data, err)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		t.Parallel()
		p := filepath.Join(t.TempDir(), "out.txt")
		if err := os.WriteFile(p, []byte("existing"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := writeFileExcl(p, "new"); !errors.Is(err, ErrOutputExists) {
			t.Errorf("error = %v, want ErrOutputExists", err)
		}
		data, _ := os.ReadFile(p)
		if string(data) != "existing" {
			t.Error("existing file should be untouched")
		}
	})
}
