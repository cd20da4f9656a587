// Package ffmpeg locates and runs the external FFmpeg binary used for
// decoding and encoding audio. FFmpeg is the only external binary the
// pipeline depends on; everything else happens in memory.
package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Environment variable for a custom ffmpeg path.
const envFFmpegPath = "FFMPEG_PATH"

// minMajorVersion is the minimum supported ffmpeg version.
// Older versions may lack required codec support for some containers.
const minMajorVersion = 4

// Locator finds the FFmpeg binary.
type Locator struct {
	env    envProvider
	files  fileReader
	stderr io.Writer
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) LocatorOption {
	return func(l *Locator) { l.env = e }
}

// WithFileReader sets the file reader implementation.
func WithFileReader(r fileReader) LocatorOption {
	return func(l *Locator) { l.files = r }
}

// WithStderr sets the writer for warning messages.
func WithStderr(w io.Writer) LocatorOption {
	return func(l *Locator) { l.stderr = w }
}

// NewLocator creates a Locator with the given options.
// Uses production defaults if no options are provided.
func NewLocator(opts ...LocatorOption) *Locator {
	l := &Locator{
		env:    osEnvProvider{},
		files:  osFileReader{},
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate finds ffmpeg using the following precedence:
//  1. FFMPEG_PATH environment variable (error if set but invalid)
//  2. System PATH
func (l *Locator) Locate() (string, error) {
	if envPath := l.env.Getenv(envFFmpegPath); envPath != "" {
		if _, err := l.files.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found",
				ErrNotFound, envFFmpegPath, envPath)
		}
		return envPath, nil
	}

	if path, err := l.env.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: install ffmpeg or set %s", ErrNotFound, envFFmpegPath)
}

// CheckVersion verifies that ffmpeg meets minimum version requirements.
// Prints a warning to stderr if the version is below minimum but doesn't fail.
// Returns true if the version was successfully parsed, false otherwise.
// Unlike decode diagnostics, the -version banner goes to stdout.
func (l *Locator) CheckVersion(ctx context.Context, exec *Executor, ffmpegPath string) bool {
	stdout, _, err := exec.RunPipe(ctx, ffmpegPath, []string{"-version"}, nil)
	if err != nil && len(stdout) == 0 {
		return false // Can't check version, proceed anyway
	}

	lines := strings.Split(string(stdout), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return false
	}

	var major int
	if _, err := fmt.Sscanf(lines[0], "ffmpeg version %d", &major); err != nil {
		// Some builds report "ffmpeg version n6.1.1...".
		if _, err := fmt.Sscanf(lines[0], "ffmpeg version n%d", &major); err != nil {
			return false
		}
	}

	if major < minMajorVersion {
		fmt.Fprintf(l.stderr, "Warning: ffmpeg version %d detected, version %d+ recommended\n",
			major, minMajorVersion)
	}
	return true
}

// ---------------------------------------------------------------------------
// Package-level facade
// ---------------------------------------------------------------------------

var (
	defaultLocator     *Locator
	defaultLocatorOnce sync.Once
)

func getDefaultLocator() *Locator {
	defaultLocatorOnce.Do(func() {
		defaultLocator = NewLocator()
	})
	return defaultLocator
}

// Locate finds ffmpeg using the default locator.
func Locate() (string, error) {
	return getDefaultLocator().Locate()
}
