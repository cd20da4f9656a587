// Package config loads user configuration from a YAML file with environment
// variable fallbacks.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config keys, as written in the YAML file and accepted by `voicenote
// config set`.
const (
	KeyOutputDir    = "output-dir"
	KeyLanguage     = "language"
	KeyConcurrency  = "concurrency"
	KeyChunkSeconds = "chunk-seconds"
)

// Environment variable fallbacks, consulted when the file leaves a key
// unset.
const (
	EnvOutputDir = "VOICENOTE_OUTPUT_DIR"
	EnvLanguage  = "VOICENOTE_LANGUAGE"
)

// ErrUnknownKey indicates a config key this version does not recognize.
var ErrUnknownKey = errors.New("unknown config key")

// Config holds user configuration loaded from
// ~/.config/voicenote/config.yaml.
type Config struct {
	OutputDir    string `yaml:"output-dir,omitempty"`
	Language     string `yaml:"language,omitempty"`
	Concurrency  int    `yaml:"concurrency,omitempty"`
	ChunkSeconds int    `yaml:"chunk-seconds,omitempty"`
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/voicenote.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "voicenote"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "voicenote"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.yaml"), nil
}

// Load reads the configuration file and environment variables.
// Precedence: config file values, then environment variable fallbacks.
// Returns an empty Config if the file doesn't exist (not an error).
func Load() (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(p) // #nosec G304 -- config path is constructed from home dir
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config file %s: %w", p, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = os.Getenv(EnvOutputDir)
	}
	if cfg.Language == "" {
		cfg.Language = os.Getenv(EnvLanguage)
	}

	return cfg, nil
}

// Set updates a single key in the config file, creating the directory and
// file as needed. Other keys are preserved.
func Set(key, value string) error {
	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	// Round-trip through a generic map so keys this version doesn't know
	// about survive the rewrite.
	values := make(map[string]any)
	if data, err := os.ReadFile(p); err == nil { // #nosec G304 -- path from home dir
		if err := yaml.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("invalid config file %s: %w", p, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config: %w", err)
	}

	values[key] = value

	out, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(p, out, 0644); err != nil { // #nosec G306 -- config file with standard permissions
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	values, err := List()
	if err != nil {
		return "", err
	}
	if v, ok := values[key]; ok {
		return fmt.Sprintf("%v", v), nil
	}
	return "", nil
}

// List returns all config values as a map.
func List() (map[string]any, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	values := make(map[string]any)
	data, err := os.ReadFile(p) // #nosec G304 -- path from home dir
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", p, err)
	}
	return values, nil
}

// KnownKey reports whether key is one this version understands. `config
// set` rejects unknown keys rather than writing values nothing reads.
func KnownKey(key string) bool {
	switch key {
	case KeyOutputDir, KeyLanguage, KeyConcurrency, KeyChunkSeconds:
		return true
	}
	return false
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
//
// outputDir can come from config or flag.
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// ValidOutputDir checks if a directory path is valid for use as output-dir.
// Returns nil if valid, or an error describing the problem.
func ValidOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("output-dir cannot be empty")
	}

	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", d)
	}

	// Check if writable by attempting to create a temp file.
	testFile := filepath.Join(d, ".voicenote-write-test")
	f, err := os.Create(testFile) // #nosec G304 -- path is constructed from validated dir
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(testFile)
		return fmt.Errorf("directory is not writable: %w", err)
	}
	_ = os.Remove(testFile)

	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// Dir returns the configuration directory path (exported for testing).
func Dir() (string, error) {
	return dir()
}
