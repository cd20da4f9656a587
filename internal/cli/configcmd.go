package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dkim-lab/voicenote/internal/config"
	"github.com/dkim-lab/voicenote/internal/transcribe"
)

// validConfigKeys lists all supported configuration keys.
var validConfigKeys = []string{
	config.KeyOutputDir,
	config.KeyLanguage,
	config.KeyConcurrency,
	config.KeyChunkSeconds,
}

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/voicenote/config.yaml.
Settings can also be overridden via environment variables.

Supported settings:
  output-dir     Default directory for output files (env: VOICENOTE_OUTPUT_DIR)
  language       Default audio language (env: VOICENOTE_LANGUAGE)
  concurrency    Max concurrent transcription requests (1-10)
  chunk-seconds  Chunk length in seconds`,
		Example: `  voicenote config set output-dir ~/Documents/notes
  voicenote config get language
  voicenote config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  voicenote config set output-dir ~/Documents/notes
  voicenote config set language ko
  voicenote config set concurrency 8`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Example: `  voicenote config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List all configuration values",
		Example: `  voicenote config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if !config.KnownKey(key) {
		return fmt.Errorf("%w: %q (valid keys: %v)", config.ErrUnknownKey, key, validConfigKeys)
	}

	// Key-specific validation.
	switch key {
	case config.KeyOutputDir:
		expanded := config.ExpandPath(value)
		if err := config.ValidOutputDir(expanded); err != nil {
			return fmt.Errorf("invalid output-dir: %w", err)
		}
		// Store the expanded path for consistency.
		value = expanded
	case config.KeyConcurrency:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > transcribe.MaxRecommendedParallel {
			return fmt.Errorf("invalid concurrency %q (valid: 1-%d)",
				value, transcribe.MaxRecommendedParallel)
		}
	case config.KeyChunkSeconds:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid chunk-seconds %q (must be a positive integer)", value)
		}
	}

	if err := config.Set(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !config.KnownKey(key) {
		return fmt.Errorf("%w: %q (valid keys: %v)", config.ErrUnknownKey, key, validConfigKeys)
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}
	if value != "" {
		fmt.Fprintln(env.Stderr, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	values, err := config.List()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(env.Stderr, "%s = %v\n", k, values[k])
	}
	return nil
}
