package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// runOutputFn is the function type for running a command and capturing stderr.
type runOutputFn func(ctx context.Context, path string, args []string) (string, error)

// runPipeFn is the function type for running a command with stdin/stdout piping.
type runPipeFn func(ctx context.Context, path string, args []string, stdin []byte) ([]byte, string, error)

// Executor runs FFmpeg commands with injectable dependencies.
type Executor struct {
	runOutput runOutputFn
	runPipe   runPipeFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunOutput sets a custom runOutput function (for testing).
func WithRunOutput(fn runOutputFn) ExecutorOption {
	return func(e *Executor) { e.runOutput = fn }
}

// WithRunPipe sets a custom runPipe function (for testing).
func WithRunPipe(fn runPipeFn) ExecutorOption {
	return func(e *Executor) { e.runPipe = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		runOutput: defaultRunOutput,
		runPipe:   defaultRunPipe,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOutput executes FFmpeg and captures its stderr output.
// FFmpeg writes diagnostic output (container metadata, probe info) to stderr.
func (e *Executor) RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return e.runOutput(ctx, ffmpegPath, args)
}

// RunPipe executes FFmpeg feeding stdin and capturing stdout.
// Used for in-memory decode/encode: raw bytes in, raw bytes out, nothing
// staged on disk. Returns stdout, stderr, and the execution error.
func (e *Executor) RunPipe(ctx context.Context, ffmpegPath string, args []string, stdin []byte) ([]byte, string, error) {
	return e.runPipe(ctx, ffmpegPath, args, stdin)
}

// defaultRunOutput is the production implementation.
// Returns stderr output even when the command fails, since FFmpeg often
// returns non-zero exit codes for operations that still produced the
// diagnostic output the caller wants (e.g. bare -i probes return 1).
func defaultRunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}

// defaultRunPipe is the production implementation of stdin/stdout piping.
func defaultRunPipe(ctx context.Context, ffmpegPath string, args []string, stdin []byte) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), stderr.String(), fmt.Errorf("%w: %v", ErrExecFailed, err)
	}
	return stdout.Bytes(), stderr.String(), nil
}

// ---------------------------------------------------------------------------
// Package-level facade
// ---------------------------------------------------------------------------

var (
	defaultExecutor     *Executor
	defaultExecutorOnce sync.Once
)

func getDefaultExecutor() *Executor {
	defaultExecutorOnce.Do(func() {
		defaultExecutor = NewExecutor()
	})
	return defaultExecutor
}

// RunOutput executes FFmpeg and captures its stderr output using the default executor.
func RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return getDefaultExecutor().RunOutput(ctx, ffmpegPath, args)
}

// RunPipe executes FFmpeg with stdin/stdout piping using the default executor.
func RunPipe(ctx context.Context, ffmpegPath string, args []string, stdin []byte) ([]byte, string, error) {
	return getDefaultExecutor().RunPipe(ctx, ffmpegPath, args, stdin)
}
