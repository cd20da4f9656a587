package audio

import "context"

// commandRunner executes the external FFmpeg binary.
// *ffmpeg.Executor implements this; tests inject fakes.
type commandRunner interface {
	// RunOutput runs the command and captures its stderr output.
	RunOutput(ctx context.Context, path string, args []string) (string, error)
	// RunPipe runs the command feeding stdin and capturing stdout.
	RunPipe(ctx context.Context, path string, args []string, stdin []byte) (stdout []byte, stderr string, err error)
}
