package audio

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dkim-lab/voicenote/internal/ffmpeg"
)

// UploadBitrate is the fixed encoding target for network upload.
// 32 kbps mono MP3 keeps transfer time low without hurting transcription
// accuracy for speech.
const UploadBitrate = "32k"

// MP3Encoder compresses canonical PCM streams to MP3 in memory for upload.
type MP3Encoder struct {
	ffmpegPath string
	cmd        commandRunner
}

// MP3EncoderOption configures an MP3Encoder.
type MP3EncoderOption func(*MP3Encoder)

// WithMP3CommandRunner sets the command runner (for testing).
func WithMP3CommandRunner(r commandRunner) MP3EncoderOption {
	return func(e *MP3Encoder) { e.cmd = r }
}

// NewMP3Encoder creates an MP3Encoder using the FFmpeg binary at ffmpegPath.
func NewMP3Encoder(ffmpegPath string, opts ...MP3EncoderOption) (*MP3Encoder, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ffmpeg.ErrNotFound)
	}

	e := &MP3Encoder{
		ffmpegPath: ffmpegPath,
		cmd:        ffmpeg.NewExecutor(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Encode compresses the stream to a 32 kbps mono MP3 entirely in memory:
// PCM in on stdin, MP3 out on stdout, nothing staged on disk.
func (e *MP3Encoder) Encode(ctx context.Context, s *Stream) ([]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-i", "pipe:0",
		"-f", "mp3",
		"-b:a", UploadBitrate,
		"pipe:1",
	}

	stdout, stderr, err := e.cmd.RunPipe(ctx, e.ffmpegPath, args, s.PCM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v\nOutput: %s", ErrEncodeFailed, err, stderr)
	}
	if len(stdout) == 0 {
		return nil, fmt.Errorf("%w: encoder produced no output", ErrEncodeFailed)
	}
	return stdout, nil
}
