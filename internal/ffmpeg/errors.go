package ffmpeg

import "errors"

// ErrNotFound indicates the FFmpeg binary could not be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrExecFailed indicates FFmpeg exited with an error.
var ErrExecFailed = errors.New("ffmpeg execution failed")
