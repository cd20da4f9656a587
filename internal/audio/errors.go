package audio

import "errors"

// ErrEmptyInput indicates an empty upload was submitted.
var ErrEmptyInput = errors.New("audio input is empty")

// ErrUnsupportedFormat indicates the declared file extension is not accepted.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrDecodeFailed indicates FFmpeg could not decode the audio container/codec.
var ErrDecodeFailed = errors.New("audio decode failed")

// ErrEncodeFailed indicates FFmpeg could not encode a chunk for upload.
var ErrEncodeFailed = errors.New("audio encode failed")

// ErrDurationUnavailable indicates neither container metadata nor a full
// decode could produce a positive duration.
var ErrDurationUnavailable = errors.New("audio duration unavailable")
