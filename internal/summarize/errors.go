package summarize

import "errors"

// ErrEmptyTranscript indicates there is no text to summarize.
var ErrEmptyTranscript = errors.New("transcript is empty")

// ErrAllModelsFailed indicates every model in the fallback chain failed.
var ErrAllModelsFailed = errors.New("all summary models failed")
