// Package transcribe converts normalized audio into verified text: it
// dispatches chunk transcriptions concurrently, samples a probe clip for
// independent verification, and gates the aggregate result.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dkim-lab/voicenote/internal/apierr"
)

// ModelTranscribe is the transcription model identifier.
// Not yet defined as a constant in go-openai, so we define it locally.
const ModelTranscribe = "gpt-4o-mini-transcribe"

// Parallelism configuration.
const (
	// DefaultConcurrency is the default worker pool size for chunk dispatch.
	DefaultConcurrency = 6

	// MaxRecommendedParallel is the recommended upper limit for concurrent
	// API requests. Higher values may trigger rate limiting.
	MaxRecommendedParallel = 10
)

// Default retry configuration.
const (
	defaultMaxRetries = 4
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
)

// Request is one audio payload submitted for transcription.
type Request struct {
	Audio    []byte // Encoded audio bytes (MP3 chunk or WAV probe).
	Filename string // ASCII-safe name; its extension conveys the container.
	Language string // ISO 639-1 hint. Empty means auto-detect.
}

// Transcriber converts an audio payload to text.
type Transcriber interface {
	// Transcribe converts one audio payload to text.
	// Failures are classified into apierr sentinels.
	Transcribe(ctx context.Context, req Request) (string, error)
}

// audioTranscriber is an internal interface for OpenAI audio transcription.
// *openai.Client implements this implicitly; tests inject mocks.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Transcriber      = (*OpenAITranscriber)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAITranscriber transcribes audio using OpenAI's transcription API.
// It supports automatic retries with exponential backoff for transient errors.
type OpenAITranscriber struct {
	client     audioTranscriber
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// TranscriberOption configures an OpenAITranscriber.
type TranscriberOption func(*OpenAITranscriber)

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) TranscriberOption {
	return func(t *OpenAITranscriber) {
		if n >= 0 {
			t.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) TranscriberOption {
	return func(t *OpenAITranscriber) {
		if base > 0 {
			t.baseDelay = base
		}
		if max > 0 {
			t.maxDelay = max
		}
	}
}

// NewOpenAITranscriber creates a new OpenAITranscriber.
// The client is injected to enable testing with mocks.
func NewOpenAITranscriber(client audioTranscriber, opts ...TranscriberOption) *OpenAITranscriber {
	t := &OpenAITranscriber{
		client:     client,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe submits the payload from memory and returns the recognized text.
// Transient errors (rate limits, timeouts, server errors) are retried with
// exponential backoff; permanent errors fail immediately.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, req Request) (string, error) {
	apiReq := openai.AudioRequest{
		Model:    ModelTranscribe,
		FilePath: req.Filename,
		Reader:   bytes.NewReader(req.Audio),
		Format:   openai.AudioResponseFormatJSON,
		Language: req.Language,
	}

	cfg := apierr.RetryConfig{
		MaxRetries: t.maxRetries,
		BaseDelay:  t.baseDelay,
		MaxDelay:   t.maxDelay,
	}

	return apierr.RetryWithBackoff(ctx, cfg, func() (string, error) {
		resp, err := t.client.CreateTranscription(ctx, apiReq)
		if err != nil {
			return "", classifyError(err)
		}
		return resp.Text, nil
	}, isRetryableError)
}

// tooShortMarkers are the substrings OpenAI uses to reject under-length
// audio. The API signals this with an opaque 400; the markers are the only
// way to recover the condition, which we then carry as a typed sentinel.
var tooShortMarkers = []string{
	"too short",
	"minimum audio length",
	"audio_too_short",
}

func isTooShortMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range tooShortMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// classifyError maps OpenAI API errors to sentinel errors.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			// Distinguish between temporary rate limit and quota exceeded
			// (billing issue). Quota exceeded should not be retried.
			if strings.Contains(apiErr.Message, "quota") ||
				strings.Contains(apiErr.Message, "billing") {
				return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusBadRequest:
			if isTooShortMessage(apiErr.Message) {
				return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAudioTooShort)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		case http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}

// isRetryableError determines if an error is transient and should be retried.
func isRetryableError(err error) bool {
	if errors.Is(err, apierr.ErrRateLimit) {
		return true
	}
	if errors.Is(err, apierr.ErrTimeout) {
		return true
	}

	// Server errors (5xx) are retryable.
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	// Everything else (cancellation, auth, quota, bad request, too short)
	// fails the attempt immediately without consuming the retry budget.
	return false
}
