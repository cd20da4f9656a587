package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dkim-lab/voicenote/internal/apierr"
)

// Default configuration values.
const (
	// maxTranscriptChars caps the transcript slice injected into prompts.
	maxTranscriptChars = 18000

	// Retry configuration: fewer retries than the transcriber, chat
	// completions have longer latency.
	defaultSummaryMaxRetries = 3
	defaultSummaryBaseDelay  = 1 * time.Second
	defaultSummaryMaxDelay   = 30 * time.Second

	defaultTemperature = 0.2
)

// defaultModelChain is tried in order. The cheap model handles the common
// case; the larger one is the fallback when it fails outright.
var defaultModelChain = []string{openai.GPT4oMini, openai.GPT4o}

const systemPrompt = "You are a Korean note-taking assistant for hospital meetings. " +
	"Reply ONLY with valid JSON (UTF-8). No code fences, no prose."

const summaryPrompt = `
다음은 병원 회의의 전사본이야. 핵심을 한국어로 간결하게 정리해.
응답은 JSON으로만 하고, 키는
- brief: 4-5문장 요약
- bullets: 5개 내외 핵심 bullet 리스트
- decisions: 회의에서 결정된 사항 bullet
- actions: 액션 배열 (각 항목은 {owner, task, due})
- type_hint: 'research' 또는 'general' 중 하나 (가능성 판단)

규칙(매우 중요):
- actions[].due 는 반드시 'YYYY-MM-DD' 형식(ISO, Asia/Seoul 기준 가정)으로만 출력. 모르면 null.
- 상대표현(예: '다음주 금요일', '말일')은 meeting_date를 기준으로 실제 날짜로 변환. meeting_date 없으면 null.
- 마감일은 meeting_date보다 과거일 수 없음. 과거가 되면 null.
- 임의 추정/환상 금지. 전사에 근거 없으면 null.
- actions 항목의 키는 owner, task, due 만 허용.
- bullets/decisions는 간결한 한국어 문장형 bullet로.

전사:
`

const researchEnrichPrompt = `
위 전사가 '연구회의'일 가능성이 높다면 연구노트용 보조 요약을 생성하라.
응답은 JSON만. 키:
- objective: 연구 배경/목표 2-3문장
- methods: 방법 bullet 3-6개
- results: 관찰/결과 bullet 3-6개 (수치가 있으면 보존)
- limitations: 한계/주의사항 1-3문장
- actions: 액션 배열 (각 항목은 {owner, task, due})

규칙(매우 중요):
- actions[].due 는 반드시 'YYYY-MM-DD' 형식(ISO, Asia/Seoul 기준 가정)으로만 출력. 모르면 null.
- 상대표현은 meeting_date를 기준으로 실제 날짜로 변환. meeting_date 없으면 null.
- 마감일은 meeting_date보다 과거일 수 없음. 과거가 되면 null.
- 임의 추정 금지. 전사/요약에 근거 없으면 null.
- actions 항목의 키는 owner, task, due 만 허용.
`

// Summarizer produces structured summaries from transcripts.
type Summarizer interface {
	// Summarize extracts a structured summary. meetingDate is free-form
	// and normalized internally; empty means unknown.
	Summarize(ctx context.Context, transcript, meetingDate string) (*Summary, error)

	// Enrich extracts research-note structure for a transcript already
	// summarized as research material.
	Enrich(ctx context.Context, transcript, meetingDate string, summary *Summary) (*ResearchEnrich, error)
}

// chatCompleter is an internal interface for OpenAI chat completion.
// *openai.Client implements this implicitly; tests inject mocks.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Summarizer    = (*OpenAISummarizer)(nil)
	_ chatCompleter = (*openai.Client)(nil)
)

// OpenAISummarizer summarizes transcripts using OpenAI's chat completion
// API. Requests ask for JSON mode first and fall back to plain completion
// with blob extraction, since not every model accepts response_format.
type OpenAISummarizer struct {
	client     chatCompleter
	models     []string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures an OpenAISummarizer.
type Option func(*OpenAISummarizer)

// WithModels sets the model fallback chain, tried in order.
func WithModels(models ...string) Option {
	return func(s *OpenAISummarizer) {
		if len(models) > 0 {
			s.models = models
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts per model.
func WithMaxRetries(n int) Option {
	return func(s *OpenAISummarizer) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) Option {
	return func(s *OpenAISummarizer) {
		if base > 0 {
			s.baseDelay = base
		}
		if max > 0 {
			s.maxDelay = max
		}
	}
}

// NewOpenAISummarizer creates a new OpenAISummarizer.
// The client is injected to enable testing with mocks.
func NewOpenAISummarizer(client chatCompleter, opts ...Option) *OpenAISummarizer {
	s := &OpenAISummarizer{
		client:     client,
		models:     defaultModelChain,
		maxRetries: defaultSummaryMaxRetries,
		baseDelay:  defaultSummaryBaseDelay,
		maxDelay:   defaultSummaryMaxDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize extracts a structured summary from the transcript.
func (s *OpenAISummarizer) Summarize(ctx context.Context, transcript, meetingDate string) (*Summary, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	dateISO := NormalizeMeetingDate(meetingDate)
	prompt := meetingDateLine(dateISO) + summaryPrompt + truncate(transcript, maxTranscriptChars)

	raw, err := s.completeJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var summary Summary
	if err := unmarshalLoose(raw, &summary); err != nil {
		// Not even a JSON blob; keep the text as the brief rather than
		// discarding a paid completion.
		summary = Summary{Brief: strings.TrimSpace(raw)}
	}
	applySummaryDefaults(&summary)
	summary.Actions = normalizeActions(summary.Actions, dateISO)
	return &summary, nil
}

// Enrich extracts research-note structure. The prior summary is injected so
// the model stays consistent with what was already extracted.
func (s *OpenAISummarizer) Enrich(ctx context.Context, transcript, meetingDate string, summary *Summary) (*ResearchEnrich, error) {
	dateISO := NormalizeMeetingDate(meetingDate)

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	prompt := meetingDateLine(dateISO) + researchEnrichPrompt +
		"\n\n---\n[요약(JSON)]:\n" + string(summaryJSON) +
		"\n\n[전사 일부]:\n" + truncate(transcript, maxTranscriptChars)

	raw, err := s.completeJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var enrich ResearchEnrich
	if err := unmarshalLoose(raw, &enrich); err != nil {
		return nil, fmt.Errorf("research enrichment returned no JSON: %w", err)
	}
	enrich.Actions = normalizeActions(enrich.Actions, dateISO)
	return &enrich, nil
}

// completeJSON walks the model chain. Per model it tries JSON mode first,
// then a plain completion. Permanent errors (auth, quota) abort the chain;
// anything else falls through to the next model.
func (s *OpenAISummarizer) completeJSON(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, model := range s.models {
		text, err := s.complete(ctx, model, prompt, true)
		if err != nil && !isPermanentError(err) {
			text, err = s.complete(ctx, model, prompt, false)
		}
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || isPermanentError(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %v", ErrAllModelsFailed, lastErr)
}

func (s *OpenAISummarizer) complete(ctx context.Context, model, prompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: defaultTemperature,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	cfg := apierr.RetryConfig{
		MaxRetries: s.maxRetries,
		BaseDelay:  s.baseDelay,
		MaxDelay:   s.maxDelay,
	}

	return apierr.RetryWithBackoff(ctx, cfg, func() (string, error) {
		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", classifyChatError(err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("completion returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	}, isRetryableChatError)
}

func meetingDateLine(dateISO string) string {
	if dateISO == "" {
		return "\nmeeting_date: (미지정)\n"
	}
	return "\nmeeting_date: " + dateISO + "\n"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary.
	for max > 0 && s[max]&0xC0 == 0x80 {
		max--
	}
	return s[:max]
}

// unmarshalLoose parses the text as JSON, falling back to the first {...}
// blob when the model wrapped the object in prose or code fences.
func unmarshalLoose(text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in completion")
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}

func applySummaryDefaults(s *Summary) {
	if s.Bullets == nil {
		s.Bullets = []string{}
	}
	if s.Decisions == nil {
		s.Decisions = []string{}
	}
	if s.Actions == nil {
		s.Actions = []Action{}
	}
	th := strings.ToLower(strings.TrimSpace(s.TypeHint))
	if th != string(DocResearch) && th != string(DocGeneral) {
		th = string(DocGeneral)
	}
	s.TypeHint = th
}

// classifyChatError maps OpenAI API errors to sentinel errors.
func classifyChatError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
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
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	return err
}

func isRetryableChatError(err error) bool {
	if errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrTimeout) {
		return true
	}
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
	return false
}

// isPermanentError reports errors that no model in the chain can recover
// from: bad credentials or an exhausted quota fail for every model alike.
func isPermanentError(err error) bool {
	return errors.Is(err, apierr.ErrAuthFailed) || errors.Is(err, apierr.ErrQuotaExceeded)
}
