// Package remote implements the HTTP boundary to the translation backend:
// request building, response decoding and the mapping from HTTP status
// classes onto the pipeline's error taxonomy.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/voxlate/internal/lang"
	"github.com/dgnsrekt/voxlate/pipeline"
)

// CredentialProvider supplies the opaque API key attached to each request.
// The client never persists or validates it.
type CredentialProvider func() (string, error)

// Config holds the boundary client settings.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.example.com".
	BaseURL string `env:"VOXLATE_API_URL"`
	// RequestsPerMinute rate-limits outgoing calls; 0 means unlimited.
	RequestsPerMinute int `env:"VOXLATE_API_RPM"`
}

// DefaultConfig returns the default boundary configuration.
func DefaultConfig() Config {
	return Config{RequestsPerMinute: 50}
}

// Client talks to the translation backend. It implements pipeline.Boundary.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	credentials CredentialProvider
	logger      *log.Logger
}

// translateRequest mirrors the backend's /v1/translate body.
type translateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	ReturnAudio    bool   `json:"return_audio"`
}

type translateResponse struct {
	TranslatedText   string  `json:"translated_text"`
	Confidence       float64 `json:"confidence"`
	AudioBase64      string  `json:"audio_base64,omitempty"`
	CandidateCount   int     `json:"candidate_count,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	ProcessingMillis int     `json:"processing_time_ms,omitempty"`
}

// translateAudioRequest is the combined endpoint's body: a translation
// request plus the voice for the audio half.
type translateAudioRequest struct {
	translateRequest
	VoiceGender  string  `json:"voice_gender"`
	SpeakingRate float64 `json:"speaking_rate"`
}

type synthesizeRequest struct {
	Text         string  `json:"text"`
	LanguageCode string  `json:"language_code"`
	VoiceGender  string  `json:"voice_gender"`
	SpeakingRate float64 `json:"speaking_rate"`
	Encoding     string  `json:"encoding,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewClient creates a boundary client.
func NewClient(config Config, credentials CredentialProvider, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}

	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1)
	}

	return &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		httpClient:  &http.Client{},
		limiter:     limiter,
		credentials: credentials,
		logger:      logger.With("component", "remote"),
	}
}

// Translate requests a translation. Language names are human-readable; the
// backend prompts its model with them directly.
func (c *Client) Translate(ctx context.Context, req pipeline.TranslateRequest) (*pipeline.TranslateResponse, error) {
	body := translateRequest{
		Text:           req.Text,
		SourceLanguage: req.SourceLanguageName,
		TargetLanguage: req.TargetLanguageName,
	}

	data, err := c.post(ctx, "/v1/translate", body)
	if err != nil {
		return nil, err
	}

	var decoded translateResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, pipeline.NewError(pipeline.KindEmptyResult, "remote", fmt.Errorf("unable to decode response: %w", err))
	}
	if decoded.TranslatedText == "" {
		return nil, pipeline.NewError(pipeline.KindEmptyResult, "remote", nil)
	}

	return &pipeline.TranslateResponse{
		TranslatedText:   decoded.TranslatedText,
		CandidateCount:   decoded.CandidateCount,
		PromptTokens:     decoded.PromptTokens,
		ProcessingMillis: decoded.ProcessingMillis,
	}, nil
}

// TranslateAudio requests translation and synthesis in one round trip via
// the combined endpoint. Audio is best effort: the backend may return the
// translation with no audio payload, which callers treat as a cue to
// synthesize separately.
func (c *Client) TranslateAudio(ctx context.Context, req pipeline.TranslateRequest, voice pipeline.VoiceParams) (*pipeline.TranslateResponse, []byte, error) {
	body := translateAudioRequest{
		translateRequest: translateRequest{
			Text:           req.Text,
			SourceLanguage: req.SourceLanguageName,
			TargetLanguage: req.TargetLanguageName,
			ReturnAudio:    true,
		},
		VoiceGender:  voice.Gender,
		SpeakingRate: voice.SpeakingRate,
	}

	data, err := c.post(ctx, "/v1/translate/audio", body)
	if err != nil {
		return nil, nil, err
	}

	var decoded translateResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, nil, pipeline.NewError(pipeline.KindEmptyResult, "remote", fmt.Errorf("unable to decode response: %w", err))
	}
	if decoded.TranslatedText == "" {
		return nil, nil, pipeline.NewError(pipeline.KindEmptyResult, "remote", nil)
	}

	resp := &pipeline.TranslateResponse{
		TranslatedText:   decoded.TranslatedText,
		CandidateCount:   decoded.CandidateCount,
		PromptTokens:     decoded.PromptTokens,
		ProcessingMillis: decoded.ProcessingMillis,
	}

	if decoded.AudioBase64 == "" {
		return resp, nil, nil
	}
	audio, err := base64.StdEncoding.DecodeString(decoded.AudioBase64)
	if err != nil {
		// The translation half is fine; drop the malformed audio.
		c.logger.Warn("discarding malformed audio payload", "error", err)
		return resp, nil, nil
	}
	return resp, audio, nil
}

// Synthesize requests audio for text and decodes the base64 payload.
func (c *Client) Synthesize(ctx context.Context, req pipeline.SynthesizeRequest) ([]byte, error) {
	body := synthesizeRequest{
		Text:         req.Text,
		LanguageCode: req.LanguageCode,
		VoiceGender:  req.Voice.Gender,
		SpeakingRate: req.Voice.SpeakingRate,
		Encoding:     req.Voice.Encoding,
	}

	data, err := c.post(ctx, "/v1/text-to-speech", body)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		AudioBase64 string `json:"audio_base64"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, pipeline.NewError(pipeline.KindFormatConversionFailed, "remote", fmt.Errorf("unable to decode response: %w", err))
	}
	if decoded.AudioBase64 == "" {
		return nil, pipeline.NewError(pipeline.KindEmptyResult, "remote", nil)
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.AudioBase64)
	if err != nil {
		return nil, pipeline.NewError(pipeline.KindFormatConversionFailed, "remote", fmt.Errorf("unable to decode audio payload: %w", err))
	}
	return audio, nil
}

// Languages fetches the backend's supported-language list. Callers fall
// back to the static table when the backend is unreachable.
func (c *Client) Languages(ctx context.Context) ([]lang.Language, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/languages", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp, data)
	}

	var decoded struct {
		Languages []struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"languages"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, pipeline.NewError(pipeline.KindEmptyResult, "remote", fmt.Errorf("unable to decode response: %w", err))
	}

	languages := make([]lang.Language, 0, len(decoded.Languages))
	for _, l := range decoded.Languages {
		languages = append(languages, lang.Language{Code: l.Code, Name: l.Name})
	}
	return languages, nil
}

// Health probes the backend's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pipeline.NewError(pipeline.KindServerError, "remote",
			fmt.Errorf("health check returned %d", resp.StatusCode))
	}
	return nil
}

// post sends a JSON body and returns the raw response payload, with HTTP
// status classes mapped onto the error taxonomy.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, pipeline.NewError(pipeline.KindCanceled, "remote", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("unable to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("unable to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.credentials != nil {
		key, err := c.credentials()
		if err != nil {
			return nil, pipeline.NewError(pipeline.KindAuthFailed, "remote", err)
		}
		httpReq.Header.Set("X-API-Key", key)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp, data)
	}
	return data, nil
}

// classifyTransport maps network-level failures: timeouts are retryable,
// unreachable networks are terminal but degradation-eligible.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return pipeline.NewError(pipeline.KindNetworkTimeout, "remote", err)
	}
	if errors.Is(err, context.Canceled) {
		return pipeline.NewError(pipeline.KindCanceled, "remote", err)
	}
	return pipeline.NewError(pipeline.KindNoInternet, "remote", err)
}

// classifyStatus maps HTTP status classes onto error kinds. Rate limits
// carry the server's Retry-After; 400s are split by their detail message so
// repairable causes keep their kind.
func classifyStatus(resp *http.Response, body []byte) error {
	var detail errorResponse
	_ = json.Unmarshal(body, &detail)
	cause := errors.New(strings.TrimSpace(detail.Detail))
	if detail.Detail == "" {
		cause = fmt.Errorf("status %d", resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return pipeline.NewError(pipeline.KindAuthFailed, "remote", cause)

	case resp.StatusCode == http.StatusTooManyRequests:
		return &pipeline.Error{
			Kind:       pipeline.KindRateLimited,
			Component:  "remote",
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        cause,
		}

	case resp.StatusCode >= 500:
		return pipeline.NewError(pipeline.KindServerError, "remote", cause)

	case resp.StatusCode == http.StatusBadRequest:
		return pipeline.NewError(classifyDetail(detail.Detail), "remote", cause)

	default:
		return pipeline.NewError(pipeline.KindUnknown, "remote", cause)
	}
}

// classifyDetail inspects a 400's detail message for repairable causes.
func classifyDetail(detail string) pipeline.ErrorKind {
	detail = strings.ToLower(detail)
	switch {
	case strings.Contains(detail, "language"):
		return pipeline.KindUnsupportedLanguage
	case strings.Contains(detail, "voice"):
		return pipeline.KindUnsupportedVoice
	case strings.Contains(detail, "encoding") || strings.Contains(detail, "format"):
		return pipeline.KindFormatConversionFailed
	default:
		return pipeline.KindGenerationFailed
	}
}

// parseRetryAfter reads a Retry-After header in seconds, defaulting when the
// header is absent or malformed.
func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return time.Second
	}
	return time.Duration(seconds) * time.Second
}

var (
	_ pipeline.Boundary      = (*Client)(nil)
	_ pipeline.AudioBoundary = (*Client)(nil)
)
