package pipeline

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voxlate/internal/cache"
	"github.com/dgnsrekt/voxlate/internal/lang"
)

// cachedConfidence is reported for cache hits: the entry was validated when
// it was first produced, so it outranks a fresh estimate.
const cachedConfidence = 0.92

// Confidence heuristic parameters. An opaque relative indicator, not a
// calibrated probability.
const (
	baseConfidence      = 0.85
	confidenceStep      = 0.05
	shortPromptTokens   = 100
	longPromptTokens    = 500
	approxCharsPerToken = 4
)

// Translator turns text in one language into text in another, consulting the
// cache first and surviving remote failures through retry, repair and the
// degradation chain.
type Translator struct {
	boundary Boundary
	cache    *cache.Manager
	chain    *DegradationChain
	config   Config
	logger   *log.Logger
}

// NewTranslator creates a translation client.
func NewTranslator(boundary Boundary, cacheManager *cache.Manager, chain *DegradationChain, config Config, logger *log.Logger) *Translator {
	if logger == nil {
		logger = log.Default()
	}
	return &Translator{
		boundary: boundary,
		cache:    cacheManager,
		chain:    chain,
		config:   config,
		logger:   logger.With("component", "translator"),
	}
}

// Translate validates, then resolves the request through cache, remote call
// and fallback in that order. Validation failures surface immediately with
// no degradation attempt.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (Translation, error) {
	normalized := cache.NormalizeText(text)
	source = lang.Normalize(source)
	target = lang.Normalize(target)

	if err := t.validate(normalized, source, target); err != nil {
		return Translation{}, err
	}

	fp := cache.NewFingerprint(cache.KindTranslation, normalized, source, target, "")
	if payload, ok := t.cache.Retrieve(fp); ok {
		t.logger.Debug("cache hit", "source", source, "target", target)
		return Translation{
			OriginalText:   normalized,
			TranslatedText: string(payload),
			SourceLanguage: source,
			TargetLanguage: target,
			Confidence:     cachedConfidence,
			Timestamp:      time.Now(),
		}, nil
	}

	req := TranslateRequest{
		Text:               normalized,
		SourceLanguageName: lang.DisplayName(source),
		TargetLanguageName: lang.DisplayName(target),
	}

	resp, err := t.callWithRetry(ctx, req, normalized)
	if err != nil {
		if IsInputInvalid(err) || KindOf(err) == KindCanceled {
			return Translation{}, err
		}
		t.logger.Warn("primary path exhausted, trying degradation chain", "err", err)
		return t.chain.Translate(normalized, source, target, err)
	}

	translation := Translation{
		OriginalText:   normalized,
		TranslatedText: resp.TranslatedText,
		SourceLanguage: source,
		TargetLanguage: target,
		Confidence:     estimateConfidence(normalized, resp),
		Timestamp:      time.Now(),
	}
	t.cache.Store(fp, []byte(resp.TranslatedText))

	return translation, nil
}

// TranslateWithAudio resolves text and audio in one round trip when the
// boundary supports it, halving latency on the happy path. Audio is best
// effort: nil audio with a nil error means the caller should synthesize
// separately. Boundaries without the combined endpoint fall back to the
// text-only flow.
func (t *Translator) TranslateWithAudio(ctx context.Context, text, source, target string, voice VoiceParams) (Translation, []byte, error) {
	combined, ok := t.boundary.(AudioBoundary)
	if !ok {
		translation, err := t.Translate(ctx, text, source, target)
		return translation, nil, err
	}

	normalized := cache.NormalizeText(text)
	source = lang.Normalize(source)
	target = lang.Normalize(target)

	if err := t.validate(normalized, source, target); err != nil {
		return Translation{}, nil, err
	}

	fp := cache.NewFingerprint(cache.KindTranslation, normalized, source, target, "")
	if payload, ok := t.cache.Retrieve(fp); ok {
		translated := string(payload)
		translation := Translation{
			OriginalText:   normalized,
			TranslatedText: translated,
			SourceLanguage: source,
			TargetLanguage: target,
			Confidence:     cachedConfidence,
			Timestamp:      time.Now(),
		}
		audioFP := cache.NewFingerprint(cache.KindAudio, cache.NormalizeText(translated), "", target, voice.Key())
		audio, _ := t.cache.Retrieve(audioFP)
		return translation, audio, nil
	}

	req := TranslateRequest{
		Text:               normalized,
		SourceLanguageName: lang.DisplayName(source),
		TargetLanguageName: lang.DisplayName(target),
	}

	resp, audio, err := t.callCombinedWithRetry(ctx, combined, req, voice, normalized)
	if err != nil {
		if IsInputInvalid(err) || KindOf(err) == KindCanceled {
			return Translation{}, nil, err
		}
		t.logger.Warn("combined path exhausted, trying degradation chain", "err", err)
		translation, chainErr := t.chain.Translate(normalized, source, target, err)
		return translation, nil, chainErr
	}

	translation := Translation{
		OriginalText:   normalized,
		TranslatedText: resp.TranslatedText,
		SourceLanguage: source,
		TargetLanguage: target,
		Confidence:     estimateConfidence(normalized, resp),
		Timestamp:      time.Now(),
	}
	t.cache.Store(fp, []byte(resp.TranslatedText))
	if len(audio) > 0 {
		audioFP := cache.NewFingerprint(cache.KindAudio, cache.NormalizeText(resp.TranslatedText), "", target, voice.Key())
		t.cache.Store(audioFP, audio)
	}

	return translation, audio, nil
}

func (t *Translator) validate(normalized, source, target string) error {
	switch {
	case normalized == "":
		return NewError(KindInputInvalid, "translator", ErrEmptyText)
	case utf8.RuneCountInString(normalized) > t.config.MaxTranslationChars:
		return NewError(KindInputInvalid, "translator", ErrTextTooLong)
	case source == target:
		return NewError(KindInputInvalid, "translator", ErrSameLanguage)
	case !lang.IsSupported(source) || !lang.IsSupported(target):
		return NewError(KindInputInvalid, "translator", ErrBadLanguage)
	}
	return nil
}

// callWithRetry drives the remote call through the retry policy. Retryable
// failures back off and try again; repairable ones get exactly one request
// rewrite. A fresh RetryState scopes the backoff to this call chain.
func (t *Translator) callWithRetry(ctx context.Context, req TranslateRequest, text string) (*TranslateResponse, error) {
	state := &RetryState{}
	repaired := false

	for {
		callCtx, cancel := context.WithTimeout(ctx, t.config.RequestTimeout)
		resp, err := t.boundary.Translate(callCtx, req)
		cancel()

		if err == nil {
			if resp == nil || resp.TranslatedText == "" {
				err = NewError(KindEmptyResult, "translator", nil)
			} else {
				return resp, nil
			}
		}

		if ctx.Err() != nil {
			return nil, NewError(KindCanceled, "translator", ctx.Err())
		}

		switch {
		case IsRetryable(err):
			delay, ok := t.config.Retry.NextDelay(state, err)
			if !ok {
				return nil, err
			}
			t.logger.Debug("retrying after backoff", "attempt", state.Attempts, "delay", delay)
			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return nil, NewError(KindCanceled, "translator", sleepErr)
			}

		case IsRepairable(err) && !repaired:
			repaired = true
			if KindOf(err) == KindUnsupportedLanguage {
				detected := lang.Detect(text)
				t.logger.Info("repairing request with detected source language", "detected", detected)
				req.SourceLanguageName = lang.DisplayName(detected)
			}

		default:
			return nil, err
		}
	}
}

// callCombinedWithRetry drives the combined translate+audio call through the
// same retry and repair rules as the text-only call. A translation with no
// audio is still a success.
func (t *Translator) callCombinedWithRetry(ctx context.Context, combined AudioBoundary, req TranslateRequest, voice VoiceParams, text string) (*TranslateResponse, []byte, error) {
	state := &RetryState{}
	repaired := false

	for {
		callCtx, cancel := context.WithTimeout(ctx, t.config.RequestTimeout)
		resp, audio, err := combined.TranslateAudio(callCtx, req, voice)
		cancel()

		if err == nil {
			if resp == nil || resp.TranslatedText == "" {
				err = NewError(KindEmptyResult, "translator", nil)
			} else {
				return resp, audio, nil
			}
		}

		if ctx.Err() != nil {
			return nil, nil, NewError(KindCanceled, "translator", ctx.Err())
		}

		switch {
		case IsRetryable(err):
			delay, ok := t.config.Retry.NextDelay(state, err)
			if !ok {
				return nil, nil, err
			}
			t.logger.Debug("retrying after backoff", "attempt", state.Attempts, "delay", delay)
			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return nil, nil, NewError(KindCanceled, "translator", sleepErr)
			}

		case IsRepairable(err) && !repaired:
			repaired = true
			if KindOf(err) == KindUnsupportedLanguage {
				detected := lang.Detect(text)
				t.logger.Info("repairing request with detected source language", "detected", detected)
				req.SourceLanguageName = lang.DisplayName(detected)
			}

		default:
			return nil, nil, err
		}
	}
}

// estimateConfidence applies the fixed heuristic: base 0.85, bumped for
// multiple candidates and short prompts, docked for very long prompts.
func estimateConfidence(text string, resp *TranslateResponse) float64 {
	confidence := baseConfidence

	if resp.CandidateCount > 1 {
		confidence += confidenceStep
	}

	tokens := resp.PromptTokens
	if tokens == 0 {
		tokens = utf8.RuneCountInString(text) / approxCharsPerToken
	}
	if tokens < shortPromptTokens {
		confidence += confidenceStep
	} else if tokens > longPromptTokens {
		confidence -= confidenceStep
	}

	if confidence > 1 {
		confidence = 1
	} else if confidence < 0 {
		confidence = 0
	}
	return confidence
}
