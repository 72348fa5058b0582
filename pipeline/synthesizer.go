package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voxlate/internal/cache"
	"github.com/dgnsrekt/voxlate/internal/lang"
)

// alternateEncoding is requested when the boundary cannot convert to the
// preferred container.
const alternateEncoding = "WAV"

// Synthesizer turns text into audio through the same cache/retry/degrade
// flow as the translator, and fans a batch out concurrently while preserving
// input order in the results.
type Synthesizer struct {
	boundary Boundary
	cache    *cache.Manager
	chain    *DegradationChain
	config   Config
	logger   *log.Logger
}

// NewSynthesizer creates a synthesis client.
func NewSynthesizer(boundary Boundary, cacheManager *cache.Manager, chain *DegradationChain, config Config, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Synthesizer{
		boundary: boundary,
		cache:    cacheManager,
		chain:    chain,
		config:   config,
		logger:   logger.With("component", "synthesizer"),
	}
}

// Synthesize produces audio for text. A nil slice with ErrAudioUnavailable
// means every tier failed and the caller should continue text-only.
func (s *Synthesizer) Synthesize(ctx context.Context, text, language string, voice VoiceParams) ([]byte, error) {
	normalized := cache.NormalizeText(text)
	language = lang.Normalize(language)

	switch {
	case normalized == "":
		return nil, NewError(KindInputInvalid, "synthesizer", ErrEmptyText)
	case utf8.RuneCountInString(normalized) > s.config.MaxSynthesisChars:
		return nil, NewError(KindInputInvalid, "synthesizer", ErrTextTooLong)
	}

	fp := cache.NewFingerprint(cache.KindAudio, normalized, "", language, voice.Key())
	if audio, ok := s.cache.Retrieve(fp); ok {
		s.logger.Debug("cache hit", "language", language)
		return audio, nil
	}

	req := SynthesizeRequest{
		Text:         normalized,
		LanguageCode: lang.Locale(language),
		Voice:        voice,
	}

	audio, err := s.callWithRetry(ctx, req)
	if err != nil {
		if KindOf(err) == KindCanceled {
			return nil, err
		}
		s.logger.Warn("primary path exhausted, trying degradation chain", "err", err)
		return s.chain.Synthesize(normalized, language, voice, err)
	}

	s.cache.Store(fp, audio)
	return audio, nil
}

// SynthesizeBatch synthesizes each text concurrently, each item independently
// cached and retried, and returns results re-sorted by input index no matter
// which request finishes first. A failed item fails the batch with its index;
// an item whose audio tiers are all exhausted comes back with nil AudioData
// instead of failing the batch.
func (s *Synthesizer) SynthesizeBatch(ctx context.Context, texts []string, language string, voice VoiceParams) ([]SynthesisResult, error) {
	results := make([]SynthesisResult, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			audio, err := s.Synthesize(ctx, text, language, voice)
			if err != nil && !errors.Is(err, ErrAudioUnavailable) {
				errs[i] = err
				return
			}
			results[i] = SynthesisResult{
				AudioData:        audio,
				Language:         lang.Normalize(language),
				Voice:            voice,
				SourceTextLength: utf8.RuneCountInString(text),
			}
		}(i, text)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return results, nil
}

// callWithRetry drives the remote call through the retry policy, applying the
// error-specific request repairs once each.
func (s *Synthesizer) callWithRetry(ctx context.Context, req SynthesizeRequest) ([]byte, error) {
	state := &RetryState{}
	repairedKinds := make(map[ErrorKind]bool)

	for {
		callCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
		audio, err := s.boundary.Synthesize(callCtx, req)
		cancel()

		if err == nil {
			if len(audio) == 0 {
				err = NewError(KindEmptyResult, "synthesizer", nil)
			} else {
				return audio, nil
			}
		}

		if ctx.Err() != nil {
			return nil, NewError(KindCanceled, "synthesizer", ctx.Err())
		}

		switch {
		case IsRetryable(err):
			delay, ok := s.config.Retry.NextDelay(state, err)
			if !ok {
				return nil, err
			}
			s.logger.Debug("retrying after backoff", "attempt", state.Attempts, "delay", delay)
			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return nil, NewError(KindCanceled, "synthesizer", sleepErr)
			}

		case IsRepairable(err) && !repairedKinds[KindOf(err)]:
			kind := KindOf(err)
			repairedKinds[kind] = true
			req = repairRequest(req, kind)
			s.logger.Info("repaired synthesis request", "kind", kind.String())

		default:
			return nil, err
		}
	}
}

// repairRequest rewrites the request once per repairable error kind.
func repairRequest(req SynthesizeRequest, kind ErrorKind) SynthesizeRequest {
	switch kind {
	case KindUnsupportedLanguage:
		req.LanguageCode = lang.Locale(lang.DefaultCode)
	case KindUnsupportedVoice:
		req.Voice = DefaultVoice()
	case KindGenerationFailed:
		req.Text = asciiSafe(req.Text)
	case KindFormatConversionFailed:
		req.Voice.Encoding = alternateEncoding
	}
	return req
}

// asciiSafe strips the text to a reduced-punctuation ASCII subset, keeping
// letters, digits, spaces and sentence-final punctuation.
func asciiSafe(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r > unicode.MaxASCII:
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ':
			b.WriteRune(r)
		case r == '.' || r == ',' || r == '?' || r == '!':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
