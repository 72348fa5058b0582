package pipeline

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voxlate/internal/cache"
	"github.com/dgnsrekt/voxlate/internal/lang"
)

// DegradedMarker prefixes fallback output assembled from partial (per-word)
// cache matches, where the text itself is approximate. Whole-result
// fallbacks, exact cache reuse and phrasebook hits, carry verbatim text and
// are marked through the Translation's Degraded flag and reduced confidence
// instead.
const DegradedMarker = "~"

// degradedConfidence is reported for any fallback-produced translation.
const degradedConfidence = 0.5

// DegradationChain is consulted once a client's retry budget is exhausted or
// its error is terminal. Strategies run in order and the first success wins;
// when none produces output the original classified error is surfaced.
type DegradationChain struct {
	cache  *cache.Manager
	logger *log.Logger
}

// NewDegradationChain creates a chain over the shared request cache.
func NewDegradationChain(cacheManager *cache.Manager, logger *log.Logger) *DegradationChain {
	if logger == nil {
		logger = log.Default()
	}
	return &DegradationChain{
		cache:  cacheManager,
		logger: logger.With("component", "degradation"),
	}
}

// Translate runs the translation-path fallback strategies. cause is the
// classified error that exhausted the primary path; it is returned unchanged
// when every strategy misses.
func (d *DegradationChain) Translate(text, source, target string, cause error) (Translation, error) {
	if out, ok := d.cachedSimilar(text, target); ok {
		d.logger.Info("degraded to cached-similar result", "target", target)
		return d.degraded(text, out, source, target), nil
	}

	// Script detection: when the text is already written in the target
	// language's script, pass it through instead of failing.
	if detected := lang.Detect(text); detected == lang.Normalize(target) {
		d.logger.Info("degraded via script detection, text already in target language",
			"detected", detected)
		return d.degraded(text, text, detected, target), nil
	}

	if out, ok := lang.Phrase(text, target); ok {
		d.logger.Info("degraded to offline phrasebook", "target", target)
		return d.degraded(text, out, source, target), nil
	}

	return Translation{}, cause
}

// Synthesize runs the synthesis-path fallback strategies. Any cached audio
// for the same text and language is reused regardless of the requested
// voice; failing that the pipeline continues text-only via
// ErrAudioUnavailable.
func (d *DegradationChain) Synthesize(text, language string, voice VoiceParams, cause error) ([]byte, error) {
	probes := []VoiceParams{voice, DefaultVoice()}
	for _, gender := range []string{"male", "female", "neutral"} {
		probes = append(probes, VoiceParams{Gender: gender, SpeakingRate: 1.0})
	}

	seen := make(map[string]bool)
	for _, p := range probes {
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true

		fp := cache.NewFingerprint(cache.KindAudio, text, "", language, p.Key())
		if audio, ok := d.cache.Retrieve(fp); ok {
			d.logger.Info("degraded to cached audio", "voice", p.Key())
			return audio, nil
		}
	}

	d.logger.Warn("no audio tier available, continuing text only", "cause", cause)
	return nil, ErrAudioUnavailable
}

// cachedSimilar is the first translation strategy: an exact-text probe of the
// cache across every supported source language (cross-source reuse), then for
// short inputs a per-keyword probe whose assembled result is marked degraded.
func (d *DegradationChain) cachedSimilar(text, target string) (string, bool) {
	for _, source := range lang.Codes() {
		fp := cache.NewFingerprint(cache.KindTranslation, text, source, target, "")
		if payload, ok := d.cache.Retrieve(fp); ok {
			return string(payload), true
		}
	}

	words := strings.Fields(cache.NormalizeText(text))
	if len(words) == 0 || len(words) > 3 {
		return "", false
	}

	parts := make([]string, 0, len(words))
	for _, word := range words {
		found := ""
		for _, source := range lang.Codes() {
			fp := cache.NewFingerprint(cache.KindTranslation, word, source, target, "")
			if payload, ok := d.cache.Retrieve(fp); ok {
				found = string(payload)
				break
			}
		}
		if found == "" {
			return "", false
		}
		parts = append(parts, found)
	}

	return DegradedMarker + strings.Join(parts, " "), true
}

func (d *DegradationChain) degraded(original, translated, source, target string) Translation {
	return Translation{
		OriginalText:   original,
		TranslatedText: translated,
		SourceLanguage: source,
		TargetLanguage: target,
		Confidence:     degradedConfidence,
		Degraded:       true,
		Timestamp:      time.Now(),
	}
}
