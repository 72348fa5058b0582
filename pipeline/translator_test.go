package pipeline

import (
	"context"
	"errors"
	"testing"
)

func TestTranslateValidation(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		source  string
		target  string
		wantErr error
	}{
		{name: "empty text", text: "   ", source: "en", target: "fr", wantErr: ErrEmptyText},
		{name: "text too long", text: longText(10001), source: "en", target: "fr", wantErr: ErrTextTooLong},
		{name: "same language", text: "hello", source: "en", target: "en", wantErr: ErrSameLanguage},
		{name: "bad source", text: "hello", source: "xx", target: "fr", wantErr: ErrBadLanguage},
		{name: "bad target", text: "hello", source: "en", target: "klingon", wantErr: ErrBadLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boundary := &mockBoundary{}
			tr, _ := newTestTranslator(t, boundary)

			_, err := tr.Translate(context.Background(), tt.text, tt.source, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if KindOf(err) != KindInputInvalid {
				t.Errorf("got kind %v, want KindInputInvalid", KindOf(err))
			}

			if calls, _ := boundary.calls(); calls != 0 {
				t.Errorf("boundary was called %d times on invalid input", calls)
			}
		})
	}
}

func TestTranslateMaxLengthBoundary(t *testing.T) {
	tr, _ := newTestTranslator(t, &mockBoundary{})

	// Exactly at the limit is accepted.
	if _, err := tr.Translate(context.Background(), longText(10000), "en", "fr"); err != nil {
		t.Errorf("text at limit was rejected: %v", err)
	}
}

func TestTranslateSuccessAndCaching(t *testing.T) {
	boundary := &mockBoundary{}
	tr, _ := newTestTranslator(t, boundary)

	first, err := tr.Translate(context.Background(), "Good morning", "en", "fr")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if first.TranslatedText != "Bonjour" {
		t.Errorf("got %q, want Bonjour", first.TranslatedText)
	}
	if first.Degraded {
		t.Error("fresh translation marked degraded")
	}

	// Second identical request must come from cache, not the boundary,
	// and report the fixed cache-hit confidence.
	second, err := tr.Translate(context.Background(), "Good morning", "en", "fr")
	if err != nil {
		t.Fatalf("translate (cached): %v", err)
	}
	if second.Confidence != cachedConfidence {
		t.Errorf("cached confidence %v, want %v", second.Confidence, cachedConfidence)
	}
	if calls, _ := boundary.calls(); calls != 1 {
		t.Errorf("boundary called %d times, want 1", calls)
	}
}

func TestTranslateCacheKeyIgnoresWhitespace(t *testing.T) {
	boundary := &mockBoundary{}
	tr, _ := newTestTranslator(t, boundary)

	if _, err := tr.Translate(context.Background(), "Good morning", "en", "fr"); err != nil {
		t.Fatalf("translate: %v", err)
	}
	if _, err := tr.Translate(context.Background(), "  Good   morning ", "en", "fr"); err != nil {
		t.Fatalf("translate: %v", err)
	}

	if calls, _ := boundary.calls(); calls != 1 {
		t.Errorf("boundary called %d times, want 1 (whitespace variants share a key)", calls)
	}
}

func TestTranslateRetriesServerErrors(t *testing.T) {
	boundary := &mockBoundary{
		translateFn: func(call int, req TranslateRequest) (*TranslateResponse, error) {
			if call <= 2 {
				return nil, serverError()
			}
			return &TranslateResponse{TranslatedText: "Bonjour"}, nil
		},
	}
	tr, _ := newTestTranslator(t, boundary)

	out, err := tr.Translate(context.Background(), "Good morning", "en", "fr")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out.TranslatedText != "Bonjour" {
		t.Errorf("got %q, want Bonjour", out.TranslatedText)
	}
	if calls, _ := boundary.calls(); calls != 3 {
		t.Errorf("boundary called %d times, want 3", calls)
	}
}

func TestTranslateRepairsUnsupportedLanguageOnce(t *testing.T) {
	var repairedName string
	boundary := &mockBoundary{
		translateFn: func(call int, req TranslateRequest) (*TranslateResponse, error) {
			if call == 1 {
				return nil, NewError(KindUnsupportedLanguage, "remote", errors.New("bad language"))
			}
			repairedName = req.SourceLanguageName
			return &TranslateResponse{TranslatedText: "Привет"}, nil
		},
	}
	tr, _ := newTestTranslator(t, boundary)

	// Cyrillic text with a claimed English source: the repair re-detects
	// the source from the script.
	out, err := tr.Translate(context.Background(), "Привет мир", "en", "fr")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out.TranslatedText != "Привет" {
		t.Errorf("got %q", out.TranslatedText)
	}
	if repairedName != "Russian" {
		t.Errorf("repaired source %q, want Russian", repairedName)
	}
}

func TestTranslateRepairOnlyOnce(t *testing.T) {
	boundary := &mockBoundary{
		translateFn: func(call int, req TranslateRequest) (*TranslateResponse, error) {
			return nil, NewError(KindUnsupportedLanguage, "remote", errors.New("still bad"))
		},
	}
	tr, _ := newTestTranslator(t, boundary)

	_, err := tr.Translate(context.Background(), "zzz qqq xxy", "en", "fr")
	if err == nil {
		t.Fatal("expected failure")
	}
	// One original attempt plus one repaired attempt, then the chain.
	if calls, _ := boundary.calls(); calls != 2 {
		t.Errorf("boundary called %d times, want 2", calls)
	}
}

func TestTranslateDegradesToPhrasebook(t *testing.T) {
	boundary := &mockBoundary{
		translateFn: func(call int, req TranslateRequest) (*TranslateResponse, error) {
			return nil, NewError(KindNoInternet, "remote", errors.New("no route to host"))
		},
	}
	tr, _ := newTestTranslator(t, boundary)

	out, err := tr.Translate(context.Background(), "hello", "en", "es")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out.TranslatedText != "hola" {
		t.Errorf("got %q, want hola", out.TranslatedText)
	}
	if !out.Degraded {
		t.Error("phrasebook result not marked degraded")
	}
	if out.Confidence != degradedConfidence {
		t.Errorf("got confidence %v, want %v", out.Confidence, degradedConfidence)
	}
}

func TestTranslateDegradesToCachedSimilar(t *testing.T) {
	callCount := 0
	boundary := &mockBoundary{
		translateFn: func(call int, req TranslateRequest) (*TranslateResponse, error) {
			callCount++
			if callCount == 1 {
				return &TranslateResponse{TranslatedText: "Guten Morgen"}, nil
			}
			return nil, NewError(KindNoInternet, "remote", errors.New("offline"))
		},
	}
	tr, _ := newTestTranslator(t, boundary)

	// Prime the cache with an en->de translation.
	if _, err := tr.Translate(context.Background(), "Good morning", "en", "de"); err != nil {
		t.Fatalf("prime: %v", err)
	}

	// Offline, the same text from a different claimed source reuses the
	// cached result for the target.
	out, err := tr.Translate(context.Background(), "Good morning", "fr", "de")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out.TranslatedText != "Guten Morgen" {
		t.Errorf("got %q, want Guten Morgen", out.TranslatedText)
	}
	if !out.Degraded {
		t.Error("cross-source cache reuse not marked degraded")
	}
}

func TestTranslateScriptDetectionPassthrough(t *testing.T) {
	boundary := &mockBoundary{
		translateFn: func(call int, req TranslateRequest) (*TranslateResponse, error) {
			return nil, NewError(KindNoInternet, "remote", errors.New("offline"))
		},
	}
	tr, _ := newTestTranslator(t, boundary)

	// The text is already Japanese; translating "to Japanese" offline
	// passes it through.
	out, err := tr.Translate(context.Background(), "こんにちは世界", "en", "ja")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out.TranslatedText != "こんにちは世界" {
		t.Errorf("got %q, want passthrough", out.TranslatedText)
	}
	if !out.Degraded {
		t.Error("passthrough not marked degraded")
	}
}

func TestTranslateSurfacesErrorWhenChainMisses(t *testing.T) {
	boundary := &mockBoundary{
		translateFn: func(call int, req TranslateRequest) (*TranslateResponse, error) {
			return nil, NewError(KindAuthFailed, "remote", errors.New("bad key"))
		},
	}
	tr, _ := newTestTranslator(t, boundary)

	_, err := tr.Translate(context.Background(), "completely novel sentence nobody cached", "en", "fr")
	if KindOf(err) != KindAuthFailed {
		t.Errorf("got kind %v, want KindAuthFailed", KindOf(err))
	}
}

func TestTranslateCanceledSkipsDegradation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	boundary := &mockBoundary{
		translateFn: func(call int, req TranslateRequest) (*TranslateResponse, error) {
			cancel()
			return nil, serverError()
		},
	}
	tr, _ := newTestTranslator(t, boundary)

	// "hello" -> "es" has a phrasebook entry, but cancellation must win.
	_, err := tr.Translate(ctx, "hello", "en", "es")
	if KindOf(err) != KindCanceled {
		t.Errorf("got kind %v, want KindCanceled", KindOf(err))
	}
}

func TestTranslateWithAudioFallsBackWithoutCombined(t *testing.T) {
	boundary := &mockBoundary{}
	tr, _ := newTestTranslator(t, boundary)

	translation, audio, err := tr.TranslateWithAudio(context.Background(), "Good morning", "en", "fr", DefaultVoice())
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if translation.TranslatedText != "Bonjour" {
		t.Errorf("got %q", translation.TranslatedText)
	}
	if audio != nil {
		t.Errorf("plain boundary produced audio %q", audio)
	}
}

func TestTranslateWithAudioCombined(t *testing.T) {
	boundary := &combinedBoundary{}
	tr, _ := newTestTranslator(t, boundary)

	translation, audio, err := tr.TranslateWithAudio(context.Background(), "Good morning", "en", "fr", DefaultVoice())
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if translation.TranslatedText != "Bonjour" {
		t.Errorf("got %q", translation.TranslatedText)
	}
	if string(audio) != "audio:Bonjour" {
		t.Errorf("got audio %q", audio)
	}

	// The separate-call endpoints were never touched.
	if translateCalls, synthCalls := boundary.calls(); translateCalls != 0 || synthCalls != 0 {
		t.Errorf("separate endpoints called %d/%d times", translateCalls, synthCalls)
	}
}

func TestTranslateWithAudioCachesBothHalves(t *testing.T) {
	boundary := &combinedBoundary{}
	tr, _ := newTestTranslator(t, boundary)

	if _, _, err := tr.TranslateWithAudio(context.Background(), "Good morning", "en", "fr", DefaultVoice()); err != nil {
		t.Fatalf("translate: %v", err)
	}

	// Repeat resolves from cache, audio included.
	translation, audio, err := tr.TranslateWithAudio(context.Background(), "Good morning", "en", "fr", DefaultVoice())
	if err != nil {
		t.Fatalf("translate (cached): %v", err)
	}
	if translation.Confidence != cachedConfidence {
		t.Errorf("confidence %v, want %v", translation.Confidence, cachedConfidence)
	}
	if string(audio) != "audio:Bonjour" {
		t.Errorf("cached audio %q", audio)
	}
	if boundary.combinedCalls != 1 {
		t.Errorf("combined endpoint called %d times, want 1", boundary.combinedCalls)
	}
}

func TestTranslateWithAudioTextOnlyResponse(t *testing.T) {
	boundary := &combinedBoundary{
		combinedFn: func(call int, req TranslateRequest, voice VoiceParams) (*TranslateResponse, []byte, error) {
			return &TranslateResponse{TranslatedText: "Bonjour"}, nil, nil
		},
	}
	tr, _ := newTestTranslator(t, boundary)

	translation, audio, err := tr.TranslateWithAudio(context.Background(), "Good morning", "en", "fr", DefaultVoice())
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if translation.TranslatedText != "Bonjour" || audio != nil {
		t.Errorf("got %q / %q, want text with nil audio cue", translation.TranslatedText, audio)
	}
}

func TestEstimateConfidence(t *testing.T) {
	tests := []struct {
		name string
		text string
		resp TranslateResponse
		want float64
	}{
		{name: "short prompt bump", text: "hi", resp: TranslateResponse{PromptTokens: 10}, want: 0.90},
		{name: "mid prompt", text: "hi", resp: TranslateResponse{PromptTokens: 250}, want: 0.85},
		{name: "long prompt dock", text: "hi", resp: TranslateResponse{PromptTokens: 900}, want: 0.80},
		{name: "multiple candidates", text: "hi", resp: TranslateResponse{PromptTokens: 250, CandidateCount: 3}, want: 0.90},
		{name: "short and multi", text: "hi", resp: TranslateResponse{PromptTokens: 10, CandidateCount: 2}, want: 0.95},
		{name: "tokens estimated from runes", text: longText(3000), resp: TranslateResponse{}, want: 0.80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := estimateConfidence(tt.text, &tt.resp)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
