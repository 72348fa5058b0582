package lang

import "testing"

func TestSupportedSet(t *testing.T) {
	if len(Supported()) != 12 {
		t.Fatalf("expected 12 supported languages, got %d", len(Supported()))
	}

	for _, code := range []string{"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh", "ar", "hi"} {
		if !IsSupported(code) {
			t.Errorf("expected %q to be supported", code)
		}
	}

	if IsSupported("xx") {
		t.Error("xx should not be supported")
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"EN":    "en",
		" fr ":  "fr",
		"pt-BR": "pt",
		"zh_CN": "zh",
		"de":    "de",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"en": "English",
		"fr": "French",
		"de": "German",
		"zh": "Chinese",
	}
	for code, want := range cases {
		if got := DisplayName(code); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", code, got, want)
		}
	}

	// Unknown codes pass through so a request can still be attempted.
	if got := DisplayName("tlh"); got != "tlh" {
		t.Errorf("DisplayName(tlh) = %q, want pass-through", got)
	}
}

func TestLocale(t *testing.T) {
	if got := Locale("fr"); got != "fr-FR" {
		t.Errorf("Locale(fr) = %q", got)
	}
	if got := Locale("nope"); got != "en-US" {
		t.Errorf("Locale(nope) = %q, want en-US default", got)
	}
}

func TestDetectScripts(t *testing.T) {
	cases := map[string]string{
		"Привет, как дела?": "ru",
		"こんにちは、元気ですか":       "ja",
		"안녕하세요":             "ko",
		"你好吗":               "zh",
		"مرحبا كيف حالك":     "ar",
		"नमस्ते कैसे हो":     "hi",
		"¿Cómo estás, señor?": "es",
		"Ça va très bien.":    "fr",
		"Schöne Grüße":        "de",
		"hello there":         "en",
		"":                    "en",
	}
	for text, want := range cases {
		if got := Detect(text); got != want {
			t.Errorf("Detect(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestDetectHanWithKanaIsJapanese(t *testing.T) {
	// Kanji plus kana must not be mistaken for Chinese.
	if got := Detect("日本語を勉強しています"); got != "ja" {
		t.Errorf("Detect = %q, want ja", got)
	}
}

func TestPhrase(t *testing.T) {
	if got, ok := Phrase("Hello", "es"); !ok || got != "hola" {
		t.Errorf("Phrase(Hello, es) = %q, %v", got, ok)
	}
	if got, ok := Phrase("  GOOD MORNING  ", "fr"); !ok || got != "bonjour" {
		t.Errorf("Phrase(good morning, fr) = %q, %v", got, ok)
	}
	if _, ok := Phrase("supercalifragilistic", "fr"); ok {
		t.Error("unexpected phrasebook hit")
	}
	if _, ok := Phrase("hello", "xx"); ok {
		t.Error("unexpected hit for unsupported target")
	}
}
