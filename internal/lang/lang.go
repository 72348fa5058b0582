// Package lang holds the supported language registry along with the offline
// heuristics (script detection, phrasebook) used when the network is gone.
package lang

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language describes one supported translation language.
type Language struct {
	Code   string // ISO 639-1 code, e.g. "fr"
	Name   string // Human-readable English name, e.g. "French"
	Locale string // BCP-47 locale used by the speech backend, e.g. "fr-FR"
}

// supported mirrors the backend's /v1/languages set. Order matters for
// user-facing listings.
var supported = []Language{
	{Code: "en", Locale: "en-US"},
	{Code: "es", Locale: "es-ES"},
	{Code: "fr", Locale: "fr-FR"},
	{Code: "de", Locale: "de-DE"},
	{Code: "it", Locale: "it-IT"},
	{Code: "pt", Locale: "pt-BR"},
	{Code: "ru", Locale: "ru-RU"},
	{Code: "ja", Locale: "ja-JP"},
	{Code: "ko", Locale: "ko-KR"},
	{Code: "zh", Locale: "zh-CN"},
	{Code: "ar", Locale: "ar-XA"},
	{Code: "hi", Locale: "hi-IN"},
}

var byCode map[string]Language

func init() {
	namer := display.English.Languages()
	byCode = make(map[string]Language, len(supported))
	for i, l := range supported {
		tag := language.Make(l.Code)
		supported[i].Name = namer.Name(tag)
		byCode[l.Code] = supported[i]
	}
}

// Supported returns the supported language set in listing order.
func Supported() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// Codes returns the sorted set of supported language codes.
func Codes() []string {
	codes := make([]string, 0, len(byCode))
	for c := range byCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// IsSupported reports whether code names a supported language.
func IsSupported(code string) bool {
	_, ok := byCode[Normalize(code)]
	return ok
}

// Normalize lowercases and trims a language code, reducing regional variants
// ("pt-BR", "zh_CN") to their base language.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// DisplayName returns the human-readable English name for a language code.
// The translation backend is prompted with names, not codes. Unknown codes
// fall back to the code itself so a request can still be attempted.
func DisplayName(code string) string {
	if l, ok := byCode[Normalize(code)]; ok {
		return l.Name
	}
	return code
}

// Locale returns the speech-synthesis locale for a language code, defaulting
// to US English the way the backend does.
func Locale(code string) string {
	if l, ok := byCode[Normalize(code)]; ok {
		return l.Locale
	}
	return "en-US"
}

// DefaultCode is the fallback language for repairs and detection.
const DefaultCode = "en"
