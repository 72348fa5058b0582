package lang

import "unicode"

// Detect guesses the language of text from its script alone. It is the
// offline stand-in for network language detection: each rune votes for the
// language its script belongs to and the majority script wins. Latin text is
// further split by the diacritics characteristic of each supported language.
// Returns DefaultCode when nothing votes.
func Detect(text string) string {
	votes := make(map[string]int)
	latin := 0

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			votes["ru"]++
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			votes["ja"]++
		case unicode.Is(unicode.Hangul, r):
			votes["ko"]++
		case unicode.Is(unicode.Han, r):
			votes["zh"]++
		case unicode.Is(unicode.Arabic, r):
			votes["ar"]++
		case unicode.Is(unicode.Devanagari, r):
			votes["hi"]++
		case unicode.Is(unicode.Latin, r):
			latin++
			if l, ok := latinDiacritics[r]; ok {
				votes[l]++
			}
		}
	}

	// Han characters appear inside Japanese text; kana is the tiebreaker.
	if votes["ja"] > 0 && votes["zh"] > 0 {
		votes["ja"] += votes["zh"]
		delete(votes, "zh")
	}

	best, bestVotes := "", 0
	for code, n := range votes {
		if n > bestVotes {
			best, bestVotes = code, n
		}
	}

	if best == "" || bestVotes < latin/20 {
		// Plain or overwhelmingly unaccented Latin text: default language.
		return DefaultCode
	}
	return best
}

// latinDiacritics maps accented Latin letters to the supported language they
// most strongly indicate. Coarse on purpose: shared accents (é, á) go to the
// language where they are most frequent in common text.
var latinDiacritics = map[rune]string{
	'ñ': "es", 'Ñ': "es", '¿': "es", '¡': "es", 'á': "es", 'í': "es", 'ó': "es", 'ú': "es",
	'è': "fr", 'ê': "fr", 'â': "fr", 'î': "fr", 'ô': "fr", 'û': "fr", 'ë': "fr", 'ï': "fr", 'ç': "fr", 'œ': "fr", 'é': "fr",
	'ä': "de", 'ö': "de", 'ü': "de", 'ß': "de", 'Ä': "de", 'Ö': "de", 'Ü': "de",
	'ã': "pt", 'õ': "pt",
	'à': "it", 'ì': "it", 'ò': "it", 'ù': "it",
}
