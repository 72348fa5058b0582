package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Kind distinguishes what a cache entry holds. Translations expire; audio is
// only size-bounded.
type Kind int

const (
	// KindTranslation marks cached translated text.
	KindTranslation Kind = iota
	// KindAudio marks cached synthesized audio.
	KindAudio
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTranslation:
		return "translation"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Fingerprint is the deterministic key for one cached request. Equal inputs
// always fingerprint equal; any differing field changes the sum. The sum is a
// truncated SHA-256 rather than a runtime hash so keys stay stable across
// processes and versions.
type Fingerprint struct {
	Kind Kind
	Sum  string
}

// NewFingerprint derives the fingerprint for a request. Text is normalized by
// trimming and collapsing interior whitespace; language codes are lowercased.
// Voice is empty for translation requests.
func NewFingerprint(kind Kind, text, source, target, voice string) Fingerprint {
	var b strings.Builder
	b.WriteString(kind.String())
	b.WriteByte('|')
	b.WriteString(NormalizeText(text))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(source)))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(target)))
	b.WriteByte('|')
	b.WriteString(voice)

	sum := sha256.Sum256([]byte(b.String()))
	return Fingerprint{Kind: kind, Sum: hex.EncodeToString(sum[:16])}
}

// Key returns the string form used by both tiers.
func (f Fingerprint) Key() string {
	return f.Kind.String() + "-" + f.Sum
}

// NormalizeText trims text and collapses runs of whitespace to single spaces
// so that cosmetically different inputs share a cache entry.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
