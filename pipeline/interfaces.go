package pipeline

import (
	"context"
	"time"
)

// TranslateRequest is the wire-level translation request. The backend is
// prompted with human-readable language names, not codes.
type TranslateRequest struct {
	Text               string
	SourceLanguageName string
	TargetLanguageName string
}

// TranslateResponse carries the boundary's translation result plus the usage
// metadata feeding the confidence heuristic.
type TranslateResponse struct {
	TranslatedText string
	// CandidateCount is how many alternatives the model offered.
	CandidateCount int
	// PromptTokens is the prompt size reported by usage metadata; zero
	// when the boundary does not report it.
	PromptTokens     int
	ProcessingMillis int
}

// SynthesizeRequest is the wire-level synthesis request.
type SynthesizeRequest struct {
	Text string
	// LanguageCode is a BCP-47 locale, e.g. "fr-FR".
	LanguageCode string
	Voice        VoiceParams
}

// Boundary is the remote translation/speech-synthesis service. Implementations
// must classify failures into *Error so the retry policy can act on them.
type Boundary interface {
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error)
	Synthesize(ctx context.Context, req SynthesizeRequest) ([]byte, error)
	// Health probes the service, returning nil when it is reachable.
	Health(ctx context.Context) error
}

// AudioBoundary is implemented by boundaries that can translate and
// synthesize in a single round trip. The audio half is best effort: a nil
// slice with a nil error means the caller should synthesize separately.
type AudioBoundary interface {
	TranslateAudio(ctx context.Context, req TranslateRequest, voice VoiceParams) (*TranslateResponse, []byte, error)
}

// Recognizer is the on-device speech-to-text engine. Start emits incremental
// transcripts until a final one arrives, silence exceeds the given threshold,
// or the context is canceled; Stop cancels capture.
type Recognizer interface {
	Start(ctx context.Context, languageCode string, silenceThreshold time.Duration) (<-chan Transcript, error)
	Stop()
}

// Player delivers synthesized audio. Play blocks until playback completes
// and reports success; implementations must swallow internal failures and
// return false rather than erroring, so the pipeline can degrade to text
// only. Stop cancels in-flight playback.
type Player interface {
	Play(ctx context.Context, audio []byte) bool
	Stop()
}
