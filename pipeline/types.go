// Package pipeline implements the voice-translation client pipeline: the
// resilience layer between a caller and the remote translation/synthesis
// boundary, plus the orchestrator that sequences recognition, translation,
// synthesis and playback.
package pipeline

import (
	"fmt"
	"time"
)

// Translation is one translated text result.
type Translation struct {
	OriginalText   string
	TranslatedText string
	SourceLanguage string
	TargetLanguage string
	// Confidence is a heuristic relative indicator in [0,1], not a
	// calibrated probability.
	Confidence float64
	// Degraded marks output produced by a fallback strategy instead of
	// the primary remote call.
	Degraded  bool
	Timestamp time.Time
}

// SynthesisResult is one synthesized audio result.
type SynthesisResult struct {
	AudioData        []byte
	Language         string
	Voice            VoiceParams
	SourceTextLength int
}

// VoiceParams selects the synthesis voice.
type VoiceParams struct {
	// Gender is one of "male", "female" or "neutral".
	Gender string
	// SpeakingRate is clamped by the backend to [0.5, 2.0].
	SpeakingRate float64
	// Encoding is the requested audio container, e.g. "MP3". Empty means
	// provider default.
	Encoding string
}

// DefaultVoice returns the neutral default voice.
func DefaultVoice() VoiceParams {
	return VoiceParams{Gender: "neutral", SpeakingRate: 1.0}
}

// Key renders the voice parameters for request fingerprinting.
func (v VoiceParams) Key() string {
	return fmt.Sprintf("%s/%.2f/%s", v.Gender, v.SpeakingRate, v.Encoding)
}

// Transcript is one incremental speech-recognition result.
type Transcript struct {
	Text       string
	Confidence float64
	IsFinal    bool
}

// Result is the pipeline's final output for one operation. AudioData and
// AudioPlayed are best effort; Completed only guarantees translated text.
type Result struct {
	OperationID    string
	Transcript     string
	Translation    Translation
	AudioData      []byte
	AudioPlayed    bool
	ProcessingTime time.Duration
}
