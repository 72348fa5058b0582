package pipeline

import (
	"fmt"
	"time"

	"github.com/dgnsrekt/voxlate/internal/cache"
)

// Silence threshold bounds recognized by the recognizer.
const (
	MinSilenceThreshold = 500 * time.Millisecond
	MaxSilenceThreshold = 2 * time.Second
)

// Config holds every tunable for the pipeline. It is passed explicitly at
// construction; there is no process-wide settings object.
type Config struct {
	// RequestTimeout bounds each remote call.
	RequestTimeout time.Duration `env:"VOXLATE_REQUEST_TIMEOUT"`
	// MaxTranslationChars caps translation input length.
	MaxTranslationChars int `env:"VOXLATE_MAX_TRANSLATION_CHARS"`
	// MaxSynthesisChars caps synthesis input length.
	MaxSynthesisChars int `env:"VOXLATE_MAX_SYNTHESIS_CHARS"`
	// SilenceThreshold is how long the recognizer waits before treating a
	// pause as the end of speech. Clamped to [0.5s, 2s].
	SilenceThreshold time.Duration `env:"VOXLATE_SILENCE_THRESHOLD"`
	// EventBuffer sizes the orchestrator's event channel; oldest events
	// are dropped on overflow.
	EventBuffer int `env:"VOXLATE_EVENT_BUFFER"`

	// Voice selects the synthesis voice for pipeline operations.
	Voice VoiceParams

	Retry RetryPolicy
	Cache cache.Config
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:      30 * time.Second,
		MaxTranslationChars: 10000,
		MaxSynthesisChars:   5000,
		SilenceThreshold:    time.Second,
		EventBuffer:         32,
		Voice:               DefaultVoice(),
		Retry:               DefaultRetryPolicy(),
		Cache:               cache.DefaultConfig(),
	}
}

// Validate normalizes the configuration, clamping the silence threshold into
// its recognized range.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.MaxTranslationChars <= 0 || c.MaxSynthesisChars <= 0 {
		return fmt.Errorf("text length limits must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}

	if c.SilenceThreshold < MinSilenceThreshold {
		c.SilenceThreshold = MinSilenceThreshold
	} else if c.SilenceThreshold > MaxSilenceThreshold {
		c.SilenceThreshold = MaxSilenceThreshold
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 32
	}
	if c.Voice.Gender == "" {
		c.Voice = DefaultVoice()
	}
	if c.Voice.SpeakingRate < 0.5 {
		c.Voice.SpeakingRate = 0.5
	} else if c.Voice.SpeakingRate > 2.0 {
		c.Voice.SpeakingRate = 2.0
	}
	return nil
}
