// Package audio delivers synthesized speech through the system audio
// device. Delivery failures are contained: callers get a played/not-played
// signal and fall back to text-only output, never an error.
package audio

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// pollInterval is how often playback completion is checked.
const pollInterval = 50 * time.Millisecond

// Config holds the audio output settings. Oto only supports 44100 and
// 48000 Hz reliably, and the synthesized PCM is 16-bit mono.
type Config struct {
	SampleRate int `env:"VOXLATE_AUDIO_SAMPLE_RATE"`
	Channels   int `env:"VOXLATE_AUDIO_CHANNELS"`
}

// DefaultConfig returns the default output configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Channels:   1,
	}
}

// Manager owns the audio device and plays one clip at a time. A second
// Play preempts the first. It implements pipeline.Player.
type Manager struct {
	config Config
	logger *log.Logger

	initOnce sync.Once
	context  *oto.Context
	initErr  error

	mu sync.Mutex
	// current is the active oto player; data keeps the backing buffer
	// alive for the duration of playback so the device never reads
	// freed memory.
	current *oto.Player
	data    []byte
}

// NewManager creates a delivery manager. The audio device is opened
// lazily on first playback so text-only sessions never touch it.
func NewManager(config Config, logger *log.Logger) *Manager {
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		config.SampleRate = 44100
	}
	if config.Channels != 1 && config.Channels != 2 {
		config.Channels = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		config: config,
		logger: logger.With("component", "audio"),
	}
}

// ensureContext opens the audio device once. The error is sticky: a
// machine without an audio device stays text-only for the process
// lifetime.
func (m *Manager) ensureContext() error {
	m.initOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   m.config.SampleRate,
			ChannelCount: m.config.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			m.initErr = err
			return
		}
		<-ready
		m.context = ctx
	})
	return m.initErr
}

// Play plays a clip and blocks until it finishes, the context is
// canceled, or Stop preempts it. It reports whether the clip played to
// completion; any failure is logged and absorbed.
func (m *Manager) Play(ctx context.Context, audio []byte) bool {
	if len(audio) == 0 {
		return false
	}
	if err := m.ensureContext(); err != nil {
		m.logger.Warn("audio device unavailable, staying text-only", "error", err)
		return false
	}

	data := make([]byte, len(audio))
	copy(data, audio)

	m.mu.Lock()
	m.stopLocked()
	player := m.context.NewPlayer(bytes.NewReader(data))
	m.current = player
	m.data = data
	m.mu.Unlock()

	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return false
		case <-ticker.C:
			m.mu.Lock()
			preempted := m.current != player
			m.mu.Unlock()
			if preempted {
				return false
			}
			if !player.IsPlaying() {
				m.mu.Lock()
				if m.current == player {
					m.current = nil
					m.data = nil
				}
				m.mu.Unlock()
				if err := player.Close(); err != nil {
					m.logger.Warn("closing audio player", "error", err)
				}
				return true
			}
		}
	}
}

// Stop interrupts the active clip, if any. Safe to call at any time.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.current == nil {
		return
	}
	m.current.Pause()
	if err := m.current.Close(); err != nil {
		m.logger.Warn("closing audio player", "error", err)
	}
	m.current = nil
	m.data = nil
}
