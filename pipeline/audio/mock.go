package audio

import (
	"context"
	"sync"

	"github.com/dgnsrekt/voxlate/pipeline"
)

var _ pipeline.Player = (*Manager)(nil)
var _ pipeline.Player = (*MockManager)(nil)

// MockManager is a test double for headless environments without an
// audio device. It records every clip handed to it.
type MockManager struct {
	mu      sync.Mutex
	clips   [][]byte
	stopped int

	// FailPlayback makes every Play report failure.
	FailPlayback bool
	// BlockUntilStop makes Play block until Stop or context cancel,
	// simulating a long clip.
	BlockUntilStop bool

	unblock chan struct{}
}

// NewMockManager creates a mock delivery manager.
func NewMockManager() *MockManager {
	return &MockManager{unblock: make(chan struct{}, 1)}
}

// Play records the clip and reports the configured outcome.
func (m *MockManager) Play(ctx context.Context, audio []byte) bool {
	m.mu.Lock()
	m.clips = append(m.clips, audio)
	blocking := m.BlockUntilStop
	m.mu.Unlock()

	if blocking {
		select {
		case <-ctx.Done():
			return false
		case <-m.unblock:
			return false
		}
	}
	return !m.FailPlayback && len(audio) > 0
}

// Stop unblocks a blocking Play and counts the call.
func (m *MockManager) Stop() {
	m.mu.Lock()
	m.stopped++
	m.mu.Unlock()
	select {
	case m.unblock <- struct{}{}:
	default:
	}
}

// Clips returns a copy of every clip played so far.
func (m *MockManager) Clips() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.clips))
	copy(out, m.clips)
	return out
}

// StopCalls returns how many times Stop ran.
func (m *MockManager) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
