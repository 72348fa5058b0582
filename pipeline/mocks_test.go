package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/voxlate/internal/cache"
)

// mockBoundary scripts remote behavior per test. Unset functions succeed
// with canned output.
type mockBoundary struct {
	mu             sync.Mutex
	translateCalls int
	synthesizeCall int

	translateFn  func(call int, req TranslateRequest) (*TranslateResponse, error)
	synthesizeFn func(call int, req SynthesizeRequest) ([]byte, error)
	healthErr    error
}

func (m *mockBoundary) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	m.mu.Lock()
	m.translateCalls++
	call := m.translateCalls
	fn := m.translateFn
	m.mu.Unlock()

	if fn != nil {
		return fn(call, req)
	}
	return &TranslateResponse{TranslatedText: "Bonjour", CandidateCount: 1}, nil
}

func (m *mockBoundary) Synthesize(ctx context.Context, req SynthesizeRequest) ([]byte, error) {
	m.mu.Lock()
	m.synthesizeCall++
	call := m.synthesizeCall
	fn := m.synthesizeFn
	m.mu.Unlock()

	if fn != nil {
		return fn(call, req)
	}
	return []byte("audio:" + req.Text), nil
}

func (m *mockBoundary) Health(ctx context.Context) error {
	return m.healthErr
}

func (m *mockBoundary) calls() (translate, synthesize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.translateCalls, m.synthesizeCall
}

// combinedBoundary extends mockBoundary with the single-round-trip endpoint.
type combinedBoundary struct {
	mockBoundary
	combinedCalls int
	combinedFn    func(call int, req TranslateRequest, voice VoiceParams) (*TranslateResponse, []byte, error)
}

func (m *combinedBoundary) TranslateAudio(ctx context.Context, req TranslateRequest, voice VoiceParams) (*TranslateResponse, []byte, error) {
	m.mu.Lock()
	m.combinedCalls++
	call := m.combinedCalls
	fn := m.combinedFn
	m.mu.Unlock()

	if fn != nil {
		return fn(call, req, voice)
	}
	return &TranslateResponse{TranslatedText: "Bonjour"}, []byte("audio:Bonjour"), nil
}

// blockingBoundary holds the translate call open until its context is
// canceled, standing in for a slow network call.
type blockingBoundary struct {
	mockBoundary
	once    sync.Once
	started chan struct{}
}

func (b *blockingBoundary) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, NewError(KindCanceled, "remote", ctx.Err())
}

// mockRecognizer streams scripted transcripts.
type mockRecognizer struct {
	mu          sync.Mutex
	transcripts []Transcript
	startErr    error
	stops       int
}

func (m *mockRecognizer) Start(ctx context.Context, languageCode string, silenceThreshold time.Duration) (<-chan Transcript, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	ch := make(chan Transcript, len(m.transcripts))
	for _, tr := range m.transcripts {
		ch <- tr
	}
	close(ch)
	return ch, nil
}

func (m *mockRecognizer) Stop() {
	m.mu.Lock()
	m.stops++
	m.mu.Unlock()
}

// mockPlayer records what was played and reports a scripted outcome.
type mockPlayer struct {
	mu     sync.Mutex
	played [][]byte
	fail   bool
	stops  int
	delay  time.Duration
}

func (m *mockPlayer) Play(ctx context.Context, audio []byte) bool {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	m.played = append(m.played, audio)
	fail := m.fail
	m.mu.Unlock()
	return !fail
}

func (m *mockPlayer) Stop() {
	m.mu.Lock()
	m.stops++
	m.mu.Unlock()
}

func (m *mockPlayer) playedClips() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.played))
	copy(out, m.played)
	return out
}

func newTestCache(t *testing.T) *cache.Manager {
	t.Helper()
	config := cache.DefaultConfig()
	config.DiskPath = t.TempDir()
	m, err := cache.New(config, nil)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

// fastConfig is the default config with a retry schedule short enough for
// tests.
func fastConfig() Config {
	config := DefaultConfig()
	config.RequestTimeout = time.Second
	config.Retry.BaseDelay = time.Millisecond
	config.Retry.MaxDelay = 5 * time.Millisecond
	return config
}

func newTestTranslator(t *testing.T, boundary Boundary) (*Translator, *cache.Manager) {
	t.Helper()
	c := newTestCache(t)
	chain := NewDegradationChain(c, nil)
	return NewTranslator(boundary, c, chain, fastConfig(), nil), c
}

func newTestSynthesizer(t *testing.T, boundary Boundary) (*Synthesizer, *cache.Manager) {
	t.Helper()
	c := newTestCache(t)
	chain := NewDegradationChain(c, nil)
	return NewSynthesizer(boundary, c, chain, fastConfig(), nil), c
}

// serverError builds a classified retryable failure.
func serverError() error {
	return NewError(KindServerError, "remote", errors.New("upstream exploded"))
}

func longText(n int) string {
	return strings.Repeat("a", n)
}
