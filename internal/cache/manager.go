// Package cache implements the two-tier request cache that backs the
// translation and synthesis clients: a fast entry-count-bounded memory tier
// in front of a byte-capped durable tier on disk. Entries are keyed by
// request fingerprint and owned exclusively by the cache; clients go through
// Store and Retrieve only.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager coordinates the two tiers. Reads and writes are serialized through
// a single mutex and one background writer goroutine, so concurrent callers
// can never interleave into a corrupted entry. Durable-tier failures are
// logged and degrade to a miss; they never reach the caller.
type Manager struct {
	translations *memoryCache
	audio        *memoryCache
	durable      *diskCache

	config Config
	logger *log.Logger

	// now is swapped in tests to simulate elapsed time.
	now func() time.Time

	writeCh chan writeRequest
	writeWg sync.WaitGroup

	mu    sync.Mutex
	stats Stats

	closeOnce sync.Once
}

type writeRequest struct {
	key      string
	payload  []byte
	storedAt time.Time
}

// New creates a cache manager. An empty DiskPath resolves to the user cache
// directory.
func New(config Config, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("component", "cache")

	if config.DiskPath == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to resolve cache directory: %w", err)
		}
		config.DiskPath = filepath.Join(base, "voxlate")
	}

	durable, err := newDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("unable to create durable tier: %w", err)
	}

	m := &Manager{
		translations: newMemoryCache(config.TranslationEntries),
		audio:        newMemoryCache(config.AudioEntries),
		durable:      durable,
		config:       config,
		logger:       logger,
		now:          time.Now,
		writeCh:      make(chan writeRequest, 64),
	}

	m.writeWg.Add(1)
	go m.writeLoop()

	return m, nil
}

// Store writes the payload to the fast tier and schedules a durable write.
// It never blocks on disk I/O; when the write queue is full the durable copy
// is skipped rather than stalling the caller.
func (m *Manager) Store(fp Fingerprint, payload []byte) {
	storedAt := m.now()
	m.fastTier(fp.Kind).put(fp.Key(), payload, storedAt)

	select {
	case m.writeCh <- writeRequest{key: fp.Key(), payload: payload, storedAt: storedAt}:
	default:
		m.logger.Warn("durable write queue full, skipping", "key", fp.Key())
	}
}

// Retrieve looks the fingerprint up in the fast tier, then the durable tier,
// promoting durable hits. Expired translation entries are evicted on lookup
// and reported as a miss.
func (m *Manager) Retrieve(fp Fingerprint) ([]byte, bool) {
	key := fp.Key()

	if payload, storedAt, ok := m.fastTier(fp.Kind).get(key); ok {
		if m.expired(fp.Kind, storedAt) {
			m.evictExpired(fp, key)
			return nil, false
		}
		m.count(func(s *Stats) { s.Hits++; s.FastHits++ })
		return payload, true
	}

	payload, storedAt, ok := m.durable.get(key)
	if !ok {
		m.count(func(s *Stats) { s.Misses++ })
		return nil, false
	}
	if m.expired(fp.Kind, storedAt) {
		m.evictExpired(fp, key)
		return nil, false
	}

	m.fastTier(fp.Kind).put(key, payload, storedAt)
	m.count(func(s *Stats) { s.Hits++; s.DurableHits++; s.Promotions++ })
	return payload, true
}

// Clear empties both tiers.
func (m *Manager) Clear() error {
	m.translations.clear()
	m.audio.clear()
	if err := m.durable.clear(); err != nil {
		return fmt.Errorf("unable to clear durable tier: %w", err)
	}
	return nil
}

// Stats returns a snapshot of cache counters and sizes.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	stats := m.stats
	m.mu.Unlock()

	stats.FastTranslations = m.translations.len()
	stats.FastAudio = m.audio.len()
	stats.DurableItems = m.durable.itemCount()
	stats.DurableBytes = m.durable.totalSize()
	return stats
}

// Close drains pending durable writes and persists the durable index.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.writeCh)
		m.writeWg.Wait()
		err = m.durable.close()
	})
	return err
}

// DiskSize returns the durable tier's current size in bytes.
func (m *Manager) DiskSize() int64 {
	return m.durable.totalSize()
}

// SetClock overrides the cache's time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Manager) fastTier(kind Kind) *memoryCache {
	if kind == KindAudio {
		return m.audio
	}
	return m.translations
}

func (m *Manager) expired(kind Kind, storedAt time.Time) bool {
	if kind != KindTranslation || m.config.TranslationTTL <= 0 {
		return false
	}
	return m.now().Sub(storedAt) > m.config.TranslationTTL
}

func (m *Manager) evictExpired(fp Fingerprint, key string) {
	m.fastTier(fp.Kind).delete(key)
	m.durable.delete(key)
	m.count(func(s *Stats) { s.Misses++; s.Expirations++ })
	m.logger.Debug("expired entry evicted", "key", key)
}

func (m *Manager) count(fn func(*Stats)) {
	m.mu.Lock()
	fn(&m.stats)
	m.mu.Unlock()
}

// writeLoop is the single durable writer. One goroutine serializes all disk
// writes; errors are swallowed here because a failed durable write only costs
// a future promotion.
func (m *Manager) writeLoop() {
	defer m.writeWg.Done()

	for req := range m.writeCh {
		if err := m.durable.put(req.key, req.payload, req.storedAt); err != nil {
			m.logger.Warn("durable write failed", "key", req.key, "err", err)
		}
	}
}
