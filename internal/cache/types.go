package cache

import (
	"errors"
	"time"
)

// ErrItemTooLarge is returned when a payload exceeds a tier's total capacity.
var ErrItemTooLarge = errors.New("item exceeds cache capacity")

// Config controls both cache tiers.
type Config struct {
	// TranslationEntries caps the fast tier's translation entry count.
	TranslationEntries int `env:"VOXLATE_CACHE_TRANSLATION_ENTRIES"`
	// AudioEntries caps the fast tier's audio entry count.
	AudioEntries int `env:"VOXLATE_CACHE_AUDIO_ENTRIES"`
	// DiskPath is the durable tier directory. Empty selects the default
	// user cache directory.
	DiskPath string `env:"VOXLATE_CACHE_DIR"`
	// DiskCapacity caps the durable tier in bytes.
	DiskCapacity int64 `env:"VOXLATE_CACHE_DISK_CAPACITY"`
	// TranslationTTL is how long a translation entry stays valid. Audio
	// entries never expire.
	TranslationTTL time.Duration `env:"VOXLATE_CACHE_TRANSLATION_TTL"`
	// CompressionLevel is the zstd level for the durable tier; 0 disables
	// compression.
	CompressionLevel int `env:"VOXLATE_CACHE_COMPRESSION"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		TranslationEntries: 100,
		AudioEntries:       50,
		DiskCapacity:       64 * 1024 * 1024,
		TranslationTTL:     24 * time.Hour,
		CompressionLevel:   3,
	}
}

// Stats aggregates counters across both tiers for diagnostics.
type Stats struct {
	Hits        int64
	Misses      int64
	FastHits    int64
	DurableHits int64
	Promotions  int64
	Expirations int64

	FastTranslations int
	FastAudio        int
	DurableItems     int
	DurableBytes     int64
}

// HitRate returns the overall hit fraction, zero when nothing was asked.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
