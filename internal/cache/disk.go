package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// evictTargetPercent is where eviction stops once the byte cap is crossed.
// Freeing well below the cap keeps the tier from thrashing at the boundary.
const evictTargetPercent = 75

// diskCache is the durable tier: byte-capped, zstd-compressed files under one
// directory with a gob index. Entries are evicted least-recently-modified
// first.
type diskCache struct {
	basePath string
	capacity int64
	size     int64

	compressionLevel int
	encoder          *zstd.Encoder
	decoder          *zstd.Decoder

	index map[string]*diskEntry

	mu sync.Mutex
}

type diskEntry struct {
	Key        string
	FilePath   string
	Size       int64 // bytes on disk, possibly compressed
	RawSize    int64
	StoredAt   time.Time
	Compressed bool
}

func newDiskCache(basePath string, capacity int64, compressionLevel int) (*diskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory: %w", err)
	}

	dc := &diskCache{
		basePath:         basePath,
		capacity:         capacity,
		compressionLevel: compressionLevel,
		index:            make(map[string]*diskEntry),
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("unable to create zstd encoder: %w", err)
		}
		dc.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("unable to create zstd decoder: %w", err)
		}
	}

	if err := dc.loadIndex(); err != nil {
		// Corrupt or missing index: start over, the files get re-cached.
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.size += e.Size
	}

	return dc, nil
}

// get returns the payload and its storage time.
func (dc *diskCache) get(key string) ([]byte, time.Time, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		return nil, time.Time{}, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		dc.dropLocked(entry)
		return nil, time.Time{}, false
	}

	if entry.Compressed && dc.decoder != nil {
		decompressed, err := dc.decoder.DecodeAll(data, nil)
		if err != nil {
			dc.dropLocked(entry)
			return nil, time.Time{}, false
		}
		data = decompressed
	}

	return data, entry.StoredAt, true
}

func (dc *diskCache) put(key string, payload []byte, storedAt time.Time) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	raw := int64(len(payload))
	data := payload
	compressed := false
	if dc.encoder != nil && raw > 1024 {
		if c := dc.encoder.EncodeAll(payload, nil); int64(len(c)) < raw {
			data = c
			compressed = true
		}
	}

	if int64(len(data)) > dc.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := dc.index[key]; ok {
		dc.dropLocked(existing)
	}

	path := filepath.Join(dc.basePath, key+".cache")
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("unable to write cache file: %w", err)
	}

	dc.index[key] = &diskEntry{
		Key:        key,
		FilePath:   path,
		Size:       int64(len(data)),
		RawSize:    raw,
		StoredAt:   storedAt,
		Compressed: compressed,
	}
	dc.size += int64(len(data))

	if dc.size > dc.capacity {
		dc.evictLocked()
	}

	return nil
}

func (dc *diskCache) delete(key string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if entry, ok := dc.index[key]; ok {
		dc.dropLocked(entry)
	}
}

func (dc *diskCache) clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for _, entry := range dc.index {
		os.Remove(entry.FilePath)
	}
	dc.index = make(map[string]*diskEntry)
	dc.size = 0

	return dc.saveIndexLocked()
}

func (dc *diskCache) totalSize() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size
}

func (dc *diskCache) itemCount() int {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return len(dc.index)
}

// close persists the index so entries survive restarts.
func (dc *diskCache) close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.saveIndexLocked()
}

// dropLocked removes one entry and its file. Caller holds dc.mu.
func (dc *diskCache) dropLocked(entry *diskEntry) {
	os.Remove(entry.FilePath)
	dc.size -= entry.Size
	delete(dc.index, entry.Key)
}

// evictLocked removes least-recently-modified entries until usage falls to
// the hysteresis target. Caller holds dc.mu.
func (dc *diskCache) evictLocked() {
	target := dc.capacity * evictTargetPercent / 100

	entries := make([]*diskEntry, 0, len(dc.index))
	for _, e := range dc.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StoredAt.Before(entries[j].StoredAt)
	})

	for _, e := range entries {
		if dc.size <= target {
			break
		}
		dc.dropLocked(e)
	}
}

func (dc *diskCache) loadIndex() error {
	file, err := os.Open(filepath.Join(dc.basePath, "cache.index"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&dc.index)
}

func (dc *diskCache) saveIndexLocked() error {
	indexPath := filepath.Join(dc.basePath, "cache.index")

	file, err := os.Create(indexPath + ".tmp")
	if err != nil {
		return err
	}

	err = gob.NewEncoder(file).Encode(dc.index)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(indexPath + ".tmp")
		return err
	}

	return os.Rename(indexPath+".tmp", indexPath)
}

// writeFileAtomic writes via a temp file and rename so readers never see a
// partial entry.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return err
	}

	return os.Rename(tempPath, path)
}
