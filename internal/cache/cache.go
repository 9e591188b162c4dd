// Package cache stores extraction results keyed by extractor fingerprint and
// transcript.
//
// Extraction is deterministic, so a cached result is always equal to a fresh
// one for the same extractor fingerprint (taxonomy plus numeric window).
// Entries that fail to decode are treated as misses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/symptomlog/internal/model"
)

// Cache defines the byte-level storage used for results
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "symptomlog:v2:"

// Key derives a cache key from an extractor fingerprint and a transcript.
// Changing the taxonomy or the numeric window changes every key.
func Key(fingerprint, transcript string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(transcript))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// GetResult loads and decodes a cached ExtractionResult. A corrupt entry is
// deleted and reported as a miss.
func GetResult(c Cache, key string) (model.ExtractionResult, bool) {
	data, ok := c.Get(key)
	if !ok {
		return model.ExtractionResult{}, false
	}

	result := model.NewExtractionResult()
	if err := json.Unmarshal(data, &result); err != nil {
		_ = c.Delete(key)
		return model.ExtractionResult{}, false
	}
	return result, true
}

// SetResult encodes and stores an ExtractionResult. A zero ttl selects the
// backend default.
func SetResult(c Cache, key string, result model.ExtractionResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return c.Set(key, data, ttl)
}

// New builds the cache described by cfg, or returns nil when caching is disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}
