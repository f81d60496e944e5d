package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCacheRepository is an in-process stand-in for CacheRepository used when Redis is disabled.
// Values are stored as JSON so callers never share mutable state through it.
type MemoryCacheRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCacheRepository constructs an empty in-memory cache.
func NewMemoryCacheRepository() *MemoryCacheRepository {
	return &MemoryCacheRepository{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get unmarshals the stored value into dest or returns ErrCacheMiss.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if entry.expired(r.now()) {
		r.mu.Lock()
		if current, ok := r.entries[key]; ok && current.expired(r.now()) {
			delete(r.entries, key)
		}
		r.mu.Unlock()
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value with the given TTL. A non-positive TTL never expires.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.mu.Lock()
	r.entries[key] = entry
	r.mu.Unlock()
	return nil
}

// Delete removes a single key.
func (r *MemoryCacheRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

// DeleteByPattern removes keys matching a glob pattern, like Redis SCAN MATCH.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(r.entries, key)
		}
	}
	return nil
}

// Prune drops expired entries and returns how many were removed.
func (r *MemoryCacheRepository) Prune() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, entry := range r.entries {
		if entry.expired(now) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// RunJanitor prunes expired entries every interval until ctx is done.
func (r *MemoryCacheRepository) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Prune()
		}
	}
}
