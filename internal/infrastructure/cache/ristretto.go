// Package cache provides ports.LatestCache implementations.
package cache

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

var _ ports.LatestCache = (*Latest)(nil)

// generationStripes is the number of invalidation counters. Keys sharing a
// stripe only cost each other a skipped Set.
const generationStripes = 256

// Latest caches the latest record of each chain, keyed by original hash,
// with a TTL so that remote updates become visible without invalidation.
type Latest struct {
	cache *ristretto.Cache[string, *entities.Record]
	ttl   time.Duration

	// mu orders Set against Invalidate.
	mu   sync.Mutex
	gens [generationStripes]uint64
}

// NewLatest creates a cache holding up to maxEntries records for ttl.
func NewLatest(maxEntries int64, ttl time.Duration) (*Latest, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("max entries must be positive, got %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *entities.Record]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating ristretto cache: %w", err)
	}
	return &Latest{cache: c, ttl: ttl}, nil
}

// Get returns a copy of the cached latest record of original.
func (l *Latest) Get(original entities.Hash) (*entities.Record, bool) {
	rec, ok := l.cache.Get(string(original))
	if !ok || rec == nil {
		return nil, false
	}
	return rec.Clone(), true
}

// Generation returns the invalidation counter of original's stripe.
func (l *Latest) Generation(original entities.Hash) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gens[stripe(original)]
}

// Set caches rec as the latest record of original unless original was
// invalidated since gen was read. Admission is best effort.
func (l *Latest) Set(original entities.Hash, rec *entities.Record, gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gens[stripe(original)] != gen {
		return false
	}
	return l.cache.SetWithTTL(string(original), rec.Clone(), 1, l.ttl)
}

// Invalidate drops the cached record of original.
func (l *Latest) Invalidate(original entities.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gens[stripe(original)]++
	l.cache.Del(string(original))
}

func stripe(original entities.Hash) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(original))
	return h.Sum32() % generationStripes
}

// Wait blocks until buffered writes are applied.
func (l *Latest) Wait() {
	l.cache.Wait()
}

// Close stops the cache's background goroutines.
func (l *Latest) Close() {
	l.cache.Close()
}
