package ports

import "github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"

// LatestCache memoizes latest-version lookups by original action hash.
// It is an optimization only and never a source of truth.
type LatestCache interface {
	Get(original entities.Hash) (*entities.Record, bool)
	// Generation returns a counter that every Invalidate of original advances.
	Generation(original entities.Hash) uint64
	// Set caches rec unless original was invalidated after gen was read.
	// It reports whether rec was accepted.
	Set(original entities.Hash, rec *entities.Record, gen uint64) bool
	Invalidate(original entities.Hash)
}
