// Package memory provides an in-process implementation of ports.ContentStore.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

var _ ports.ContentStore = (*Store)(nil)

type storedLink struct {
	link    entities.Link
	deleted bool
}

// Store keeps records and links in maps guarded by a single lock.
type Store struct {
	mu      sync.RWMutex
	records map[entities.Hash]*entities.Record
	links   map[entities.Hash]*storedLink
	byBase  map[entities.Hash][]entities.Hash
	closed  bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[entities.Hash]*entities.Record),
		links:   make(map[entities.Hash]*storedLink),
		byBase:  make(map[entities.Hash][]entities.Hash),
	}
}

// Put stores a record unless its action hash is already present.
func (s *Store) Put(_ context.Context, rec *entities.Record) (entities.Hash, error) {
	if rec == nil || rec.Action.Hash.IsZero() {
		return "", errors.New("record has no action hash")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ports.ErrUnavailable
	}

	if _, ok := s.records[rec.Action.Hash]; !ok {
		s.records[rec.Action.Hash] = rec.Clone()
	}
	return rec.Action.Hash, nil
}

// Get returns a copy of the record, or nil if it is unknown.
func (s *Store) Get(_ context.Context, hash entities.Hash) (*entities.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ports.ErrUnavailable
	}
	return s.records[hash].Clone(), nil
}

// CreateLink stores or revives a link.
func (s *Store) CreateLink(_ context.Context, link entities.Link) (entities.Hash, error) {
	if link.Base.IsZero() || link.Target.IsZero() {
		return "", errors.New("link base and target are required")
	}
	link.ID = entities.LinkID(link.Base, link.Target, link.Type, link.Tag)
	if link.Timestamp.IsZero() {
		link.Timestamp = timeNow().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ports.ErrUnavailable
	}

	existing, ok := s.links[link.ID]
	switch {
	case !ok:
		s.links[link.ID] = &storedLink{link: link}
		s.byBase[link.Base] = append(s.byBase[link.Base], link.ID)
	case existing.deleted:
		existing.link = link
		existing.deleted = false
	}
	return link.ID, nil
}

// GetLinks returns the live links from base that pass the filter.
func (s *Store) GetLinks(_ context.Context, base entities.Hash, filter entities.LinkFilter) ([]entities.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ports.ErrUnavailable
	}

	ids := s.byBase[base]
	out := make([]entities.Link, 0, len(ids))
	for _, id := range ids {
		sl := s.links[id]
		if sl.deleted || !filter.Matches(sl.link) {
			continue
		}
		out = append(out, sl.link)
	}
	entities.SortLinks(out)
	return out, nil
}

// DeleteLink marks a link deleted.
func (s *Store) DeleteLink(_ context.Context, linkID entities.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ports.ErrUnavailable
	}

	if sl, ok := s.links[linkID]; ok {
		sl.deleted = true
	}
	return nil
}

// Close marks the store closed. Later calls fail with ports.ErrUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Stats reports counts useful in tests and diagnostics.
func (s *Store) Stats() (records, liveLinks int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sl := range s.links {
		if !sl.deleted {
			liveLinks++
		}
	}
	return len(s.records), liveLinks
}
