// Package mocks provides test doubles for the domain ports.
package mocks

import (
	"context"
	"sync"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// Op names a ContentStore method for fault injection.
type Op string

const (
	OpPut        Op = "put"
	OpGet        Op = "get"
	OpCreateLink Op = "create_link"
	OpGetLinks   Op = "get_links"
	OpDeleteLink Op = "delete_link"
)

// FlakyStore wraps a ContentStore and injects failures.
type FlakyStore struct {
	ports.ContentStore

	mu sync.Mutex
	// FailAfter fails every call of an op once that many calls of it succeeded.
	FailAfter map[Op]int
	// Err is returned by failing calls. Defaults to ports.ErrUnavailable.
	Err error
	// MissingGets makes Get return nil for a hash this many times before resolving.
	MissingGets map[entities.Hash]int

	Calls map[Op]int
	// Writes counts successful mutating calls.
	Writes int
}

// NewFlakyStore wraps inner with no faults configured.
func NewFlakyStore(inner ports.ContentStore) *FlakyStore {
	return &FlakyStore{
		ContentStore: inner,
		FailAfter:    make(map[Op]int),
		MissingGets:  make(map[entities.Hash]int),
		Calls:        make(map[Op]int),
	}
}

// Reset clears injected faults and counters.
func (f *FlakyStore) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailAfter = make(map[Op]int)
	f.MissingGets = make(map[entities.Hash]int)
	f.Calls = make(map[Op]int)
	f.Writes = 0
}

func (f *FlakyStore) check(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, armed := f.FailAfter[op]
	if armed && f.Calls[op] >= n {
		if f.Err != nil {
			return f.Err
		}
		return ports.ErrUnavailable
	}
	f.Calls[op]++
	switch op {
	case OpPut, OpCreateLink, OpDeleteLink:
		f.Writes++
	}
	return nil
}

// Put delegates unless a fault is armed.
func (f *FlakyStore) Put(ctx context.Context, rec *entities.Record) (entities.Hash, error) {
	if err := f.check(OpPut); err != nil {
		return "", err
	}
	return f.ContentStore.Put(ctx, rec)
}

// Get delegates unless a fault is armed or the hash is configured as missing.
func (f *FlakyStore) Get(ctx context.Context, hash entities.Hash) (*entities.Record, error) {
	if err := f.check(OpGet); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if n := f.MissingGets[hash]; n > 0 {
		f.MissingGets[hash] = n - 1
		f.mu.Unlock()
		return nil, nil
	}
	f.mu.Unlock()
	return f.ContentStore.Get(ctx, hash)
}

// CreateLink delegates unless a fault is armed.
func (f *FlakyStore) CreateLink(ctx context.Context, link entities.Link) (entities.Hash, error) {
	if err := f.check(OpCreateLink); err != nil {
		return "", err
	}
	return f.ContentStore.CreateLink(ctx, link)
}

// GetLinks delegates unless a fault is armed.
func (f *FlakyStore) GetLinks(ctx context.Context, base entities.Hash, filter entities.LinkFilter) ([]entities.Link, error) {
	if err := f.check(OpGetLinks); err != nil {
		return nil, err
	}
	return f.ContentStore.GetLinks(ctx, base, filter)
}

// DeleteLink delegates unless a fault is armed.
func (f *FlakyStore) DeleteLink(ctx context.Context, linkID entities.Hash) error {
	if err := f.check(OpDeleteLink); err != nil {
		return err
	}
	return f.ContentStore.DeleteLink(ctx, linkID)
}

// WriteCount returns the number of successful mutating calls.
func (f *FlakyStore) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Writes
}
