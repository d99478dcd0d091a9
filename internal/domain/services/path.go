package services

import (
	"context"
	"fmt"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// PathIndex maintains bucket membership links from path hashes to entity IDs.
// Membership link IDs are deterministic, so every operation is safe to repeat.
type PathIndex struct {
	store ports.ContentStore
}

// NewPathIndex creates a new path index.
func NewPathIndex(store ports.ContentStore) *PathIndex {
	return &PathIndex{store: store}
}

func membershipID(bucket entities.Path, id entities.Hash) entities.Hash {
	return entities.LinkID(bucket.Hash(), id, entities.LinkPathMember, "")
}

// AddToBucket links id into bucket.
func (p *PathIndex) AddToBucket(ctx context.Context, author entities.Hash, bucket entities.Path, id entities.Hash) error {
	link := entities.NewLink(bucket.Hash(), id, entities.LinkPathMember, "", author, timeNow())
	if _, err := p.store.CreateLink(ctx, link); err != nil {
		return fmt.Errorf("adding %s to %s: %w", id.Short(), bucket, err)
	}
	return nil
}

// RemoveFromBucket unlinks id from bucket. Removing a non-member is a no-op.
func (p *PathIndex) RemoveFromBucket(ctx context.Context, bucket entities.Path, id entities.Hash) error {
	if err := p.store.DeleteLink(ctx, membershipID(bucket, id)); err != nil {
		return fmt.Errorf("removing %s from %s: %w", id.Short(), bucket, err)
	}
	return nil
}

// MoveBetweenBuckets removes id from one bucket and adds it to another.
// The two steps are not atomic; re-running the move converges.
func (p *PathIndex) MoveBetweenBuckets(ctx context.Context, author entities.Hash, from, to entities.Path, id entities.Hash) error {
	return p.MoveToBucket(ctx, author, []entities.Path{from}, to, id)
}

// MoveToBucket makes to the only bucket of group that holds id. to need not
// be part of group. Like MoveBetweenBuckets, re-running it converges.
func (p *PathIndex) MoveToBucket(ctx context.Context, author entities.Hash, group []entities.Path, to entities.Path, id entities.Hash) error {
	for _, b := range group {
		if b == to {
			continue
		}
		if err := p.RemoveFromBucket(ctx, b, id); err != nil {
			return err
		}
	}
	return p.AddToBucket(ctx, author, to, id)
}

// ClearFromBuckets removes id from every given bucket.
func (p *PathIndex) ClearFromBuckets(ctx context.Context, buckets []entities.Path, id entities.Hash) error {
	for _, b := range buckets {
		if err := p.RemoveFromBucket(ctx, b, id); err != nil {
			return err
		}
	}
	return nil
}

// ListBucket returns the members of bucket, oldest membership first.
// An empty bucket yields an empty slice.
func (p *PathIndex) ListBucket(ctx context.Context, bucket entities.Path) ([]entities.Hash, error) {
	links, err := p.store.GetLinks(ctx, bucket.Hash(), entities.FilterTypes(entities.LinkPathMember))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", bucket, err)
	}

	seen := make(map[entities.Hash]bool, len(links))
	out := make([]entities.Hash, 0, len(links))
	for _, l := range links {
		if seen[l.Target] {
			continue
		}
		seen[l.Target] = true
		out = append(out, l.Target)
	}
	return out, nil
}

// Contains reports whether id is a member of bucket.
func (p *PathIndex) Contains(ctx context.Context, bucket entities.Path, id entities.Hash) (bool, error) {
	members, err := p.ListBucket(ctx, bucket)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m == id {
			return true, nil
		}
	}
	return false, nil
}

// BucketsContaining returns the subset of buckets that hold id.
func (p *PathIndex) BucketsContaining(ctx context.Context, buckets []entities.Path, id entities.Hash) ([]entities.Path, error) {
	var out []entities.Path
	for _, b := range buckets {
		ok, err := p.Contains(ctx, b, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, b)
		}
	}
	return out, nil
}
