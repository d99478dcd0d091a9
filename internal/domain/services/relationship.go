package services

import (
	"context"
	"fmt"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// RelationshipIndex maintains per-kind link sets between an entity and its
// related targets, plus reverse links for bidirectional kinds.
//
// Deletes remove the reverse link before the forward one and creates add the
// forward link before the reverse one. An interrupted call therefore never
// leaves a reverse link without its forward link, and re-running it repairs
// the set because every pass starts from the forward links.
type RelationshipIndex struct {
	store ports.ContentStore
}

// NewRelationshipIndex creates a new relationship index.
func NewRelationshipIndex(store ports.ContentStore) *RelationshipIndex {
	return &RelationshipIndex{store: store}
}

// ReplaceLinks makes targets the exact link set of kind for entity.
// Existing links are deleted before the new ones are created, so readers
// may briefly observe an empty set.
func (r *RelationshipIndex) ReplaceLinks(ctx context.Context, author, entity entities.Hash, kind entities.RelationKind, targets []entities.Target) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown relationship kind %q", ErrInvalidPayload, kind)
	}

	if err := r.DeleteAllLinks(ctx, entity, kind); err != nil {
		return err
	}

	for _, t := range entities.DedupTargets(targets) {
		if err := r.link(ctx, author, entity, kind, t); err != nil {
			return err
		}
	}
	return nil
}

// Link adds a single target to the set.
func (r *RelationshipIndex) Link(ctx context.Context, author, entity entities.Hash, kind entities.RelationKind, target entities.Target) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown relationship kind %q", ErrInvalidPayload, kind)
	}
	return r.link(ctx, author, entity, kind, target)
}

func (r *RelationshipIndex) link(ctx context.Context, author, entity entities.Hash, kind entities.RelationKind, t entities.Target) error {
	ts := timeNow()
	fwd := entities.NewLink(entity, t.ID, kind.ForwardLink(), t.Label, author, ts)
	if _, err := r.store.CreateLink(ctx, fwd); err != nil {
		return fmt.Errorf("linking %s %s -> %s: %w", kind, entity.Short(), t.ID.Short(), err)
	}

	if kind.Bidirectional() {
		rev := entities.NewLink(t.ID, entity, kind.ReverseLink(), t.Label, author, ts)
		if _, err := r.store.CreateLink(ctx, rev); err != nil {
			return fmt.Errorf("linking %s %s <- %s: %w", kind, entity.Short(), t.ID.Short(), err)
		}
	}
	return nil
}

// Unlink removes a single target from the set.
func (r *RelationshipIndex) Unlink(ctx context.Context, entity entities.Hash, kind entities.RelationKind, target entities.Hash) error {
	links, err := r.forward(ctx, entity, kind)
	if err != nil {
		return err
	}
	for _, l := range links {
		if l.Target != target {
			continue
		}
		if err := r.unlink(ctx, entity, kind, l); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAllLinks removes every link of kind from entity.
func (r *RelationshipIndex) DeleteAllLinks(ctx context.Context, entity entities.Hash, kind entities.RelationKind) error {
	links, err := r.forward(ctx, entity, kind)
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := r.unlink(ctx, entity, kind, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *RelationshipIndex) unlink(ctx context.Context, entity entities.Hash, kind entities.RelationKind, fwd entities.Link) error {
	if kind.Bidirectional() {
		revID := entities.LinkID(fwd.Target, entity, kind.ReverseLink(), fwd.Tag)
		if err := r.store.DeleteLink(ctx, revID); err != nil {
			return fmt.Errorf("unlinking %s %s <- %s: %w", kind, entity.Short(), fwd.Target.Short(), err)
		}
	}
	if err := r.store.DeleteLink(ctx, fwd.ID); err != nil {
		return fmt.Errorf("unlinking %s %s -> %s: %w", kind, entity.Short(), fwd.Target.Short(), err)
	}
	return nil
}

func (r *RelationshipIndex) forward(ctx context.Context, entity entities.Hash, kind entities.RelationKind) ([]entities.Link, error) {
	links, err := r.store.GetLinks(ctx, entity, entities.FilterTypes(kind.ForwardLink()))
	if err != nil {
		return nil, fmt.Errorf("getting %s links of %s: %w", kind, entity.Short(), err)
	}
	return links, nil
}

// GetRelated returns the current targets of kind for entity.
func (r *RelationshipIndex) GetRelated(ctx context.Context, entity entities.Hash, kind entities.RelationKind) ([]entities.Target, error) {
	links, err := r.forward(ctx, entity, kind)
	if err != nil {
		return nil, err
	}
	targets := make([]entities.Target, 0, len(links))
	for _, l := range links {
		targets = append(targets, entities.Target{ID: l.Target, Label: l.Tag})
	}
	return entities.DedupTargets(targets), nil
}

// GetRelatedReverse returns the entities that list target under kind.
func (r *RelationshipIndex) GetRelatedReverse(ctx context.Context, target entities.Hash, kind entities.RelationKind) ([]entities.Hash, error) {
	links, err := r.store.GetLinks(ctx, target, entities.FilterTypes(kind.ReverseLink()))
	if err != nil {
		return nil, fmt.Errorf("getting reverse %s links of %s: %w", kind, target.Short(), err)
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
