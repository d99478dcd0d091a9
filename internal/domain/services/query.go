package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// DefaultQueryConcurrency bounds parallel chain resolutions per query.
const DefaultQueryConcurrency = 8

// QueryService answers read-only questions by walking the indexes and
// resolving each hit to its latest version. It never writes.
type QueryService struct {
	chain       *ChainResolver
	paths       *PathIndex
	rels        *RelationshipIndex
	cache       ports.LatestCache
	logger      *slog.Logger
	concurrency int
}

// NewQueryService creates a new query service. cache may be nil.
func NewQueryService(
	chain *ChainResolver,
	paths *PathIndex,
	rels *RelationshipIndex,
	cache ports.LatestCache,
	logger *slog.Logger,
	concurrency int,
) *QueryService {
	if concurrency <= 0 {
		concurrency = DefaultQueryConcurrency
	}
	return &QueryService{
		chain:       chain,
		paths:       paths,
		rels:        rels,
		cache:       cache,
		logger:      logger,
		concurrency: concurrency,
	}
}

// GetActive returns the active listings of kind.
func (s *QueryService) GetActive(ctx context.Context, kind entities.EntityKind) ([]*entities.Entity, error) {
	return s.listBucket(ctx, entities.Bucket(kind, entities.StatusActive))
}

// GetArchived returns the archived listings of kind.
func (s *QueryService) GetArchived(ctx context.Context, kind entities.EntityKind) ([]*entities.Entity, error) {
	return s.listBucket(ctx, entities.Bucket(kind, entities.StatusArchived))
}

func (s *QueryService) listBucket(ctx context.Context, bucket entities.Path) ([]*entities.Entity, error) {
	ids, err := s.paths.ListBucket(ctx, bucket)
	if err != nil {
		return nil, classify(err)
	}
	return s.resolveAll(ctx, ids, nil)
}

// GetByRelationship returns listings of kind that link to related under relKind.
// An empty kind matches every listing kind.
func (s *QueryService) GetByRelationship(ctx context.Context, kind entities.EntityKind, relKind entities.RelationKind, related entities.Hash) ([]*entities.Entity, error) {
	if !relKind.IsValid() {
		return nil, fmt.Errorf("%w: unknown relationship kind %q", ErrInvalidPayload, relKind)
	}
	ids, err := s.rels.GetRelatedReverse(ctx, related, relKind)
	if err != nil {
		return nil, classify(err)
	}
	return s.resolveAll(ctx, ids, func(e *entities.Entity) bool {
		return kind == "" || e.Kind == kind
	})
}

// GetByOwner returns the listings of kind created by owner. An empty status
// matches both active and archived listings.
func (s *QueryService) GetByOwner(ctx context.Context, owner entities.Hash, kind entities.EntityKind, status entities.ListingStatus) ([]*entities.Entity, error) {
	ids, err := s.rels.GetRelatedReverse(ctx, owner, entities.RelationCreator)
	if err != nil {
		return nil, classify(err)
	}
	return s.resolveAll(ctx, ids, func(e *entities.Entity) bool {
		return (kind == "" || e.Kind == kind) && (status == "" || e.Listing.Status == status)
	})
}

// GetByTag returns listings of any kind carrying tag.
func (s *QueryService) GetByTag(ctx context.Context, tag string) ([]*entities.Entity, error) {
	norm := entities.NormalizeTag(tag)
	if norm == "" {
		return []*entities.Entity{}, nil
	}
	return s.GetByRelationship(ctx, "", entities.RelationTags, entities.TagPath(norm).Hash())
}

// Get resolves a single listing with its relationship sets.
// Any action of the chain may be passed; it is mapped to the original.
func (s *QueryService) Get(ctx context.Context, id entities.Hash) (*entities.Entity, error) {
	original, err := s.chain.FindOriginal(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	deleted, err := s.chain.Tombstoned(ctx, original)
	if err != nil {
		return nil, classify(err)
	}
	if deleted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDeleted, original.Short())
	}

	entity, err := s.resolve(ctx, original)
	if err != nil {
		return nil, classify(err)
	}

	entity.Relationships = make(entities.Relationships)
	for _, kind := range entities.RelationKinds() {
		targets, err := s.rels.GetRelated(ctx, original, kind)
		if err != nil {
			return nil, classify(err)
		}
		if len(targets) > 0 {
			entity.Relationships[kind] = targets
		}
	}
	return entity, nil
}

// History returns every visible version of a listing, oldest first.
func (s *QueryService) History(ctx context.Context, id entities.Hash) ([]*entities.Record, error) {
	original, err := s.chain.FindOriginal(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	records, err := s.chain.History(ctx, original)
	if err != nil {
		return nil, classify(err)
	}
	return records, nil
}

// resolveAll resolves ids in parallel, keeping input order. Entities that
// fail to resolve are logged and skipped.
func (s *QueryService) resolveAll(ctx context.Context, ids []entities.Hash, keep func(*entities.Entity) bool) ([]*entities.Entity, error) {
	resolved := make([]*entities.Entity, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			entity, err := s.resolve(gctx, id)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn("skipping unresolvable entity", "id", id.Short(), "error", err)
				return nil
			}
			resolved[i] = entity
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*entities.Entity, 0, len(resolved))
	for _, e := range resolved {
		if e == nil || (keep != nil && !keep(e)) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *QueryService) resolve(ctx context.Context, id entities.Hash) (*entities.Entity, error) {
	root, err := s.chain.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if root.Action.Type != entities.ActionCreate {
		return nil, errors.New("not an original action")
	}

	if s.cache == nil {
		latest, err := s.chain.GetLatest(ctx, id)
		if err != nil {
			return nil, err
		}
		return entities.NewEntity(root, latest)
	}

	// The generation is read first so a write that lands while the chain
	// is resolved keeps the older result out of the cache.
	gen := s.cache.Generation(id)
	latest, ok := s.cache.Get(id)
	if !ok {
		latest, err = s.chain.GetLatest(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cache.Set(id, latest, gen)
	}
	return entities.NewEntity(root, latest)
}
