package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// LifecycleService orchestrates every multi-index write of a listing.
// Each operation is a sequence of idempotent steps with no rollback: when a
// step fails the caller re-submits the same call and it converges.
type LifecycleService struct {
	store     ports.ContentStore
	chain     *ChainResolver
	paths     *PathIndex
	rels      *RelationshipIndex
	authorize AuthorizeFunc
	cache     ports.LatestCache
	gate      RelationGate
	logger    *slog.Logger
}

// RelationGate vets relationship targets before a listing links to them.
type RelationGate interface {
	CheckTargets(ctx context.Context, rels entities.Relationships) error
}

// NewLifecycleService creates a new lifecycle service. cache may be nil.
func NewLifecycleService(
	store ports.ContentStore,
	chain *ChainResolver,
	paths *PathIndex,
	rels *RelationshipIndex,
	authorize AuthorizeFunc,
	cache ports.LatestCache,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		store:     store,
		chain:     chain,
		paths:     paths,
		rels:      rels,
		authorize: authorize,
		cache:     cache,
		logger:    logger,
	}
}

// WithRelationGate makes Create and Update run gate over the supplied
// relationships before writing anything.
func (s *LifecycleService) WithRelationGate(gate RelationGate) *LifecycleService {
	s.gate = gate
	return s
}

// RepairReport describes what a repair pass found and did.
type RepairReport struct {
	ID       entities.Hash   `json:"id"`
	Expected entities.Path   `json:"expected,omitempty"`
	Found    []entities.Path `json:"found"`
	Deleted  bool            `json:"deleted"`
	Repaired bool            `json:"repaired"`
}

func (s *LifecycleService) opLogger(op string, caller entities.Hash) *slog.Logger {
	return s.logger.With("op", op, "op_id", uuid.New().String(), "caller", caller.Short())
}

func (s *LifecycleService) invalidate(id entities.Hash) {
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
}

// Create stores a new listing, adds it to the active bucket and links the
// supplied relationships. The creator relationship defaults to the caller.
// Every call creates a new listing unless ctx carries an idempotency key:
// re-submitting with the same key and payload returns the same root.
func (s *LifecycleService) Create(ctx context.Context, caller entities.Hash, listing *entities.Listing, rels entities.Relationships) (entities.Hash, error) {
	log := s.opLogger("create", caller)
	if caller.IsZero() {
		return "", fmt.Errorf("%w: caller identity is required", ErrNotAuthorized)
	}
	if listing == nil {
		return "", fmt.Errorf("%w: listing is required", ErrInvalidPayload)
	}

	next := listing.Clone()
	next.Status = entities.StatusActive
	if err := next.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := s.checkRelationships(ctx, rels); err != nil {
		return "", err
	}

	entry, err := entities.EncodeListing(next)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	action := entities.NewAction(entities.ActionCreate, caller, entry.Hash(), "", "", writeNonce(ctx), timeNow())
	rec := &entities.Record{Action: action, Entry: entry}

	root, err := s.store.Put(ctx, rec)
	if err != nil {
		return "", classify(fmt.Errorf("storing listing: %w", err))
	}
	defer s.invalidate(root)

	if err := s.ensureNotDeleted(ctx, root); err != nil {
		return "", err
	}

	// A retried create may land after later updates; the bucket follows the
	// latest status and the later versions own the relationship sets.
	latest, err := s.latestOr(ctx, root, rec)
	if err != nil {
		return "", classify(err)
	}
	current, err := entities.DecodeListing(latest.Entry)
	if err != nil {
		return "", err
	}
	if err := s.ensureBucket(ctx, caller, next.Kind, root, current.Status); err != nil {
		return "", classify(err)
	}

	if latest.Action.Hash == root {
		if err := s.replaceRelationships(ctx, caller, root, withCreator(rels, caller)); err != nil {
			return "", classify(err)
		}
	} else {
		log.Info("create re-submitted after updates, relationships unchanged", "id", root.Short())
	}

	log.Info("listing created", "id", root.Short(), "kind", next.Kind)
	return root, nil
}

// Update appends a new version and replaces each supplied relationship set.
// previous defaults to the current latest version. Relationships stay keyed
// by the original so lookups remain valid across versions.
func (s *LifecycleService) Update(ctx context.Context, caller, original, previous entities.Hash, listing *entities.Listing, rels entities.Relationships) (entities.Hash, error) {
	log := s.opLogger("update", caller)
	if listing == nil {
		return "", fmt.Errorf("%w: listing is required", ErrInvalidPayload)
	}

	if _, err := s.authorizedRoot(ctx, caller, original); err != nil {
		return "", err
	}
	if err := s.ensureNotDeleted(ctx, original); err != nil {
		return "", err
	}

	latest, err := s.chain.GetLatest(ctx, original)
	if err != nil {
		return "", classify(err)
	}
	current, err := entities.DecodeListing(latest.Entry)
	if err != nil {
		return "", err
	}

	if previous.IsZero() {
		previous = latest.Action.Hash
	} else if err := s.checkPrevious(ctx, original, previous); err != nil {
		return "", err
	}

	next := listing.Clone()
	if next.Kind == "" {
		next.Kind = current.Kind
	}
	if next.Kind != current.Kind {
		return "", fmt.Errorf("%w: kind cannot change from %s to %s", ErrInvalidPayload, current.Kind, next.Kind)
	}
	if next.Status == "" {
		next.Status = current.Status
	}
	if err := next.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := s.checkRelationships(ctx, rels); err != nil {
		return "", err
	}

	entry, err := entities.EncodeListing(next)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	hash, err := s.chain.AppendUpdate(ctx, caller, original, previous, entry)
	if err != nil {
		return "", classify(err)
	}
	s.invalidate(original)

	if err := s.replaceRelationships(ctx, caller, original, rels); err != nil {
		return "", classify(err)
	}

	// The bucket follows the chain's latest version, which is not this one
	// when a keyed retry lands after later updates.
	after, err := s.latestOr(ctx, original, &entities.Record{Entry: entry})
	if err != nil {
		return "", classify(err)
	}
	resolved, err := entities.DecodeListing(after.Entry)
	if err != nil {
		return "", err
	}
	if err := s.ensureBucket(ctx, caller, next.Kind, original, resolved.Status); err != nil {
		return "", classify(err)
	}

	log.Info("listing updated", "id", original.Short(), "version", hash.Short(), "status", resolved.Status)
	return hash, nil
}

// Archive moves a listing to the archived bucket.
func (s *LifecycleService) Archive(ctx context.Context, caller, original entities.Hash) error {
	return s.setStatus(ctx, "archive", caller, original, entities.StatusArchived)
}

// Unarchive moves a listing back to the active bucket.
func (s *LifecycleService) Unarchive(ctx context.Context, caller, original entities.Hash) error {
	return s.setStatus(ctx, "unarchive", caller, original, entities.StatusActive)
}

func (s *LifecycleService) setStatus(ctx context.Context, op string, caller, original entities.Hash, status entities.ListingStatus) error {
	log := s.opLogger(op, caller)

	if _, err := s.authorizedRoot(ctx, caller, original); err != nil {
		return err
	}
	if err := s.ensureNotDeleted(ctx, original); err != nil {
		return err
	}

	latest, err := s.chain.GetLatest(ctx, original)
	if err != nil {
		return classify(err)
	}
	current, err := entities.DecodeListing(latest.Entry)
	if err != nil {
		return err
	}

	if current.Status != status {
		next := current.Clone()
		next.Status = status
		entry, err := entities.EncodeListing(next)
		if err != nil {
			return err
		}
		if _, err := s.chain.AppendUpdate(ctx, caller, original, latest.Action.Hash, entry); err != nil {
			return classify(err)
		}
		s.invalidate(original)
	}

	if err := s.ensureBucket(ctx, caller, current.Kind, original, status); err != nil {
		return classify(err)
	}

	log.Info("listing status set", "id", original.Short(), "status", status)
	return nil
}

// Delete removes every relationship and bucket link of a listing and writes
// a tombstone. The chain's history is kept. Re-running a delete repeats the
// cleanup and succeeds.
func (s *LifecycleService) Delete(ctx context.Context, caller, original entities.Hash) error {
	log := s.opLogger("delete", caller)

	if _, err := s.authorizedRoot(ctx, caller, original); err != nil {
		return err
	}

	latest, err := s.chain.GetLatest(ctx, original)
	if err != nil {
		return classify(err)
	}
	current, err := entities.DecodeListing(latest.Entry)
	if err != nil {
		return err
	}
	defer s.invalidate(original)

	for _, kind := range entities.RelationKinds() {
		if err := s.rels.DeleteAllLinks(ctx, original, kind); err != nil {
			return classify(err)
		}
	}
	if err := s.paths.ClearFromBuckets(ctx, entities.StatusBuckets(current.Kind), original); err != nil {
		return classify(err)
	}

	if err := s.chain.Tombstone(ctx, caller, original, latest.Action.Hash); err != nil {
		return classify(err)
	}

	log.Info("listing deleted", "id", original.Short())
	return nil
}

// Repair checks that a listing sits in exactly the bucket its latest status
// names, and moves it there if not. Deleted listings are cleared from all
// buckets. Only the author or an administrator may repair a listing.
func (s *LifecycleService) Repair(ctx context.Context, caller, original entities.Hash) (*RepairReport, error) {
	log := s.opLogger("repair", caller)

	if _, err := s.authorizedRoot(ctx, caller, original); err != nil {
		return nil, err
	}
	latest, err := s.chain.GetLatest(ctx, original)
	if err != nil {
		return nil, classify(err)
	}
	current, err := entities.DecodeListing(latest.Entry)
	if err != nil {
		return nil, err
	}

	buckets := entities.StatusBuckets(current.Kind)
	found, err := s.paths.BucketsContaining(ctx, buckets, original)
	if err != nil {
		return nil, classify(err)
	}
	deleted, err := s.chain.Tombstoned(ctx, original)
	if err != nil {
		return nil, classify(err)
	}

	report := &RepairReport{ID: original, Found: found, Deleted: deleted}

	if deleted {
		if len(found) == 0 {
			return report, nil
		}
		log.Warn("deleted listing still indexed", "id", original.Short(), "found", found, "error", ErrInconsistentLinkState)
		for _, kind := range entities.RelationKinds() {
			if err := s.rels.DeleteAllLinks(ctx, original, kind); err != nil {
				return nil, classify(err)
			}
		}
		if err := s.paths.ClearFromBuckets(ctx, buckets, original); err != nil {
			return nil, classify(err)
		}
		report.Repaired = true
		return report, nil
	}

	report.Expected = entities.Bucket(current.Kind, current.Status)
	if len(found) == 1 && found[0] == report.Expected {
		return report, nil
	}

	log.Warn("bucket membership drifted", "id", original.Short(), "expected", report.Expected, "found", found, "error", ErrInconsistentLinkState)
	if err := s.ensureBucket(ctx, caller, current.Kind, original, current.Status); err != nil {
		return nil, classify(err)
	}
	s.invalidate(original)
	report.Repaired = true
	return report, nil
}

// RepairBuckets repairs every listing of kind the caller may modify.
// Listings owned by others are skipped unless the caller is an administrator.
func (s *LifecycleService) RepairBuckets(ctx context.Context, caller entities.Hash, kind entities.EntityKind) ([]*RepairReport, error) {
	if caller.IsZero() {
		return nil, fmt.Errorf("%w: caller identity is required", ErrNotAuthorized)
	}
	seen := make(map[entities.Hash]bool)
	var reports []*RepairReport
	for _, bucket := range entities.StatusBuckets(kind) {
		members, err := s.paths.ListBucket(ctx, bucket)
		if err != nil {
			return nil, classify(err)
		}
		for _, id := range members {
			if seen[id] {
				continue
			}
			seen[id] = true
			report, err := s.Repair(ctx, caller, id)
			if errors.Is(err, ErrNotAuthorized) {
				continue
			}
			if err != nil {
				s.logger.Warn("repair failed", "id", id.Short(), "error", err)
				continue
			}
			reports = append(reports, report)
		}
	}
	return reports, nil
}

// authorizedRoot resolves the original action and checks the caller against its author.
func (s *LifecycleService) authorizedRoot(ctx context.Context, caller, original entities.Hash) (*entities.Record, error) {
	root, err := s.chain.Fetch(ctx, original)
	if err != nil {
		return nil, classify(err)
	}
	if root.Action.Type != entities.ActionCreate {
		return nil, fmt.Errorf("%w: %s is not an original action", ErrNotFound, original.Short())
	}
	if root.Entry == nil || !root.Entry.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %s is not a listing", ErrNotFound, original.Short())
	}

	ok, err := s.authorize(ctx, caller, root.Action.Author)
	if err != nil {
		return nil, classify(fmt.Errorf("authorizing: %w", err))
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s may not modify %s", ErrNotAuthorized, caller.Short(), original.Short())
	}
	return root, nil
}

func (s *LifecycleService) ensureNotDeleted(ctx context.Context, original entities.Hash) error {
	deleted, err := s.chain.Tombstoned(ctx, original)
	if err != nil {
		return classify(err)
	}
	if deleted {
		return fmt.Errorf("%w: %s", ErrAlreadyDeleted, original.Short())
	}
	return nil
}

func (s *LifecycleService) checkPrevious(ctx context.Context, original, previous entities.Hash) error {
	if previous == original {
		return nil
	}
	rec, err := s.chain.Fetch(ctx, previous)
	if err != nil {
		return classify(err)
	}
	if rec.Action.Type == entities.ActionDelete {
		return fmt.Errorf("%w: %s", ErrAlreadyDeleted, original.Short())
	}
	if rec.Action.Root() != original {
		return fmt.Errorf("%w: previous %s does not belong to %s", ErrInvalidPayload, previous.Short(), original.Short())
	}
	return nil
}

// latestOr resolves the latest version, falling back to rec when the store
// has not made it visible yet.
func (s *LifecycleService) latestOr(ctx context.Context, root entities.Hash, rec *entities.Record) (*entities.Record, error) {
	latest, err := s.chain.GetLatest(ctx, root)
	if errors.Is(err, ErrNotFound) {
		return rec, nil
	}
	return latest, err
}

// ensureBucket places id in the bucket for status and removes it from the other.
func (s *LifecycleService) ensureBucket(ctx context.Context, author entities.Hash, kind entities.EntityKind, id entities.Hash, status entities.ListingStatus) error {
	return s.paths.MoveBetweenBuckets(ctx, author,
		entities.Bucket(kind, status.Other()),
		entities.Bucket(kind, status),
		id,
	)
}

func (s *LifecycleService) replaceRelationships(ctx context.Context, author, id entities.Hash, rels entities.Relationships) error {
	for _, kind := range rels.Kinds() {
		if err := s.rels.ReplaceLinks(ctx, author, id, kind, rels[kind]); err != nil {
			return err
		}
	}
	return nil
}

func (s *LifecycleService) checkRelationships(ctx context.Context, rels entities.Relationships) error {
	if err := validateRelationships(rels); err != nil {
		return err
	}
	if s.gate == nil {
		return nil
	}
	return s.gate.CheckTargets(ctx, rels)
}

func validateRelationships(rels entities.Relationships) error {
	for kind, targets := range rels {
		if !kind.IsValid() {
			return fmt.Errorf("%w: unknown relationship kind %q", ErrInvalidPayload, kind)
		}
		for _, t := range targets {
			if t.ID.IsZero() {
				return fmt.Errorf("%w: empty %s target", ErrInvalidPayload, kind)
			}
		}
	}
	return nil
}

// withCreator returns rels with the caller as creator unless one was supplied.
func withCreator(rels entities.Relationships, caller entities.Hash) entities.Relationships {
	if _, ok := rels[entities.RelationCreator]; ok {
		return rels
	}
	out := make(entities.Relationships, len(rels)+1)
	for k, v := range rels {
		out[k] = v
	}
	out[entities.RelationCreator] = entities.HashTargets(caller)
	return out
}
