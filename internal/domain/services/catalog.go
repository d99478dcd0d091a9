package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

var _ RelationGate = (*CatalogService)(nil)

// CatalogService curates the mediums of exchange and service types that
// listings link to. Anyone may suggest a medium; it waits in the pending
// bucket until an administrator approves or rejects it, and only approved
// mediums can be linked. Service types are managed by administrators.
//
// Catalog entries are chains like listings and share their write rules:
// idempotent steps, no rollback, and the same call re-submitted converges.
type CatalogService struct {
	store  ports.ContentStore
	chain  *ChainResolver
	paths  *PathIndex
	roles  ports.RoleLookup
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store ports.ContentStore, chain *ChainResolver, paths *PathIndex, roles ports.RoleLookup, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		chain:  chain,
		paths:  paths,
		roles:  roles,
		logger: logger,
	}
}

func (s *CatalogService) opLogger(op string, caller entities.Hash) *slog.Logger {
	return s.logger.With("op", op, "op_id", uuid.New().String(), "caller", caller.Short())
}

// SuggestMedium records a medium of exchange for review. Administrators may
// suggest any exchange type; everyone else may only suggest currencies.
func (s *CatalogService) SuggestMedium(ctx context.Context, caller entities.Hash, m *entities.MediumOfExchange) (entities.Hash, error) {
	log := s.opLogger("suggest_medium", caller)
	if caller.IsZero() {
		return "", fmt.Errorf("%w: caller identity is required", ErrNotAuthorized)
	}
	next, err := prepareMedium(m)
	if err != nil {
		return "", err
	}
	next.ResourceSpecID = ""

	admin, err := s.isAdmin(ctx, caller)
	if err != nil {
		return "", err
	}
	if !admin && next.ExchangeType != entities.ExchangeCurrency {
		return "", fmt.Errorf("%w: only administrators may suggest %s mediums", ErrNotAuthorized, next.ExchangeType)
	}

	id, err := s.createMedium(ctx, caller, next, entities.ModerationPending)
	if err != nil {
		return "", err
	}
	log.Info("medium of exchange suggested", "id", id.Short(), "code", next.Code)
	return id, nil
}

// CreateMedium records a medium of exchange that is approved from the start.
func (s *CatalogService) CreateMedium(ctx context.Context, caller entities.Hash, m *entities.MediumOfExchange) (entities.Hash, error) {
	log := s.opLogger("create_medium", caller)
	if err := s.requireAdmin(ctx, caller); err != nil {
		return "", err
	}
	next, err := prepareMedium(m)
	if err != nil {
		return "", err
	}
	next.ResourceSpecID = entities.ResourceSpecPrefix + next.Code

	id, err := s.createMedium(ctx, caller, next, entities.ModerationApproved)
	if err != nil {
		return "", err
	}
	log.Info("medium of exchange created", "id", id.Short(), "code", next.Code)
	return id, nil
}

func (s *CatalogService) createMedium(ctx context.Context, caller entities.Hash, m *entities.MediumOfExchange, status entities.ModerationStatus) (entities.Hash, error) {
	id, err := s.put(ctx, caller, entities.KindMediumOfExchange, m)
	if err != nil {
		return "", err
	}
	if err := s.paths.AddToBucket(ctx, caller, entities.MediumsOfExchangePath, id); err != nil {
		return "", classify(err)
	}

	// A keyed retry that lands after moderation keeps the decision.
	found, err := s.paths.BucketsContaining(ctx, entities.ModerationBuckets(), id)
	if err != nil {
		return "", classify(err)
	}
	if len(found) == 0 {
		if err := s.paths.AddToBucket(ctx, caller, entities.ModerationBucket(status), id); err != nil {
			return "", classify(err)
		}
	}
	return id, nil
}

// UpdateMedium appends a new version of a medium. Its moderation status is
// unchanged, and an empty resource specification keeps the current one.
func (s *CatalogService) UpdateMedium(ctx context.Context, caller, id entities.Hash, m *entities.MediumOfExchange) (entities.Hash, error) {
	log := s.opLogger("update_medium", caller)
	if err := s.requireAdmin(ctx, caller); err != nil {
		return "", err
	}
	next, err := prepareMedium(m)
	if err != nil {
		return "", err
	}

	_, latest, err := s.live(ctx, id, entities.KindMediumOfExchange)
	if err != nil {
		return "", err
	}
	current, err := entities.DecodeMedium(latest.Entry)
	if err != nil {
		return "", err
	}
	if next.ResourceSpecID == "" {
		next.ResourceSpecID = current.ResourceSpecID
	}

	hash, err := s.append(ctx, caller, id, latest.Action.Hash, entities.KindMediumOfExchange, next)
	if err != nil {
		return "", err
	}
	log.Info("medium of exchange updated", "id", id.Short(), "version", hash.Short())
	return hash, nil
}

// ApproveMedium makes a medium linkable. A medium approved for the first
// time is assigned its resource specification.
func (s *CatalogService) ApproveMedium(ctx context.Context, caller, id entities.Hash) error {
	log := s.opLogger("approve_medium", caller)
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	_, latest, err := s.live(ctx, id, entities.KindMediumOfExchange)
	if err != nil {
		return err
	}
	current, err := entities.DecodeMedium(latest.Entry)
	if err != nil {
		return err
	}

	if current.ResourceSpecID == "" {
		next := *current
		next.ResourceSpecID = entities.ResourceSpecPrefix + current.Code
		if _, err := s.append(ctx, caller, id, latest.Action.Hash, entities.KindMediumOfExchange, &next); err != nil {
			return err
		}
	}
	if err := s.moderate(ctx, caller, id, entities.ModerationApproved); err != nil {
		return err
	}
	log.Info("medium of exchange approved", "id", id.Short(), "code", current.Code)
	return nil
}

// RejectMedium moves a medium to the rejected bucket. Listings that already
// link to it keep their links.
func (s *CatalogService) RejectMedium(ctx context.Context, caller, id entities.Hash) error {
	log := s.opLogger("reject_medium", caller)
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if _, _, err := s.live(ctx, id, entities.KindMediumOfExchange); err != nil {
		return err
	}
	if err := s.moderate(ctx, caller, id, entities.ModerationRejected); err != nil {
		return err
	}
	log.Info("medium of exchange rejected", "id", id.Short())
	return nil
}

func (s *CatalogService) moderate(ctx context.Context, caller, id entities.Hash, status entities.ModerationStatus) error {
	if err := s.paths.MoveToBucket(ctx, caller, entities.ModerationBuckets(), entities.ModerationBucket(status), id); err != nil {
		return classify(err)
	}
	return nil
}

// DeleteMedium removes a medium from every catalog bucket and tombstones it.
func (s *CatalogService) DeleteMedium(ctx context.Context, caller, id entities.Hash) error {
	log := s.opLogger("delete_medium", caller)
	buckets := append(entities.ModerationBuckets(), entities.MediumsOfExchangePath)
	if err := s.delete(ctx, caller, id, entities.KindMediumOfExchange, buckets); err != nil {
		return err
	}
	log.Info("medium of exchange deleted", "id", id.Short())
	return nil
}

// GetMedium resolves the latest version of a medium and its moderation status.
func (s *CatalogService) GetMedium(ctx context.Context, id entities.Hash) (*entities.Medium, error) {
	root, latest, err := s.live(ctx, id, entities.KindMediumOfExchange)
	if err != nil {
		return nil, err
	}
	status, err := s.moderationStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return entities.NewMedium(root, latest, status)
}

// ListMediums returns the mediums with status, or every medium when status is
// empty. Pending and rejected mediums are visible to administrators only.
func (s *CatalogService) ListMediums(ctx context.Context, caller entities.Hash, status entities.ModerationStatus) ([]*entities.Medium, error) {
	bucket := entities.MediumsOfExchangePath
	switch status {
	case "":
	case entities.ModerationApproved:
		bucket = entities.ModerationBucket(status)
	case entities.ModerationPending, entities.ModerationRejected:
		if err := s.requireAdmin(ctx, caller); err != nil {
			return nil, err
		}
		bucket = entities.ModerationBucket(status)
	default:
		return nil, fmt.Errorf("%w: unknown moderation status %q", ErrInvalidPayload, status)
	}

	ids, err := s.paths.ListBucket(ctx, bucket)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]*entities.Medium, 0, len(ids))
	for _, id := range ids {
		m, err := s.GetMedium(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("skipping unresolvable medium of exchange", "id", id.Short(), "error", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// IsMediumApproved reports whether listings may link to the medium.
func (s *CatalogService) IsMediumApproved(ctx context.Context, id entities.Hash) (bool, error) {
	ok, err := s.paths.Contains(ctx, entities.ModerationBucket(entities.ModerationApproved), id)
	if err != nil {
		return false, classify(err)
	}
	return ok, nil
}

// moderationStatus names the first moderation bucket holding id. A medium in
// no bucket is reported as pending.
func (s *CatalogService) moderationStatus(ctx context.Context, id entities.Hash) (entities.ModerationStatus, error) {
	for _, status := range entities.ModerationStatuses() {
		ok, err := s.paths.Contains(ctx, entities.ModerationBucket(status), id)
		if err != nil {
			return "", classify(err)
		}
		if ok {
			return status, nil
		}
	}
	return entities.ModerationPending, nil
}

// CreateServiceType records a new service type.
func (s *CatalogService) CreateServiceType(ctx context.Context, caller entities.Hash, st *entities.ServiceType) (entities.Hash, error) {
	log := s.opLogger("create_service_type", caller)
	if err := s.requireAdmin(ctx, caller); err != nil {
		return "", err
	}
	if err := st.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	id, err := s.put(ctx, caller, entities.KindServiceType, st)
	if err != nil {
		return "", err
	}
	if err := s.paths.AddToBucket(ctx, caller, entities.ServiceTypesPath, id); err != nil {
		return "", classify(err)
	}
	log.Info("service type created", "id", id.Short(), "name", st.Name)
	return id, nil
}

// UpdateServiceType appends a new version of a service type.
func (s *CatalogService) UpdateServiceType(ctx context.Context, caller, id entities.Hash, st *entities.ServiceType) (entities.Hash, error) {
	log := s.opLogger("update_service_type", caller)
	if err := s.requireAdmin(ctx, caller); err != nil {
		return "", err
	}
	if err := st.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	_, latest, err := s.live(ctx, id, entities.KindServiceType)
	if err != nil {
		return "", err
	}

	hash, err := s.append(ctx, caller, id, latest.Action.Hash, entities.KindServiceType, st)
	if err != nil {
		return "", err
	}
	log.Info("service type updated", "id", id.Short(), "version", hash.Short())
	return hash, nil
}

// DeleteServiceType removes a service type from the catalog and tombstones it.
func (s *CatalogService) DeleteServiceType(ctx context.Context, caller, id entities.Hash) error {
	log := s.opLogger("delete_service_type", caller)
	if err := s.delete(ctx, caller, id, entities.KindServiceType, []entities.Path{entities.ServiceTypesPath}); err != nil {
		return err
	}
	log.Info("service type deleted", "id", id.Short())
	return nil
}

// GetServiceType resolves the latest version of a service type.
func (s *CatalogService) GetServiceType(ctx context.Context, id entities.Hash) (*entities.Service, error) {
	root, latest, err := s.live(ctx, id, entities.KindServiceType)
	if err != nil {
		return nil, err
	}
	return entities.NewService(root, latest)
}

// ListServiceTypes returns every service type, oldest first.
func (s *CatalogService) ListServiceTypes(ctx context.Context) ([]*entities.Service, error) {
	ids, err := s.paths.ListBucket(ctx, entities.ServiceTypesPath)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]*entities.Service, 0, len(ids))
	for _, id := range ids {
		st, err := s.GetServiceType(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("skipping unresolvable service type", "id", id.Short(), "error", err)
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// CheckTargets rejects links to mediums that are not approved and to
// service types that are not in the catalog.
func (s *CatalogService) CheckTargets(ctx context.Context, rels entities.Relationships) error {
	for _, t := range rels[entities.RelationMediumOfExchange] {
		ok, err := s.IsMediumApproved(ctx, t.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: medium of exchange %s is not approved", ErrInvalidPayload, t.ID.Short())
		}
	}
	for _, t := range rels[entities.RelationServiceType] {
		ok, err := s.paths.Contains(ctx, entities.ServiceTypesPath, t.ID)
		if err != nil {
			return classify(err)
		}
		if !ok {
			return fmt.Errorf("%w: unknown service type %s", ErrInvalidPayload, t.ID.Short())
		}
	}
	return nil
}

func (s *CatalogService) put(ctx context.Context, caller entities.Hash, kind entities.EntityKind, v any) (entities.Hash, error) {
	entry, err := entities.EncodeCatalog(kind, v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	action := entities.NewAction(entities.ActionCreate, caller, entry.Hash(), "", "", writeNonce(ctx), timeNow())
	id, err := s.store.Put(ctx, &entities.Record{Action: action, Entry: entry})
	if err != nil {
		return "", classify(fmt.Errorf("storing %s: %w", kind, err))
	}

	deleted, err := s.chain.Tombstoned(ctx, id)
	if err != nil {
		return "", classify(err)
	}
	if deleted {
		return "", fmt.Errorf("%w: %s", ErrAlreadyDeleted, id.Short())
	}
	return id, nil
}

func (s *CatalogService) append(ctx context.Context, caller, id, previous entities.Hash, kind entities.EntityKind, v any) (entities.Hash, error) {
	entry, err := entities.EncodeCatalog(kind, v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	hash, err := s.chain.AppendUpdate(ctx, caller, id, previous, entry)
	if err != nil {
		return "", classify(err)
	}
	return hash, nil
}

func (s *CatalogService) delete(ctx context.Context, caller, id entities.Hash, kind entities.EntityKind, buckets []entities.Path) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if _, err := s.root(ctx, id, kind); err != nil {
		return err
	}
	latest, err := s.chain.GetLatest(ctx, id)
	if err != nil {
		return classify(err)
	}
	if err := s.paths.ClearFromBuckets(ctx, buckets, id); err != nil {
		return classify(err)
	}
	if err := s.chain.Tombstone(ctx, caller, id, latest.Action.Hash); err != nil {
		return classify(err)
	}
	return nil
}

// root fetches the original action of id and checks that it is a kind entry.
func (s *CatalogService) root(ctx context.Context, id entities.Hash, kind entities.EntityKind) (*entities.Record, error) {
	root, err := s.chain.Fetch(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if root.Action.Type != entities.ActionCreate || root.Entry == nil || root.Entry.Kind != kind {
		return nil, fmt.Errorf("%w: %s is not a %s", ErrNotFound, id.Short(), kind)
	}
	return root, nil
}

// live resolves the root and latest records of a kind entry that is not deleted.
func (s *CatalogService) live(ctx context.Context, id entities.Hash, kind entities.EntityKind) (*entities.Record, *entities.Record, error) {
	root, err := s.root(ctx, id, kind)
	if err != nil {
		return nil, nil, err
	}
	deleted, err := s.chain.Tombstoned(ctx, id)
	if err != nil {
		return nil, nil, classify(err)
	}
	if deleted {
		return nil, nil, fmt.Errorf("%w: %s", ErrAlreadyDeleted, id.Short())
	}
	latest, err := s.chain.GetLatest(ctx, id)
	if err != nil {
		return nil, nil, classify(err)
	}
	return root, latest, nil
}

func (s *CatalogService) isAdmin(ctx context.Context, caller entities.Hash) (bool, error) {
	if caller.IsZero() || s.roles == nil {
		return false, nil
	}
	ok, err := s.roles.IsAdministrator(ctx, caller)
	if err != nil {
		return false, classify(fmt.Errorf("checking administrator role: %w", err))
	}
	return ok, nil
}

func (s *CatalogService) requireAdmin(ctx context.Context, caller entities.Hash) error {
	ok, err := s.isAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an administrator", ErrNotAuthorized, caller.Short())
	}
	return nil
}

func prepareMedium(m *entities.MediumOfExchange) (*entities.MediumOfExchange, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: medium of exchange is required", ErrInvalidPayload)
	}
	next := *m
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return &next, nil
}
