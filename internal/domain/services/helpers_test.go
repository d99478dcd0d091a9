package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/mocks"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/contentstore/memory"
)

var (
	alice = entities.AgentHash("alice")
	bob   = entities.AgentHash("bob")
	carol = entities.AgentHash("carol")
)

var testRetry = RetryPolicy{
	MaxTries:        3,
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
}

type harness struct {
	store     *mocks.FlakyStore
	roles     *mocks.RoleLookup
	clock     *mocks.Clock
	chain     *ChainResolver
	paths     *PathIndex
	rels      *RelationshipIndex
	lifecycle *LifecycleService
	query     *QueryService
	catalog   *CatalogService
}

// newHarness wires every service over a fresh in-memory store with a
// stepping clock.
func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := useClock(t)
	return buildHarness(clock)
}

// useClock swaps the package clock for a stepping one until the test ends.
func useClock(t *testing.T) *mocks.Clock {
	t.Helper()
	clock := mocks.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	prev := timeNow
	timeNow = clock.Now
	t.Cleanup(func() { timeNow = prev })
	return clock
}

func buildHarness(clock *mocks.Clock) *harness {
	inner := memory.New()
	logger := slog.New(slog.DiscardHandler)
	store := mocks.NewFlakyStore(inner)
	roles := mocks.NewRoleLookup(carol)
	chain := NewChainResolver(store, testRetry, logger)
	paths := NewPathIndex(store)
	rels := NewRelationshipIndex(store)

	return &harness{
		store:     store,
		roles:     roles,
		clock:     clock,
		chain:     chain,
		paths:     paths,
		rels:      rels,
		lifecycle: NewLifecycleService(store, chain, paths, rels, AuthorOrAdmin(roles), nil, logger),
		query:     NewQueryService(chain, paths, rels, nil, logger, 4),
		catalog:   NewCatalogService(store, chain, paths, roles, logger),
	}
}

func offer(title string) *entities.Listing {
	return &entities.Listing{
		Kind:         entities.KindOffer,
		Title:        title,
		Description:  title + " description",
		Capabilities: []string{"design"},
	}
}

func request(title string) *entities.Listing {
	return &entities.Listing{
		Kind:         entities.KindRequest,
		Title:        title,
		Description:  title + " description",
		Requirements: []string{"help"},
	}
}

func tags(names ...string) entities.Relationships {
	return entities.Relationships{entities.RelationTags: entities.TagTargets(names...)}
}

func (h *harness) create(t *testing.T, caller entities.Hash, l *entities.Listing, rels entities.Relationships) entities.Hash {
	t.Helper()
	id, err := h.lifecycle.Create(context.Background(), caller, l, rels)
	require.NoError(t, err)
	return id
}

func ids(list []*entities.Entity) []entities.Hash {
	out := make([]entities.Hash, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func titles(list []*entities.Entity) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Listing.Title)
	}
	return out
}

// bucketCount counts how many status buckets of kind hold id.
func (h *harness) bucketCount(t *testing.T, kind entities.EntityKind, id entities.Hash) int {
	t.Helper()
	found, err := h.paths.BucketsContaining(context.Background(), entities.StatusBuckets(kind), id)
	require.NoError(t, err)
	return len(found)
}

func currency(code string) *entities.MediumOfExchange {
	return &entities.MediumOfExchange{
		Code:         code,
		Name:         code + " currency",
		ExchangeType: entities.ExchangeCurrency,
	}
}

// moderationBuckets returns the moderation buckets holding id.
func (h *harness) moderationBuckets(t *testing.T, id entities.Hash) []entities.Path {
	t.Helper()
	found, err := h.paths.BucketsContaining(context.Background(), entities.ModerationBuckets(), id)
	require.NoError(t, err)
	return found
}
