package handlers

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/contentstore/memory"
)

var (
	alice = entities.AgentHash("alice")
	bob   = entities.AgentHash("bob")
)

type fixture struct {
	listings *ListingHandler
	queries  *QueryHandler
	admins   *AdminHandler
	imports  *ImportHandler
	catalog  *CatalogHandler
}

// newFixture wires every handler over a fresh in-memory store with alice
// registered as the network administrator.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	logger := slog.New(slog.DiscardHandler)
	chain := services.NewChainResolver(store, services.DefaultRetryPolicy(), logger)
	paths := services.NewPathIndex(store)
	rels := services.NewRelationshipIndex(store)
	admin := services.NewAdminService(paths, logger)
	catalog := services.NewCatalogService(store, chain, paths, admin, logger)
	lifecycle := services.NewLifecycleService(store, chain, paths, rels, services.AuthorOrAdmin(admin), nil, logger).
		WithRelationGate(catalog)
	query := services.NewQueryService(chain, paths, rels, nil, logger, 4)

	require.NoError(t, admin.Register(context.Background(), alice))

	return &fixture{
		listings: NewListingHandler(lifecycle, query),
		queries:  NewQueryHandler(query),
		admins:   NewAdminHandler(admin),
		imports:  NewImportHandler(services.NewImportService(lifecycle)),
		catalog:  NewCatalogHandler(catalog, query),
	}
}

func offerInput(title string, tags ...string) ListingInput {
	in := ListingInput{Listing: entities.Listing{
		Title:        title,
		Description:  title + " description",
		Capabilities: []string{"design"},
	}}
	if len(tags) > 0 {
		in.Relationships = RelationshipInput{"tags": tags}
	}
	return in
}

func (f *fixture) createOffer(t *testing.T, caller entities.Hash, title string, tags ...string) *entities.Entity {
	t.Helper()
	e, err := f.listings.HandleCreate(context.Background(), caller, entities.KindOffer, offerInput(title, tags...))
	require.NoError(t, err)
	return e
}
