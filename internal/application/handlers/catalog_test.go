package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
)

func TestCatalogHandler_Mediums(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eur := entities.MediumOfExchange{Code: "EUR", Name: "Euro", ExchangeType: entities.ExchangeCurrency}

	m, err := f.catalog.HandleSuggestMedium(ctx, bob, eur)
	require.NoError(t, err)
	assert.Equal(t, entities.ModerationPending, m.Status)

	in := offerInput("logo")
	in.Relationships = RelationshipInput{"medium_of_exchange": {m.ID.String()}}
	_, err = f.listings.HandleCreate(ctx, bob, entities.KindOffer, in)
	require.ErrorIs(t, err, services.ErrInvalidPayload, "pending mediums cannot be linked")

	_, err = f.catalog.HandleListMediums(ctx, bob, entities.ModerationPending)
	require.ErrorIs(t, err, services.ErrNotAuthorized)
	pending, err := f.catalog.HandleListMediums(ctx, alice, entities.ModerationPending)
	require.NoError(t, err)
	assert.Equal(t, 1, pending.Total)

	require.NoError(t, f.catalog.HandleApproveMedium(ctx, alice, m.ID))
	offer, err := f.listings.HandleCreate(ctx, bob, entities.KindOffer, in)
	require.NoError(t, err)

	result, err := f.catalog.HandleListingsForMedium(ctx, m.ID, entities.KindOffer)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, offer.ID, result.Listings[0].ID)

	approved, err := f.catalog.HandleListMediums(ctx, bob, entities.ModerationApproved)
	require.NoError(t, err)
	require.Equal(t, 1, approved.Total)
	assert.Equal(t, entities.ResourceSpecPrefix+"EUR", approved.Mediums[0].Medium.ResourceSpecID)
}

func TestCatalogHandler_ServiceTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	design := entities.ServiceType{Name: "Design", Description: "Design work"}

	_, err := f.catalog.HandleCreateServiceType(ctx, bob, design)
	require.ErrorIs(t, err, services.ErrNotAuthorized)

	st, err := f.catalog.HandleCreateServiceType(ctx, alice, design)
	require.NoError(t, err)

	in := offerInput("logo")
	in.Relationships = RelationshipInput{"service_type": {st.ID.String()}}
	offer, err := f.listings.HandleCreate(ctx, bob, entities.KindOffer, in)
	require.NoError(t, err)

	result, err := f.catalog.HandleListingsForServiceType(ctx, st.ID, "")
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, offer.ID, result.Listings[0].ID)

	design.Technical = true
	updated, err := f.catalog.HandleUpdateServiceType(ctx, alice, st.ID, design)
	require.NoError(t, err)
	assert.True(t, updated.ServiceType.Technical)

	require.NoError(t, f.catalog.HandleDeleteServiceType(ctx, alice, st.ID))
	_, err = f.catalog.HandleListingsForServiceType(ctx, st.ID, "")
	require.ErrorIs(t, err, services.ErrAlreadyDeleted)

	list, err := f.catalog.HandleListServiceTypes(ctx)
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}
