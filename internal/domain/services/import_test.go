package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/parsers"
)

func importRows() []parsers.RawListing {
	return []parsers.RawListing{
		{Kind: "offer", Title: "Logo design", Description: "Vector logos", Capabilities: []string{"design"}, Tags: []string{"Design"}, LineNum: 2},
		{Kind: "request", Title: "Garden help", Description: "Weekend digging", Requirements: []string{"gardening"}, LineNum: 3},
		{Kind: "gift", Title: "Bad kind", Description: "x", LineNum: 4},
		{Kind: "offer", Title: "No capabilities", Description: "x", LineNum: 5},
	}
}

func TestImportService_Import(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewImportService(h.lifecycle)

	result, err := svc.Import(ctx, alice, importRows(), ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Len(t, result.IDs, 2)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 4, result.Errors[0].Line)
	assert.Equal(t, "kind", result.Errors[0].Field)
	assert.Equal(t, 5, result.Errors[1].Line)

	tagged, err := h.query.GetByTag(ctx, "design")
	require.NoError(t, err)
	assert.Equal(t, []string{"Logo design"}, titles(tagged))

	requests, err := h.query.GetActive(ctx, entities.KindRequest)
	require.NoError(t, err)
	assert.Equal(t, []string{"Garden help"}, titles(requests))
}

func TestImportService_Import_Rerun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewImportService(h.lifecycle)

	opts := ImportOptions{Source: "listings.json@abc123"}

	first, err := svc.Import(ctx, alice, importRows(), opts)
	require.NoError(t, err)
	second, err := svc.Import(ctx, alice, importRows(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.IDs, second.IDs)
	assert.NotEqual(t, first.BatchID, second.BatchID)
	offers, err := h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	assert.Len(t, offers, 1)
}

func TestImportService_Import_WithoutSource(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewImportService(h.lifecycle)

	first, err := svc.Import(ctx, alice, importRows(), ImportOptions{})
	require.NoError(t, err)
	second, err := svc.Import(ctx, alice, importRows(), ImportOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, first.IDs, second.IDs)
	offers, err := h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	assert.Len(t, offers, 2)
}

func TestImportService_Import_DryRun(t *testing.T) {
	h := newHarness(t)
	svc := NewImportService(h.lifecycle)

	result, err := svc.Import(context.Background(), alice, importRows(), ImportOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.IDs)
	assert.Zero(t, h.store.WriteCount())
}

func TestImportService_Import_SharedRelationships(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := entities.AgentHash("org")
	svc := NewImportService(h.lifecycle)

	_, err := svc.Import(ctx, alice, importRows()[:2], ImportOptions{
		Relationships: entities.Relationships{entities.RelationOrganization: entities.HashTargets(org)},
	})
	require.NoError(t, err)

	got, err := h.query.GetByRelationship(ctx, "", entities.RelationOrganization, org)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestImportService_Import_AbortsOnSubstrateFailure(t *testing.T) {
	h := newHarness(t)
	h.store.FailAfter["put"] = 1
	svc := NewImportService(h.lifecycle)

	result, err := svc.Import(context.Background(), alice, importRows(), ImportOptions{})
	require.ErrorIs(t, err, ErrSubstrateUnavailable)
	assert.Equal(t, 1, result.Imported)
}
