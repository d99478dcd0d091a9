package handlers

import (
	"context"
	"fmt"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
)

// ListingHandler handles listing writes at the application layer.
type ListingHandler struct {
	lifecycle *services.LifecycleService
	query     *services.QueryService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(lifecycle *services.LifecycleService, query *services.QueryService) *ListingHandler {
	return &ListingHandler{
		lifecycle: lifecycle,
		query:     query,
	}
}

// ListingInput is the payload of a create or update.
type ListingInput struct {
	Listing       entities.Listing  `json:"listing"`
	Relationships RelationshipInput `json:"relationships,omitempty"`
}

// HandleCreate creates a listing of kind and returns its resolved view.
func (h *ListingHandler) HandleCreate(ctx context.Context, caller entities.Hash, kind entities.EntityKind, in ListingInput) (*entities.Entity, error) {
	rels, err := parseRelationships(in.Relationships)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", services.ErrInvalidPayload, err)
	}

	listing := in.Listing
	if listing.Kind == "" {
		listing.Kind = kind
	}
	if listing.Kind != kind {
		return nil, fmt.Errorf("%w: payload kind %s does not match %s", services.ErrInvalidPayload, listing.Kind, kind)
	}

	id, err := h.lifecycle.Create(ctx, caller, &listing, rels)
	if err != nil {
		return nil, err
	}
	return h.query.Get(ctx, id)
}

// HandleUpdate appends a new version of the listing rooted at id.
// previous may be empty to build on the current latest version.
func (h *ListingHandler) HandleUpdate(ctx context.Context, caller, id, previous entities.Hash, in ListingInput) (*entities.Entity, error) {
	rels, err := parseRelationships(in.Relationships)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", services.ErrInvalidPayload, err)
	}

	listing := in.Listing
	if _, err := h.lifecycle.Update(ctx, caller, id, previous, &listing, rels); err != nil {
		return nil, err
	}
	return h.query.Get(ctx, id)
}

// HandleArchive archives a listing.
func (h *ListingHandler) HandleArchive(ctx context.Context, caller, id entities.Hash) error {
	return h.lifecycle.Archive(ctx, caller, id)
}

// HandleUnarchive restores an archived listing.
func (h *ListingHandler) HandleUnarchive(ctx context.Context, caller, id entities.Hash) error {
	return h.lifecycle.Unarchive(ctx, caller, id)
}

// HandleDelete deletes a listing and its index entries.
func (h *ListingHandler) HandleDelete(ctx context.Context, caller, id entities.Hash) error {
	return h.lifecycle.Delete(ctx, caller, id)
}

// HandleRepair checks and fixes the bucket membership of one listing.
func (h *ListingHandler) HandleRepair(ctx context.Context, caller, id entities.Hash) (*services.RepairReport, error) {
	return h.lifecycle.Repair(ctx, caller, id)
}

// HandleRepairAll repairs every indexed listing of kind, or of both kinds when kind is empty.
func (h *ListingHandler) HandleRepairAll(ctx context.Context, caller entities.Hash, kind entities.EntityKind) ([]*services.RepairReport, error) {
	kinds := entities.EntityKinds()
	if kind != "" {
		kinds = []entities.EntityKind{kind}
	}

	var out []*services.RepairReport
	for _, k := range kinds {
		reports, err := h.lifecycle.RepairBuckets(ctx, caller, k)
		if err != nil {
			return nil, fmt.Errorf("repairing %s: %w", k.Plural(), err)
		}
		out = append(out, reports...)
	}
	return out, nil
}
