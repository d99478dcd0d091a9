package handlers

import (
	"context"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
)

// CatalogHandler handles mediums of exchange and service types.
type CatalogHandler struct {
	catalog *services.CatalogService
	query   *services.QueryService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService, query *services.QueryService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, query: query}
}

// MediumListResult contains mediums of exchange.
type MediumListResult struct {
	Mediums []*entities.Medium `json:"mediums"`
	Total   int                `json:"total"`
}

// ServiceTypeListResult contains service types.
type ServiceTypeListResult struct {
	ServiceTypes []*entities.Service `json:"service_types"`
	Total        int                 `json:"total"`
}

// HandleSuggestMedium submits a medium of exchange for review.
func (h *CatalogHandler) HandleSuggestMedium(ctx context.Context, caller entities.Hash, m entities.MediumOfExchange) (*entities.Medium, error) {
	id, err := h.catalog.SuggestMedium(ctx, caller, &m)
	if err != nil {
		return nil, err
	}
	return h.catalog.GetMedium(ctx, id)
}

// HandleCreateMedium adds an approved medium of exchange.
func (h *CatalogHandler) HandleCreateMedium(ctx context.Context, caller entities.Hash, m entities.MediumOfExchange) (*entities.Medium, error) {
	id, err := h.catalog.CreateMedium(ctx, caller, &m)
	if err != nil {
		return nil, err
	}
	return h.catalog.GetMedium(ctx, id)
}

// HandleUpdateMedium appends a new version of a medium of exchange.
func (h *CatalogHandler) HandleUpdateMedium(ctx context.Context, caller, id entities.Hash, m entities.MediumOfExchange) (*entities.Medium, error) {
	if _, err := h.catalog.UpdateMedium(ctx, caller, id, &m); err != nil {
		return nil, err
	}
	return h.catalog.GetMedium(ctx, id)
}

// HandleApproveMedium approves a medium of exchange.
func (h *CatalogHandler) HandleApproveMedium(ctx context.Context, caller, id entities.Hash) error {
	return h.catalog.ApproveMedium(ctx, caller, id)
}

// HandleRejectMedium rejects a medium of exchange.
func (h *CatalogHandler) HandleRejectMedium(ctx context.Context, caller, id entities.Hash) error {
	return h.catalog.RejectMedium(ctx, caller, id)
}

// HandleDeleteMedium deletes a medium of exchange.
func (h *CatalogHandler) HandleDeleteMedium(ctx context.Context, caller, id entities.Hash) error {
	return h.catalog.DeleteMedium(ctx, caller, id)
}

// HandleGetMedium resolves a medium of exchange.
func (h *CatalogHandler) HandleGetMedium(ctx context.Context, id entities.Hash) (*entities.Medium, error) {
	return h.catalog.GetMedium(ctx, id)
}

// HandleListMediums lists mediums with status, or all of them when it is empty.
func (h *CatalogHandler) HandleListMediums(ctx context.Context, caller entities.Hash, status entities.ModerationStatus) (*MediumListResult, error) {
	list, err := h.catalog.ListMediums(ctx, caller, status)
	if err != nil {
		return nil, err
	}
	return &MediumListResult{Mediums: list, Total: len(list)}, nil
}

// HandleCreateServiceType adds a service type.
func (h *CatalogHandler) HandleCreateServiceType(ctx context.Context, caller entities.Hash, st entities.ServiceType) (*entities.Service, error) {
	id, err := h.catalog.CreateServiceType(ctx, caller, &st)
	if err != nil {
		return nil, err
	}
	return h.catalog.GetServiceType(ctx, id)
}

// HandleUpdateServiceType appends a new version of a service type.
func (h *CatalogHandler) HandleUpdateServiceType(ctx context.Context, caller, id entities.Hash, st entities.ServiceType) (*entities.Service, error) {
	if _, err := h.catalog.UpdateServiceType(ctx, caller, id, &st); err != nil {
		return nil, err
	}
	return h.catalog.GetServiceType(ctx, id)
}

// HandleDeleteServiceType deletes a service type.
func (h *CatalogHandler) HandleDeleteServiceType(ctx context.Context, caller, id entities.Hash) error {
	return h.catalog.DeleteServiceType(ctx, caller, id)
}

// HandleGetServiceType resolves a service type.
func (h *CatalogHandler) HandleGetServiceType(ctx context.Context, id entities.Hash) (*entities.Service, error) {
	return h.catalog.GetServiceType(ctx, id)
}

// HandleListServiceTypes lists every service type.
func (h *CatalogHandler) HandleListServiceTypes(ctx context.Context) (*ServiceTypeListResult, error) {
	list, err := h.catalog.ListServiceTypes(ctx)
	if err != nil {
		return nil, err
	}
	return &ServiceTypeListResult{ServiceTypes: list, Total: len(list)}, nil
}

// HandleListingsForMedium returns the listings of kind paid in a medium.
// An empty kind matches offers and requests.
func (h *CatalogHandler) HandleListingsForMedium(ctx context.Context, id entities.Hash, kind entities.EntityKind) (*ListResult, error) {
	if _, err := h.catalog.GetMedium(ctx, id); err != nil {
		return nil, err
	}
	return h.listingsFor(ctx, entities.RelationMediumOfExchange, id, kind)
}

// HandleListingsForServiceType returns the listings of kind in a service type.
// An empty kind matches offers and requests.
func (h *CatalogHandler) HandleListingsForServiceType(ctx context.Context, id entities.Hash, kind entities.EntityKind) (*ListResult, error) {
	if _, err := h.catalog.GetServiceType(ctx, id); err != nil {
		return nil, err
	}
	return h.listingsFor(ctx, entities.RelationServiceType, id, kind)
}

func (h *CatalogHandler) listingsFor(ctx context.Context, rel entities.RelationKind, id entities.Hash, kind entities.EntityKind) (*ListResult, error) {
	list, err := h.query.GetByRelationship(ctx, kind, rel, id)
	if err != nil {
		return nil, err
	}
	return &ListResult{Listings: list, Total: len(list)}, nil
}
