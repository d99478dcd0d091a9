package handlers

import (
	"context"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/services"
)

// AdminHandler handles network administrator management.
type AdminHandler struct {
	service *services.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *services.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// AdminListResult contains the administrators of the network.
type AdminListResult struct {
	Administrators []entities.Hash `json:"administrators"`
}

// HandleRegister bootstraps agent as the first administrator.
func (h *AdminHandler) HandleRegister(ctx context.Context, agent entities.Hash) error {
	return h.service.Register(ctx, agent)
}

// HandleAdd grants agent administrator privilege.
func (h *AdminHandler) HandleAdd(ctx context.Context, caller, agent entities.Hash) error {
	return h.service.Add(ctx, caller, agent)
}

// HandleRemove revokes agent's administrator privilege.
func (h *AdminHandler) HandleRemove(ctx context.Context, caller, agent entities.Hash) error {
	return h.service.Remove(ctx, caller, agent)
}

// HandleList returns the administrators.
func (h *AdminHandler) HandleList(ctx context.Context) (*AdminListResult, error) {
	admins, err := h.service.List(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminListResult{Administrators: admins}, nil
}
