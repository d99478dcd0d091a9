package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

var _ ports.RoleLookup = (*AdminService)(nil)

// AdminService manages the network administrators, stored as members of
// the administrators path.
type AdminService struct {
	paths  *PathIndex
	logger *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(paths *PathIndex, logger *slog.Logger) *AdminService {
	return &AdminService{paths: paths, logger: logger}
}

// Register makes agent the first administrator of a network that has none.
// Registering an existing administrator again is a no-op.
func (s *AdminService) Register(ctx context.Context, agent entities.Hash) error {
	admins, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, a := range admins {
		if a == agent {
			return nil
		}
	}
	if len(admins) > 0 {
		return fmt.Errorf("%w: network already has administrators", ErrNotAuthorized)
	}

	if err := s.paths.AddToBucket(ctx, agent, entities.AdministratorsPath, agent); err != nil {
		return classify(err)
	}
	s.logger.Info("first administrator registered", "agent", agent.Short())
	return nil
}

// Add grants agent administrator privilege. caller must be an administrator.
func (s *AdminService) Add(ctx context.Context, caller, agent entities.Hash) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if err := s.paths.AddToBucket(ctx, caller, entities.AdministratorsPath, agent); err != nil {
		return classify(err)
	}
	s.logger.Info("administrator added", "agent", agent.Short(), "by", caller.Short())
	return nil
}

// Remove revokes agent's privilege. The last administrator cannot be removed.
func (s *AdminService) Remove(ctx context.Context, caller, agent entities.Hash) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}

	admins, err := s.List(ctx)
	if err != nil {
		return err
	}
	member := false
	for _, a := range admins {
		if a == agent {
			member = true
			break
		}
	}
	if !member {
		return nil
	}
	if len(admins) == 1 {
		return ErrLastAdministrator
	}

	if err := s.paths.RemoveFromBucket(ctx, entities.AdministratorsPath, agent); err != nil {
		return classify(err)
	}
	s.logger.Info("administrator removed", "agent", agent.Short(), "by", caller.Short())
	return nil
}

// IsAdministrator reports whether agent holds administrator privilege.
func (s *AdminService) IsAdministrator(ctx context.Context, agent entities.Hash) (bool, error) {
	ok, err := s.paths.Contains(ctx, entities.AdministratorsPath, agent)
	if err != nil {
		return false, classify(err)
	}
	return ok, nil
}

// List returns every administrator.
func (s *AdminService) List(ctx context.Context) ([]entities.Hash, error) {
	admins, err := s.paths.ListBucket(ctx, entities.AdministratorsPath)
	if err != nil {
		return nil, classify(err)
	}
	return admins, nil
}

func (s *AdminService) requireAdmin(ctx context.Context, caller entities.Hash) error {
	ok, err := s.IsAdministrator(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an administrator", ErrNotAuthorized, caller.Short())
	}
	return nil
}
