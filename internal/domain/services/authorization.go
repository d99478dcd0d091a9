package services

import (
	"context"
	"fmt"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// AuthorizeFunc decides whether caller may modify a resource owned by owner.
type AuthorizeFunc func(ctx context.Context, caller, owner entities.Hash) (bool, error)

// AuthorOrAdmin allows the owner, and otherwise falls back to the role lookup.
func AuthorOrAdmin(roles ports.RoleLookup) AuthorizeFunc {
	return func(ctx context.Context, caller, owner entities.Hash) (bool, error) {
		if caller.IsZero() {
			return false, nil
		}
		if caller == owner {
			return true, nil
		}
		if roles == nil {
			return false, nil
		}
		ok, err := roles.IsAdministrator(ctx, caller)
		if err != nil {
			return false, fmt.Errorf("checking administrator role: %w", err)
		}
		return ok, nil
	}
}

// AuthorOnly allows the owner and nobody else.
func AuthorOnly() AuthorizeFunc {
	return func(_ context.Context, caller, owner entities.Hash) (bool, error) {
		return !caller.IsZero() && caller == owner, nil
	}
}
