package ports

import (
	"context"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

// RoleLookup answers whether an agent holds administrator privilege.
type RoleLookup interface {
	IsAdministrator(ctx context.Context, agent entities.Hash) (bool, error)
}
