package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// Errors surfaced by the lifecycle and query services.
var (
	ErrNotFound              = errors.New("entry not found")
	ErrNotAuthorized         = errors.New("not authorized")
	ErrAlreadyDeleted        = errors.New("entry already deleted")
	ErrInconsistentLinkState = errors.New("inconsistent link state")
	ErrSubstrateUnavailable  = errors.New("substrate unavailable")
	ErrInvalidPayload        = errors.New("invalid payload")
	ErrLastAdministrator     = errors.New("cannot remove the last administrator")
)

// classify maps substrate failures onto ErrSubstrateUnavailable and leaves
// domain errors untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSubstrateUnavailable) {
		return err
	}
	if errors.Is(err, ports.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrSubstrateUnavailable, err)
	}
	return err
}

// IsRetriable reports whether re-submitting the same call may succeed.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrSubstrateUnavailable) ||
		errors.Is(err, ports.ErrUnavailable) ||
		errors.Is(err, ErrNotFound)
}
