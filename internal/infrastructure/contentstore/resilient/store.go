// Package resilient decorates a ports.ContentStore with per-call timeouts
// and bounded retries of transient failures.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

var _ ports.ContentStore = (*Store)(nil)

// Options configures the decorator.
type Options struct {
	// Timeout bounds a single attempt. 0 disables it.
	Timeout         time.Duration
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Logger          *slog.Logger
}

// Store retries calls that fail with ports.ErrUnavailable or time out.
// Every other error is returned after the first attempt.
type Store struct {
	inner  ports.ContentStore
	opts   Options
	logger *slog.Logger
}

// New wraps inner.
func New(inner ports.ContentStore, opts Options) *Store {
	if opts.MaxTries == 0 {
		opts.MaxTries = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{inner: inner, opts: opts, logger: logger}
}

func (s *Store) retryOptions() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	if s.opts.InitialInterval > 0 {
		b.InitialInterval = s.opts.InitialInterval
	}
	if s.opts.MaxInterval > 0 {
		b.MaxInterval = s.opts.MaxInterval
	}
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.opts.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Debug("retrying content store call", "error", err, "next", next)
		}),
	}
}

// call runs fn with a per-attempt timeout, retrying transient failures.
func call[T any](ctx context.Context, s *Store, op string, fn func(context.Context) (T, error)) (T, error) {
	attempt := func() (T, error) {
		actx := ctx
		if s.opts.Timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()
		}

		v, err := fn(actx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return v, backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, ports.ErrUnavailable) {
			return v, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return v, fmt.Errorf("%w: %s timed out: %w", ports.ErrUnavailable, op, err)
		}
		return v, backoff.Permanent(err)
	}

	v, err := backoff.Retry(ctx, attempt, s.retryOptions()...)
	if err != nil {
		if errors.Is(err, ports.ErrUnavailable) {
			s.logger.Warn("content store call failed after retries", "op", op, "tries", s.opts.MaxTries, "error", err)
		}
		return v, err
	}
	return v, nil
}

// Put stores a record.
func (s *Store) Put(ctx context.Context, rec *entities.Record) (entities.Hash, error) {
	return call(ctx, s, "put", func(ctx context.Context) (entities.Hash, error) {
		return s.inner.Put(ctx, rec)
	})
}

// Get returns a record. A nil record is not retried here.
func (s *Store) Get(ctx context.Context, hash entities.Hash) (*entities.Record, error) {
	return call(ctx, s, "get", func(ctx context.Context) (*entities.Record, error) {
		return s.inner.Get(ctx, hash)
	})
}

// CreateLink stores a link.
func (s *Store) CreateLink(ctx context.Context, link entities.Link) (entities.Hash, error) {
	return call(ctx, s, "create_link", func(ctx context.Context) (entities.Hash, error) {
		return s.inner.CreateLink(ctx, link)
	})
}

// GetLinks lists links from base.
func (s *Store) GetLinks(ctx context.Context, base entities.Hash, filter entities.LinkFilter) ([]entities.Link, error) {
	return call(ctx, s, "get_links", func(ctx context.Context) ([]entities.Link, error) {
		return s.inner.GetLinks(ctx, base, filter)
	})
}

// DeleteLink deletes a link.
func (s *Store) DeleteLink(ctx context.Context, linkID entities.Hash) error {
	_, err := call(ctx, s, "delete_link", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.inner.DeleteLink(ctx, linkID)
	})
	return err
}

// Close closes the wrapped store.
func (s *Store) Close() error {
	return s.inner.Close()
}
