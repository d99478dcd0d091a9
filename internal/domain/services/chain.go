package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

var errNotVisible = errors.New("record not visible")

// ChainResolver resolves update chains rooted at an original action.
// Every update links directly from the original, so lookup cost is
// proportional to the number of updates, not the chain depth.
type ChainResolver struct {
	store  ports.ContentStore
	retry  RetryPolicy
	logger *slog.Logger
}

// NewChainResolver creates a new chain resolver.
func NewChainResolver(store ports.ContentStore, retry RetryPolicy, logger *slog.Logger) *ChainResolver {
	return &ChainResolver{
		store:  store,
		retry:  retry,
		logger: logger,
	}
}

// Fetch gets a record, retrying while the store reports it as absent.
// It returns ErrNotFound once the retry policy is exhausted.
func (c *ChainResolver) Fetch(ctx context.Context, hash entities.Hash) (*entities.Record, error) {
	op := func() (*entities.Record, error) {
		rec, err := c.store.Get(ctx, hash)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if rec == nil {
			return nil, errNotVisible
		}
		return rec, nil
	}

	rec, err := backoff.Retry(ctx, op, c.retry.options()...)
	if err != nil {
		if errors.Is(err, errNotVisible) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash.Short())
		}
		return nil, fmt.Errorf("getting %s: %w", hash.Short(), err)
	}
	return rec, nil
}

// GetLatest returns the most recent version of the chain rooted at original.
// With no updates the original itself is latest. Otherwise the update link
// with the greatest timestamp wins, ties going to the larger target hash.
// An update that is not yet visible is skipped in favor of the next newest.
func (c *ChainResolver) GetLatest(ctx context.Context, original entities.Hash) (*entities.Record, error) {
	links, err := c.store.GetLinks(ctx, original, entities.FilterTypes(entities.LinkUpdate))
	if err != nil {
		return nil, fmt.Errorf("getting update links of %s: %w", original.Short(), err)
	}

	orderLatestFirst(links)
	for _, l := range links {
		rec, err := c.Fetch(ctx, l.Target)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		c.logger.Warn("update not visible, falling back to older version",
			"original", original.Short(), "update", l.Target.Short())
	}

	return c.Fetch(ctx, original)
}

// LatestLink picks the winning update link.
func LatestLink(links []entities.Link) (entities.Link, bool) {
	if len(links) == 0 {
		return entities.Link{}, false
	}
	sorted := slices.Clone(links)
	orderLatestFirst(sorted)
	return sorted[0], true
}

func orderLatestFirst(links []entities.Link) {
	slices.SortStableFunc(links, func(a, b entities.Link) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(string(b.Target), string(a.Target))
	})
}

// AppendUpdate writes a new version and links it from the original.
// previous defaults to the original when empty. The action nonce comes from
// the idempotency key of ctx, or is fresh when there is none.
func (c *ChainResolver) AppendUpdate(ctx context.Context, author, original, previous entities.Hash, entry *entities.Entry) (entities.Hash, error) {
	root, err := c.Fetch(ctx, original)
	if err != nil {
		return "", fmt.Errorf("resolving original: %w", err)
	}
	if root.Action.Type != entities.ActionCreate {
		return "", fmt.Errorf("%w: %s is not an original action", ErrNotFound, original.Short())
	}
	if previous.IsZero() {
		previous = original
	}

	action := entities.NewAction(entities.ActionUpdate, author, entry.Hash(), original, previous, writeNonce(ctx), timeNow())
	hash, err := c.store.Put(ctx, &entities.Record{Action: action, Entry: entry})
	if err != nil {
		return "", fmt.Errorf("storing update: %w", err)
	}

	// A retried write keeps the timestamp of the stored action.
	ts := action.Timestamp
	if stored, err := c.store.Get(ctx, hash); err == nil && stored != nil {
		ts = stored.Action.Timestamp
	}
	link := entities.NewLink(original, hash, entities.LinkUpdate, "", author, ts)
	if _, err := c.store.CreateLink(ctx, link); err != nil {
		return "", fmt.Errorf("linking update: %w", err)
	}

	return hash, nil
}

// History returns the original and every visible update, oldest first.
func (c *ChainResolver) History(ctx context.Context, original entities.Hash) ([]*entities.Record, error) {
	root, err := c.Fetch(ctx, original)
	if err != nil {
		return nil, err
	}

	links, err := c.store.GetLinks(ctx, original, entities.FilterTypes(entities.LinkUpdate))
	if err != nil {
		return nil, fmt.Errorf("getting update links of %s: %w", original.Short(), err)
	}

	out := make([]*entities.Record, 0, len(links)+1)
	out = append(out, root)
	for _, l := range links {
		rec, err := c.Fetch(ctx, l.Target)
		if errors.Is(err, ErrNotFound) {
			c.logger.Warn("skipping invisible revision", "original", original.Short(), "update", l.Target.Short())
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	slices.SortStableFunc(out, func(a, b *entities.Record) int {
		if c := a.Action.Timestamp.Compare(b.Action.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(string(a.Action.Hash), string(b.Action.Hash))
	})
	return out, nil
}

// FindOriginal returns the root of the chain an action belongs to.
func (c *ChainResolver) FindOriginal(ctx context.Context, hash entities.Hash) (entities.Hash, error) {
	rec, err := c.Fetch(ctx, hash)
	if err != nil {
		return "", err
	}
	return rec.Action.Root(), nil
}

// Tombstoned reports whether the chain has been deleted.
func (c *ChainResolver) Tombstoned(ctx context.Context, original entities.Hash) (bool, error) {
	links, err := c.store.GetLinks(ctx, original, entities.FilterTypes(entities.LinkTombstone))
	if err != nil {
		return false, fmt.Errorf("getting tombstones of %s: %w", original.Short(), err)
	}
	return len(links) > 0, nil
}

// Tombstone marks the chain rooted at original as deleted, with latest as
// the version being deleted. A chain is tombstoned at most once.
func (c *ChainResolver) Tombstone(ctx context.Context, author, original, latest entities.Hash) error {
	deleted, err := c.Tombstoned(ctx, original)
	if err != nil || deleted {
		return err
	}
	action := entities.NewAction(entities.ActionDelete, author, "", original, latest, "", timeNow())
	hash, err := c.store.Put(ctx, &entities.Record{Action: action})
	if err != nil {
		return fmt.Errorf("storing tombstone: %w", err)
	}
	link := entities.NewLink(original, hash, entities.LinkTombstone, "", author, action.Timestamp)
	if _, err := c.store.CreateLink(ctx, link); err != nil {
		return fmt.Errorf("linking tombstone: %w", err)
	}
	return nil
}
