package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

type mapCache struct {
	mu      sync.Mutex
	records map[entities.Hash]*entities.Record
	gens    map[entities.Hash]uint64
	hits    int
	// beforeSet runs at the start of every Set, outside the lock.
	beforeSet func()
}

func newMapCache() *mapCache {
	return &mapCache{
		records: make(map[entities.Hash]*entities.Record),
		gens:    make(map[entities.Hash]uint64),
	}
}

func (c *mapCache) Get(id entities.Hash) (*entities.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if ok {
		c.hits++
	}
	return rec, ok
}

func (c *mapCache) Generation(id entities.Hash) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[id]
}

func (c *mapCache) Set(id entities.Hash, rec *entities.Record, gen uint64) bool {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[id] != gen {
		return false
	}
	c.records[id] = rec
	return true
}

func (c *mapCache) Invalidate(id entities.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[id]++
	delete(c.records, id)
}

func TestQuery_GetActive_SkipsUnresolvable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.create(t, alice, offer("a"), nil)
	b := h.create(t, alice, offer("b"), nil)

	ghost := entities.AgentHash("ghost")
	require.NoError(t, h.paths.AddToBucket(ctx, alice, entities.Bucket(entities.KindOffer, entities.StatusActive), ghost))

	active, err := h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	assert.Equal(t, []entities.Hash{a, b}, ids(active))
}

func TestQuery_GetActive_ResolvesLatest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, alice, offer("a"), nil)
	_, err := h.lifecycle.Update(ctx, alice, id, "", offer("a2"), nil)
	require.NoError(t, err)

	active, err := h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, titles(active))
	assert.Equal(t, alice, active[0].Author)
}

func TestQuery_KindsAreSeparate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.create(t, alice, offer("o"), tags("shared"))
	h.create(t, alice, request("r"), tags("shared"))

	offers, err := h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	assert.Equal(t, []string{"o"}, titles(offers))

	requests, err := h.query.GetActive(ctx, entities.KindRequest)
	require.NoError(t, err)
	assert.Equal(t, []string{"r"}, titles(requests))

	shared, err := h.query.GetByTag(ctx, "Shared")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"o", "r"}, titles(shared))
}

func TestQuery_GetByOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.create(t, alice, offer("a"), nil)
	b := h.create(t, alice, offer("b"), nil)
	h.create(t, alice, request("r"), nil)
	h.create(t, bob, offer("bob's"), nil)
	require.NoError(t, h.lifecycle.Archive(ctx, alice, b))

	all, err := h.query.GetByOwner(ctx, alice, entities.KindOffer, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []entities.Hash{a, b}, ids(all))

	active, err := h.query.GetByOwner(ctx, alice, entities.KindOffer, entities.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, []entities.Hash{a}, ids(active))

	anyKind, err := h.query.GetByOwner(ctx, alice, "", "")
	require.NoError(t, err)
	assert.Len(t, anyKind, 3)
}

func TestQuery_GetByRelationship(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	org := entities.AgentHash("org")
	id := h.create(t, alice, offer("a"), entities.Relationships{
		entities.RelationOrganization: entities.HashTargets(org),
	})
	h.create(t, alice, offer("b"), nil)

	got, err := h.query.GetByRelationship(ctx, entities.KindOffer, entities.RelationOrganization, org)
	require.NoError(t, err)
	assert.Equal(t, []entities.Hash{id}, ids(got))

	_, err = h.query.GetByRelationship(ctx, entities.KindOffer, "friends", org)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestQuery_GetByTag_Empty(t *testing.T) {
	h := newHarness(t)

	got, err := h.query.GetByTag(context.Background(), "  ")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestQuery_NeverWrites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, alice, offer("a"), tags("x"))
	require.NoError(t, h.paths.AddToBucket(ctx, alice, entities.Bucket(entities.KindOffer, entities.StatusArchived), id))
	h.store.Reset()

	_, err := h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	_, err = h.query.GetArchived(ctx, entities.KindOffer)
	require.NoError(t, err)
	_, err = h.query.GetByTag(ctx, "x")
	require.NoError(t, err)
	_, err = h.query.Get(ctx, id)
	require.NoError(t, err)

	assert.Zero(t, h.store.WriteCount(), "inconsistent state is reported, not repaired")
}

func TestQuery_Get(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, alice, offer("a"), tags("design"))
	v1, err := h.lifecycle.Update(ctx, alice, id, "", offer("a2"), nil)
	require.NoError(t, err)

	e, err := h.query.Get(ctx, v1)
	require.NoError(t, err)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, v1, e.Latest)
	assert.Equal(t, "a2", e.Listing.Title)
	assert.Equal(t, []string{"design"}, e.Tags())
	assert.Equal(t, entities.HashTargets(alice), e.Relationships[entities.RelationCreator])

	_, err = h.query.Get(ctx, entities.AgentHash("ghost"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestQuery_History(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, alice, offer("a"), nil)
	require.NoError(t, h.lifecycle.Archive(ctx, alice, id))
	require.NoError(t, h.lifecycle.Unarchive(ctx, alice, id))

	history, err := h.query.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 3)

	var statuses []entities.ListingStatus
	for _, rec := range history {
		l, err := entities.DecodeListing(rec.Entry)
		require.NoError(t, err)
		statuses = append(statuses, l.Status)
	}
	assert.Equal(t, []entities.ListingStatus{entities.StatusActive, entities.StatusArchived, entities.StatusActive}, statuses)
}

func TestQuery_Cache(t *testing.T) {
	useClock(t)
	h := buildHarness(nil)
	cache := newMapCache()
	logger := h.lifecycle.logger
	h.lifecycle = NewLifecycleService(h.store, h.chain, h.paths, h.rels, AuthorOrAdmin(h.roles), cache, logger)
	h.query = NewQueryService(h.chain, h.paths, h.rels, cache, logger, 2)
	ctx := context.Background()

	id := h.create(t, alice, offer("a"), nil)

	_, err := h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	_, err = h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	_, err = h.lifecycle.Update(ctx, alice, id, "", offer("a2"), nil)
	require.NoError(t, err)

	active, err := h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, titles(active), "updates invalidate the cached version")
}

func TestQuery_CancelledContext(t *testing.T) {
	h := newHarness(t)
	h.create(t, alice, offer("a"), nil)
	h.store.MissingGets[h.create(t, alice, offer("b"), nil)] = 100

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.query.GetActive(ctx, entities.KindOffer)
	require.Error(t, err)
}

func TestQuery_Cache_WriteDuringResolve(t *testing.T) {
	useClock(t)
	h := buildHarness(nil)
	cache := newMapCache()
	logger := h.lifecycle.logger
	h.lifecycle = NewLifecycleService(h.store, h.chain, h.paths, h.rels, AuthorOrAdmin(h.roles), cache, logger)
	h.query = NewQueryService(h.chain, h.paths, h.rels, cache, logger, 1)
	ctx := context.Background()

	id := h.create(t, alice, offer("v1"), nil)

	// The update lands after the query resolved v1 but before it caches it.
	cache.beforeSet = func() {
		cache.beforeSet = nil
		_, err := h.lifecycle.Update(ctx, alice, id, "", offer("v2"), nil)
		require.NoError(t, err)
	}
	stale, err := h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, titles(stale))

	_, cached := cache.Get(id)
	assert.False(t, cached, "a version resolved before the write is not cached")

	fresh, err := h.query.GetActive(ctx, entities.KindOffer)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, titles(fresh))
}
