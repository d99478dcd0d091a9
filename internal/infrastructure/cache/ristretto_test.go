package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

func newLatest(t *testing.T, ttl time.Duration) *Latest {
	t.Helper()
	c, err := NewLatest(100, ttl)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func record(title string) *entities.Record {
	entry := &entities.Entry{Kind: entities.KindOffer, SchemaVersion: 1, Body: []byte(`{"title":"` + title + `"}`)}
	return &entities.Record{
		Action: entities.NewAction(entities.ActionCreate, entities.AgentHash("a"), entry.Hash(), "", "", "", time.Now()),
		Entry:  entry,
	}
}

func TestNewLatest_RejectsZeroSize(t *testing.T) {
	_, err := NewLatest(0, time.Minute)
	require.Error(t, err)
}

func TestLatest_SetGetInvalidate(t *testing.T) {
	c := newLatest(t, time.Minute)
	id := entities.AgentHash("root")
	rec := record("v1")

	_, ok := c.Get(id)
	assert.False(t, ok)

	assert.True(t, c.Set(id, rec, c.Generation(id)))
	c.Wait()

	got, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, rec.Action.Hash, got.Action.Hash)

	got.Entry.Body[0] = 'X'
	again, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, byte('{'), again.Entry.Body[0], "callers get copies")

	c.Invalidate(id)
	_, ok = c.Get(id)
	assert.False(t, ok)
}

func TestLatest_Expires(t *testing.T) {
	c := newLatest(t, 20*time.Millisecond)
	id := entities.AgentHash("root")

	c.Set(id, record("v1"), c.Generation(id))
	c.Wait()

	assert.Eventually(t, func() bool {
		_, ok := c.Get(id)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestLatest_SetAfterInvalidate(t *testing.T) {
	c := newLatest(t, time.Minute)
	id := entities.AgentHash("root")

	gen := c.Generation(id)
	c.Invalidate(id)

	assert.False(t, c.Set(id, record("stale"), gen))
	c.Wait()
	_, ok := c.Get(id)
	assert.False(t, ok, "a record read before the invalidation is dropped")

	assert.True(t, c.Set(id, record("fresh"), c.Generation(id)))
	c.Wait()
	got, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, record("fresh").Entry.Hash(), got.Entry.Hash())
}
