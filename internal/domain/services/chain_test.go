package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

func encode(t *testing.T, l *entities.Listing) *entities.Entry {
	t.Helper()
	l.Status = entities.StatusActive
	e, err := entities.EncodeListing(l)
	require.NoError(t, err)
	return e
}

func latestTitle(t *testing.T, h *harness, id entities.Hash) string {
	t.Helper()
	rec, err := h.chain.GetLatest(context.Background(), id)
	require.NoError(t, err)
	l, err := entities.DecodeListing(rec.Entry)
	require.NoError(t, err)
	return l.Title
}

func TestChainResolver_GetLatest_NoUpdates(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, alice, offer("v0"), nil)

	rec, err := h.chain.GetLatest(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.Action.Hash)
}

func TestChainResolver_GetLatest_LatestWins(t *testing.T) {
	for _, n := range []int{1, 2, 5, 12} {
		t.Run(fmt.Sprintf("%d updates", n), func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			id := h.create(t, alice, offer("v0"), nil)

			prev := id
			for i := 1; i <= n; i++ {
				next, err := h.chain.AppendUpdate(ctx, alice, id, prev, encode(t, offer(fmt.Sprintf("v%d", i))))
				require.NoError(t, err)
				prev = next
			}

			assert.Equal(t, fmt.Sprintf("v%d", n), latestTitle(t, h, id))
		})
	}
}

func TestChainResolver_GetLatest_TieBreakOnHashBytes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, alice, offer("v0"), nil)

	same := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	h.clock.Set(same)
	a, err := h.chain.AppendUpdate(ctx, alice, id, id, encode(t, offer("from alice")))
	require.NoError(t, err)
	h.clock.Set(same)
	b, err := h.chain.AppendUpdate(ctx, carol, id, id, encode(t, offer("from carol")))
	require.NoError(t, err)

	want := a
	if string(b) > string(a) {
		want = b
	}

	rec, err := h.chain.GetLatest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want, rec.Action.Hash)

	links, err := h.store.GetLinks(ctx, id, entities.FilterTypes(entities.LinkUpdate))
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.True(t, links[0].Timestamp.Equal(links[1].Timestamp))

	reversed := []entities.Link{links[1], links[0]}
	l1, _ := LatestLink(links)
	l2, _ := LatestLink(reversed)
	assert.Equal(t, l1.Target, l2.Target, "selection must not depend on input order")
}

func TestChainResolver_GetLatest_SkipsInvisibleUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, alice, offer("v0"), nil)

	v1, err := h.chain.AppendUpdate(ctx, alice, id, id, encode(t, offer("v1")))
	require.NoError(t, err)
	v2, err := h.chain.AppendUpdate(ctx, alice, id, v1, encode(t, offer("v2")))
	require.NoError(t, err)

	h.store.MissingGets[v2] = 100
	assert.Equal(t, "v1", latestTitle(t, h, id))
}

func TestChainResolver_Fetch(t *testing.T) {
	t.Run("retries transient miss", func(t *testing.T) {
		h := newHarness(t)
		id := h.create(t, alice, offer("v0"), nil)
		h.store.MissingGets[id] = 2

		rec, err := h.chain.Fetch(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.Action.Hash)
	})

	t.Run("not found after retries", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.chain.Fetch(context.Background(), entities.AgentHash("ghost"))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		h := newHarness(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := h.chain.Fetch(ctx, entities.AgentHash("ghost"))
		require.Error(t, err)
	})
}

func TestChainResolver_AppendUpdate(t *testing.T) {
	t.Run("unknown original", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.chain.AppendUpdate(context.Background(), alice, entities.AgentHash("ghost"), "", encode(t, offer("x")))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update is not an original", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		id := h.create(t, alice, offer("v0"), nil)
		v1, err := h.chain.AppendUpdate(ctx, alice, id, "", encode(t, offer("v1")))
		require.NoError(t, err)

		_, err = h.chain.AppendUpdate(ctx, alice, v1, "", encode(t, offer("v2")))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("keyed retry returns the same version", func(t *testing.T) {
		h := newHarness(t)
		ctx := WithIdempotencyKey(context.Background(), "upd-1")
		id := h.create(t, alice, offer("v0"), nil)

		v1, err := h.chain.AppendUpdate(ctx, alice, id, "", encode(t, offer("v1")))
		require.NoError(t, err)
		retry, err := h.chain.AppendUpdate(ctx, alice, id, v1, encode(t, offer("v1")))
		require.NoError(t, err)
		assert.Equal(t, v1, retry)

		links, err := h.store.GetLinks(ctx, id, entities.FilterTypes(entities.LinkUpdate))
		require.NoError(t, err)
		assert.Len(t, links, 1)
	})

	t.Run("unkeyed appends are distinct", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		id := h.create(t, alice, offer("v0"), nil)

		a, err := h.chain.AppendUpdate(ctx, alice, id, id, encode(t, offer("v1")))
		require.NoError(t, err)
		b, err := h.chain.AppendUpdate(ctx, alice, id, id, encode(t, offer("v1")))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("links from original", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		id := h.create(t, alice, offer("v0"), nil)
		v1, err := h.chain.AppendUpdate(ctx, alice, id, "", encode(t, offer("v1")))
		require.NoError(t, err)

		rec, err := h.chain.Fetch(ctx, v1)
		require.NoError(t, err)
		assert.Equal(t, id, rec.Action.Original)
		assert.Equal(t, id, rec.Action.Previous, "previous defaults to the original")
	})
}

func TestChainResolver_History(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, alice, offer("v0"), nil)
	v1, err := h.chain.AppendUpdate(ctx, alice, id, id, encode(t, offer("v1")))
	require.NoError(t, err)
	v2, err := h.chain.AppendUpdate(ctx, alice, id, v1, encode(t, offer("v2")))
	require.NoError(t, err)

	records, err := h.chain.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, id, records[0].Action.Hash)
	assert.Equal(t, v1, records[1].Action.Hash)
	assert.Equal(t, v2, records[2].Action.Hash)

	root, err := h.chain.FindOriginal(ctx, v2)
	require.NoError(t, err)
	assert.Equal(t, id, root)
}

func TestLatestLink_Empty(t *testing.T) {
	_, ok := LatestLink(nil)
	assert.False(t, ok)
}
