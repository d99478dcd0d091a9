// Package storetest holds the behavioral contract every ports.ContentStore
// adapter must satisfy. Adapter tests call Run with a constructor.
package storetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// Factory creates a fresh, empty store. It should register cleanup with t.
type Factory func(t *testing.T) ports.ContentStore

var (
	alice = entities.AgentHash("alice")
	bob   = entities.AgentHash("bob")
	t0    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func record(title string, ts time.Time) *entities.Record {
	entry := &entities.Entry{
		Kind:          entities.KindOffer,
		SchemaVersion: entities.CurrentSchemaVersion,
		Body:          json.RawMessage(`{"title":"` + title + `"}`),
	}
	action := entities.NewAction(entities.ActionCreate, alice, entry.Hash(), "", "", "nonce-"+title, ts)
	return &entities.Record{Action: action, Entry: entry}
}

// Run executes the contract suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("put and get", func(t *testing.T) {
		testPutGet(t, newStore(t))
	})
	t.Run("put is idempotent", func(t *testing.T) {
		testPutIdempotent(t, newStore(t))
	})
	t.Run("get unknown returns nil", func(t *testing.T) {
		s := newStore(t)
		rec, err := s.Get(context.Background(), entities.AgentHash("nobody"))
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
	t.Run("delete record has no entry", func(t *testing.T) {
		testPutDeleteAction(t, newStore(t))
	})
	t.Run("create link is idempotent", func(t *testing.T) {
		testCreateLinkIdempotent(t, newStore(t))
	})
	t.Run("get links filters and orders", func(t *testing.T) {
		testGetLinksFilter(t, newStore(t))
	})
	t.Run("delete and revive link", func(t *testing.T) {
		testDeleteRevive(t, newStore(t))
	})
	t.Run("zero timestamp is stamped", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := entities.Path("offers.active").Hash()
		_, err := s.CreateLink(ctx, entities.Link{Base: base, Target: alice, Type: entities.LinkPathMember, Author: alice})
		require.NoError(t, err)

		links, err := s.GetLinks(ctx, base, entities.LinkFilter{})
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.False(t, links[0].Timestamp.IsZero())
	})
}

func testPutGet(t *testing.T, s ports.ContentStore) {
	ctx := context.Background()
	rec := record("a", t0)

	h, err := s.Put(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, rec.Action.Hash, h)

	got, err := s.Get(ctx, h)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Action.Hash, got.Action.Hash)
	assert.Equal(t, rec.Action.Author, got.Action.Author)
	assert.Equal(t, rec.Action.Nonce, got.Action.Nonce)
	assert.True(t, rec.Action.Timestamp.Equal(got.Action.Timestamp))
	require.NotNil(t, got.Entry)
	assert.Equal(t, rec.Entry.Kind, got.Entry.Kind)
	assert.JSONEq(t, string(rec.Entry.Body), string(got.Entry.Body))
}

func testPutIdempotent(t *testing.T, s ports.ContentStore) {
	ctx := context.Background()
	first := record("a", t0)
	retry := record("a", t0.Add(time.Minute))
	require.Equal(t, first.Action.Hash, retry.Action.Hash)

	_, err := s.Put(ctx, first)
	require.NoError(t, err)
	h, err := s.Put(ctx, retry)
	require.NoError(t, err)
	assert.Equal(t, first.Action.Hash, h)

	got, err := s.Get(ctx, h)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, t0.Equal(got.Action.Timestamp), "first stored copy must win")
}

func testPutDeleteAction(t *testing.T, s ports.ContentStore) {
	ctx := context.Background()
	root := record("a", t0)
	del := &entities.Record{
		Action: entities.NewAction(entities.ActionDelete, bob, "", root.Action.Hash, root.Action.Hash, "", t0),
	}

	h, err := s.Put(ctx, del)
	require.NoError(t, err)

	got, err := s.Get(ctx, h)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entities.ActionDelete, got.Action.Type)
	assert.Equal(t, root.Action.Hash, got.Action.Original)
	assert.Nil(t, got.Entry)
}

func testCreateLinkIdempotent(t *testing.T, s ports.ContentStore) {
	ctx := context.Background()
	base := entities.Path("offers.active").Hash()
	target := record("a", t0).Action.Hash

	id1, err := s.CreateLink(ctx, entities.NewLink(base, target, entities.LinkPathMember, "", alice, t0))
	require.NoError(t, err)
	id2, err := s.CreateLink(ctx, entities.NewLink(base, target, entities.LinkPathMember, "", bob, t0.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	links, err := s.GetLinks(ctx, base, entities.FilterTypes(entities.LinkPathMember))
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, t0.Equal(links[0].Timestamp))
	assert.Equal(t, alice, links[0].Author)
}

func testGetLinksFilter(t *testing.T, s ports.ContentStore) {
	ctx := context.Background()
	base := record("base", t0).Action.Hash
	other := record("other", t0).Action.Hash
	a, b, c := record("a", t0).Action.Hash, record("b", t0).Action.Hash, record("c", t0).Action.Hash

	mustLink := func(l entities.Link) {
		_, err := s.CreateLink(ctx, l)
		require.NoError(t, err)
	}
	mustLink(entities.NewLink(base, c, entities.LinkUpdate, "", alice, t0.Add(3*time.Second)))
	mustLink(entities.NewLink(base, a, entities.LinkUpdate, "", alice, t0.Add(1*time.Second)))
	mustLink(entities.NewLink(base, b, entities.RelationTags.ForwardLink(), "design", alice, t0.Add(2*time.Second)))
	mustLink(entities.NewLink(base, c, entities.RelationTags.ForwardLink(), "dev", alice, t0.Add(2*time.Second)))
	mustLink(entities.NewLink(other, a, entities.LinkUpdate, "", alice, t0))

	updates, err := s.GetLinks(ctx, base, entities.FilterTypes(entities.LinkUpdate))
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, a, updates[0].Target, "links are ordered by timestamp")
	assert.Equal(t, c, updates[1].Target)

	tagged, err := s.GetLinks(ctx, base, entities.LinkFilter{
		Types:     []entities.LinkType{entities.RelationTags.ForwardLink()},
		TagPrefix: "de",
	})
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	design, err := s.GetLinks(ctx, base, entities.LinkFilter{TagPrefix: "des"})
	require.NoError(t, err)
	require.Len(t, design, 1)
	assert.Equal(t, b, design[0].Target)

	all, err := s.GetLinks(ctx, base, entities.LinkFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := s.GetLinks(ctx, entities.Path("empty").Hash(), entities.LinkFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDeleteRevive(t *testing.T, s ports.ContentStore) {
	ctx := context.Background()
	base := entities.Path("offers.active").Hash()
	target := record("a", t0).Action.Hash

	id, err := s.CreateLink(ctx, entities.NewLink(base, target, entities.LinkPathMember, "", alice, t0))
	require.NoError(t, err)

	require.NoError(t, s.DeleteLink(ctx, id))
	require.NoError(t, s.DeleteLink(ctx, id), "deleting twice is a no-op")
	require.NoError(t, s.DeleteLink(ctx, entities.AgentHash("unknown")), "deleting unknown is a no-op")

	links, err := s.GetLinks(ctx, base, entities.LinkFilter{})
	require.NoError(t, err)
	assert.Empty(t, links)

	later := t0.Add(time.Hour)
	revived, err := s.CreateLink(ctx, entities.NewLink(base, target, entities.LinkPathMember, "", alice, later))
	require.NoError(t, err)
	assert.Equal(t, id, revived)

	links, err = s.GetLinks(ctx, base, entities.LinkFilter{})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, later.Equal(links[0].Timestamp), "revived link takes the new timestamp")
}
