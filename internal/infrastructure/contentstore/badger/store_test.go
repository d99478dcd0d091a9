package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/contentstore/storetest"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.ContentStore {
		return openInMemory(t)
	})
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	author := entities.AgentHash("alice")
	base := entities.Path("requests.archived").Hash()

	s, err := Open(Config{Path: dir})
	require.NoError(t, err)

	entry := &entities.Entry{Kind: entities.KindRequest, SchemaVersion: 1, Body: []byte(`{"title":"x"}`)}
	action := entities.NewAction(entities.ActionCreate, author, entry.Hash(), "", "", "", time.Now())
	id, err := s.Put(ctx, &entities.Record{Action: action, Entry: entry})
	require.NoError(t, err)
	linkID, err := s.CreateLink(ctx, entities.NewLink(base, id, entities.LinkPathMember, "", author, time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.DeleteLink(ctx, linkID))
	require.NoError(t, s.Close())

	reopened, err := Open(Config{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	rec, err := reopened.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, entities.KindRequest, rec.Entry.Kind)

	links, err := reopened.GetLinks(ctx, base, entities.LinkFilter{})
	require.NoError(t, err)
	assert.Empty(t, links, "deleted links stay deleted")
}

func TestStore_Closed(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "closing twice is a no-op")

	_, err = s.Get(context.Background(), entities.AgentHash("x"))
	require.ErrorIs(t, err, ports.ErrUnavailable)
}
