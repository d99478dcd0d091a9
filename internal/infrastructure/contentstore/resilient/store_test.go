package resilient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/mocks"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/contentstore/memory"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/contentstore/storetest"
)

func fastOptions(tries uint) Options {
	return Options{
		Timeout:         time.Second,
		MaxTries:        tries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

// stallingStore blocks GetLinks until the context is done.
type stallingStore struct {
	ports.ContentStore
	calls int
}

func (s *stallingStore) GetLinks(ctx context.Context, _ entities.Hash, _ entities.LinkFilter) ([]entities.Link, error) {
	s.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

// transientStore fails the first n Puts with ports.ErrUnavailable.
type transientStore struct {
	ports.ContentStore
	failures int
	calls    int
	err      error
}

func (s *transientStore) Put(ctx context.Context, rec *entities.Record) (entities.Hash, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", s.err
	}
	return s.ContentStore.Put(ctx, rec)
}

func record() *entities.Record {
	entry := &entities.Entry{Kind: entities.KindOffer, SchemaVersion: 1, Body: []byte(`{}`)}
	return &entities.Record{Action: entities.NewAction(entities.ActionCreate, entities.AgentHash("a"), entry.Hash(), "", "", "", time.Now())}
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.ContentStore {
		s := New(memory.New(), fastOptions(3))
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestStore_RetriesTransientFailures(t *testing.T) {
	inner := &transientStore{ContentStore: memory.New(), failures: 2, err: ports.ErrUnavailable}
	s := New(inner, fastOptions(3))

	rec := record()
	h, err := s.Put(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, rec.Action.Hash, h)
	assert.Equal(t, 3, inner.calls)
}

func TestStore_GivesUpAfterMaxTries(t *testing.T) {
	inner := &transientStore{ContentStore: memory.New(), failures: 10, err: ports.ErrUnavailable}
	s := New(inner, fastOptions(3))

	_, err := s.Put(context.Background(), record())
	require.ErrorIs(t, err, ports.ErrUnavailable)
	assert.Equal(t, 3, inner.calls)
}

func TestStore_PermanentErrorsAreNotRetried(t *testing.T) {
	boom := errors.New("constraint violated")
	inner := &transientStore{ContentStore: memory.New(), failures: 10, err: boom}
	s := New(inner, fastOptions(5))

	_, err := s.Put(context.Background(), record())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, inner.calls)
}

func TestStore_TimeoutIsTransient(t *testing.T) {
	inner := &stallingStore{ContentStore: memory.New()}
	opts := fastOptions(2)
	opts.Timeout = 5 * time.Millisecond
	s := New(inner, opts)

	_, err := s.GetLinks(context.Background(), entities.AgentHash("base"), entities.LinkFilter{})
	require.ErrorIs(t, err, ports.ErrUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestStore_CancelledContextStops(t *testing.T) {
	inner := &stallingStore{ContentStore: memory.New()}
	s := New(inner, fastOptions(5))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.GetLinks(ctx, entities.AgentHash("base"), entities.LinkFilter{})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestStore_WithFlakyStore(t *testing.T) {
	flaky := mocks.NewFlakyStore(memory.New())
	flaky.FailAfter[mocks.OpDeleteLink] = 0
	s := New(flaky, fastOptions(2))

	err := s.DeleteLink(context.Background(), entities.AgentHash("x"))
	require.ErrorIs(t, err, ports.ErrUnavailable)
	assert.Zero(t, flaky.Calls[mocks.OpDeleteLink])
}
