package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/config"
)

type schemaStub struct {
	calls int
	err   error
}

func (s *schemaStub) EnsureSchema(context.Context) error {
	s.calls++
	return s.err
}

func TestInitHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh directory", func(t *testing.T) {
		dir := t.TempDir()
		stub := &schemaStub{}

		result, err := NewInitHandler(stub).Handle(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, config.ConfigFilePath(dir), result.ConfigPath)
		assert.Equal(t, config.NetworksFilePath(dir), result.NetworksPath)
		assert.Equal(t, config.DefaultNetwork, result.Network)
		assert.Equal(t, config.BackendSQLite, result.Backend)
		assert.Equal(t, config.StorePathForNetwork(dir, config.DefaultNetwork, config.BackendSQLite), result.StorePath)
		assert.Equal(t, 1, stub.calls)

		nets, err := config.LoadNetworks(dir)
		require.NoError(t, err)
		assert.Equal(t, config.DefaultNetwork, nets.Current)
		assert.True(t, nets.Exists(config.DefaultNetwork))
	})

	t.Run("already initialized", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, config.WriteDefault(dir))

		_, err := NewInitHandler(nil).Handle(ctx, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already initialized")
	})

	t.Run("schema failure", func(t *testing.T) {
		stub := &schemaStub{err: errors.New("disk full")}

		_, err := NewInitHandler(stub).Handle(ctx, t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}
