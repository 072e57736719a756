package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-drafts/internal/config"
	"survey-drafts/internal/logger"
)

func roundTrip(t *testing.T, cfg *config.Config) {
	t.Helper()
	ctx := context.Background()

	kv, closer, err := OpenStore(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer func() { require.NoError(t, closer()) }()

	got, err := kv.Get(ctx, "avaliacoes_rascunhos")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, kv.Set(ctx, "avaliacoes_rascunhos", []byte(`[]`)))
	got, err = kv.Get(ctx, "avaliacoes_rascunhos")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestOpenStoreMemory(t *testing.T) {
	roundTrip(t, &config.Config{StoreBackend: config.BackendMemory})
}

func TestOpenStoreFile(t *testing.T) {
	roundTrip(t, &config.Config{StoreBackend: config.BackendFile, DraftDataDir: t.TempDir()})
}

func TestOpenStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drafts.db")
	roundTrip(t, &config.Config{StoreBackend: config.BackendSQLite, SQLitePath: path})
	assert.FileExists(t, path)
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	_, _, err := OpenStore(context.Background(), &config.Config{StoreBackend: "etcd"}, logger.Nop())
	assert.ErrorContains(t, err, `unknown store backend "etcd"`)
}

func TestOpenStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := OpenStore(ctx, &config.Config{StoreBackend: config.BackendMemory}, logger.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}
