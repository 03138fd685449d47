package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/storage"
)

func TestNewAnalysisRunRepository(t *testing.T) {
	repo, err := NewAnalysisRunRepository("sqlite", filepath.Join(t.TempDir(), "runs.db"), storage.PoolConfig{})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = NewAnalysisRunRepository("oracle", "x", storage.PoolConfig{})
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestFromConfig(t *testing.T) {
	repo, err := FromConfig(config.DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, repo)

	cfg := config.DefaultConfig()
	cfg.DagSched.Storage.Database.Type = "sqlite"
	cfg.DagSched.Storage.Database.DSN = filepath.Join(t.TempDir(), "cfg.db")
	repo, err = FromConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.NoError(t, repo.Close())
}
