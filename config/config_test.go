package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Log.AppLogFile)
	assert.Equal(t, "data/ledger", cfg.LevelDB.Path)
	assert.Equal(t, 4, cfg.Ledger.Difficulty)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\nledger:\n  difficulty: 2\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Ledger.Difficulty)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  difficulty: 2\n"), 0o600))
	t.Setenv("LEDGER_LEDGER_DIFFICULTY", "3")
	t.Setenv("LEDGER_LEVELDB_PATH", "/tmp/ledger")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Ledger.Difficulty)
	assert.Equal(t, "/tmp/ledger", cfg.LevelDB.Path)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("LEDGER_LEDGER_DIFFICULTY", "-1")
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
