package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/household-ledger/config"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "STORE", "DB_PATH", "LOG_LEVEL", "CORS_ORIGINS", "SEED_SCENARIO"} {
		t.Setenv(k, "") // restores the original value after the test
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.StoreMemory, cfg.Store)
	assert.Empty(t, cfg.DBPath)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_DotEnvFile_EnvironmentWins(t *testing.T) {
	// GIVEN: A .env file setting PORT and STORE, and PORT also in the env
	// WHEN: Loading
	// THEN: STORE comes from the file, PORT from the environment

	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=9000\nSTORE=sqlite\nDB_PATH="+filepath.Join(dir, "db", "l.db")+"\n"), 0o600))
	t.Setenv("PORT", "9100")

	cfg, err := config.Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, config.StoreSQLite, cfg.Store)
	require.NoError(t, cfg.Validate())
	assert.DirExists(t, filepath.Join(dir, "db"))
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &config.Config{Port: "70000", Store: "postgres", LogLevel: "loud"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port 70000")
	assert.Contains(t, err.Error(), "invalid store 'postgres'")
	assert.Contains(t, err.Error(), "invalid log level 'loud'")
}

func TestValidate_BoltNeedsFile(t *testing.T) {
	cfg := &config.Config{Port: "8080", Store: config.StoreBolt, DBPath: ":memory:", LogLevel: "info"}
	assert.ErrorContains(t, cfg.Validate(), "bolt store needs a file path")
}
