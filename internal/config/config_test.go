package config_test

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/mesh/internal/config"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	return fs
}

func TestLoadDefaultsWhenNothingSet(t *testing.T) {
	os.Unsetenv("MESH_DSN")
	os.Unsetenv("MESH_DEBUG")

	cfg, err := config.Load(newFlagSet())
	require.NoError(t, err)
	assert.Equal(t, "mesh.db", cfg.DSN)
	assert.False(t, cfg.Debug)
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("MESH_DSN", "env.db")
	t.Setenv("MESH_DEBUG", "1")

	cfg, err := config.Load(newFlagSet())
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DSN)
	assert.True(t, cfg.Debug)
}

func TestLoadFlagOverridesEnv(t *testing.T) {
	t.Setenv("MESH_DSN", "env.db")

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--dsn=flag.db"}))

	cfg, err := config.Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "flag.db", cfg.DSN)
}

func TestLoadFlagDebugOverridesEnv(t *testing.T) {
	t.Setenv("MESH_DEBUG", "1")

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--debug=false"}))

	cfg, err := config.Load(fs)
	require.NoError(t, err)
	assert.False(t, cfg.Debug)
}
