package config

import (
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	require.Equal(t, "5000", cfg.Server.Port)
	require.Equal(t, "factory_cache.db", cfg.Cache.DBName)
	require.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	require.False(t, cfg.Tiles.Unsafe)
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("CTOD_PORT", "8080")
	t.Setenv("CTOD_UNSAFE", "true")

	cfg, err := Load(nil)
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Server.Port)
	require.True(t, cfg.Tiles.Unsafe)
}

func TestLoadFlagOverridesEnv(t *testing.T) {
	t.Setenv("CTOD_PORT", "8080")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("port", "5000", "")
	require.NoError(t, fs.Set("port", "9000"))

	cfg, err := Load(fs)
	require.NoError(t, err)

	require.Equal(t, "9000", cfg.Server.Port)
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	got := splitCSV(" https://a.test , https://b.test ,, ")
	require.Equal(t, []string{"https://a.test", "https://b.test"}, got)
}
