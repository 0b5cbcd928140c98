package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":8977", cfg.Listen)
	assert.Equal(t, "fukushu.db", cfg.DBPath)
	assert.Equal(t, 30, cfg.StagnationDays)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\nstagnation_days: 45\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 45, cfg.StagnationDays)
	assert.Equal(t, "fukushu.db", cfg.DBPath)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: from-file.db\n"), 0o644))
	t.Setenv("FUKUSHU_DB", "from-env.db")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DBPath)
}

func TestLoadFlagsWin(t *testing.T) {
	t.Setenv("FUKUSHU_DB", "from-env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db", "fukushu.db", "")
	require.NoError(t, flags.Parse([]string{"--db", "from-flag.db"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", cfg.DBPath)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stagnation_days: 0\n"), 0o644))

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, ":8977", cfg.Listen)
}
