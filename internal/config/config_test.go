package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	f := Flags("memoria-test")
	require.NoError(t, f.Parse(nil))

	cfg, err := Load(f)
	require.NoError(t, err)
	assert.Equal(t, "memoria.db", cfg.DB)
	assert.Equal(t, "127.0.0.1:8484", cfg.Listen)
	assert.Equal(t, "repos", cfg.Repos)
	assert.Equal(t, 1200*time.Millisecond, cfg.Debounce)
}

func TestLoadFlagsOverride(t *testing.T) {
	f := Flags("memoria-test")
	require.NoError(t, f.Parse([]string{"--db", "/tmp/x.db", "--debounce", "2s"}))

	cfg, err := Load(f)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DB)
	assert.Equal(t, 2*time.Second, cfg.Debounce)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memoria.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: 0.0.0.0:9000\nrepos: /data/repos\n"), 0o644))

	t.Setenv("MEMORIA_LISTEN", "0.0.0.0:9001")

	f := Flags("memoria-test")
	require.NoError(t, f.Parse([]string{"--config", path}))

	cfg, err := Load(f)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9001", cfg.Listen, "env beats file")
	assert.Equal(t, "/data/repos", cfg.Repos, "file beats flag defaults")
}

func TestLoadRejectsInvalidListen(t *testing.T) {
	f := Flags("memoria-test")
	require.NoError(t, f.Parse([]string{"--listen", "not-an-address"}))

	_, err := Load(f)
	assert.Error(t, err)
}

func TestLoadMissingConfigFile(t *testing.T) {
	f := Flags("memoria-test")
	require.NoError(t, f.Parse([]string{"--config", "/does/not/exist.yaml"}))

	_, err := Load(f)
	assert.Error(t, err)
}
