package bbconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProxySeedsDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy.toml")

	cfg, err := LoadProxy(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:25565", cfg.Address)
	assert.Equal(t, 256, cfg.CompressionThreshold)
	assert.True(t, cfg.OnlineMode)

	assert.FileExists(t, path)

	// Second load reads the now-existing file back without erroring.
	cfg2, err := LoadProxy(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, cfg2)
}

func TestLoadServerSeedsDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")

	cfg, err := LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8483", cfg.ListenAddress)
	assert.Equal(t, 30, cfg.KeepAliveTimeoutSecs)
	assert.FileExists(t, path)
}
