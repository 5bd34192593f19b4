package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mcpgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesFields(t *testing.T) {
	path := writeConfig(t, `
server:
  name: demo-server
  version: "1.2.3"
defaultLogLevel: warning
dispatcher:
  poolSize: 4
  timeout: 10s
http:
  addr: ":9090"
  originAllowlist:
    - https://example.com
enableLogging: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo-server", cfg.Server.Name)
	assert.Equal(t, "warning", cfg.DefaultLogLevel)
	assert.Equal(t, 4, cfg.Dispatcher.PoolSize)
	assert.Equal(t, Duration(10*time.Second), cfg.Dispatcher.Timeout)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.True(t, cfg.EnableLogging)
}

func TestOriginAllowedEmptyListAllowsAny(t *testing.T) {
	cfg := Default()
	allowed := cfg.OriginAllowed()
	assert.True(t, allowed("https://anything.example"))
}

func TestOriginAllowedRestrictsToList(t *testing.T) {
	cfg := Default()
	cfg.HTTP.OriginAllowlist = []string{"https://good.example"}
	allowed := cfg.OriginAllowed()
	assert.True(t, allowed("https://good.example"))
	assert.False(t, allowed("https://bad.example"))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "server:\n  name: original\n")
	w, err := NewWatcher(path)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	assert.Equal(t, "original", w.Current().Server.Name)

	reloaded := make(chan *Config, 1)
	w.OnChange(func(c *Config) { reloaded <- c })
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte("server:\n  name: updated\n"), 0o644))

	select {
	case c := <-reloaded:
		assert.Equal(t, "updated", c.Server.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
	assert.Equal(t, "updated", w.Current().Server.Name)
}
