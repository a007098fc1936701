package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir 切换工作目录并在测试结束时恢复（等价于 Go 1.24 的 t.Chdir）
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvGoogleAPIKey, "")
	t.Setenv(EnvSearchEngineID, "")
	chdir(t, t.TempDir())

	cfg, _, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderBing, cfg.Search.Provider)
	assert.Equal(t, 6*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "ja-JP", cfg.Search.Market)
	assert.Equal(t, "gallery", cfg.Fragment.Template)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv(EnvGoogleAPIKey, "")
	t.Setenv(EnvSearchEngineID, "")

	path := writeConfig(t, `
search:
  provider: google
  timeout: 3s
  max_items: 7
google:
  api_key: file-key
  engine_id: file-cx
fragment:
  template: grid
  lang: ""
  section_id: gd-section
  links: true
log:
  level: debug
`)

	cfg, notes, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderGoogle, cfg.Search.Provider)
	assert.Equal(t, 3*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 7, cfg.Search.MaxItems)
	assert.Equal(t, "file-key", cfg.Google.APIKey)
	assert.Equal(t, "grid", cfg.Fragment.Template)
	require.NotNil(t, cfg.Fragment.Lang)
	assert.Equal(t, "", *cfg.Fragment.Lang)
	require.NotNil(t, cfg.Fragment.SectionID)
	assert.Equal(t, "gd-section", *cfg.Fragment.SectionID)
	require.NotNil(t, cfg.Fragment.Links)
	assert.True(t, *cfg.Fragment.Links)
	assert.Nil(t, cfg.Fragment.Captions)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Contains(t, notes[len(notes)-1], path)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvGoogleAPIKey, "env-key")
	t.Setenv(EnvSearchEngineID, "env-cx")

	path := writeConfig(t, "google:\n  api_key: file-key\n")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Google.APIKey)
	assert.Equal(t, "env-cx", cfg.Google.EngineID)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	path := writeConfig(t, `
search:
  provider: altavista
  timeout: -1s
fragment:
  template: carousel
server:
  port: 70000
log:
  level: loud
`)

	cfg, notes, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderBing, cfg.Search.Provider)
	assert.Equal(t, 6*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "gallery", cfg.Fragment.Template)
	assert.Equal(t, 3457, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.GreaterOrEqual(t, len(notes), 5)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "search: [unterminated")

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRequireCredentials(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.RequireCredentials(), "bing needs no credentials")

	cfg.Search.Provider = ProviderGoogle
	err := cfg.RequireCredentials()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Contains(t, err.Error(), EnvGoogleAPIKey)
	assert.Contains(t, err.Error(), EnvSearchEngineID)

	cfg.Google.APIKey = "k"
	err = cfg.RequireCredentials()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), EnvGoogleAPIKey)

	cfg.Google.EngineID = "cx"
	assert.NoError(t, cfg.RequireCredentials())
}

func TestProxyURL(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.ProxyURL())

	cfg.Proxy.Enabled = true
	assert.Equal(t, "http://127.0.0.1:7890", cfg.ProxyURL())
}
