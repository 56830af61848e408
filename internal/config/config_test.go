package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GEMINI_API_KEY", "")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Provider)
	assert.Equal(t, "gemini-2.5-flash", c.Model)
	assert.Equal(t, []int{1000, 2000, 4000, 8000, 16000}, c.RetryBackoffMs)
	assert.Equal(t, 2, c.QualityThreshold)
	assert.Equal(t, "mi-rai.co.jp", c.AllowedDomain)
	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, filepath.Join(home, ".adreport", "adreport.db"), c.StorePath)
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gemini-2.5-pro\nquality_threshold: 3\napi_key: from-file\n"), 0o600))

	t.Setenv("ADREPORT_MODEL", "gemini-2.0-flash")
	t.Setenv("GEMINI_API_KEY", "from-env")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", c.Model, "env beats file")
	assert.Equal(t, 3, c.QualityThreshold)
	assert.Equal(t, "from-file", c.ResolvedAPIKey(), "GEMINI_API_KEY only fills an empty key")
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "from-env")
	c, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, c.APIKey)
	assert.Equal(t, "from-env", c.ResolvedAPIKey())
}

func TestSaveKeepsEnvironmentOffDisk(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gemini-2.5-pro\n"), 0o600))
	t.Setenv("GEMINI_API_KEY", "env-only-secret")
	t.Setenv("ADREPORT_MODEL", "gemini-2.0-flash")
	t.Setenv("ADREPORT_API_KEY", "env-prefixed-secret")

	c, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("quality_threshold", "3"))
	require.NoError(t, Save(c, path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "env-only-secret")
	assert.NotContains(t, string(b), "env-prefixed-secret")
	assert.NotContains(t, string(b), "gemini-2.0-flash")
	assert.Contains(t, string(b), "gemini-2.5-pro")
	assert.Contains(t, string(b), "quality_threshold: 3")

	running, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", running.Model)
	assert.Equal(t, 3, running.QualityThreshold)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unterminated\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GEMINI_API_KEY", "")

	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Set("api_key", "k-1"))
	require.NoError(t, c.Set("retry_backoff_ms", "100, 200"))
	require.NoError(t, c.Set("provider", "SDK"))
	require.NoError(t, Save(c, ""))

	info, err := os.Stat(filepath.Join(home, ".adreport", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "k-1", again.APIKey)
	assert.Equal(t, []int{100, 200}, again.RetryBackoffMs)
	assert.Equal(t, "genai", again.Provider)
}

func TestSetValidates(t *testing.T) {
	var c Global
	assert.Error(t, c.Set("provider", "openai"))
	assert.Error(t, c.Set("quality_threshold", "0"))
	assert.Error(t, c.Set("max_tokens", "-1"))
	assert.Error(t, c.Set("temperature", "hot"))
	assert.Error(t, c.Set("retry_backoff_ms", "1,x"))
	assert.ErrorContains(t, c.Set("nope", "1"), "unknown key")
	require.NoError(t, c.Set("quality_threshold", "3"))
	assert.Equal(t, 3, c.QualityThreshold)
}
