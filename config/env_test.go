package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFiles_Precedence(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	envPath := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"codec":"yaml","demo_param":"fromjson","metrics_enabled":false}`), 0o600))
	require.NoError(t, os.WriteFile(envPath, []byte("# comment\nDEMO_PARAM=\"fromenv\"\nAPP_ADDR=127.0.0.1:9100\n"), 0o600))
	t.Setenv("APP_ADDR", "127.0.0.1:9200")

	require.NoError(t, loadFromFiles(jsonPath, envPath))
	t.Cleanup(func() {
		mu.Lock()
		values = defaultValues()
		mu.Unlock()
	})

	assert.Equal(t, "yaml", get("CODEC", defaultCodec))
	assert.Equal(t, "fromenv", get("DEMO_PARAM", defaultDemoParam))
	assert.Equal(t, "127.0.0.1:9200", get("APP_ADDR", defaultAppAddr))
	assert.Equal(t, "false", get("METRICS_ENABLED", "true"))
}

func TestLoadFromFiles_MissingFilesKeepDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, loadFromFiles(filepath.Join(dir, "nope.json"), filepath.Join(dir, "nope.env")))
	t.Cleanup(func() {
		mu.Lock()
		values = defaultValues()
		mu.Unlock()
	})

	assert.Equal(t, defaultCodec, get("CODEC", ""))
	assert.Equal(t, defaultReportStream, get("REPORT_STREAM", ""))
}

func TestLoadFromFiles_BadJSON(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "app.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{not json`), 0o600))

	err := loadFromFiles(jsonPath, filepath.Join(dir, ".env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
