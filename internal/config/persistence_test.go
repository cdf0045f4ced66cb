// file: internal/config/persistence_test.go
// version: 2.0.0
// guid: 3f0e8a57-2c4d-4d1b-9a6e-5b7c8d9e0f12

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFilePath(t *testing.T) {
	AppConfig = Config{}
	assert.Empty(t, ConfigFilePath())

	AppConfig.DatabasePath = filepath.Join("data", "manga.db")
	assert.Equal(t, filepath.Join("data", "config.yaml"), ConfigFilePath())
}

func TestSaveAndLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	AppConfig = Config{
		DatabasePath:  filepath.Join(dir, "manga.db"),
		LibraryDir:    "/srv/manga",
		OracleEnabled: true,
		OracleAPIKeys: []string{"k1", "k2"},
		OracleModel:   "test-model",
	}

	path, err := SaveConfigToFile()
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Values already set are kept; empty ones are filled.
	AppConfig = Config{
		DatabasePath: filepath.Join(dir, "manga.db"),
		LibraryDir:   "/override",
	}
	require.NoError(t, LoadConfigFromFile())
	assert.Equal(t, "/override", AppConfig.LibraryDir)
	assert.Equal(t, []string{"k1", "k2"}, AppConfig.OracleAPIKeys)
	assert.True(t, AppConfig.OracleEnabled)
	assert.Equal(t, "test-model", AppConfig.OracleModel)
}

func TestLoadConfigFromFile_MissingOrBroken(t *testing.T) {
	dir := t.TempDir()
	AppConfig = Config{DatabasePath: filepath.Join(dir, "manga.db")}
	assert.NoError(t, LoadConfigFromFile())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(":\t- not yaml ["), 0o600))
	assert.NoError(t, LoadConfigFromFile())
	assert.Empty(t, AppConfig.LibraryDir)
}
