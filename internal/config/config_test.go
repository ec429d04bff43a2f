package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesSingleKey(t *testing.T) {
	path := writeConfigFile(t, `max_file_size_mb = 25`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MaxFileSizeMB)
	assert.Equal(t, Default().BatchSize, cfg.BatchSize)
}

func TestLoad_RejectsUnknownKey(t *testing.T) {
	path := writeConfigFile(t, `made_up_key = "x"`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidSearchMode(t *testing.T) {
	path := writeConfigFile(t, `default_search_mode = "telepathic"`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestExportImport_YAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portable.yaml")
	maxSize := 20
	p := NewPortable(
		[]PortableRepository{{Type: RepoLocal, Path: "/notes", Name: "notes"}},
		PortableSettings{MaxFileSizeMB: &maxSize},
	)

	require.NoError(t, Export(p, path))
	got, err := Import(path)
	require.NoError(t, err)

	assert.Equal(t, 1, got.Version)
	require.Len(t, got.Repositories, 1)
	assert.Equal(t, "/notes", got.Repositories[0].Path)
	require.NotNil(t, got.Settings.MaxFileSizeMB)
	assert.Equal(t, 20, *got.Settings.MaxFileSizeMB)
}

func TestExportImport_JSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portable.json")
	p := NewPortable(
		[]PortableRepository{{Type: RepoRemote, URL: "https://github.com/octocat/hello-world.git"}},
		PortableSettings{},
	)

	require.NoError(t, Export(p, path))
	got, err := Import(path)
	require.NoError(t, err)
	require.Len(t, got.Repositories, 1)
	assert.Equal(t, RepoRemote, got.Repositories[0].Type)
}

func TestImport_UnknownVersionIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portable.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 99\nrepositories: []\nsettings: {}\n"), 0o644))

	_, err := Import(path)
	assert.Error(t, err)
}

func TestImport_RemoteEntryMissingURLIsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portable.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nrepositories:\n  - type: remote\nsettings: {}\n"), 0o644))

	_, err := Import(path)
	assert.Error(t, err)
}
