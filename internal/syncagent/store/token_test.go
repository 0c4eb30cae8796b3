package store

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	s, err := NewFileTokenStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	token, ok, err := s.Get()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)

	require.NoError(t, s.Set("  abc123\n"))

	token, ok, err = s.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	require.NoError(t, s.Set("def456"))
	token, _, _ = s.Get()
	assert.Equal(t, "def456", token)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	require.NoError(t, s.Set(""))
	_, ok, err = s.Get()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(""))
}

func TestFileTokenStoreBlankFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("\n  \n"), 0o600))

	s, err := NewFileTokenStore(path)
	require.NoError(t, err)

	_, ok, err := s.Get()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefaultTokenPath(t *testing.T) {
	home := t.TempDir()
	t.Cleanup(xdg.Reload) // runs after the environment is restored
	t.Setenv("XDG_CONFIG_HOME", home)
	xdg.Reload()

	s, err := NewFileTokenStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "ss-sync", "token"), s.Path())
}
