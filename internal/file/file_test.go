package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/.config/aichat/config.json")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config/aichat/config.json"), expanded)

	expanded, err = ExpandPath("/tmp/aichat.db")
	require.NoError(t, err)
	require.Equal(t, "/tmp/aichat.db", expanded)
}

func TestCreateParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "session.db")
	require.NoError(t, CreateParentDirectory(path))

	ok, err := DirectoryExists(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Exists(path)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	ok, err = Exists(path)
	require.NoError(t, err)
	require.True(t, ok)
}
