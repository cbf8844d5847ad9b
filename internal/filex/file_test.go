package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDataPath_CreatesParent(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "state", "gamevault.db")

	got, err := ResolveDataPath(path)
	require.NoError(t, err)
	require.Equal(t, path, got)

	fi, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm())
	}

	again, err := ResolveDataPath(path)
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestResolveDataPath_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	got, err := ResolveDataPath("~/.gamevault/session.db")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".gamevault", "session.db"), got)
	require.DirExists(t, filepath.Join(home, ".gamevault"))
}

func TestResolveDataPath_BareNameAndMemory(t *testing.T) {
	got, err := ResolveDataPath("gamevault.db")
	require.NoError(t, err)
	require.Equal(t, "gamevault.db", got)

	got, err = ResolveDataPath(":memory:")
	require.NoError(t, err)
	require.Equal(t, ":memory:", got)
}

func TestResolveDataPath_ParentIsFile(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := ResolveDataPath(filepath.Join(blocker, "gamevault.db"))
	require.Error(t, err)
}
