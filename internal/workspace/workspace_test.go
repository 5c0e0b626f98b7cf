package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "main.py"), "print('hi')\n")
	writeFile(t, filepath.Join(dir, "old.py"), "x = 1\n")
	writeFile(t, filepath.Join(dir, "pkg", "util.py"), "y = 2\n")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddGlob("."))
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestChangedFiles(t *testing.T) {
	dir := initRepo(t)

	files, err := ChangedFiles(dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	writeFile(t, filepath.Join(dir, "main.py"), "print('changed')\n")
	writeFile(t, filepath.Join(dir, "new.py"), "z = 3\n")
	writeFile(t, filepath.Join(dir, "pkg", "extra.py"), "w = 4\n")
	require.NoError(t, os.Remove(filepath.Join(dir, "old.py")))

	files, err = ChangedFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py", "new.py", "pkg/extra.py"}, files)
}

func TestChangedFilesSubdirectory(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, filepath.Join(dir, "main.py"), "print('changed')\n")
	writeFile(t, filepath.Join(dir, "pkg", "util.py"), "y = 3\n")

	files, err := ChangedFiles(filepath.Join(dir, "pkg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"util.py"}, files)
}

func TestNotRepository(t *testing.T) {
	_, err := ChangedFiles(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)

	_, err = Branch(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestBranch(t *testing.T) {
	branch, err := Branch(initRepo(t))
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}
