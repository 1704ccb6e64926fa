package scm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://example.com/acme/inventory.git"},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print(\"hi\")\n"), 0644))

	wt, err := repo.Worktree()
	require.NoError(t, err)

	_, err = wt.Add("main.py")
	require.NoError(t, err)

	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	info := Describe(dir)
	require.NotNil(t, info)
	require.Equal(t, hash.String(), info.Revision)
	require.Equal(t, "https://example.com/acme/inventory.git", info.Source)
}

func TestDescribeSubdirectory(t *testing.T) {
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	subdir := filepath.Join(dir, "service")
	require.NoError(t, os.MkdirAll(subdir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(subdir, "main.py"), []byte("print(\"hi\")\n"), 0644))

	wt, err := repo.Worktree()
	require.NoError(t, err)

	_, err = wt.Add("service/main.py")
	require.NoError(t, err)

	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	info := Describe(subdir)
	require.NotNil(t, info)
	require.Equal(t, hash.String(), info.Revision)
	require.Empty(t, info.Source)
}

func TestDescribeNotARepo(t *testing.T) {
	require.Nil(t, Describe(t.TempDir()))
}
