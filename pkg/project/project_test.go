package project_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/gemini/pkg/project"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func realPath(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, project.ManifestName)
	writeFile(t, path, `
name: demo
paths:
  - lib
  - /opt/gemini/shared
exclude:
  - fixtures
max_call_depth: 64
`)

	m, err := project.LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, "demo", m.Name)
	require.Equal(t, dir, m.Dir)
	require.Equal(t, []string{filepath.Join(dir, "lib"), "/opt/gemini/shared"}, m.Paths)
	require.Equal(t, []string{"fixtures"}, m.Exclude)
	require.Equal(t, 64, m.MaxCallDepth)
}

func TestLoadManifestEmptyUsesDirName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "myproj")
	path := filepath.Join(dir, project.ManifestName)
	writeFile(t, path, "")

	m, err := project.LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, "myproj", m.Name)
	require.Empty(t, m.Paths)
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), project.ManifestName)
	writeFile(t, path, "name: x\nsearch_paths: [a]\n")

	_, err := project.LoadManifest(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "search_paths")
}

func TestLoadManifestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), project.ManifestName)
	writeFile(t, path, "max_call_depth: -1\nexclude: [\"a/b\"]\npaths: [\"\"]\n")

	_, err := project.LoadManifest(path)
	var verr *project.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	require.Len(t, verr.Issues, 3)
}

func TestFindManifestWalksUp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, project.ManifestName), "name: up\n")
	nested := filepath.Join(dir, "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, ok := project.FindManifest(nested)
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, project.ManifestName), path)
}

func TestDiscoverPrefersManifest(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	sub := filepath.Join(dir, "pkg")
	writeFile(t, filepath.Join(sub, project.ManifestName), "name: inner\n")
	entry := filepath.Join(sub, "cmd")
	require.NoError(t, os.MkdirAll(entry, 0o755))

	root, err := project.Discover(context.Background(), entry, nil)
	require.NoError(t, err)
	require.Equal(t, project.RootManifest, root.Kind)
	require.Equal(t, sub, root.Dir)
	require.NotNil(t, root.Manifest)
	require.Equal(t, "inner", root.Manifest.Name)
}

func TestDiscoverGitWorktree(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	entry := filepath.Join(dir, "scripts", "tools")
	require.NoError(t, os.MkdirAll(entry, 0o755))

	root, err := project.Discover(context.Background(), entry, nil)
	require.NoError(t, err)
	require.Equal(t, project.RootGit, root.Kind)
	require.Equal(t, realPath(t, dir), realPath(t, root.Dir))
	require.Nil(t, root.Manifest)
}

func TestDiscoverFallsBackToEntryDir(t *testing.T) {
	dir := t.TempDir()

	root, err := project.Discover(context.Background(), dir, nil)
	require.NoError(t, err)
	if root.Kind == project.RootGit {
		t.Skip("temp directory is inside a git worktree")
	}
	require.Equal(t, project.RootEntry, root.Kind)
	require.Equal(t, dir, root.Dir)
}

func TestDiscoverBadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, project.ManifestName), "name: [unclosed\n")

	_, err := project.Discover(context.Background(), dir, nil)
	require.Error(t, err)
}
