package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
)

// RootKind records how a project root was found.
type RootKind string

const (
	RootManifest RootKind = "manifest"
	RootGit      RootKind = "git"
	RootEntry    RootKind = "entry"
)

// Root is the directory recursive module search starts from.
type Root struct {
	Dir      string
	Kind     RootKind
	Manifest *Manifest // nil unless Kind is RootManifest
}

// Discover finds the project root for an entry file living in entryDir:
// the nearest directory holding gemini.yml, else the enclosing git
// worktree, else entryDir itself. A malformed manifest is an error.
func Discover(ctx context.Context, entryDir string, logger *slog.Logger) (*Root, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := filepath.Abs(entryDir)
	if err != nil {
		return nil, fmt.Errorf("project: resolve %s: %w", entryDir, err)
	}

	if path, ok := FindManifest(dir); ok {
		m, err := LoadManifest(path)
		if err != nil {
			return nil, err
		}
		logger.DebugContext(ctx, "project root from manifest", slog.String("root", m.Dir), slog.String("name", m.Name))
		return &Root{Dir: m.Dir, Kind: RootManifest, Manifest: m}, nil
	}

	if top, ok := gitWorktree(dir); ok {
		logger.DebugContext(ctx, "project root from git worktree", slog.String("root", top))
		return &Root{Dir: top, Kind: RootGit}, nil
	}

	logger.DebugContext(ctx, "project root defaults to entry directory", slog.String("root", dir))
	return &Root{Dir: dir, Kind: RootEntry}, nil
}

// gitWorktree returns the top of the git worktree containing dir.
func gitWorktree(dir string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			slog.Default().Debug("git detection failed", slog.String("dir", dir), slog.Any("error", err))
		}
		return "", false
	}
	wt, err := repo.Worktree()
	if err != nil {
		// bare repository
		return "", false
	}
	return wt.Filesystem.Root(), true
}
