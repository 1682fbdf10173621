// Package loader resolves Gemini import names to source files and parses them.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/thomasrohde/gemini/pkg/ast"
	"github.com/thomasrohde/gemini/pkg/parser"
)

// EnvSearchPath names the environment variable holding extra module
// directories, separated by os.PathListSeparator.
const EnvSearchPath = "GEMINI_PATH"

// ErrNotFound is returned (wrapped) when no file matches an import.
var ErrNotFound = errors.New("module not found")

// DefaultSkipDirs are never entered by the recursive project search.
var DefaultSkipDirs = []string{".git", ".hg", ".svn", "build", "dist", "out", "bin", "target", "node_modules"}

// Config describes where modules are looked up.
type Config struct {
	// SearchPaths are checked in order before the project search.
	SearchPaths []string
	// ProjectRoot is searched recursively; empty disables the search.
	ProjectRoot string
	// Exclude adds directory names to DefaultSkipDirs.
	Exclude []string
	// IgnoreGitignore turns off .gitignore based skipping.
	IgnoreGitignore bool
	Logger          *slog.Logger
}

// Loader implements evaluator.ModuleSource on top of the file system.
type Loader struct {
	cfg     Config
	logger  *slog.Logger
	skip    map[string]struct{}
	ignore  gitignore.Matcher
	ignored bool // ignore has been loaded
}

// New creates a Loader. A nil Logger logs warnings to stderr.
func New(cfg Config) *Loader {
	l := &Loader{
		cfg:    cfg,
		logger: cfg.Logger,
		skip:   make(map[string]struct{}, len(DefaultSkipDirs)+len(cfg.Exclude)),
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	for _, name := range DefaultSkipDirs {
		l.skip[name] = struct{}{}
	}
	for _, name := range cfg.Exclude {
		l.skip[name] = struct{}{}
	}
	return l
}

// SearchPathsFromEnv splits GEMINI_PATH into directories, dropping empty entries.
func SearchPathsFromEnv() []string {
	return splitPathList(os.Getenv(EnvSearchPath))
}

func splitPathList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range filepath.SplitList(value) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Resolve finds the file for a canonical module name such as "util.gemini":
// first in each search path, then depth-first under the project root.
func (l *Loader) Resolve(ctx context.Context, canonical string) (string, error) {
	if canonical == "" || strings.ContainsAny(canonical, `/\`) {
		return "", fmt.Errorf("invalid module name %q", canonical)
	}

	for _, dir := range l.cfg.SearchPaths {
		candidate := filepath.Join(dir, canonical)
		if isRegular(candidate) {
			l.logger.DebugContext(ctx, "module resolved on search path",
				slog.String("module", canonical), slog.String("path", candidate))
			return candidate, nil
		}
	}

	if l.cfg.ProjectRoot != "" {
		path, err := l.searchProject(ctx, canonical)
		if err != nil {
			return "", err
		}
		if path != "" {
			l.logger.DebugContext(ctx, "module resolved in project",
				slog.String("module", canonical), slog.String("path", path))
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched %d search paths and project root %q)",
		ErrNotFound, canonical, len(l.cfg.SearchPaths), l.cfg.ProjectRoot)
}

// Load resolves, reads and parses a module. Parse errors are returned as
// *diagnostics.Error carrying the module's path.
func (l *Loader) Load(ctx context.Context, canonical string) (*ast.Program, error) {
	path, err := l.Resolve(ctx, canonical)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parser.Parse(string(data), path)
}

func (l *Loader) searchProject(ctx context.Context, canonical string) (string, error) {
	root := l.cfg.ProjectRoot
	matcher := l.gitignore(ctx)

	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			l.logger.WarnContext(ctx, "skipping unreadable path", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := l.skip[d.Name()]; skip {
				return fs.SkipDir
			}
			if matcher != nil && matcher.Match(relParts(root, path), true) {
				l.logger.DebugContext(ctx, "skipping git-ignored directory", slog.String("path", path))
				return fs.SkipDir
			}
			return nil
		}
		if d.Name() == canonical && d.Type().IsRegular() {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search %s: %w", root, err)
	}
	return found, nil
}

// gitignore loads the project's .gitignore patterns once.
func (l *Loader) gitignore(ctx context.Context) gitignore.Matcher {
	if l.ignored || l.cfg.IgnoreGitignore {
		return l.ignore
	}
	l.ignored = true
	patterns, err := gitignore.ReadPatterns(osfs.New(l.cfg.ProjectRoot), nil)
	if err != nil {
		l.logger.WarnContext(ctx, "could not read .gitignore patterns", slog.String("root", l.cfg.ProjectRoot), slog.Any("error", err))
		return nil
	}
	if len(patterns) > 0 {
		l.ignore = gitignore.NewMatcher(patterns)
	}
	return l.ignore
}

func relParts(root, path string) []string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return []string{filepath.Base(path)}
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
