// Package runtime provides the top-level Gemini runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/thomasrohde/gemini/pkg/diagnostics"
	"github.com/thomasrohde/gemini/pkg/evaluator"
	"github.com/thomasrohde/gemini/pkg/formatter"
	"github.com/thomasrohde/gemini/pkg/loader"
	"github.com/thomasrohde/gemini/pkg/parser"
	"github.com/thomasrohde/gemini/pkg/project"
	"github.com/thomasrohde/gemini/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	Stats evaluator.Stats
	Root  *project.Root
}

// Runtime wires together the parser, module loader and evaluator.
type Runtime struct {
	stdout       io.Writer
	logger       *slog.Logger
	searchPaths  []string
	projectRoot  string
	manifestPath string
	maxDepth     int
	runID        string
	trace        func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdout redirects print output.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithLogger sets the structured logger used by every stage.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithSearchPaths replaces the search paths taken from GEMINI_PATH.
func WithSearchPaths(paths ...string) Option {
	return func(rt *Runtime) {
		rt.searchPaths = paths
	}
}

// WithProjectRoot skips project discovery and searches dir instead.
func WithProjectRoot(dir string) Option {
	return func(rt *Runtime) {
		rt.projectRoot = dir
	}
}

// WithManifest loads the given gemini.yml instead of discovering one.
func WithManifest(path string) Option {
	return func(rt *Runtime) {
		rt.manifestPath = path
	}
}

// WithMaxCallDepth overrides the manifest and default call depth limit.
func WithMaxCallDepth(n int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = n
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// New creates a new Runtime with the given options.
// By default output goes to os.Stdout, warnings are logged to os.Stderr
// and search paths come from GEMINI_PATH.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdout:      os.Stdout,
		runID:       "cli",
		searchPaths: loader.SearchPathsFromEnv(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return rt
}

// Run parses and executes a Gemini program. filename locates the project
// the program's imports are resolved against.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, err := parser.Parse(source, filename)
	if err != nil {
		return nil, err
	}

	opts, root, err := rt.buildExecOptions(ctx, filename)
	if err != nil {
		return nil, err
	}

	result, err := evaluator.Execute(ctx, program, opts)
	res := &Result{Root: root}
	if result != nil {
		res.Stats = result.Stats
	}
	if err != nil {
		return res, err
	}
	rt.logger.DebugContext(ctx, "run finished",
		slog.String("file", filename),
		slog.Int64("calls", res.Stats.Calls),
		slog.Int("max_depth", res.Stats.MaxDepth),
		slog.Int("modules", res.Stats.ModulesLoaded))
	return res, nil
}

// NewSession prepares a persistent session whose imports resolve relative
// to dir. The REPL feeds each entered program to Session.Exec.
func (rt *Runtime) NewSession(ctx context.Context, dir string) (*evaluator.Session, *project.Root, error) {
	opts, root, err := rt.buildExecOptions(ctx, filepath.Join(dir, "<repl>"))
	if err != nil {
		return nil, nil, err
	}
	return evaluator.NewSession(opts), root, nil
}

// Check parses and validates a Gemini program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, err := parser.Parse(source, filename)
	if err != nil {
		return Diagnostics(err)
	}
	return validator.Validate(program)
}

// Format parses and formats a Gemini program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, err := parser.Parse(source, filename)
	if err != nil {
		return "", &DiagnosticError{Diagnostics: Diagnostics(err)}
	}
	return formatter.Format(program), nil
}

// buildExecOptions resolves the project for filename and constructs
// evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions(ctx context.Context, filename string) (evaluator.ExecOptions, *project.Root, error) {
	root, err := rt.resolveRoot(ctx, filename)
	if err != nil {
		return evaluator.ExecOptions{}, nil, diagnostics.Errorf(diagnostics.EManifest, nil, "%v", err)
	}

	cfg := loader.Config{
		SearchPaths: append([]string(nil), rt.searchPaths...),
		ProjectRoot: root.Dir,
		Logger:      rt.logger,
	}
	maxDepth := rt.maxDepth
	if m := root.Manifest; m != nil {
		cfg.SearchPaths = append(cfg.SearchPaths, m.Paths...)
		cfg.Exclude = m.Exclude
		if maxDepth <= 0 {
			maxDepth = m.MaxCallDepth
		}
	}
	rt.logger.DebugContext(ctx, "project resolved",
		slog.String("root", root.Dir),
		slog.String("kind", string(root.Kind)),
		slog.Any("search_paths", cfg.SearchPaths))

	return evaluator.ExecOptions{
		Stdout:       rt.stdout,
		Modules:      loader.New(cfg),
		MaxCallDepth: maxDepth,
		Trace:        rt.trace,
		RunID:        rt.runID,
		Logger:       rt.logger,
	}, root, nil
}

func (rt *Runtime) resolveRoot(ctx context.Context, filename string) (*project.Root, error) {
	if rt.manifestPath != "" {
		m, err := project.LoadManifest(rt.manifestPath)
		if err != nil {
			return nil, err
		}
		root := &project.Root{Dir: m.Dir, Kind: project.RootManifest, Manifest: m}
		if rt.projectRoot != "" {
			root.Dir = rt.projectRoot
		}
		return root, nil
	}
	if rt.projectRoot != "" {
		dir, err := filepath.Abs(rt.projectRoot)
		if err != nil {
			return nil, err
		}
		return &project.Root{Dir: dir, Kind: project.RootEntry}, nil
	}
	return project.Discover(ctx, entryDir(filename), rt.logger)
}

func entryDir(filename string) string {
	if filename == "" || strings.HasPrefix(filename, "<") {
		return "."
	}
	return filepath.Dir(filename)
}

// Diagnostics converts an error from Run, Check or Format into
// diagnostics. Errors without a source location get a nil span.
func Diagnostics(err error) []diagnostics.Diagnostic {
	if err == nil {
		return nil
	}
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Diagnostics
	}
	var e *diagnostics.Error
	if errors.As(err, &e) {
		return []diagnostics.Diagnostic{e.Diagnostic()}
	}
	code := diagnostics.EIO
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = diagnostics.ECanceled
	}
	return []diagnostics.Diagnostic{diagnostics.MakeDiag(code, err.Error(), nil, "")}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
