package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/gemini/pkg/diagnostics"
	"github.com/thomasrohde/gemini/pkg/evaluator"
	"github.com/thomasrohde/gemini/pkg/parser"
	"github.com/thomasrohde/gemini/pkg/project"
	"github.com/thomasrohde/gemini/pkg/runtime"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newRuntime(out *bytes.Buffer, opts ...runtime.Option) *runtime.Runtime {
	base := []runtime.Option{runtime.WithStdout(out), runtime.WithSearchPaths()}
	return runtime.New(append(base, opts...)...)
}

func TestRunWithProjectImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, project.ManifestName), "name: demo\n")
	writeFile(t, filepath.Join(dir, "lib", "mathx.gemini"), "function square(x) { return x * x; }\n")
	main := filepath.Join(dir, "main.gemini")
	src := "import mathx as m;\nprint m.square(7);\n"
	writeFile(t, main, src)

	var out bytes.Buffer
	res, err := newRuntime(&out).Run(context.Background(), src, main)
	require.NoError(t, err)
	require.Equal(t, "49\n", out.String())
	require.Equal(t, project.RootManifest, res.Root.Kind)
	require.Equal(t, dir, res.Root.Dir)
	require.Equal(t, 1, res.Stats.ModulesLoaded)
	require.EqualValues(t, 1, res.Stats.Calls)
}

func TestRunSearchPathsBeforeManifestPaths(t *testing.T) {
	dir := t.TempDir()
	first := t.TempDir()
	writeFile(t, filepath.Join(dir, project.ManifestName), "paths: [shared]\n")
	writeFile(t, filepath.Join(dir, "shared", "v.gemini"), "var which = \"manifest\";\n")
	writeFile(t, filepath.Join(first, "v.gemini"), "var which = \"env\";\n")
	main := filepath.Join(dir, "main.gemini")
	src := "import v;\nprint v.which;\n"

	var out bytes.Buffer
	_, err := newRuntime(&out, runtime.WithSearchPaths(first)).Run(context.Background(), src, main)
	require.NoError(t, err)
	require.Equal(t, "env\n", out.String())

	out.Reset()
	_, err = newRuntime(&out).Run(context.Background(), src, main)
	require.NoError(t, err)
	require.Equal(t, "manifest\n", out.String())
}

func TestRunMaxCallDepthPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, project.ManifestName), "max_call_depth: 5\n")
	main := filepath.Join(dir, "main.gemini")
	src := "function down(n) { if (n == 0) return 0; return down(n - 1); }\nprint down(10);\n"

	var out bytes.Buffer
	_, err := newRuntime(&out).Run(context.Background(), src, main)
	var de *diagnostics.Error
	require.True(t, errors.As(err, &de), "got %v", err)
	require.Equal(t, diagnostics.EStackOverflow, de.Code)
	require.Contains(t, de.Message, "max call depth 5")

	out.Reset()
	_, err = newRuntime(&out, runtime.WithMaxCallDepth(50)).Run(context.Background(), src, main)
	require.NoError(t, err)
	require.Equal(t, "0\n", out.String())
}

func TestRunExplicitProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "deep", "dir", "helper.gemini"), "var x = 3;\n")

	var out bytes.Buffer
	rt := newRuntime(&out, runtime.WithProjectRoot(root))
	res, err := rt.Run(context.Background(), "import helper as h; print h.x;", "<stdin>")
	require.NoError(t, err)
	require.Equal(t, "3\n", out.String())
	require.Equal(t, project.RootEntry, res.Root.Kind)
}

func TestRunBadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, project.ManifestName), "max_call_depth: -3\n")

	var out bytes.Buffer
	_, err := newRuntime(&out).Run(context.Background(), "print 1;", filepath.Join(dir, "main.gemini"))
	var de *diagnostics.Error
	require.True(t, errors.As(err, &de), "got %v", err)
	require.Equal(t, diagnostics.EManifest, de.Code)
	require.Empty(t, out.String())
}

func TestRunExplicitManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "conf", project.ManifestName)
	writeFile(t, manifest, "paths: [../mods]\n")
	writeFile(t, filepath.Join(dir, "mods", "k.gemini"), "var v = 11;\n")

	var out bytes.Buffer
	rt := newRuntime(&out, runtime.WithManifest(manifest))
	_, err := rt.Run(context.Background(), "import k; print k.v;", "<stdin>")
	require.NoError(t, err)
	require.Equal(t, "11\n", out.String())
}

func TestRunSyntaxError(t *testing.T) {
	var out bytes.Buffer
	_, err := newRuntime(&out, runtime.WithProjectRoot(t.TempDir())).Run(context.Background(), "print 1;\nvar = 2;\n", "bad.gemini")
	diags := runtime.Diagnostics(err)
	require.Len(t, diags, 1)
	require.Equal(t, diagnostics.ESyntax, diags[0].Code)
	require.Equal(t, "[line 2] Error: expect variable name", diagnostics.FormatLine(diags[0]))
	require.Empty(t, out.String(), "nothing runs when parsing fails")
}

func TestRunTrace(t *testing.T) {
	var events []evaluator.TraceEvent
	var out bytes.Buffer
	rt := newRuntime(&out,
		runtime.WithProjectRoot(t.TempDir()),
		runtime.WithRunID("run-1"),
		runtime.WithTrace(func(ev evaluator.TraceEvent) { events = append(events, ev) }))
	_, err := rt.Run(context.Background(), "function f() { return 1; } print f();", "t.gemini")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	require.Equal(t, evaluator.TraceRunStart, events[0].Event)
	require.Equal(t, evaluator.TraceRunEnd, events[len(events)-1].Event)
	for _, ev := range events {
		require.Equal(t, "run-1", ev.RunID)
	}
}

func TestCheck(t *testing.T) {
	rt := runtime.New()
	require.Empty(t, rt.Check("var x = 1; print x;", "ok.gemini"))

	diags := rt.Check("return 1;", "top.gemini")
	require.Len(t, diags, 1)
	require.Equal(t, diagnostics.EReturnOutside, diags[0].Code)

	diags = rt.Check("print (1;", "bad.gemini")
	require.Len(t, diags, 1)
	require.Equal(t, diagnostics.ESyntax, diags[0].Code)
}

func TestFormat(t *testing.T) {
	rt := runtime.New()
	out, err := rt.Format("var x=1+2;", "f.gemini")
	require.NoError(t, err)
	require.Equal(t, "var x = 1 + 2;\n", out)

	_, err = rt.Format("var x = ;", "f.gemini")
	var de *runtime.DiagnosticError
	require.True(t, errors.As(err, &de))
	require.Equal(t, diagnostics.ESyntax, de.Diagnostics[0].Code)
	require.Contains(t, de.Error(), "E_SYNTAX: expect expression")
}

func TestNewSessionKeepsGlobals(t *testing.T) {
	var out bytes.Buffer
	rt := newRuntime(&out, runtime.WithProjectRoot(t.TempDir()))
	session, root, err := rt.NewSession(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, root)

	for _, src := range []string{"var n = 40;", "function add(a) { return n + a; }", "print add(2);"} {
		prog, err := parser.Parse(src, "<repl>")
		require.NoError(t, err)
		_, err = session.Exec(context.Background(), prog)
		require.NoError(t, err)
	}
	require.Equal(t, "42\n", out.String())
}

func TestDiagnosticsConversion(t *testing.T) {
	require.Nil(t, runtime.Diagnostics(nil))

	d := runtime.Diagnostics(fmt.Errorf("wrapped: %w", context.Canceled))
	require.Equal(t, diagnostics.ECanceled, d[0].Code)

	d = runtime.Diagnostics(errors.New("disk on fire"))
	require.Equal(t, diagnostics.EIO, d[0].Code)
	require.Equal(t, "[line 0] Error: disk on fire", diagnostics.FormatLine(d[0]))

	inner := diagnostics.Errorf(diagnostics.EType, nil, "bad")
	d = runtime.Diagnostics(fmt.Errorf("ctx: %w", inner))
	require.Equal(t, diagnostics.EType, d[0].Code)
}

func TestRunLogsAtDebug(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "util.gemini"), "var n = 1;\n")
	main := filepath.Join(dir, "main.gemini")
	src := "import util;\nprint util.n;\n"

	var out, logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := newRuntime(&out, runtime.WithLogger(logger), runtime.WithProjectRoot(dir)).
		Run(context.Background(), src, main)
	require.NoError(t, err)
	require.Equal(t, "1\n", out.String())
	require.Contains(t, logs.String(), "module resolved in project")
	require.Contains(t, logs.String(), "run finished")
	require.False(t, strings.Contains(logs.String(), "print"), "print output must not reach the logger")
}
