// Command gemini is the Gemini interpreter CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/thomasrohde/gemini/pkg/diagnostics"
	"github.com/thomasrohde/gemini/pkg/evaluator"
	"github.com/thomasrohde/gemini/pkg/formatter"
	"github.com/thomasrohde/gemini/pkg/help"
	"github.com/thomasrohde/gemini/pkg/runtime"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gemini <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, check, fmt, repl, trace, help")
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "trace":
		os.Exit(cmdTrace(os.Args[2:]))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	default:
		if strings.HasSuffix(cmd, ".gemini") {
			// gemini file.gemini is shorthand for gemini run file.gemini
			os.Exit(cmdRun(os.Args[1:]))
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

func cmdRun(args []string) int {
	var file string
	jsonOutput := false
	verbose := false
	tracePath := ""
	maxDepth := 0

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			jsonOutput = true
		case "--verbose", "-v":
			verbose = true
		case "--trace":
			if i+1 < len(args) {
				i++
				tracePath = args[i]
			}
		case "--max-depth":
			if i+1 < len(args) {
				i++
				n, err := strconv.Atoi(args[i])
				if err != nil || n <= 0 {
					fmt.Fprintf(os.Stderr, "invalid --max-depth %q\n", args[i])
					return 1
				}
				maxDepth = n
			}
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: gemini run <file> [--json] [--trace <path>] [--max-depth <n>] [--verbose]")
		return 1
	}

	source, filename, exitCode := readSource(file, jsonOutput)
	if exitCode != 0 {
		return exitCode
	}

	opts := []runtime.Option{runtime.WithLogger(newLogger(verbose))}
	if maxDepth > 0 {
		opts = append(opts, runtime.WithMaxCallDepth(maxDepth))
	}
	if tracePath != "" {
		tw, err := newTraceWriter(tracePath)
		if err != nil {
			reportFatal(runtime.Diagnostics(err), jsonOutput)
			return 1
		}
		defer tw.Close()
		opts = append(opts, runtime.WithRunID(tw.runID), runtime.WithTrace(tw.write))
	}
	rt := runtime.New(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := rt.Run(ctx, source, filename); err != nil {
		diags := runtime.Diagnostics(err)
		reportFatal(diags, jsonOutput)
		return exitCodeForDiag(diags[0].Code)
	}
	return 0
}

func cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: gemini check <file> [--pretty]")
		return 1
	}

	source, filename, exitCode := readSource(file, !pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return 2
	}

	// Valid program
	if pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return 0
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write", "-w":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: gemini fmt <file> [--write]")
		return 1
	}

	sourceBytes, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatLine(diag))
		return 1
	}
	source := string(sourceBytes)

	rt := runtime.New()
	formatted, fmtErr := rt.Format(source, file)
	if fmtErr != nil {
		reportFatal(runtime.Diagnostics(fmtErr), false)
		return 2
	}

	if formatter.HasComments(source) {
		if write {
			fmt.Fprintf(os.Stderr, "refusing to rewrite %s: comments are not preserved by the formatter\n", file)
			return 1
		}
		fmt.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if formatted == source {
			return 0
		}
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			return 1
		}
		return 0
	}
	fmt.Print(formatted)
	return 0
}

func cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Print(content)
	return 0
}

// newLogger builds the stderr logger: warnings by default, everything with --verbose.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// reportFatal prints diagnostics as "[line N] Error: message" lines, or as
// JSON when requested.
func reportFatal(diags []diagnostics.Diagnostic, asJSON bool) {
	if asJSON {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, false))
		return
	}
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, diagnostics.FormatLine(d))
	}
}

func readSource(file string, asJSON bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		reportFatal([]diagnostics.Diagnostic{diag}, asJSON)
		return "", "", 1
	}
	return string(source), file, 0
}

func exitCodeForDiag(code string) int {
	switch code {
	case diagnostics.ELex, diagnostics.ESyntax:
		return 2
	case diagnostics.EIO, diagnostics.EManifest:
		return 1
	case diagnostics.ECanceled:
		return 130
	default:
		return 4
	}
}

// traceWriter appends trace events to an NDJSON file.
type traceWriter struct {
	runID string
	f     *os.File
	enc   *json.Encoder
}

func newTraceWriter(path string) (*traceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &traceWriter{runID: uuid.NewString(), f: f, enc: json.NewEncoder(f)}, nil
}

func (w *traceWriter) write(event evaluator.TraceEvent) {
	_ = w.enc.Encode(event)
}

func (w *traceWriter) Close() error {
	return w.f.Close()
}
