package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/thomasrohde/gemini/pkg/help"
	"github.com/thomasrohde/gemini/pkg/parser"
	"github.com/thomasrohde/gemini/pkg/runtime"
)

const (
	historyFile = ".gemini_history"
	promptMain  = "gemini> "
	promptCont  = "   ...> "
)

func cmdRepl(args []string) int {
	verbose := false
	for _, arg := range args {
		if arg == "--verbose" || arg == "-v" {
			verbose = true
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	rt := runtime.New(runtime.WithLogger(newLogger(verbose)), runtime.WithRunID("repl"))
	session, root, err := rt.NewSession(context.Background(), cwd)
	if err != nil {
		reportFatal(runtime.Diagnostics(err), false)
		return 1
	}

	fmt.Printf("Gemini %s (project %s). Type :help for help, :quit to exit.\n", help.Version, root.Dir)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q", ":exit":
				return 0
			case ":help":
				fmt.Print(help.QUICKREF)
			default:
				fmt.Println("unknown command. Type :help or :quit.")
			}
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		program, err := parser.Parse(code, "<repl>")
		if err != nil {
			reportFatal(runtime.Diagnostics(err), false)
			continue
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		_, err = session.Exec(ctx, program)
		stop()
		if err != nil {
			// The failed statement is abandoned; bindings made before it stay.
			reportFatal(runtime.Diagnostics(err), false)
		}
	}
	return 0
}

// readByParseProbe reads lines until they form a program that either parses
// or fails before its end.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl-C drops the pending input.
			b.Reset()
			continue
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !parser.Incomplete(src) {
			return src, true
		}
	}
}
