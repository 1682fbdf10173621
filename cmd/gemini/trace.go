package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/thomasrohde/gemini/pkg/diagnostics"
)

// TraceSummary aggregates an NDJSON trace written by "gemini run --trace".
type TraceSummary struct {
	RunID          string         `json:"runId"`
	TotalEvents    int            `json:"totalEvents"`
	FunctionCalls  int            `json:"functionCalls"`
	CallsByName    map[string]int `json:"callsByName"`
	MaxDepth       int            `json:"maxDepth"`
	ModulesLoaded  int            `json:"modulesLoaded"`
	CacheHits      int            `json:"cacheHits"`
	Completed      bool           `json:"completed"`
	StartTime      string         `json:"startTime,omitempty"`
	EndTime        string         `json:"endTime,omitempty"`
	DurationMs     float64        `json:"durationMs"`
	InvalidRecords int            `json:"invalidRecords,omitempty"`
}

type traceEvent struct {
	Event string            `json:"event"`
	RunID string            `json:"runId"`
	TS    string            `json:"ts"`
	Data  map[string]string `json:"data,omitempty"`
}

func cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: gemini trace <file.jsonl> [--json|--text]")
		return 1
	}

	f, err := os.Open(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatLine(diag))
		return 1
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading trace: %s\n", err)
		return 1
	}

	if textOutput {
		printTraceSummaryText(os.Stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Println(string(b))
	}
	return 0
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		CallsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			summary.InvalidRecords++
			continue
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case "run_start":
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case "run_end":
			summary.EndTime = event.TS
			summary.Completed = true
		case "fn_call_start":
			summary.FunctionCalls++
			if name, ok := event.Data["fn"]; ok {
				summary.CallsByName[name]++
			}
			if d, err := strconv.Atoi(event.Data["depth"]); err == nil && d > summary.MaxDepth {
				summary.MaxDepth = d
			}
		case "import_end":
			summary.ModulesLoaded++
		case "module_cache_hit":
			summary.CacheHits++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Calls: %d (max depth %d)\n", s.FunctionCalls, s.MaxDepth)
	names := make([]string, 0, len(s.CallsByName))
	for name := range s.CallsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.CallsByName[name])
	}
	fmt.Fprintf(w, "Modules: %d loaded, %d cache hits\n", s.ModulesLoaded, s.CacheHits)
	if !s.Completed {
		fmt.Fprintln(w, "Run did not finish")
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
