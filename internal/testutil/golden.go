// Package testutil provides shared test helpers for Gemini Go tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenariosDir is the relative path from the module root to the conformance scenarios.
const ScenariosDir = "testdata/scenarios"

// Scenario represents a test scenario loaded from a scenario.json file.
// Cmd mirrors the CLI arguments after "gemini", e.g. ["run", "main.gemini"].
type Scenario struct {
	Cmd       []string       `json:"cmd"`
	Env       *ScenarioEnv   `json:"env,omitempty"`
	Meta      *ScenarioMeta  `json:"meta,omitempty"`
	Expect    ExpectedResult `json:"expect"`
	TimeoutMs int            `json:"timeoutMs,omitempty"`
}

// ScenarioEnv configures the module search environment of a scenario.
type ScenarioEnv struct {
	// SearchPaths stand in for GEMINI_PATH, relative to the scenario directory.
	SearchPaths []string `json:"searchPaths,omitempty"`
	// MaxCallDepth mirrors the --max-depth flag.
	MaxCallDepth int `json:"maxCallDepth,omitempty"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Tags []string `json:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode         int             `json:"exitCode"`
	StdoutText       *string         `json:"stdoutText,omitempty"`
	StdoutContains   string          `json:"stdoutContains,omitempty"`
	StderrText       *string         `json:"stderrText,omitempty"`
	StderrContains   string          `json:"stderrContains,omitempty"`
	StderrJSONSubset json.RawMessage `json:"stderrJsonSubset,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.json.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.json"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root, sorted by name.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.json")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ProgramArg returns the first non-flag argument after the command.
func ProgramArg(cmd []string) string {
	for _, arg := range cmd[1:] {
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	return ""
}

// HasFlag reports whether cmd contains flag.
func HasFlag(cmd []string, flag string) bool {
	for _, arg := range cmd[1:] {
		if arg == flag {
			return true
		}
	}
	return false
}

// ReadProgramFile reads the program file referenced by the scenario cmd and
// returns its source and path.
func ReadProgramFile(scenarioDir string, cmd []string) (string, string, error) {
	if len(cmd) < 2 {
		return "", "", nil
	}
	path := filepath.Join(scenarioDir, ProgramArg(cmd))
	source, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(source), path, nil
}
