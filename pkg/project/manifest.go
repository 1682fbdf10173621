// Package project locates a Gemini project root and reads its gemini.yml manifest.
package project

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestName is the file name of a project manifest.
const ManifestName = "gemini.yml"

// Manifest represents the parsed contents of gemini.yml. Paths are absolute.
type Manifest struct {
	Path         string
	Dir          string
	Name         string
	Paths        []string
	Exclude      []string
	MaxCallDepth int
}

type manifestFile struct {
	Name         string   `yaml:"name"`
	Paths        []string `yaml:"paths"`
	Exclude      []string `yaml:"exclude"`
	MaxCallDepth int      `yaml:"max_call_depth"`
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest ")
	b.WriteString(e.Path)
	b.WriteString(" validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses gemini.yml from disk and validates it. Relative
// entries of paths are resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty gemini.yml still marks the project root.
			return raw.toManifest(absPath), nil
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	if err := raw.validate(absPath); err != nil {
		return nil, err
	}
	return raw.toManifest(absPath), nil
}

func (raw manifestFile) validate(path string) error {
	var issues []string
	if raw.MaxCallDepth < 0 {
		issues = append(issues, fmt.Sprintf("max_call_depth must not be negative, got %d", raw.MaxCallDepth))
	}
	for i, p := range raw.Paths {
		if strings.TrimSpace(p) == "" {
			issues = append(issues, fmt.Sprintf("paths[%d] is empty", i))
		}
	}
	for i, name := range raw.Exclude {
		if name == "" || strings.ContainsRune(name, filepath.Separator) || strings.Contains(name, "/") {
			issues = append(issues, fmt.Sprintf("exclude[%d] must be a plain directory name, got %q", i, name))
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Path: path, Issues: issues}
	}
	return nil
}

func (raw manifestFile) toManifest(absPath string) *Manifest {
	dir := filepath.Dir(absPath)
	m := &Manifest{
		Path:         absPath,
		Dir:          dir,
		Name:         raw.Name,
		Exclude:      raw.Exclude,
		MaxCallDepth: raw.MaxCallDepth,
	}
	if m.Name == "" {
		m.Name = filepath.Base(dir)
	}
	for _, p := range raw.Paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		m.Paths = append(m.Paths, filepath.Clean(p))
	}
	return m
}

// FindManifest walks upward from start looking for gemini.yml.
func FindManifest(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
