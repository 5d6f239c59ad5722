// Package config handles pychart.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const FileName = "pychart.toml"

const (
	EngineVM   = "vm"
	EngineEval = "eval"
)

type Manifest struct {
	Project Project `toml:"project"`
	Run     Run     `toml:"run"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing pychart.toml (set at load time).
	Dir string `toml:"-"`
}

type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

type Run struct {
	Engine     string `toml:"engine"`
	MaxSteps   int64  `toml:"max_steps"`
	KeepLabels bool   `toml:"keep_labels"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default is the configuration used when no pychart.toml is found.
func Default() *Manifest {
	return &Manifest{Run: Run{Engine: EngineVM}}
}

// Load parses pychart.toml from dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(path, data, dir)
}

// Parse decodes manifest text. path is used in error messages only.
func Parse(path string, data []byte, dir string) (*Manifest, error) {
	m := Default()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	switch m.Run.Engine {
	case "":
		m.Run.Engine = EngineVM
	case EngineVM, EngineEval:
	default:
		return nil, fmt.Errorf("%s: run.engine must be %q or %q, got %q", path, EngineVM, EngineEval, m.Run.Engine)
	}
	if m.Run.MaxSteps < 0 {
		return nil, fmt.Errorf("%s: run.max_steps must not be negative", path)
	}

	if dir != "" {
		m.Dir, err = filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
		}
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find pychart.toml. It returns nil
// and no error when there is none.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute entry file, or "" when none is configured.
func (m *Manifest) EntryPath() string {
	if m.Project.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Project.Entry) {
		return m.Project.Entry
	}
	return filepath.Join(m.Dir, m.Project.Entry)
}

// LogFile returns the configured log file path, or nil for stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}
