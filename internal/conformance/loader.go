package conformance

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Loaded is a case together with the fixture it came from.
type Loaded struct {
	File  string
	Suite string
	Case  Case
}

// LoadDir loads every .yaml fixture under dir, in path order.
func LoadDir(dir string) ([]Loaded, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var loaded []Loaded
	for _, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		suite, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
		for _, c := range suite.Cases {
			loaded = append(loaded, Loaded{File: rel, Suite: suite.Name, Case: c})
		}
	}
	return loaded, nil
}

func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range suite.Cases {
		c := &suite.Cases[i]
		if c.Name == "" {
			return nil, fmt.Errorf("test %d has no name", i)
		}
		if c.Source == "" {
			return nil, fmt.Errorf("test %q has no source", c.Name)
		}
		if n := outputForms(c.Expect); n > 1 {
			return nil, fmt.Errorf("test %q sets %d of output, output_contains and output_file", c.Name, n)
		}
		c.dir = dir
	}
	return &suite, nil
}

func outputForms(e Expectation) int {
	n := 0
	if e.Output != nil {
		n++
	}
	if e.OutputContains != "" {
		n++
	}
	if e.OutputFile != "" {
		n++
	}
	return n
}
