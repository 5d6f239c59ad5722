// Package tools builds the pychart binaries into a bin directory.
package tools

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Binaries lists the commands Install builds, by package path.
var Binaries = []struct {
	Name string
	Pkg  string
}{
	{"pychart", "./cmd/pychart"},
	{"pychart-lsp", "./cmd/pychart-lsp"},
}

type InstallOptions struct {
	BinDir string
	Stdout io.Writer
	Stderr io.Writer

	// Run executes the go tool; nil runs it with os/exec.
	Run func(stdout, stderr io.Writer, args ...string) error
}

// Install builds every binary and returns the paths it wrote.
func Install(opts InstallOptions) ([]string, error) {
	if opts.BinDir == "" {
		opts.BinDir = "bin"
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Run == nil {
		opts.Run = goTool
	}

	if err := os.MkdirAll(opts.BinDir, 0o755); err != nil {
		return nil, err
	}

	var written []string
	for _, b := range Binaries {
		out := filepath.Join(opts.BinDir, exeName(b.Name))
		if err := opts.Run(opts.Stdout, opts.Stderr, "build", "-o", out, b.Pkg); err != nil {
			return written, fmt.Errorf("build %s: %w", b.Name, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func goTool(stdout, stderr io.Writer, args ...string) error {
	cmd := exec.Command("go", args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}
