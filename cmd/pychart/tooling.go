package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pychart/internal/diag"
	"pychart/internal/format"
	"pychart/internal/lsp"
	"pychart/internal/tools"
)

func (c *cli) runFmt(args []string) int {
	flags := flag.NewFlagSet("fmt", flag.ContinueOnError)
	flags.SetOutput(c.stderr)
	writeBack := flags.Bool("w", false, "write result to (source) file instead of stdout")
	list := flags.Bool("l", false, "list files whose formatting differs")
	indent := flags.String("i", "  ", "indent string")
	if err := flags.Parse(args); err != nil {
		fmt.Fprintln(c.stderr, "usage: pychart fmt [-w] [-l] [-i <indent>] [path...]")
		return 2
	}

	targets := flags.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}
	files, err := collectSources(targets)
	if err != nil {
		fmt.Fprintln(c.stderr, "fmt error:", err)
		return 1
	}

	status := 0
	for _, path := range files {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(c.stderr, "fmt error:", err)
			return 1
		}
		formatted, err := format.Format(string(b), format.Options{Indent: *indent})
		if err != nil {
			fmt.Fprintf(c.stderr, "%s:%v\n", displayPath(path), err)
			status = 1
			continue
		}
		changed := string(b) != formatted

		switch {
		case *list:
			if changed {
				fmt.Fprintln(c.stdout, displayPath(path))
			}
		case *writeBack:
			if !changed {
				continue
			}
			if err := writeFileAtomic(path, []byte(formatted)); err != nil {
				fmt.Fprintln(c.stderr, "fmt error:", err)
				return 1
			}
			log.Infof("formatted %s", path)
		default:
			fmt.Fprint(c.stdout, formatted)
		}
	}
	return status
}

func (c *cli) runLint(args []string) int {
	flags := flag.NewFlagSet("lint", flag.ContinueOnError)
	flags.SetOutput(c.stderr)
	if err := flags.Parse(args); err != nil || flags.NArg() == 0 {
		fmt.Fprintln(c.stderr, "usage: pychart lint <file|dir> [more...]")
		return 2
	}

	files, err := collectSources(flags.Args())
	if err != nil {
		fmt.Fprintln(c.stderr, "lint error:", err)
		return 1
	}

	hadErrors := false
	for _, path := range files {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(c.stderr, "lint error:", err)
			hadErrors = true
			continue
		}
		display := displayPath(path)
		for _, d := range lsp.Analyze(display, string(b)) {
			fmt.Fprintln(c.stdout, d.Format(display))
			if d.Severity == diag.SeverityError {
				hadErrors = true
			}
		}
	}
	if hadErrors {
		return 1
	}
	return 0
}

func (c *cli) runTools(args []string) int {
	if len(args) == 0 || args[0] != "install" {
		fmt.Fprintln(c.stderr, "usage: pychart tools install [-bin <dir>]")
		return 2
	}

	flags := flag.NewFlagSet("tools install", flag.ContinueOnError)
	flags.SetOutput(c.stderr)
	binDir := flags.String("bin", "bin", "output directory for tools")
	if err := flags.Parse(args[1:]); err != nil || flags.NArg() != 0 {
		fmt.Fprintln(c.stderr, "usage: pychart tools install [-bin <dir>]")
		return 2
	}

	paths, err := tools.Install(tools.InstallOptions{BinDir: *binDir, Stdout: c.stdout, Stderr: c.stderr})
	if err != nil {
		fmt.Fprintln(c.stderr, "install error:", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "installed: %s\n", strings.Join(paths, ", "))
	return 0
}

// collectSources expands directories into the .pc files below them,
// skipping hidden directories. Named files are taken as given.
func collectSources(targets []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(target)
			continue
		}
		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != target && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == sourceExt {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func writeFileAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pychartfmt-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
