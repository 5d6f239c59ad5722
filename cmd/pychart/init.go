package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"pychart/internal/config"
)

func (c *cli) runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	name := fs.String("name", "", "project name (default: directory name)")
	entry := fs.String("entry", "main"+sourceExt, "entry file")
	force := fs.Bool("force", false, "overwrite existing files")
	if err := fs.Parse(args); err != nil || fs.NArg() > 1 {
		fmt.Fprintln(c.stderr, "usage: pychart init [-name <name>] [-entry <file>] [-force] [dir]")
		return 2
	}
	if strings.TrimSpace(*entry) == "" {
		fmt.Fprintln(c.stderr, "init error: entry cannot be empty")
		return 2
	}

	dir := "."
	if fs.NArg() == 1 {
		dir = fs.Arg(0)
	}
	if err := initProject(dir, *name, *entry, *force); err != nil {
		fmt.Fprintln(c.stderr, "init error:", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "created %s\n", filepath.Join(dir, config.FileName))
	return 0
}

func initProject(dir, name, entry string, force bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(abs)
	}

	manifestPath := filepath.Join(abs, config.FileName)
	exists, err := pathExists(manifestPath)
	if err != nil {
		return err
	}
	if exists && !force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", config.FileName)
	}

	m := config.Default()
	m.Project = config.Project{Name: name, Entry: entry}
	data, err := toml.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return err
	}

	entryPath := filepath.Join(abs, entry)
	if err := os.MkdirAll(filepath.Dir(entryPath), 0o755); err != nil {
		return err
	}
	exists, err = pathExists(entryPath)
	if err != nil {
		return err
	}
	if !exists || force {
		return os.WriteFile(entryPath, []byte(starterProgram), 0o644)
	}
	return nil
}

const starterProgram = `func greet(name) {
  return "hello, " + name;
}

print(greet("world"));
`

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
