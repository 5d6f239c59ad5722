package main

import (
	"flag"
	"fmt"
	"os"

	"pychart/internal/conformance"
)

// runTest runs YAML conformance fixtures, by default on both engines.
func (c *cli) runTest(args []string) int {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	engine := fs.String("engine", "", "run on one engine only (vm or eval)")
	verbose := fs.Bool("verbose", false, "print passing cases too")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(c.stderr, "usage: pychart test [-engine vm|eval] [dir|file.yaml]...")
		return 2
	}

	engines := []string{conformance.EngineVM, conformance.EngineEval}
	switch *engine {
	case "":
	case conformance.EngineVM, conformance.EngineEval:
		engines = []string{*engine}
	default:
		fmt.Fprintf(c.stderr, "test error: unknown engine %q\n", *engine)
		return 2
	}

	targets := fs.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	var cases []conformance.Loaded
	for _, target := range targets {
		loaded, err := loadFixtures(target)
		if err != nil {
			fmt.Fprintln(c.stderr, "test error:", err)
			return 1
		}
		cases = append(cases, loaded...)
	}
	if len(cases) == 0 {
		fmt.Fprintln(c.stdout, "no tests found")
		return 0
	}

	passed, failed, skipped := 0, 0, 0
	for _, lc := range cases {
		name := lc.File + "/" + lc.Case.Name
		if lc.Case.Skip != "" {
			skipped++
			continue
		}
		for _, e := range engines {
			if !lc.Case.RunsOn(e) {
				continue
			}
			if err := conformance.RunCase(e, lc.Case); err != nil {
				failed++
				fmt.Fprintf(c.stdout, "FAIL %s [%s]: %v\n", name, e, err)
				continue
			}
			passed++
			if *verbose {
				fmt.Fprintf(c.stdout, "ok   %s [%s]\n", name, e)
			}
		}
	}

	fmt.Fprintf(c.stdout, "passed %d, failed %d, skipped %d\n", passed, failed, skipped)
	if failed > 0 {
		return 1
	}
	return 0
}

func loadFixtures(target string) ([]conformance.Loaded, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return conformance.LoadDir(target)
	}
	suite, err := conformance.LoadFile(target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", target, err)
	}
	loaded := make([]conformance.Loaded, 0, len(suite.Cases))
	for _, tc := range suite.Cases {
		loaded = append(loaded, conformance.Loaded{File: target, Suite: suite.Name, Case: tc})
	}
	return loaded, nil
}
