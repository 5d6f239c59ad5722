// Package conformance runs YAML-described programs on both engines and
// checks their observable behaviour against the fixture and each other.
package conformance

// Suite is one YAML fixture file.
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Cases       []Case `yaml:"tests"`
}

type Case struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Input  string `yaml:"input,omitempty"` // stdin for input()
	Skip   string `yaml:"skip,omitempty"`
	// Engines restricts the case to the named engines; empty means both.
	Engines []string    `yaml:"engines,omitempty"`
	Expect  Expectation `yaml:"expect"`

	dir string // directory of the fixture file, for output_file
}

// Expectation sets at most one of Output, OutputContains and OutputFile.
type Expectation struct {
	Output         *string           `yaml:"output,omitempty"`
	OutputContains string            `yaml:"output_contains,omitempty"`
	OutputFile     string            `yaml:"output_file,omitempty"`
	Globals        map[string]string `yaml:"globals,omitempty"` // name -> Inspect()
	Error          string            `yaml:"error,omitempty"`   // substring of the failure
}

func (c *Case) RunsOn(engine string) bool {
	if len(c.Engines) == 0 {
		return true
	}
	for _, e := range c.Engines {
		if e == engine {
			return true
		}
	}
	return false
}
