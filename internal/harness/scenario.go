package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gplan/internal/compiler"
	"github.com/roach88/gplan/internal/cost"
	"github.com/roach88/gplan/internal/query"
	"github.com/roach88/gplan/internal/schema"
)

// Scenario is one compile case loaded from YAML.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Schema is inline CUE. SchemaFile is used when Schema is empty.
	Schema     string `yaml:"schema"`
	SchemaFile string `yaml:"schema_file"`

	// Statistics, Config and Query are decoded by their own packages.
	Statistics yaml.Node `yaml:"statistics"`
	Config     yaml.Node `yaml:"config"`
	Query      yaml.Node `yaml:"query"`

	Expect Expect `yaml:"expect"`

	// dir is the directory the scenario was loaded from.
	dir string
}

// Expect lists the checks applied to a compilation. Nil slices and empty
// strings are not checked; an empty list asserts emptiness.
type Expect struct {
	// Ops are the plan's vertex op kinds in id order.
	Ops []string `yaml:"ops"`

	// Shuffles are the plan's edge movements in insertion order.
	Shuffles []string `yaml:"shuffles"`

	// OutputType is the sink vertex's output type.
	OutputType string `yaml:"output_type"`

	// Passes are the rewrite passes that changed the tree, in order.
	Passes []string `yaml:"passes"`

	// Warnings are the error codes of non-fatal diagnostics.
	Warnings []string `yaml:"warnings"`

	// Error is the code a failing compilation must report.
	Error string `yaml:"error"`

	// ExplainContains are substrings the Explain text must include.
	ExplainContains []string `yaml:"explain_contains"`
}

// LoadScenario reads and validates a scenario file. Unknown keys are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("invalid scenario: name is required")
	}
	if s.Schema == "" && s.SchemaFile == "" {
		return fmt.Errorf("invalid scenario %q: schema or schema_file is required", s.Name)
	}
	if s.Schema != "" && s.SchemaFile != "" {
		return fmt.Errorf("invalid scenario %q: schema and schema_file are exclusive", s.Name)
	}
	if s.Query.IsZero() {
		return fmt.Errorf("invalid scenario %q: query is required", s.Name)
	}
	if s.Expect.Error != "" && (s.Expect.Ops != nil || s.Expect.Shuffles != nil ||
		s.Expect.OutputType != "" || s.Expect.Passes != nil || s.Expect.ExplainContains != nil) {
		return fmt.Errorf("invalid scenario %q: expect.error excludes plan expectations", s.Name)
	}
	return nil
}

func (s *Scenario) loadSchema() (*schema.Schema, error) {
	if s.Schema != "" {
		return schema.CompileCUE(s.Schema, s.Name+".cue")
	}
	path := s.SchemaFile
	if !filepath.IsAbs(path) && s.dir != "" {
		path = filepath.Join(s.dir, path)
	}
	return schema.LoadCUE(path)
}

func (s *Scenario) loadStatistics() (*cost.TableStatistics, error) {
	if s.Statistics.IsZero() {
		return nil, nil
	}
	data, err := yaml.Marshal(&s.Statistics)
	if err != nil {
		return nil, err
	}
	return cost.ParseStatistics(data)
}

func (s *Scenario) loadConfig() (compiler.Config, error) {
	if s.Config.IsZero() {
		return compiler.DefaultConfig(), nil
	}
	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return compiler.Config{}, err
	}
	return compiler.ParseConfig(data)
}

func (s *Scenario) loadQuery() (*query.Document, error) {
	data, err := yaml.Marshal(&s.Query)
	if err != nil {
		return nil, err
	}
	doc, err := query.Parse(data)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = s.Name
	}
	return doc, nil
}
