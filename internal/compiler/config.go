package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/gplan/internal/cost"
)

// Config tunes compilation. The zero value is not valid; start from
// DefaultConfig.
type Config struct {
	// DisabledPasses names rewrite passes to skip.
	DisabledPasses []string `yaml:"disabled_passes" validate:"dive,oneof=label-pushdown order-terminal order-range range-count edge-props"`

	// StepBudget caps the transitions the match cost selector explores.
	StepBudget int `yaml:"step_budget" validate:"gte=1,lte=10000000"`

	// MaxNodes rejects traversal trees with more steps. Zero disables
	// the check.
	MaxNodes int `yaml:"max_nodes" validate:"gte=0"`

	// Parallelism bounds CompileBatch; zero means one worker per request.
	Parallelism int `yaml:"parallelism" validate:"gte=0,lte=1024"`

	// Archive writes compiled plans to the store when one is configured.
	Archive bool `yaml:"archive"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		StepBudget:  cost.DefaultStepBudget,
		Parallelism: 8,
		Archive:     true,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks c's field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
