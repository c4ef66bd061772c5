package persona

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report YAML field names so errors point at the persona file.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads a persona YAML file. A missing file yields DefaultConfig().
// Unknown fields are rejected, and the decoded config must pass Validate.
// An absent learning section is the only part filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates persona YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("persona file is empty")
		}
		return nil, fmt.Errorf("parse persona: %w", err)
	}

	if cfg.Learning == (Learning{}) {
		cfg.Learning = DefaultLearning()
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid persona config: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Topics))
	for _, t := range cfg.Topics {
		key := strings.ToLower(t.Key)
		if seen[key] {
			return fmt.Errorf("invalid persona config: duplicate topic key %q", t.Key)
		}
		seen[key] = true
	}

	for _, tmpl := range cfg.Templates.Redirect {
		if !strings.Contains(tmpl, "{topic}") && !strings.Contains(tmpl, "{topics}") {
			return fmt.Errorf("invalid persona config: redirect template %q has no {topic} or {topics} placeholder", tmpl)
		}
	}
	return nil
}
