package guardrail

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy extends the built-in guardrail lists. It never removes built-in entries.
type Policy struct {
	Denylist          []string `yaml:"denylist"`
	InjectionPatterns []string `yaml:"injection_patterns"`
}

// LoadPolicy reads a YAML policy file. An empty path yields an empty policy.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return Policy{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read guardrail policy: %w", err)
	}

	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse guardrail policy %s: %w", path, err)
	}
	return policy, nil
}
