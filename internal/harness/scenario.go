package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is an ordered sequence of HTTP exchanges with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order; a step may use variables saved by earlier steps.
	Steps []Step `yaml:"steps"`
}

// Step is a single request and its expected response.
type Step struct {
	// Name labels the step in failure messages. Defaults to its index.
	Name string `yaml:"name,omitempty"`

	Method string `yaml:"method"`
	Path   string `yaml:"path"`

	// Headers are added to the request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Body is encoded as JSON. Mutually exclusive with RawBody.
	Body any `yaml:"body,omitempty"`

	// RawBody is sent verbatim.
	RawBody *string `yaml:"raw_body,omitempty"`

	Expect Expect `yaml:"expect"`

	// Save maps variable names to dotted paths in the response body.
	Save map[string]string `yaml:"save,omitempty"`
}

// Expect specifies the expected response.
type Expect struct {
	Status int `yaml:"status"`

	// Body is subset-matched against the response body when set.
	Body any `yaml:"body,omitempty"`

	// Headers must be present with exactly these values.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Label returns the step name, or its position when unnamed.
func (s Step) Label(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("steps[%d]", index)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		step.Method = strings.ToUpper(step.Method)

		if !allowedMethods[step.Method] {
			return fmt.Errorf("steps[%d]: unsupported method %q", i, step.Method)
		}
		if !strings.HasPrefix(step.Path, "/") {
			return fmt.Errorf("steps[%d]: path must start with /", i)
		}
		if step.Body != nil && step.RawBody != nil {
			return fmt.Errorf("steps[%d]: body and raw_body are mutually exclusive", i)
		}
		if step.Expect.Status < 100 || step.Expect.Status > 599 {
			return fmt.Errorf("steps[%d].expect: status must be a valid HTTP status, got %d", i, step.Expect.Status)
		}
		for name, path := range step.Save {
			if name == "" || path == "" {
				return fmt.Errorf("steps[%d].save: variable name and path are required", i)
			}
		}
	}

	return nil
}
