package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"

	"github.com/roach88/entries/internal/doc"
)

// Exchange is one request/response pair in a transcript.
type Exchange struct {
	Step     string
	Method   string
	Path     string
	Request  doc.Value // nil when the request had no body
	Status   int
	Response doc.Value // nil when the response had no body
	Header   http.Header
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation matched.
	Pass bool

	// Transcript holds every exchange in order.
	Transcript []Exchange

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string

	// Vars holds the variables saved during the run.
	Vars map[string]string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Transcript: []Exchange{},
		Errors:     []string{},
		Vars:       map[string]string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes every step of scenario against handler.
//
// Expectation mismatches are reported in the Result; the returned error is
// reserved for scenarios that cannot be executed at all (an undefined
// variable, a body that cannot be encoded, a save path that is missing).
func Run(handler http.Handler, scenario *Scenario) (*Result, error) {
	result := NewResult()

	for i, step := range scenario.Steps {
		label := step.Label(i)
		if err := runStep(handler, step, label, result); err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
	}

	return result, nil
}

func runStep(handler http.Handler, step Step, label string, result *Result) error {
	path, err := substitute(step.Path, result.Vars)
	if err != nil {
		return err
	}

	var (
		reqBody []byte
		reqDoc  doc.Value
	)
	switch {
	case step.RawBody != nil:
		raw, err := substitute(*step.RawBody, result.Vars)
		if err != nil {
			return err
		}
		reqBody = []byte(raw)
		reqDoc = parseBody(reqBody)
	case step.Body != nil:
		reqDoc, err = toValue(step.Body, result.Vars)
		if err != nil {
			return fmt.Errorf("body: %w", err)
		}
		reqBody, err = doc.Marshal(reqDoc)
		if err != nil {
			return fmt.Errorf("body: %w", err)
		}
	}

	req := httptest.NewRequest(step.Method, path, bytes.NewReader(reqBody))
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range step.Headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	exchange := Exchange{
		Step:     label,
		Method:   step.Method,
		Path:     path,
		Request:  reqDoc,
		Status:   rec.Code,
		Response: parseBody(rec.Body.Bytes()),
		Header:   rec.Header(),
	}
	result.Transcript = append(result.Transcript, exchange)

	if exchange.Status != step.Expect.Status {
		result.AddError(fmt.Sprintf("%s: %s %s: expected status %d, got %d (body: %s)",
			label, step.Method, path, step.Expect.Status, exchange.Status, rec.Body.String()))
	}

	if step.Expect.Body != nil {
		want, err := toValue(step.Expect.Body, result.Vars)
		if err != nil {
			return fmt.Errorf("expect.body: %w", err)
		}
		if mismatch := matchSubset("$", want, exchange.Response); mismatch != "" {
			result.AddError(fmt.Sprintf("%s: %s %s: body %s", label, step.Method, path, mismatch))
		}
	}

	for k, want := range step.Expect.Headers {
		want, err := substitute(want, result.Vars)
		if err != nil {
			return err
		}
		if got := rec.Header().Get(k); got != want {
			result.AddError(fmt.Sprintf("%s: %s %s: header %s: expected %q, got %q",
				label, step.Method, path, k, want, got))
		}
	}

	for name, fieldPath := range step.Save {
		v, err := lookupPath(exchange.Response, fieldPath)
		if err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		result.Vars[name] = v
	}

	return nil
}

// parseBody decodes a JSON body. Non-JSON bodies are kept as a string so
// they still appear in transcripts.
func parseBody(body []byte) doc.Value {
	if len(body) == 0 {
		return nil
	}
	v, err := doc.Parse(body)
	if err != nil {
		return doc.String(body)
	}
	return v
}

var varPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// substitute replaces {{name}} references with saved variables.
func substitute(s string, vars map[string]string) (string, error) {
	var missing string
	out := varPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := varPattern.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("undefined variable %q", missing)
	}
	return out, nil
}

// toValue converts a YAML-decoded value to a doc.Value, substituting
// variables in every string.
func toValue(v any, vars map[string]string) (doc.Value, error) {
	substituted, err := substituteAny(v, vars)
	if err != nil {
		return nil, err
	}
	return doc.FromAny(substituted)
}

func substituteAny(v any, vars map[string]string) (any, error) {
	switch val := v.(type) {
	case string:
		return substitute(val, vars)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			s, err := substituteAny(elem, vars)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			s, err := substituteAny(elem, vars)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
		return out, nil
	default:
		return v, nil
	}
}
