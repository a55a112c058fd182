package harness

import (
	"bytes"
	"net/http"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/entries/internal/doc"
)

// Transcript renders exchanges as canonical JSON, one exchange per line.
func Transcript(exchanges []Exchange) ([]byte, error) {
	var buf bytes.Buffer
	for _, ex := range exchanges {
		line, err := doc.MarshalCanonical(ex.toValue())
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (ex Exchange) toValue() doc.Object {
	obj := doc.Object{
		"step":   doc.String(ex.Step),
		"method": doc.String(ex.Method),
		"path":   doc.String(ex.Path),
		"status": doc.Number(strconv.Itoa(ex.Status)),
	}
	if ex.Request != nil {
		obj["request"] = ex.Request
	}
	if ex.Response != nil {
		obj["response"] = ex.Response
	}
	return obj
}

// RunWithGolden executes a scenario, reports expectation failures through t
// and compares the transcript against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/api -update
//
// The handler must be deterministic (fixed clock and ids) for the
// comparison to be stable.
func RunWithGolden(t *testing.T, handler http.Handler, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(handler, scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's transcript against a golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	transcript, err := Transcript(result.Transcript)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, transcript)

	return nil
}
