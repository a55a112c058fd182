package harness

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entries/internal/doc"
)

// itemServer is a tiny handler with create/get semantics for exercising the
// runner without the real API.
func itemServer() http.Handler {
	var (
		mu    sync.Mutex
		items = map[string]json.RawMessage{}
	)

	writeJSON := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Item-Count", func() string {
			b, _ := json.Marshal(len(items))
			return string(b)
		}())
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /items", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !json.Valid(body) {
			writeJSON(w, http.StatusBadRequest, `{"error":"bad json"}`)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		id := "item-" + string(rune('0'+len(items)+1))
		items[id] = body
		writeJSON(w, http.StatusCreated, `{"id":"`+id+`","value":`+string(body)+`}`)
	})
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		body, ok := items[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, `{"error":"missing"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":"`+r.PathValue("id")+`","value":`+string(body)+`}`)
	})
	mux.HandleFunc("GET /plain", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "hello")
	})
	return mux
}

const roundTripYAML = `
name: harness_roundtrip
description: "Create an item, read it back through a saved id, miss an unknown one"
steps:
  - name: create
    method: post
    path: /items
    body:
      name: widget
      tags: [a, b]
      qty: 3
    expect:
      status: 201
      body:
        value: { name: widget }
    save:
      id: id
  - name: get
    method: GET
    path: /items/{{id}}
    expect:
      status: 200
      headers:
        X-Item-Count: "1"
      body:
        id: "{{id}}"
        value:
          tags: [a, b]
  - name: missing
    method: GET
    path: /items/nope
    expect:
      status: 404
      body: { error: missing }
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(roundTripYAML))
	require.NoError(t, err)

	assert.Equal(t, "harness_roundtrip", s.Name)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, "POST", s.Steps[0].Method, "methods are upper-cased")
	assert.Equal(t, map[string]string{"id": "id"}, s.Steps[0].Save)
	assert.Equal(t, 404, s.Steps[2].Expect.Status)
}

func TestLoadScenario_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(roundTripYAML), 0644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "harness_roundtrip", s.Name)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: a\ndescription: b\nstep: []\n",
			wantErr: "field step not found",
		},
		{
			name:    "missing name",
			yaml:    "description: b\nsteps: [{method: GET, path: /, expect: {status: 200}}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: a\nsteps: [{method: GET, path: /, expect: {status: 200}}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: a\ndescription: b\nsteps: []\n",
			wantErr: "steps list is required",
		},
		{
			name:    "bad method",
			yaml:    "name: a\ndescription: b\nsteps: [{method: FETCH, path: /, expect: {status: 200}}]\n",
			wantErr: `unsupported method "FETCH"`,
		},
		{
			name:    "relative path",
			yaml:    "name: a\ndescription: b\nsteps: [{method: GET, path: x, expect: {status: 200}}]\n",
			wantErr: "path must start with /",
		},
		{
			name:    "missing status",
			yaml:    "name: a\ndescription: b\nsteps: [{method: GET, path: /}]\n",
			wantErr: "status must be a valid HTTP status",
		},
		{
			name:    "body and raw body",
			yaml:    "name: a\ndescription: b\nsteps: [{method: POST, path: /, body: {}, raw_body: '{}', expect: {status: 200}}]\n",
			wantErr: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Passes(t *testing.T) {
	s, err := ParseScenario([]byte(roundTripYAML))
	require.NoError(t, err)

	result, err := Run(itemServer(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "item-1", result.Vars["id"])

	require.Len(t, result.Transcript, 3)
	assert.Equal(t, "/items/item-1", result.Transcript[1].Path)
	assert.Equal(t, http.StatusNotFound, result.Transcript[2].Status)
}

func TestRun_ReportsMismatches(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: mismatches
description: "Every expectation is wrong"
steps:
  - method: POST
    path: /items
    body: { a: 1 }
    expect:
      status: 200
      headers:
        X-Item-Count: "7"
      body:
        value: { a: 2 }
`))
	require.NoError(t, err)

	result, err := Run(itemServer(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected status 200, got 201")
	assert.Contains(t, result.Errors[1], "$.value.a: expected 2, got 1")
	assert.Contains(t, result.Errors[2], `header X-Item-Count: expected "7", got "1"`)
}

func TestRun_UndefinedVariable(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: undefined
description: "Uses a variable nobody saved"
steps:
  - method: GET
    path: /items/{{nope}}
    expect: { status: 200 }
`))
	require.NoError(t, err)

	_, err = Run(itemServer(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undefined variable "nope"`)
}

func TestRun_RawBodyAndNonJSONResponse(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: raw
description: "Raw request body and plain-text response"
steps:
  - method: POST
    path: /items
    raw_body: "{not json"
    expect: { status: 400 }
  - method: GET
    path: /plain
    expect:
      status: 200
      body: hello
`))
	require.NoError(t, err)

	result, err := Run(itemServer(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, doc.String("{not json"), result.Transcript[0].Request)
	assert.Equal(t, doc.String("hello"), result.Transcript[1].Response)
}

func TestRun_SaveMissingPath(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: badsave
description: "Saves a field the response does not have"
steps:
  - method: POST
    path: /items
    body: {}
    expect: { status: 201 }
    save:
      id: value.nope
`))
	require.NoError(t, err)

	_, err = Run(itemServer(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `key "nope" not found`)
}

func TestMatchSubset(t *testing.T) {
	parse := func(s string) doc.Value {
		v, err := doc.Parse([]byte(s))
		require.NoError(t, err)
		return v
	}

	tests := []struct {
		name     string
		expected string
		actual   string
		want     string
	}{
		{"equal scalars", `5`, `5`, ""},
		{"extra keys allowed", `{"a":1}`, `{"a":1,"b":2}`, ""},
		{"nested subset", `{"a":{"b":1}}`, `{"a":{"b":1,"c":2}}`, ""},
		{"missing key", `{"a":1}`, `{"b":1}`, "$.a: missing"},
		{"array length", `[1]`, `[1,2]`, "$: expected 1 elements, got 2"},
		{"array element", `[{"a":1}]`, `[{"a":2}]`, "$[0].a: expected 1, got 2"},
		{"kind mismatch", `{"a":1}`, `[1]`, "$: expected object, got array"},
		{"string vs number", `"1"`, `1`, `$: expected "1", got 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchSubset("$", parse(tt.expected), parse(tt.actual)))
		})
	}

	assert.Equal(t, "$: expected object, got missing", matchSubset("$", doc.Object{}, nil))
}

func TestTranscript_Canonical(t *testing.T) {
	out, err := Transcript([]Exchange{
		{
			Step:     "create",
			Method:   "POST",
			Path:     "/items",
			Request:  doc.Object{"b": doc.Number("1"), "a": doc.String("<x>")},
			Status:   201,
			Response: doc.Object{"id": doc.String("item-1")},
		},
		{Step: "get", Method: "GET", Path: "/items/x", Status: 404},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`{"method":"POST","path":"/items","request":{"a":"<x>","b":1},"response":{"id":"item-1"},"status":201,"step":"create"}`+"\n"+
			`{"method":"GET","path":"/items/x","status":404,"step":"get"}`+"\n",
		string(out))
}

func TestRunWithGolden(t *testing.T) {
	s, err := ParseScenario([]byte(roundTripYAML))
	require.NoError(t, err)

	result, err := RunWithGolden(t, itemServer(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
}
