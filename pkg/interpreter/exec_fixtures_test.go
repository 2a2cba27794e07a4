package interpreter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"knack/interpreter-go/pkg/ast"
	"knack/interpreter-go/pkg/runtime"
)

type fixtureManifest struct {
	Description string         `json:"description"`
	Entry       string         `json:"entry"`
	Variables   map[string]any `json:"variables"`
	Expect      struct {
		Result *struct {
			Kind  string `json:"kind"`
			Value any    `json:"value"`
		} `json:"result"`
		Error *struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"expect"`
}

func TestExecFixtures(t *testing.T) {
	root := filepath.Join("testdata", "exec")
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read fixture root: %v", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		t.Run(entry.Name(), func(t *testing.T) {
			runExecFixture(t, dir)
		})
	}
}

func runExecFixture(t *testing.T, dir string) {
	t.Helper()
	manifest := readFixtureManifest(t, dir)
	entry := manifest.Entry
	if entry == "" {
		entry = "program.knack"
	}
	data, err := os.ReadFile(filepath.Join(dir, entry))
	if err != nil {
		t.Fatalf("read program: %v", err)
	}
	elements, err := ast.DecodeProgram(data)
	if err != nil {
		t.Fatalf("decode program: %v", err)
	}

	interp := New()
	for name, raw := range manifest.Variables {
		val, err := fixtureValue(raw)
		if err != nil {
			t.Fatalf("variable %s: %v", name, err)
		}
		interp.Scope().DefineVariable(name, val)
	}

	result, err := interp.EvaluateProgram(elements)
	if expect := manifest.Expect.Error; expect != nil {
		if err == nil {
			t.Fatalf("expected %s, got result %#v", expect.Kind, result)
		}
		if expect.Kind != "" && !HasKind(err, ErrorKind(expect.Kind)) {
			t.Fatalf("unexpected error: %v", err)
		}
		if expect.Message != "" && !strings.Contains(err.Error(), expect.Message) {
			t.Fatalf("error %q does not mention %q", err.Error(), expect.Message)
		}
		return
	}
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if expect := manifest.Expect.Result; expect != nil {
		assertFixtureResult(t, result, expect.Kind, expect.Value)
	}
}

func readFixtureManifest(t *testing.T, dir string) fixtureManifest {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest fixtureManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	return manifest
}

func fixtureValue(raw any) (runtime.Value, error) {
	switch v := raw.(type) {
	case float64:
		return runtime.IntValue{Val: int64(v)}, nil
	case string:
		return runtime.StringValue{Val: v}, nil
	case nil:
		return runtime.NothingValue{}, nil
	default:
		return nil, fmt.Errorf("unsupported fixture value %T", raw)
	}
}

func assertFixtureResult(t *testing.T, val runtime.Value, kind string, expected any) {
	t.Helper()
	if got := val.Kind().String(); got != kind {
		t.Fatalf("result kind = %s, want %s", got, kind)
	}
	switch kind {
	case "Int":
		want, ok := expected.(float64)
		if !ok {
			t.Fatalf("fixture expects non-numeric value %#v", expected)
		}
		if num := val.(runtime.IntValue); num.Val != int64(want) {
			t.Fatalf("result = %d, want %d", num.Val, int64(want))
		}
	case "String":
		want, ok := expected.(string)
		if !ok {
			t.Fatalf("fixture expects non-string value %#v", expected)
		}
		if str := val.(runtime.StringValue); str.Val != want {
			t.Fatalf("result = %q, want %q", str.Val, want)
		}
	case "Nothing", "Closure":
	default:
		t.Fatalf("unsupported expectation kind %q", kind)
	}
}
