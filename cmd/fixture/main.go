// Command fixture evaluates one fixture directory and prints the outcome as
// JSON. The language has more than one implementation; comparing these
// snapshots keeps them in parity.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"knack/interpreter-go/pkg/ast"
	"knack/interpreter-go/pkg/interpreter"
	"knack/interpreter-go/pkg/runtime"
)

type fixtureManifest struct {
	Entry     string         `json:"entry"`
	Variables map[string]any `json:"variables"`
}

type outcomeValue struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

type outcomeError struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

type fixtureOutcome struct {
	Result *outcomeValue `json:"result,omitempty"`
	Stdout []string      `json:"stdout,omitempty"`
	Error  *outcomeError `json:"error,omitempty"`
}

func main() {
	dirFlag := flag.String("dir", "", "Path to fixture directory")
	entryFlag := flag.String("entry", "", "Override manifest entry file")
	flag.Parse()

	if *dirFlag == "" {
		fmt.Fprintln(os.Stderr, "--dir is required")
		os.Exit(1)
	}

	outcome, err := runFixture(*dirFlag, *entryFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluation failed: %v\n", err)
		os.Exit(1)
	}
	writeJSON(outcome)
}

func runFixture(dir, entryOverride string) (fixtureOutcome, error) {
	var outcome fixtureOutcome

	manifest, err := loadFixtureManifest(dir)
	if err != nil {
		return outcome, err
	}
	entry := manifest.Entry
	if entry == "" {
		entry = "program.knack"
	}
	if entryOverride != "" {
		entry = entryOverride
	}

	data, err := os.ReadFile(filepath.Join(dir, entry))
	if err != nil {
		return outcome, fmt.Errorf("read program: %w", err)
	}
	elements, err := ast.DecodeProgram(data)
	if err != nil {
		return outcome, fmt.Errorf("decode %s: %w", entry, err)
	}

	interp := interpreter.New()
	registerPrint(interp, &outcome.Stdout)
	for name, raw := range manifest.Variables {
		val, err := manifestValue(raw)
		if err != nil {
			return outcome, fmt.Errorf("variable %s: %w", name, err)
		}
		interp.Scope().DefineVariable(name, val)
	}

	// Evaluation failures are part of the outcome, not harness failures.
	result, err := interp.EvaluateProgram(elements)
	if err != nil {
		outcome.Error = normalizeError(err)
		return outcome, nil
	}
	outcome.Result = normalizeValue(result)
	return outcome, nil
}

func loadFixtureManifest(dir string) (fixtureManifest, error) {
	var manifest fixtureManifest
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return manifest, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("decode manifest: %w", err)
	}
	return manifest, nil
}

func manifestValue(raw any) (runtime.Value, error) {
	switch v := raw.(type) {
	case float64:
		return runtime.IntValue{Val: int64(v)}, nil
	case string:
		return runtime.StringValue{Val: v}, nil
	case nil:
		return runtime.NothingValue{}, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", raw)
	}
}

func normalizeValue(val runtime.Value) *outcomeValue {
	out := &outcomeValue{Kind: val.Kind().String()}
	if val.Kind() != runtime.KindNothing {
		out.Value = val.String()
	}
	return out
}

func normalizeError(err error) *outcomeError {
	out := &outcomeError{Message: err.Error()}
	var evalErr *interpreter.EvalError
	if errors.As(err, &evalErr) {
		out.Kind = string(evalErr.Kind)
	}
	return out
}

func registerPrint(interp *interpreter.Interpreter, buffer *[]string) {
	interp.Scope().DefineCommand(runtime.Command{
		Name:  "print",
		Arity: -1,
		Impl: func(args []runtime.Value) (runtime.Value, error) {
			parts := make([]string, len(args))
			for i, arg := range args {
				parts[i] = arg.String()
			}
			*buffer = append(*buffer, strings.Join(parts, " "))
			return runtime.NothingValue{}, nil
		},
	})
}

func writeJSON(outcome fixtureOutcome) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "")
	if err := enc.Encode(outcome); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}
