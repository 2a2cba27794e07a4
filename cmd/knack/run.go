package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"knack/interpreter-go/pkg/driver"
	"knack/interpreter-go/pkg/interpreter"
	"knack/interpreter-go/pkg/runtime"
)

type executionMode int

const (
	modeRun executionMode = iota
	modeCheck
)

func runEntry(args []string) int {
	return runEntryWithMode(args, modeRun)
}

func runCheck(args []string) int {
	return runEntryWithMode(args, modeCheck)
}

func runEntryWithMode(args []string, mode executionMode) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return 1
	}

	if len(args) == 1 {
		candidate := args[0]
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return executeManifest(candidate, mode)
		}
		return executeFile(candidate, mode)
	}

	return executeManifest(".", mode)
}

// executeManifest stages the whole package: locked packs first, then the
// root package's programs, all in one scope.
func executeManifest(start string, mode executionMode) int {
	manifest, err := loadManifestFrom(start)
	if err != nil {
		if errors.Is(err, errManifestNotFound) {
			fmt.Fprintf(os.Stderr, "%s requires a %s or a source file argument\n", modeCommandLabel(mode), driver.ManifestName)
			return 1
		}
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return 1
	}
	lock, err := loadLockfileForManifest(manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	cacheRoot, err := packCacheRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	program, err := driver.NewLoader(cacheRoot).Load(manifest, lock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load program: %v\n", err)
		return 1
	}
	return executeProgram(program, mode)
}

// executeFile evaluates one program file standalone: fresh scope, no
// manifest variables, no packs.
func executeFile(path string, mode executionMode) int {
	path = strings.TrimSpace(path)
	if path == "" {
		fmt.Fprintf(os.Stderr, "%s requires a source file\n", modeCommandLabel(mode))
		return 1
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve path %s: %v\n", path, err)
		return 1
	}
	elements, err := driver.LoadProgramFile(abs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	program := &driver.Program{
		Sources: []driver.Source{{Origin: abs, Elements: elements}},
	}
	return executeProgram(program, mode)
}

func executeProgram(program *driver.Program, mode executionMode) int {
	if mode == modeCheck {
		return reportDiagnostics(program)
	}

	interp := interpreter.New()
	registerPrint(interp.Scope())
	for name, val := range program.Variables {
		interp.Scope().DefineVariable(name, val)
	}

	var last runtime.Value = runtime.NothingValue{}
	for _, src := range program.Sources {
		val, err := interp.EvaluateProgram(src.Elements)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", src.Origin, err)
			return 1
		}
		last = val
	}
	if last.Kind() != runtime.KindNothing {
		fmt.Fprintln(os.Stdout, last.String())
	}
	return 0
}

func reportDiagnostics(program *driver.Program) int {
	diags := driver.Check(program, knownCommandNames())
	failed := false
	for _, diag := range diags {
		fmt.Fprintln(os.Stderr, diag.String())
		if diag.Severity == driver.SeverityError {
			failed = true
		}
	}
	if failed {
		return 1
	}
	fmt.Fprintln(os.Stdout, "check: ok")
	return 0
}

// knownCommandNames lists the commands a CLI-run scope registers: the core
// table plus the CLI's own print.
func knownCommandNames() []string {
	return []string{"add", "print"}
}

// registerPrint adds the CLI's variadic print command to the root record.
// It writes its arguments to stdout, space separated, and yields nothing.
func registerPrint(scope *runtime.Scope) {
	scope.DefineCommand(runtime.Command{
		Name:  "print",
		Arity: -1,
		Impl: func(args []runtime.Value) (runtime.Value, error) {
			parts := make([]string, 0, len(args))
			for _, arg := range args {
				parts = append(parts, arg.String())
			}
			fmt.Fprintln(os.Stdout, strings.Join(parts, " "))
			return runtime.NothingValue{}, nil
		},
	})
}

func modeCommandLabel(mode executionMode) string {
	switch mode {
	case modeCheck:
		return "knack check"
	default:
		return "knack run"
	}
}
