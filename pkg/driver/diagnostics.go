package driver

import (
	"fmt"

	"knack/interpreter-go/pkg/ast"
)

// DiagnosticSeverity labels check findings.
type DiagnosticSeverity string

const (
	SeverityError   DiagnosticSeverity = "error"
	SeverityWarning DiagnosticSeverity = "warning"
)

// Diagnostic is one finding from the static check of a loaded program.
type Diagnostic struct {
	Severity DiagnosticSeverity
	Path     string
	Pack     string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Path, d.Severity, d.Message)
}

// Check statically verifies a loaded program. A variable read that no seeded
// variable or earlier top-level assignment covers is an error: evaluation
// would fail the same way. A command name outside knownCommands is a
// warning: at run time it falls through to the host resolver or the
// placeholder value.
func Check(program *Program, knownCommands []string) []Diagnostic {
	known := make(map[string]struct{}, len(program.Variables))
	for name := range program.Variables {
		known[name] = struct{}{}
	}
	commands := make(map[string]struct{}, len(knownCommands))
	for _, name := range knownCommands {
		commands[name] = struct{}{}
	}

	var diags []Diagnostic
	for _, src := range program.Sources {
		for _, name := range ast.ProgramFreeVariables(src.Elements, known) {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Path:     src.Origin,
				Pack:     src.Pack,
				Message:  fmt.Sprintf("Undefined variable '%s'", name),
			})
		}
		for _, name := range collectCommandNames(src.Elements) {
			if _, ok := commands[name]; ok {
				continue
			}
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Path:     src.Origin,
				Pack:     src.Pack,
				Message:  fmt.Sprintf("command '%s' is not registered and will defer to the host", name),
			})
		}
	}
	return diags
}

// collectCommandNames lists the bare command names called anywhere in the
// elements, including inside block bodies, in syntax order.
func collectCommandNames(elements []ast.Element) []string {
	var names []string
	var walk func(el ast.Element)
	walk = func(el ast.Element) {
		switch node := el.(type) {
		case *ast.Set:
			walk(node.Expr)
		case *ast.BlockLiteral:
			for _, command := range node.Block.Commands {
				walk(command)
			}
		case *ast.Call:
			if len(node.Elements) > 0 {
				if bare, ok := node.Elements[0].(*ast.Bare); ok {
					names = append(names, bare.Text)
				}
			}
			for _, child := range node.Elements {
				walk(child)
			}
		}
	}
	for _, el := range elements {
		walk(el)
	}
	return names
}
