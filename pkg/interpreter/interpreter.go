package interpreter

import (
	"fmt"

	"knack/interpreter-go/pkg/ast"
	"knack/interpreter-go/pkg/runtime"
)

// Resolver handles command calls that match neither a closure nor a command
// registered on the scope. It receives the command name and the already
// evaluated argument values.
type Resolver func(name string, args []runtime.Value) (runtime.Value, error)

// ExternalCommandPlaceholder is the value an unresolved command call produces
// when the interpreter has no Resolver installed.
var ExternalCommandPlaceholder runtime.Value = runtime.StringValue{Val: "Ran an external command"}

// Interpreter evaluates elements against a scope stack. It is single
// threaded; each concurrent evaluation needs its own Interpreter.
type Interpreter struct {
	scope    *runtime.Scope
	resolver Resolver
}

// New returns an interpreter with a fresh root scope and the core commands
// installed.
func New() *Interpreter {
	return NewWithResolver(nil)
}

// NewWithResolver is New with a handler for unresolved command calls.
func NewWithResolver(resolver Resolver) *Interpreter {
	i := &Interpreter{
		scope:    runtime.NewScope(),
		resolver: resolver,
	}
	InstallCoreCommands(i.scope)
	return i
}

// Scope returns the interpreter's scope stack. Hosts seed initial variables
// and extra commands through it before evaluation begins.
func (i *Interpreter) Scope() *runtime.Scope {
	return i.scope
}

// EvaluateProgram evaluates elements in order and returns the value of the
// last one, or nothing for an empty program.
func (i *Interpreter) EvaluateProgram(elements []ast.Element) (runtime.Value, error) {
	var last runtime.Value = runtime.NothingValue{}
	for _, el := range elements {
		val, err := i.evaluateElement(el)
		if err != nil {
			return nil, err
		}
		last = val
	}
	return last, nil
}

// Evaluate evaluates a single element in the current scope.
func (i *Interpreter) Evaluate(el ast.Element) (runtime.Value, error) {
	return i.evaluateElement(el)
}

func (i *Interpreter) evaluateElement(el ast.Element) (runtime.Value, error) {
	switch node := el.(type) {
	case *ast.Variable:
		val, ok := i.scope.LookupVariable(node.Name)
		if !ok {
			return nil, newUnboundVariableError(node.Name)
		}
		return val, nil
	case *ast.Bare:
		return runtime.StringValue{Val: node.Text}, nil
	case *ast.Number:
		return runtime.IntValue{Val: node.Value}, nil
	case *ast.Set:
		val, err := i.evaluateElement(node.Expr)
		if err != nil {
			return nil, newSetFailedError(node.Name, err)
		}
		i.scope.DefineVariable(node.Name, val)
		return runtime.NothingValue{}, nil
	case *ast.BlockLiteral:
		return i.captureBlock(node.Block)
	case *ast.Call:
		return i.evaluateCall(node)
	default:
		return nil, fmt.Errorf("unsupported element %T", el)
	}
}

// captureBlock turns a block literal into a closure by snapshotting the
// current value of every free variable. Resolution is all or nothing: a
// closure is never built with a partial capture set.
func (i *Interpreter) captureBlock(block *ast.Block) (runtime.Value, error) {
	captured := make(map[string]runtime.Value)
	for _, name := range ast.BlockFreeVariables(block) {
		val, ok := i.scope.LookupVariable(name)
		if !ok {
			return nil, newUnboundVariableError(name)
		}
		captured[name] = val
	}
	return &runtime.ClosureValue{Block: block, Captured: captured}, nil
}
