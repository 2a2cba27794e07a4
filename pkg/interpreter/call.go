package interpreter

import (
	"fmt"

	"knack/interpreter-go/pkg/ast"
	"knack/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateCall(call *ast.Call) (runtime.Value, error) {
	if len(call.Elements) == 0 {
		return nil, fmt.Errorf("call requires a callee")
	}
	head, err := i.evaluateElement(call.Elements[0])
	if err != nil {
		return nil, err
	}
	switch callee := head.(type) {
	case *runtime.ClosureValue:
		args, err := i.evaluateArguments(call.Elements[1:])
		if err != nil {
			return nil, err
		}
		return i.invokeClosure(callee, args)
	case runtime.StringValue:
		args, err := i.evaluateArguments(call.Elements[1:])
		if err != nil {
			return nil, err
		}
		return i.invokeCommand(callee.Val, args)
	default:
		return nil, newNotCallableError(head.Kind())
	}
}

func (i *Interpreter) evaluateArguments(elements []ast.Element) ([]runtime.Value, error) {
	args := make([]runtime.Value, 0, len(elements))
	for _, el := range elements {
		val, err := i.evaluateElement(el)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return args, nil
}

// invokeClosure runs a closure's block in a fresh activation record.
// Arguments are evaluated before the arity check, so their side effects land
// even when the call itself is rejected. Captured values bind after the
// parameters in the same record: a captured name that collides with a
// parameter replaces the argument value.
func (i *Interpreter) invokeClosure(closure *runtime.ClosureValue, args []runtime.Value) (runtime.Value, error) {
	params := closure.Block.Params
	if len(args) != len(params) {
		return nil, newBlockArityError(len(params), len(args))
	}
	i.scope.Enter()
	defer i.scope.Exit()
	for idx, param := range params {
		i.scope.DefineVariable(param, args[idx])
	}
	for name, val := range closure.Captured {
		i.scope.DefineVariable(name, val)
	}
	var result runtime.Value = runtime.NothingValue{}
	for _, command := range closure.Block.Commands {
		val, err := i.evaluateElement(command)
		if err != nil {
			return nil, err
		}
		result = val
	}
	return result, nil
}

// invokeCommand dispatches a string callee: a command registered on the
// scope wins, otherwise the call is handed to the resolver. Without a
// resolver the call yields ExternalCommandPlaceholder rather than failing.
func (i *Interpreter) invokeCommand(name string, args []runtime.Value) (runtime.Value, error) {
	if cmd, ok := i.scope.LookupCommand(name); ok {
		if cmd.Arity >= 0 && len(args) != cmd.Arity {
			return nil, newCommandArityError(name, cmd.Arity, len(args))
		}
		return cmd.Impl(args)
	}
	if i.resolver != nil {
		return i.resolver(name, args)
	}
	return ExternalCommandPlaceholder, nil
}
