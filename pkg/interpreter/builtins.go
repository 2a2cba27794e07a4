package interpreter

import (
	"knack/interpreter-go/pkg/runtime"
)

// InstallCoreCommands registers the built-in commands on scope's current
// record. Hosts extend the table with runtime.Scope.DefineCommand; a
// negative arity disables the count check.
func InstallCoreCommands(scope *runtime.Scope) {
	scope.DefineCommand(runtime.Command{Name: "add", Arity: 2, Impl: addCommand})
}

func addCommand(args []runtime.Value) (runtime.Value, error) {
	left, ok := args[0].(runtime.IntValue)
	if !ok {
		return nil, newTypeMismatchError("add", 1, runtime.KindInt, args[0].Kind())
	}
	right, ok := args[1].(runtime.IntValue)
	if !ok {
		return nil, newTypeMismatchError("add", 2, runtime.KindInt, args[1].Kind())
	}
	return runtime.IntValue{Val: left.Val + right.Val}, nil
}
