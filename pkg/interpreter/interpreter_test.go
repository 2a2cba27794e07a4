package interpreter

import (
	"testing"

	"knack/interpreter-go/pkg/ast"
	"knack/interpreter-go/pkg/runtime"
)

func TestEvaluateNumberLiteral(t *testing.T) {
	interp := New()
	val, err := interp.Evaluate(ast.Num(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	num, ok := val.(runtime.IntValue)
	if !ok || num.Val != 3 {
		t.Fatalf("unexpected value %#v", val)
	}
}

func TestEvaluateBareIsString(t *testing.T) {
	interp := New()
	val, err := interp.Evaluate(ast.Str("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	str, ok := val.(runtime.StringValue)
	if !ok || str.Val != "hello" {
		t.Fatalf("unexpected value %#v", val)
	}
}

func TestEvaluateVariableLookup(t *testing.T) {
	interp := New()
	interp.Scope().DefineVariable("greeting", runtime.StringValue{Val: "hello"})

	val, err := interp.Evaluate(ast.Var("greeting"))
	if err != nil {
		t.Fatalf("variable lookup failed: %v", err)
	}
	str, ok := val.(runtime.StringValue)
	if !ok || str.Val != "hello" {
		t.Fatalf("unexpected value %#v", val)
	}
}

func TestEvaluateUnboundVariableFails(t *testing.T) {
	interp := New()
	_, err := interp.Evaluate(ast.Var("z"))
	if err == nil {
		t.Fatalf("expected unbound variable error")
	}
	if !HasKind(err, ErrUnboundVariable) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetBindsAndReturnsNothing(t *testing.T) {
	interp := New()
	val, err := interp.Evaluate(ast.Assign("b", ast.Num(11)))
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}
	if _, ok := val.(runtime.NothingValue); !ok {
		t.Fatalf("assignment result = %#v, want nothing", val)
	}

	bound, err := interp.Evaluate(ast.Var("b"))
	if err != nil {
		t.Fatalf("lookup after assignment failed: %v", err)
	}
	num, ok := bound.(runtime.IntValue)
	if !ok || num.Val != 11 {
		t.Fatalf("unexpected binding %#v", bound)
	}
}

func TestBlockLiteralEvaluatesToClosure(t *testing.T) {
	interp := New()
	interp.Scope().DefineVariable("a", runtime.IntValue{Val: 10})

	val, err := interp.Evaluate(ast.Blk([]string{"d"},
		ast.CallExpr(ast.Str("add"), ast.Var("d"), ast.Var("a")),
	))
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	closure, ok := val.(*runtime.ClosureValue)
	if !ok {
		t.Fatalf("unexpected value %#v", val)
	}
	if len(closure.Block.Params) != 1 || closure.Block.Params[0] != "d" {
		t.Fatalf("unexpected params %v", closure.Block.Params)
	}
	captured, ok := closure.Captured["a"]
	if !ok || len(closure.Captured) != 1 {
		t.Fatalf("unexpected capture set %#v", closure.Captured)
	}
	num, ok := captured.(runtime.IntValue)
	if !ok || num.Val != 10 {
		t.Fatalf("captured a = %#v, want Int 10", captured)
	}
}

func TestCaptureRequiresEveryFreeVariable(t *testing.T) {
	interp := New()
	interp.Scope().DefineVariable("x", runtime.IntValue{Val: 1})

	_, err := interp.Evaluate(ast.Blk(nil,
		ast.CallExpr(ast.Str("add"), ast.Var("x"), ast.Var("z")),
	))
	if err == nil {
		t.Fatalf("expected capture to fail on unresolved free variable")
	}
	if !HasKind(err, ErrUnboundVariable) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClosureObservesCaptureTimeValues(t *testing.T) {
	interp := New()
	program := []ast.Element{
		ast.Assign("a", ast.Num(10)),
		ast.Assign("myblock", ast.Blk([]string{"d"},
			ast.CallExpr(ast.Str("add"), ast.Var("d"), ast.Var("a")),
		)),
		ast.CallExpr(ast.Var("myblock"), ast.Num(12)),
	}
	val, err := interp.EvaluateProgram(program)
	if err != nil {
		t.Fatalf("program evaluation failed: %v", err)
	}
	num, ok := val.(runtime.IntValue)
	if !ok || num.Val != 22 {
		t.Fatalf("first call = %#v, want Int 22", val)
	}

	if _, err := interp.Evaluate(ast.Assign("a", ast.Num(1100))); err != nil {
		t.Fatalf("reassignment failed: %v", err)
	}
	val, err = interp.Evaluate(ast.CallExpr(ast.Var("myblock"), ast.Num(12)))
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	num, ok = val.(runtime.IntValue)
	if !ok || num.Val != 22 {
		t.Fatalf("second call = %#v, want the captured value to win", val)
	}
}

func TestCallFrameIsolation(t *testing.T) {
	interp := New()
	program := []ast.Element{
		ast.Assign("d", ast.Str("outer")),
		ast.Assign("echo", ast.Blk([]string{"d"}, ast.Var("d"))),
	}
	if _, err := interp.EvaluateProgram(program); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	val, err := interp.Evaluate(ast.CallExpr(ast.Var("echo"), ast.Num(5)))
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	num, ok := val.(runtime.IntValue)
	if !ok || num.Val != 5 {
		t.Fatalf("parameter did not shadow outer binding: %#v", val)
	}

	outer, err := interp.Evaluate(ast.Var("d"))
	if err != nil {
		t.Fatalf("outer lookup failed: %v", err)
	}
	str, ok := outer.(runtime.StringValue)
	if !ok || str.Val != "outer" {
		t.Fatalf("outer binding changed: %#v", outer)
	}
	if depth := interp.Scope().Depth(); depth != 1 {
		t.Fatalf("scope depth = %d after call, want 1", depth)
	}
}

func TestEmptyBlockBodyYieldsNothing(t *testing.T) {
	interp := New()
	val, err := interp.Evaluate(ast.CallExpr(ast.Blk(nil)))
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if _, ok := val.(runtime.NothingValue); !ok {
		t.Fatalf("empty block result = %#v, want nothing", val)
	}
}

func TestEvaluateProgramReturnsLastValue(t *testing.T) {
	interp := New()
	val, err := interp.EvaluateProgram([]ast.Element{
		ast.Assign("a", ast.Num(1)),
		ast.Num(2),
		ast.Num(3),
	})
	if err != nil {
		t.Fatalf("program evaluation failed: %v", err)
	}
	num, ok := val.(runtime.IntValue)
	if !ok || num.Val != 3 {
		t.Fatalf("unexpected result %#v", val)
	}
}

func TestEvaluateEmptyProgramYieldsNothing(t *testing.T) {
	interp := New()
	val, err := interp.EvaluateProgram(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := val.(runtime.NothingValue); !ok {
		t.Fatalf("unexpected result %#v", val)
	}
}
