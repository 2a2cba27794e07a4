package runtime

import "testing"

func TestScopeRootIsNeverPopped(t *testing.T) {
	scope := NewScope()
	scope.DefineVariable("a", IntValue{Val: 1})

	scope.Exit()
	scope.Exit()

	if scope.Depth() != 1 {
		t.Fatalf("Depth = %d, want 1", scope.Depth())
	}
	if _, ok := scope.LookupVariable("a"); !ok {
		t.Fatalf("root binding lost after redundant exits")
	}
}

func TestScopeInnerRecordShadowsOuter(t *testing.T) {
	scope := NewScope()
	scope.DefineVariable("a", IntValue{Val: 1})

	scope.Enter()
	scope.DefineVariable("a", IntValue{Val: 2})

	value, ok := scope.LookupVariable("a")
	if !ok || value.(IntValue).Val != 2 {
		t.Fatalf("expected inner binding 2, got %v (ok=%v)", value, ok)
	}

	scope.Exit()
	value, ok = scope.LookupVariable("a")
	if !ok || value.(IntValue).Val != 1 {
		t.Fatalf("expected outer binding 1 restored, got %v (ok=%v)", value, ok)
	}
}

func TestScopeLookupWalksOutward(t *testing.T) {
	scope := NewScope()
	scope.DefineVariable("outer", StringValue{Val: "root"})
	scope.Enter()
	scope.Enter()

	value, ok := scope.LookupVariable("outer")
	if !ok || value.(StringValue).Val != "root" {
		t.Fatalf("expected root binding visible from depth %d, got %v (ok=%v)", scope.Depth(), value, ok)
	}
	if _, ok := scope.LookupVariable("missing"); ok {
		t.Fatalf("expected missing name to stay unresolved")
	}
}

func TestScopeCommandsFollowRecords(t *testing.T) {
	scope := NewScope()
	scope.DefineCommand(Command{Name: "add", Arity: 2})

	scope.Enter()
	if _, ok := scope.LookupCommand("add"); !ok {
		t.Fatalf("expected root command visible from inner record")
	}

	scope.DefineCommand(Command{Name: "mul", Arity: 2})
	scope.Exit()
	if _, ok := scope.LookupCommand("mul"); ok {
		t.Fatalf("expected inner command to vanish with its record")
	}
}

func TestScopeDefineOverwritesInPlace(t *testing.T) {
	scope := NewScope()
	scope.DefineVariable("a", IntValue{Val: 10})
	scope.DefineVariable("a", IntValue{Val: 1100})

	value, _ := scope.LookupVariable("a")
	if value.(IntValue).Val != 1100 {
		t.Fatalf("expected overwrite to win, got %v", value)
	}
	if scope.Depth() != 1 {
		t.Fatalf("Depth = %d, want 1", scope.Depth())
	}
}
