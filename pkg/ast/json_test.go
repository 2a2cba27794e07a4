package ast

import (
	"reflect"
	"strings"
	"testing"
)

func TestDecodeProgram(t *testing.T) {
	source := `[
  {"type": "Set", "name": "a", "expr": {"type": "Number", "value": 10}},
  {"type": "Set", "name": "myblock", "expr": {"type": "Block", "block": {
    "params": ["d"],
    "commands": [
      {"type": "Call", "elements": [
        {"type": "Bare", "text": "add"},
        {"type": "Variable", "name": "d"},
        {"type": "Variable", "name": "a"}
      ]}
    ]
  }}},
  {"type": "Call", "elements": [
    {"type": "Variable", "name": "myblock"},
    {"type": "Number", "value": 12}
  ]}
]`
	elements, err := DecodeProgram([]byte(source))
	if err != nil {
		t.Fatalf("DecodeProgram: %v", err)
	}
	if len(elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(elements))
	}

	set, ok := elements[0].(*Set)
	if !ok || set.Name != "a" {
		t.Fatalf("expected Set a, got %#v", elements[0])
	}
	if num, ok := set.Expr.(*Number); !ok || num.Value != 10 {
		t.Fatalf("expected Number 10, got %#v", set.Expr)
	}

	blockSet, ok := elements[1].(*Set)
	if !ok {
		t.Fatalf("expected Set myblock, got %#v", elements[1])
	}
	lit, ok := blockSet.Expr.(*BlockLiteral)
	if !ok {
		t.Fatalf("expected Block literal, got %#v", blockSet.Expr)
	}
	if !reflect.DeepEqual(lit.Block.Params, []string{"d"}) {
		t.Fatalf("expected params [d], got %v", lit.Block.Params)
	}
	if len(lit.Block.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(lit.Block.Commands))
	}

	call, ok := elements[2].(*Call)
	if !ok || len(call.Elements) != 2 {
		t.Fatalf("expected 2-element Call, got %#v", elements[2])
	}
}

func TestDecodeElementRejectsUnknownType(t *testing.T) {
	_, err := DecodeElement([]byte(`{"type": "Lambda", "name": "x"}`))
	if err == nil || !strings.Contains(err.Error(), `unknown element type "Lambda"`) {
		t.Fatalf("expected unknown-type error, got %v", err)
	}
}

func TestDecodeElementRejectsMissingFields(t *testing.T) {
	cases := map[string]string{
		"missing type":  `{"name": "x"}`,
		"variable name": `{"type": "Variable"}`,
		"number value":  `{"type": "Number"}`,
		"set expr":      `{"type": "Set", "name": "x"}`,
		"block body":    `{"type": "Block"}`,
		"empty call":    `{"type": "Call", "elements": []}`,
	}
	for label, source := range cases {
		if _, err := DecodeElement([]byte(source)); err == nil {
			t.Fatalf("%s: expected a decode error", label)
		}
	}
}

func TestDecodeProgramRequiresArray(t *testing.T) {
	if _, err := DecodeProgram([]byte(`{"type": "Number", "value": 1}`)); err == nil {
		t.Fatalf("expected error for non-array program")
	}
}

func TestEncodeProgramRoundTrip(t *testing.T) {
	program := []Element{
		Assign("a", Num(10)),
		Assign("greet", Str("hello")),
		Assign("myblock", Blk([]string{"d"},
			CallExpr(Str("add"), Var("d"), Var("a")),
		)),
		CallExpr(Var("myblock"), Num(12)),
	}
	data, err := EncodeProgram(program)
	if err != nil {
		t.Fatalf("EncodeProgram: %v", err)
	}
	decoded, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("DecodeProgram: %v", err)
	}
	if !reflect.DeepEqual(decoded, program) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", decoded, program)
	}
}
