package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"knack/interpreter-go/pkg/ast"
)

// Kind identifies the runtime type of a Value.
type Kind int

const (
	KindNothing Kind = iota
	KindInt
	KindString
	KindClosure
)

func (k Kind) String() string {
	switch k {
	case KindNothing:
		return "Nothing"
	case KindInt:
		return "Int"
	case KindString:
		return "String"
	case KindClosure:
		return "Closure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is the result of evaluating an element.
type Value interface {
	Kind() Kind
	String() string
}

// NothingValue is the unit value: the result of a Set and of an empty block.
type NothingValue struct{}

func (NothingValue) Kind() Kind     { return KindNothing }
func (NothingValue) String() string { return "nothing" }

// IntValue is a signed 64-bit integer.
type IntValue struct {
	Val int64
}

func (v IntValue) Kind() Kind     { return KindInt }
func (v IntValue) String() string { return strconv.FormatInt(v.Val, 10) }

// StringValue is a text value. Bare tokens evaluate to this, which is also
// how a call site names a command.
type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind     { return KindString }
func (v StringValue) String() string { return v.Val }

// ClosureValue pairs a block with the values its free variables held when
// the block literal was evaluated. Captured is built once at capture time
// and never mutated afterwards; it belongs to the closure, not to any
// scope record.
type ClosureValue struct {
	Block    *ast.Block
	Captured map[string]Value
}

func (v *ClosureValue) Kind() Kind { return KindClosure }

func (v *ClosureValue) String() string {
	return fmt.Sprintf("closure(%s)", strings.Join(v.Block.Params, ", "))
}

// CommandImpl is the host-side implementation of a named command. Arguments
// arrive already evaluated, in call order.
type CommandImpl func(args []Value) (Value, error)

// Command is a named operation registered with a scope record. Arity is the
// exact argument count the command accepts; a negative arity accepts any
// count.
type Command struct {
	Name  string
	Arity int
	Impl  CommandImpl
}
