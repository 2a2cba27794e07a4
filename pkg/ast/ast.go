package ast

type NodeType string

const (
	NodeVariable NodeType = "Variable"
	NodeBare     NodeType = "Bare"
	NodeNumber   NodeType = "Number"
	NodeSet      NodeType = "Set"
	NodeBlock    NodeType = "Block"
	NodeCall     NodeType = "Call"
)

// Element is a single expression node in a knack program tree. Nodes are
// immutable once constructed; evaluation never rewrites them.
type Element interface {
	NodeType() NodeType
	isElement()
}

type elementImpl struct {
	Type NodeType `json:"type"`
}

func newElementImpl(kind NodeType) elementImpl {
	return elementImpl{Type: kind}
}

func (e elementImpl) NodeType() NodeType { return e.Type }
func (elementImpl) isElement()           {}

// Variable references a bound name.
type Variable struct {
	elementImpl

	Name string `json:"name"`
}

func NewVariable(name string) *Variable {
	return &Variable{elementImpl: newElementImpl(NodeVariable), Name: name}
}

// Bare is a literal text token. It evaluates to a string value and doubles
// as a command-name designator at call sites.
type Bare struct {
	elementImpl

	Text string `json:"text"`
}

func NewBare(text string) *Bare {
	return &Bare{elementImpl: newElementImpl(NodeBare), Text: text}
}

// Number is a signed 64-bit integer literal.
type Number struct {
	elementImpl

	Value int64 `json:"value"`
}

func NewNumber(value int64) *Number {
	return &Number{elementImpl: newElementImpl(NodeNumber), Value: value}
}

// Set binds the value of Expr to Name in the innermost activation record.
// A Set evaluates to the unit value.
type Set struct {
	elementImpl

	Name string  `json:"name"`
	Expr Element `json:"expr"`
}

func NewSet(name string, expr Element) *Set {
	return &Set{elementImpl: newElementImpl(NodeSet), Name: name, Expr: expr}
}

// BlockLiteral wraps a Block as an expression. Evaluating it produces a
// closure value; it never runs the block's commands.
type BlockLiteral struct {
	elementImpl

	Block *Block `json:"block"`
}

func NewBlockLiteral(block *Block) *BlockLiteral {
	return &BlockLiteral{elementImpl: newElementImpl(NodeBlock), Block: block}
}

// Call applies its first element, once evaluated, to the remaining elements.
// The front end guarantees at least one element.
type Call struct {
	elementImpl

	Elements []Element `json:"elements"`
}

func NewCall(elements []Element) *Call {
	return &Call{elementImpl: newElementImpl(NodeCall), Elements: elements}
}

// Block is a parameterized command sequence. Its value when invoked is the
// last command's value, or the unit value when it has no commands.
// Duplicate parameter names are not rejected here; that is the front end's
// responsibility.
type Block struct {
	Params   []string  `json:"params"`
	Commands []Element `json:"commands"`
}

func NewBlock(params []string, commands []Element) *Block {
	if params == nil {
		params = []string{}
	}
	if commands == nil {
		commands = []Element{}
	}
	return &Block{Params: params, Commands: commands}
}
