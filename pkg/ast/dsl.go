package ast

// Element constructors for tests and embedding hosts.

func Var(name string) *Variable {
	return NewVariable(name)
}

func Str(text string) *Bare {
	return NewBare(text)
}

func Num(value int64) *Number {
	return NewNumber(value)
}

func Assign(name string, expr Element) *Set {
	return NewSet(name, expr)
}

func Blk(params []string, commands ...Element) *BlockLiteral {
	return NewBlockLiteral(NewBlock(params, commands))
}

func CallExpr(elements ...Element) *Call {
	return NewCall(elements)
}
