package ast

// FreeVariables reports the names an element references without having
// bound them first, in first-occurrence order. Duplicates are preserved.
func FreeVariables(el Element) []string {
	return appendFreeVariables(nil, el, make(map[string]struct{}))
}

// BlockFreeVariables reports the free variables of a block, treating the
// block's own parameters as bound. This is the set a closure must capture.
func BlockFreeVariables(block *Block) []string {
	known := make(map[string]struct{}, len(block.Params))
	for _, param := range block.Params {
		known[param] = struct{}{}
	}
	var free []string
	for _, command := range block.Commands {
		free = appendFreeVariables(free, command, known)
	}
	return free
}

// ProgramFreeVariables reports the free variables of a sequence of top-level
// elements, given names the host has already bound. Top-level assignments
// accumulate into known, so callers can thread one map through several
// program files evaluated in order.
func ProgramFreeVariables(elements []Element, known map[string]struct{}) []string {
	if known == nil {
		known = make(map[string]struct{})
	}
	var free []string
	for _, el := range elements {
		free = appendFreeVariables(free, el, known)
	}
	return free
}

// appendFreeVariables folds over el with a mutable known-set threaded
// through siblings: a Set binds its name for later siblings only, and a
// nested block analyzes against a clone extended with its parameters, so
// parameter names never leak outward.
func appendFreeVariables(free []string, el Element, known map[string]struct{}) []string {
	switch node := el.(type) {
	case *Variable:
		if _, ok := known[node.Name]; !ok {
			free = append(free, node.Name)
		}
	case *Bare, *Number:
	case *Set:
		free = appendFreeVariables(free, node.Expr, known)
		known[node.Name] = struct{}{}
	case *BlockLiteral:
		inner := make(map[string]struct{}, len(known)+len(node.Block.Params))
		for name := range known {
			inner[name] = struct{}{}
		}
		for _, param := range node.Block.Params {
			inner[param] = struct{}{}
		}
		for _, command := range node.Block.Commands {
			free = appendFreeVariables(free, command, inner)
		}
	case *Call:
		for _, child := range node.Elements {
			free = appendFreeVariables(free, child, known)
		}
	}
	return free
}
