package runtime

// scopeRecord is one activation record: the variable and command bindings
// local to one call.
type scopeRecord struct {
	variables map[string]Value
	commands  map[string]Command
}

func newScopeRecord() *scopeRecord {
	return &scopeRecord{
		variables: make(map[string]Value),
		commands:  make(map[string]Command),
	}
}

// Scope is the activation-record stack the evaluator binds against. Lookup
// scans from the innermost record outward (dynamic scoping); definitions
// land in the innermost record. The root record is never popped.
//
// A Scope is single-evaluation state: it is not safe for concurrent use,
// and each independent evaluation must own its own instance.
type Scope struct {
	records []*scopeRecord
}

// NewScope returns a scope holding only the root record.
func NewScope() *Scope {
	return &Scope{records: []*scopeRecord{newScopeRecord()}}
}

// Enter pushes a fresh activation record.
func (s *Scope) Enter() {
	s.records = append(s.records, newScopeRecord())
}

// Exit pops the innermost record. Popping with only the root left is a
// silent no-op, keeping frame cleanup idempotent on error paths.
func (s *Scope) Exit() {
	if len(s.records) <= 1 {
		return
	}
	s.records[len(s.records)-1] = nil
	s.records = s.records[:len(s.records)-1]
}

// Depth reports the number of active records, root included.
func (s *Scope) Depth() int {
	return len(s.records)
}

// DefineVariable inserts or overwrites a binding in the innermost record.
func (s *Scope) DefineVariable(name string, value Value) {
	s.records[len(s.records)-1].variables[name] = value
}

// LookupVariable resolves name against the stack, innermost record first.
func (s *Scope) LookupVariable(name string) (Value, bool) {
	for idx := len(s.records) - 1; idx >= 0; idx-- {
		if value, ok := s.records[idx].variables[name]; ok {
			return value, true
		}
	}
	return nil, false
}

// DefineCommand registers a command in the innermost record, keyed by its
// name.
func (s *Scope) DefineCommand(cmd Command) {
	s.records[len(s.records)-1].commands[cmd.Name] = cmd
}

// LookupCommand resolves a command name against the stack, innermost record
// first.
func (s *Scope) LookupCommand(name string) (Command, bool) {
	for idx := len(s.records) - 1; idx >= 0; idx-- {
		if cmd, ok := s.records[idx].commands[name]; ok {
			return cmd, true
		}
	}
	return Command{}, false
}
