package matiria

import (
	art "github.com/kralicky/go-adaptive-radix-tree"
)

// Symbol is one binding inside a Scope: a variable, parameter,
// function, or struct/union name. Index is the dense slot index
// assigned once validation finalizes the scope; it is meaningless
// (and unused) before that point.
type Symbol struct {
	Name       Token
	Type       *Type
	Index      int
	IsGlobal   bool
	IsUpvalue  bool
	Assignable bool
}

// Upvalue describes one closed-over slot captured by a closure: either
// a local of the immediately enclosing function (Local true, Index
// into that function's locals) or a transitively captured upvalue of
// the enclosing closure (Local false, Index into that closure's own
// upvalue table). Mirrors validator.c's add_upvalue/resolve_upvalue.
type Upvalue struct {
	Name  string
	Index int
	Local bool
}

// Scope is a lexical symbol table keyed by identifier text. Lookups
// walk outward through Enclosing the way the original implementation's
// find_symbol/resolve_local do. Entries are stored in an adaptive
// radix tree keyed by the identifier's raw bytes rather than a Go map,
// keeping lookups O(len(name)); a separate order slice records
// insertion order, which is the order Walk and Count use.
type Scope struct {
	tree      art.Tree
	order     []string // insertion order, for stable iteration/indexing
	Enclosing *Scope
	IsClosure bool
	Upvalues  []Upvalue
}

func NewScope(enclosing *Scope) *Scope {
	return &Scope{tree: art.New(), Enclosing: enclosing}
}

// Add registers a new symbol in this scope. Redeclaration in the same
// scope overwrites the previous binding, matching add_symbol's
// last-write-wins behavior in the original validator.
func (s *Scope) Add(name string, sym *Symbol) {
	if _, replaced := s.tree.Insert(art.Key(name), sym); !replaced {
		s.order = append(s.order, name)
	}
}

// ResolveLocal looks up name in this scope only (resolve_local).
func (s *Scope) ResolveLocal(name string) (*Symbol, bool) {
	v, found := s.tree.Search(art.Key(name))
	if !found {
		return nil, false
	}
	return v.(*Symbol), true
}

// addUpvalue records a captured slot, deduplicating by name the way
// add_upvalue does (a closure never captures the same identifier
// twice; repeated captures reuse the earlier index).
func (s *Scope) addUpvalue(name string, index int, local bool) int {
	for i, uv := range s.Upvalues {
		if uv.Name == name && uv.Local == local {
			return i
		}
	}
	s.Upvalues = append(s.Upvalues, Upvalue{Name: name, Index: index, Local: local})
	return len(s.Upvalues) - 1
}

// ResolveUpvalue is resolve_upvalue: find name in some enclosing
// function, recording the chain of upvalue descriptors needed to pipe
// it down into this closure. Returns false if name is not bound in any
// enclosing scope.
func (s *Scope) ResolveUpvalue(name string) (int, bool) {
	if s.Enclosing == nil {
		return 0, false
	}
	if local, ok := s.Enclosing.ResolveLocal(name); ok {
		local.IsUpvalue = true
		return s.addUpvalue(name, local.Index, true), true
	}
	if idx, ok := s.Enclosing.ResolveUpvalue(name); ok {
		return s.addUpvalue(name, idx, false), true
	}
	return 0, false
}

// Resolve walks outward from s, returning the first binding found and
// whether any scope bound name at all. It does not track closure
// boundaries; the emitter picks GET/GLOBAL_GET/UPVALUE_GET from the
// returned Symbol's flags.
func (s *Scope) Resolve(name string) (*Symbol, bool) {
	for scope := s; scope != nil; scope = scope.Enclosing {
		if sym, ok := scope.ResolveLocal(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// Count reports how many symbols are directly bound in this scope,
// used to size the trailing POP_V a block emits on exit.
func (s *Scope) Count() int { return len(s.order) }

// Walk visits every symbol bound directly in this scope in insertion
// order.
func (s *Scope) Walk(f func(name string, sym *Symbol)) {
	for _, name := range s.order {
		v, ok := s.tree.Search(art.Key(name))
		if !ok {
			continue
		}
		f(name, v.(*Symbol))
	}
}
