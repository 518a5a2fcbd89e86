package matiria

// Package is the compiled unit produced by Compile: every top-level
// callable (function, struct constructor) in source-declaration order,
// plus the side table of closure prototypes CLOSURE opcodes index
// into. mtr_execute in the original runtime pushes Order onto the
// stack in exactly this sequence before calling "main", so Order's
// iteration order is load-bearing, not cosmetic.
type Package struct {
	Order         []Object
	names         map[string]int
	ClosureProtos []*Chunk
}

func NewPackage() *Package {
	return &Package{names: map[string]int{}}
}

// Register appends a callable under name, in declaration order.
func (p *Package) Register(name string, obj Object) int {
	idx := len(p.Order)
	p.Order = append(p.Order, obj)
	p.names[name] = idx
	return idx
}

func (p *Package) IndexOf(name string) (int, bool) {
	idx, ok := p.names[name]
	return idx, ok
}

// AddClosureProto registers a closure's Chunk in the side table the
// CLOSURE opcode's first operand indexes into, replacing the original
// implementation's embedded-pointer-in-bytecode scheme.
func (p *Package) AddClosureProto(chunk *Chunk) int {
	p.ClosureProtos = append(p.ClosureProtos, chunk)
	return len(p.ClosureProtos) - 1
}
