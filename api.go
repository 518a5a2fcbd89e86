package matiria

// Compile runs the full pipeline — lex, parse, validate, emit — over
// source and returns the resulting Package, ready for Run. Diagnostics
// accumulated along the way are returned regardless of success so a
// host can print every mistake found, not just the first.
func Compile(source []byte, cfg *Config) (*Package, *Diagnostics, error) {
	diags := &Diagnostics{}
	interner := NewInterner(source)

	parser := NewParser(source, interner, diags)
	prog := parser.ParseProgram()
	if diags.HasErrors() {
		return nil, diags, nil
	}

	validator := NewValidator(source, interner, diags)
	if ok := validator.Validate(prog); !ok {
		return nil, diags, nil
	}

	pkg := NewPackage()
	emitter := NewEmitter(source, pkg, diags)
	emitter.Emit(prog)

	return pkg, diags, nil
}

// Run executes pkg's "main" entrypoint to completion, per spec section
// 4.6 / 6's external interface, honoring the vm.max_stack config
// setting (defaulting to NewConfig's 4096 if cfg is nil).
func Run(pkg *Package, cfg *Config) (Value, error) {
	maxStack := 4096
	if cfg != nil {
		maxStack = cfg.GetInt("vm.max_stack")
	}
	engine := NewEngine(pkg, maxStack)
	return engine.Run()
}

// RegisterNative installs a host-provided Go function as a callable
// package member, spec section 4.6's register_native. Native functions
// register directly into an already-compiled Package, so the validator
// never sees their name or signature; only the argument count is
// checked, at call time, against len(sig.Params).
func RegisterNative(pkg *Package, name string, sig Signature, fn func(args []Value) (Value, error)) {
	pkg.Register(name, &NativeFunction{Name: name, Sig: sig, Fn: fn})
}
