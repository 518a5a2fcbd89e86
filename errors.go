package matiria

import "fmt"

// compileError is a recoverable diagnostic raised by the lexer,
// parser, or validator. Unlike the teacher's backtrackingError it is
// never used for control flow: it is only ever appended to a
// Diagnostics list and printed, mirroring spec section 7's
// "accumulated, non-fatal" compile-error row.
type compileError struct {
	Message string
	Stage   string // "lexer", "parser", "validator"
	Span    Range
}

func (e compileError) Error() string {
	return fmt.Sprintf("%s: %s @ %s", e.Stage, e.Message, e.Span)
}

// runtimeError is always fatal: raised by the VM and returned all the
// way up through Run, matching spec section 7's VM row (always fatal,
// halts execution).
type runtimeError struct {
	Message string
	Span    Range
}

func (e runtimeError) Error() string {
	return fmt.Sprintf("runtime error: %s", e.Message)
}

// Diagnostics accumulates compileErrors the way the teacher's Parser
// accumulates backtrackingErrors during a Choice, except Matiria never
// backtracks past one: the parser keeps scanning for more errors via
// synchronize() instead of aborting on the first.
type Diagnostics struct {
	errors []compileError
}

func (d *Diagnostics) Add(stage, message string, span Range) {
	d.errors = append(d.errors, compileError{Message: message, Stage: stage, Span: span})
}

func (d *Diagnostics) HasErrors() bool { return len(d.errors) > 0 }

func (d *Diagnostics) Errors() []error {
	out := make([]error, len(d.errors))
	for i, e := range d.errors {
		out[i] = e
	}
	return out
}

func (d *Diagnostics) String() string {
	s := ""
	for i, e := range d.errors {
		if i > 0 {
			s += "\n"
		}
		s += e.Error()
	}
	return s
}

func isCompileError(err error) bool {
	_, ok := err.(compileError)
	return ok
}
