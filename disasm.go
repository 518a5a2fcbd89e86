package matiria

import (
	"fmt"
	"strings"

	"github.com/fmaggi/matiria/ascii"
)

// asmFormatToken classifies a piece of disassembly output for
// highlighting, the same small enum the teacher's vm_program.go
// PrettyString/HighlightPrettyString pair uses for its ASM printer.
type asmFormatToken int

const (
	asmNone asmFormatToken = iota
	asmComment
	asmOperator
	asmOperand
)

var asmTheme = map[asmFormatToken]string{
	asmNone:     ascii.Reset,
	asmComment:  ascii.DefaultTheme.Comment,
	asmOperator: ascii.DefaultTheme.Operator,
	asmOperand:  ascii.DefaultTheme.Operand,
}

// Disassemble renders chunk as plain text, one instruction per line.
func (c *Chunk) Disassemble() string {
	return c.disassemble(func(s string, _ asmFormatToken) string { return s })
}

// HighlightDisassemble renders chunk with ANSI colors from
// ascii.DefaultTheme, for terminal-facing tooling.
func (c *Chunk) HighlightDisassemble() string {
	return c.disassemble(func(s string, tok asmFormatToken) string {
		return asmTheme[tok] + s + asmTheme[asmNone]
	})
}

func (c *Chunk) disassemble(format func(string, asmFormatToken) string) string {
	var b strings.Builder
	b.WriteString(format(fmt.Sprintf("== %s ==\n", c.Name), asmComment))

	ip := 0
	for ip < len(c.Code) {
		op := Op(c.Code[ip])
		b.WriteString(format(fmt.Sprintf("%04d  ", ip), asmComment))
		b.WriteString(format(op.String(), asmOperator))
		ip++

		switch op {
		case OpInt:
			idx := c.ReadU16(ip)
			b.WriteString(format(fmt.Sprintf(" %d (%d)", idx, c.Ints[idx]), asmOperand))
			ip += 2
		case OpFloat:
			idx := c.ReadU16(ip)
			b.WriteString(format(fmt.Sprintf(" %d (%v)", idx, c.Floats[idx]), asmOperand))
			ip += 2
		case OpStringLiteral:
			idx := c.ReadU16(ip)
			b.WriteString(format(fmt.Sprintf(" %d (%q)", idx, c.Strings[idx]), asmOperand))
			ip += 2
		case OpArrayLiteral, OpMapLiteral, OpGet, OpSet, OpGlobalGet, OpGlobalSet,
			OpUpvalueGet, OpUpvalueSet, OpStructGet, OpStructSet:
			idx := c.ReadU16(ip)
			b.WriteString(format(fmt.Sprintf(" %d", idx), asmOperand))
			ip += 2
		case OpJmp, OpJmpZ, OpAnd, OpOr:
			where := int16(c.ReadU16(ip))
			b.WriteString(format(fmt.Sprintf(" -> %04d", ip+2+int(where)), asmOperand))
			ip += 2
		case OpCall, OpPopV:
			n := c.Code[ip]
			b.WriteString(format(fmt.Sprintf(" %d", n), asmOperand))
			ip++
		case OpConstructor:
			count := c.ReadU16(ip)
			nameIdx := c.ReadU16(ip + 2)
			b.WriteString(format(fmt.Sprintf(" %d %q", count, c.Strings[nameIdx]), asmOperand))
			ip += 4
		case OpClosure:
			protoIdx := c.ReadU16(ip)
			upc := c.Code[ip+2]
			b.WriteString(format(fmt.Sprintf(" proto=%d upvalues=%d", protoIdx, upc), asmOperand))
			ip += 3 + int(upc)*3
		}
		b.WriteString("\n")
	}
	return b.String()
}
