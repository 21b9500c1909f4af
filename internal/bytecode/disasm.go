package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a chunk as a readable instruction listing. Used by the
// run command at high verbosity.
func Disassemble(c *Chunk, name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)

	for ip := 0; ip < len(c.Code); {
		ip = disassembleInstruction(&sb, c, ip)
	}
	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, c *Chunk, ip int) int {
	op := OpCode(c.Code[ip])
	fmt.Fprintf(sb, "%04d %-14s", ip, op)

	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal:
		idx := int(c.Code[ip+1])
		fmt.Fprintf(sb, " %d (%v)\n", idx, c.Constants[idx])
		return ip + 2
	case OpGetLocal, OpSetLocal, OpCall:
		fmt.Fprintf(sb, " %d\n", int(c.Code[ip+1]))
		return ip + 2
	case OpJump, OpJumpIfFalse:
		offset := int(c.Code[ip+1])<<8 | int(c.Code[ip+2])
		fmt.Fprintf(sb, " -> %04d\n", ip+3+offset)
		return ip + 3
	case OpLoop:
		offset := int(c.Code[ip+1])<<8 | int(c.Code[ip+2])
		fmt.Fprintf(sb, " -> %04d\n", ip+3-offset)
		return ip + 3
	default:
		sb.WriteString("\n")
		return ip + 1
	}
}
