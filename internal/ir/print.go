package ir

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// FormatVersion is the version written in the header of printed programs.
const FormatVersion = "1.0.0"

// Fprint writes the text form of a program to w.
//
// Format:
//
//	shaderir 1.0.0 name
//	b0:
//	  %0 = GetCbufU32 u32 1, u32 8
//	  %1 = IAdd32 %0, u32 5
//	  BranchConditional %2, label b1, label b2
//	b1: ; <- b0
//	  %3 = Phi.u32 %1
//	  Return
func Fprint(w io.Writer, p *Program) {
	fmt.Fprintf(w, "shaderir %s", FormatVersion)
	if p.Name != "" {
		fmt.Fprintf(w, " %s", p.Name)
	}
	fmt.Fprintln(w)

	for _, b := range p.Blocks {
		fprintBlock(w, b)
	}
}

// fprintBlock writes a single block to w.
func fprintBlock(w io.Writer, b *Block) {
	predsStr := ""
	if len(b.Preds) > 0 {
		preds := make([]string, len(b.Preds))
		for i, p := range b.Preds {
			preds[i] = p.String()
		}
		predsStr = " ; <- " + strings.Join(preds, " ")
	}
	fmt.Fprintf(w, "%s:%s\n", b, predsStr)

	for _, in := range b.Insts {
		fmt.Fprintf(w, "  %s\n", FormatInst(in))
	}
}

// FormatInst formats one instruction as a line of the text format.
func FormatInst(in *Inst) string {
	var sb strings.Builder

	if in.Type() != KindVoid {
		fmt.Fprintf(&sb, "%s = ", in)
	}
	sb.WriteString(in.op.String())
	if in.op == OpPhi {
		fmt.Fprintf(&sb, ".%s", in.phiKind)
	}

	for i, a := range in.args {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(" ")
		sb.WriteString(a.String())
	}

	if in.flags != 0 {
		fmt.Fprintf(&sb, " !flags 0x%x", in.flags)
	}
	return sb.String()
}

// Sprint returns the text form of a program as a string.
func Sprint(p *Program) string {
	var sb strings.Builder
	Fprint(&sb, p)
	return sb.String()
}

// Print writes the text form of a program to stdout.
func Print(p *Program) {
	Fprint(os.Stdout, p)
}
