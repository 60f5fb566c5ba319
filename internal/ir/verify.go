package ir

import (
	"fmt"
	"strings"
)

// Verify checks the structural integrity of a program.
// It returns an error describing all violations found, or nil if valid.
func Verify(p *Program) error {
	var errs []string

	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if len(p.Blocks) == 0 {
		add("program %s: no blocks", p.Name)
		return combineErrors(errs)
	}

	// Build membership sets.
	blockSet := make(map[*Block]bool, len(p.Blocks))
	instSet := make(map[*Inst]bool)
	for _, b := range p.Blocks {
		blockSet[b] = true
		for _, in := range b.Insts {
			instSet[in] = true
		}
	}

	// refs counts operand slots referencing each instruction.
	refs := make(map[*Inst]int)

	for _, b := range p.Blocks {
		// 1. Block's Program pointer matches
		if b.Program != p {
			add("program %s, %s: block Program pointer mismatch", p.Name, b)
		}

		// 2. Block ends in exactly one terminator
		for i, in := range b.Insts {
			if in.IsTerminator() && i != len(b.Insts)-1 {
				add("program %s, %s, %s: terminator %s is not last", p.Name, b, in, in.op)
			}
		}
		term := b.Terminator()
		if term == nil {
			add("program %s, %s: block has no terminator", p.Name, b)
		}

		for _, in := range b.Insts {
			// 3. Inst's Block pointer matches its containing block
			if in.block != b {
				add("program %s, %s, %s: inst Block pointer is %v, want %s",
					p.Name, b, in, in.block, b)
			}
			verifyInst(p, b, in, instSet, add)
			for _, a := range in.args {
				if a.kind == KindOpaque {
					refs[a.inst]++
				}
			}
		}

		// 4. Branch labels name existing successors
		if term != nil {
			for i, a := range term.args {
				if a.kind != KindLabel {
					continue
				}
				target := p.BlockByID(a.Label())
				if target == nil {
					add("program %s, %s: label %d names unknown block b%d", p.Name, b, i, a.bits)
					continue
				}
				if !containsBlock(b.Succs, target) {
					add("program %s, %s: branch target %s is not a successor", p.Name, b, target)
				}
			}
		}

		// 5. Succs/Preds edge consistency
		for _, succ := range b.Succs {
			if !blockSet[succ] {
				add("program %s, %s: successor %s not in program", p.Name, b, succ)
				continue
			}
			if !containsBlock(succ.Preds, b) {
				add("program %s, %s: successor %s does not have %s as predecessor",
					p.Name, b, succ, b)
			}
		}
		for _, pred := range b.Preds {
			if !blockSet[pred] {
				add("program %s, %s: predecessor %s not in program", p.Name, b, pred)
				continue
			}
			if !containsBlock(pred.Succs, b) {
				add("program %s, %s: predecessor %s does not have %s as successor",
					p.Name, b, pred, b)
			}
		}
	}

	// 6. Use-lists agree with operand slots
	for _, b := range p.Blocks {
		for _, in := range b.Insts {
			if got, want := len(in.uses), refs[in]; got != want {
				add("program %s, %s: use-list has %d entries, %d operands reference it",
					p.Name, in, got, want)
			}
			for _, u := range in.uses {
				if u.Arg >= len(u.User.args) || u.User.args[u.Arg].inst != in {
					add("program %s, %s: stale use by %s operand %d", p.Name, in, u.User, u.Arg)
				}
			}
		}
	}

	// 7. Post-order blocks belong to the program
	for _, b := range p.PostOrderBlocks {
		if !blockSet[b] {
			add("program %s: post-order block %s not in program", p.Name, b)
		}
	}

	return combineErrors(errs)
}

func verifyInst(p *Program, b *Block, in *Inst, instSet map[*Inst]bool, add func(string, ...interface{})) {
	info := in.op.Info()
	if in.op == OpInvalid || in.op >= NumOpcodes {
		add("program %s, %s, %s: invalid opcode %d", p.Name, b, in, in.op)
		return
	}

	// Arity
	if !info.Variadic && len(in.args) != len(info.Args) {
		add("program %s, %s, %s: %s has %d operands, want %d",
			p.Name, b, in, in.op, len(in.args), len(info.Args))
		return
	}
	if in.op == OpPhi && len(in.args) != len(b.Preds) {
		add("program %s, %s, %s: phi has %d args but block has %d preds",
			p.Name, b, in, len(in.args), len(b.Preds))
	}

	for i, a := range in.args {
		if a.kind == KindVoid {
			add("program %s, %s, %s: operand %d is empty", p.Name, b, in, i)
			continue
		}
		if a.kind == KindOpaque && !instSet[a.inst] {
			add("program %s, %s, %s: operand %d (%s) not found in program",
				p.Name, b, in, i, a.inst)
			continue
		}
		var want Kind
		if in.op == OpPhi {
			want = in.phiKind
		} else {
			want = info.Args[i]
		}
		if want == KindOpaque {
			continue
		}
		if got := a.Kind(); got != want {
			add("program %s, %s, %s: %s operand %d has kind %s, want %s",
				p.Name, b, in, in.op, i, got, want)
		}
	}
}

// containsBlock checks whether bs contains b.
func containsBlock(bs []*Block, b *Block) bool {
	for _, x := range bs {
		if x == b {
			return true
		}
	}
	return false
}

// combineErrors creates an error from a list of error strings, or returns nil.
func combineErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("IR verification failed:\n  %s", strings.Join(errs, "\n  "))
}
