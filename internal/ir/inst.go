package ir

import "fmt"

// Use records that operand Arg of User references an instruction.
type Use struct {
	User *Inst
	Arg  int
}

// Inst is a single SSA instruction. Instructions are created through a
// Program (or an Emitter) and are never deleted by the optimizer; an
// instruction whose uses were forwarded away becomes an Identity of its
// replacement until dead-code elimination drops it.
type Inst struct {
	// ID is a unique identifier within the containing Program.
	ID ID

	op      Opcode
	args    []Value
	flags   uint32 // opcode-specific, e.g. FpControl bits
	phiKind Kind   // result kind of a Phi
	block   *Block

	// uses holds one entry per operand slot that references this instruction.
	uses []Use

	// pseudo tracks the pseudo-operations reading side results of this
	// instruction. While any exists, the instruction's identity matters.
	pseudo pseudoOps
}

type pseudoOps struct {
	zero, sign, carry, overflow *Inst
}

func (p *pseudoOps) slot(op Opcode) **Inst {
	switch op {
	case OpGetZeroFromOp:
		return &p.zero
	case OpGetSignFromOp:
		return &p.sign
	case OpGetCarryFromOp:
		return &p.carry
	case OpGetOverflowFromOp:
		return &p.overflow
	}
	panic(Invariantf(op, "%s is not a pseudo-operation", op))
}

// String returns the short reference form, e.g. "%5".
func (in *Inst) String() string {
	return fmt.Sprintf("%%%d", in.ID)
}

// Opcode returns the instruction's operation.
func (in *Inst) Opcode() Opcode { return in.op }

// Block returns the block containing the instruction.
func (in *Inst) Block() *Block { return in.block }

// Type returns the kind of the instruction's result.
func (in *Inst) Type() Kind {
	switch in.op {
	case OpIdentity:
		return in.args[0].Kind()
	case OpPhi:
		return in.phiKind
	}
	return in.op.Info().Result
}

// NumArgs returns the number of operands.
func (in *Inst) NumArgs() int { return len(in.args) }

// Arg returns operand i.
func (in *Inst) Arg(i int) Value {
	in.checkArg(i)
	return in.args[i]
}

// Args returns a copy of the operand list.
func (in *Inst) Args() []Value {
	return append([]Value(nil), in.args...)
}

func (in *Inst) checkArg(i int) {
	if i < 0 || i >= len(in.args) {
		panic(Invariantf(in.op, "%s: operand %d out of range for %s with %d operands",
			in, i, in.op, len(in.args)))
	}
}

// SetArg replaces operand i, moving the use from the old producer to the
// new one.
func (in *Inst) SetArg(i int, v Value) {
	in.checkArg(i)
	if v.kind == KindOpaque && v.inst == in {
		panic(Invariantf(in.op, "%s: operand %d would reference itself", in, i))
	}
	old := in.args[i]
	if old.kind == KindOpaque {
		old.inst.removeUse(in, i)
		if i == 0 && in.op.IsPseudo() {
			if slot := old.inst.pseudo.slot(in.op); *slot == in {
				*slot = nil
			}
		}
	}
	in.args[i] = v
	if v.kind == KindOpaque {
		v.inst.uses = append(v.inst.uses, Use{User: in, Arg: i})
		if i == 0 && in.op.IsPseudo() {
			*v.inst.pseudo.slot(in.op) = in
		}
	}
}

func (in *Inst) removeUse(user *Inst, arg int) {
	for i, u := range in.uses {
		if u.User == user && u.Arg == arg {
			in.uses = append(in.uses[:i], in.uses[i+1:]...)
			return
		}
	}
	panic(Invariantf(in.op, "%s: missing use by %s operand %d", in, user, arg))
}

// ClearArgs drops every operand, releasing their uses.
func (in *Inst) ClearArgs() {
	for i := range in.args {
		in.SetArg(i, Value{})
	}
	in.args = in.args[:0]
}

// ReplaceOpcode changes the operation in place. The operand list is resized
// to the new opcode's arity; dropped operands release their uses and added
// ones start empty.
func (in *Inst) ReplaceOpcode(op Opcode) {
	if op == OpPhi || in.op == OpPhi {
		panic(Invariantf(in.op, "%s: cannot replace opcode %s with %s", in, in.op, op))
	}
	if op.IsPseudo() || in.op.IsPseudo() {
		panic(Invariantf(in.op, "%s: cannot replace pseudo-operation opcode %s with %s", in, in.op, op))
	}
	n := op.NumArgs()
	for i := n; i < len(in.args); i++ {
		in.SetArg(i, Value{})
	}
	if n < len(in.args) {
		in.args = in.args[:n]
	}
	for len(in.args) < n {
		in.args = append(in.args, Value{})
	}
	in.op = op
}

// ReplaceUsesWith forwards every use of the instruction to v. Each user
// operand is rewired to v, and the instruction itself becomes Identity v so
// that holders outside the use-list still resolve to the replacement.
func (in *Inst) ReplaceUsesWith(v Value) {
	if v.InstRecursive() == in {
		panic(Invariantf(in.op, "%s: forwarding to itself", in))
	}
	users := append([]Use(nil), in.uses...)
	for _, u := range users {
		u.User.SetArg(u.Arg, v)
	}
	in.ClearArgs()
	in.op = OpIdentity
	in.flags = 0
	in.args = append(in.args, Value{})
	in.SetArg(0, v)
}

// Uses returns a copy of the use-list.
func (in *Inst) Uses() []Use {
	return append([]Use(nil), in.uses...)
}

// UseCount returns the number of operand slots referencing the instruction.
func (in *Inst) UseCount() int { return len(in.uses) }

// HasUses reports whether any operand references the instruction.
func (in *Inst) HasUses() bool { return len(in.uses) > 0 }

// Flags returns the opcode-specific flag bits.
func (in *Inst) Flags() uint32 { return in.flags }

// SetFlags replaces the flag bits.
func (in *Inst) SetFlags(flags uint32) { in.flags = flags }

// FpControl decodes the flag bits of a floating-point instruction.
func (in *Inst) FpControl() FpControl { return FpControlFromBits(in.flags) }

// HasAssociatedPseudoOperation reports whether a pseudo-operation reads a
// side result of this instruction.
func (in *Inst) HasAssociatedPseudoOperation() bool {
	p := in.pseudo
	return p.zero != nil || p.sign != nil || p.carry != nil || p.overflow != nil
}

// GetAssociatedPseudoOperation returns the pseudo-operation of kind op
// attached to this instruction, or nil.
func (in *Inst) GetAssociatedPseudoOperation(op Opcode) *Inst {
	return *in.pseudo.slot(op)
}

// AreAllArgsImmediates reports whether every operand resolves to an
// immediate. It must not be asked of a Phi.
func (in *Inst) AreAllArgsImmediates() bool {
	if in.op == OpPhi {
		panic(Invariantf(in.op, "%s: testing for all immediates on a phi", in))
	}
	for _, a := range in.args {
		if !a.IsImmediate() {
			return false
		}
	}
	return true
}

// IsTerminator reports whether the instruction ends its block.
func (in *Inst) IsTerminator() bool { return in.op.IsTerminator() }
