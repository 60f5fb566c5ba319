package passes

import (
	"math"

	"github.com/you-not-fish/shaderopt/internal/ir"
)

// foldCommutative folds or canonicalizes a commutative, associative binary
// instruction. It returns false when inst was replaced by an immediate and
// callers must stop; otherwise inst may have been rewritten so that an
// immediate operand, if any, is second.
//
//	imm op imm          -> folded immediate
//	imm op (x op imm2)  -> x op (imm op imm2)
//	imm op x            -> x op imm
//	(x op imm2) op imm  -> x op (imm op imm2)
func foldCommutative(inst *ir.Inst, t argType, fn func(a, b uint64) ir.Value) bool {
	lhs := inst.Arg(0)
	rhs := inst.Arg(1)

	lhsImm := lhs.IsImmediate()
	rhsImm := rhs.IsImmediate()

	if lhsImm && rhsImm {
		inst.ReplaceUsesWith(fn(arg(lhs, t), arg(rhs, t)))
		return false
	}
	if lhsImm && !rhsImm {
		rhsInst := rhs.InstRecursive()
		if rhsInst.Opcode() == inst.Opcode() && rhsInst.Arg(1).IsImmediate() {
			combined := fn(arg(lhs, t), arg(rhsInst.Arg(1), t))
			inst.SetArg(0, rhsInst.Arg(0))
			inst.SetArg(1, combined)
		} else {
			// Normalize
			inst.SetArg(0, rhs)
			inst.SetArg(1, lhs)
		}
	}
	if !lhsImm && rhsImm {
		lhsInst := lhs.InstRecursive()
		if lhsInst.Opcode() == inst.Opcode() && lhsInst.Arg(1).IsImmediate() {
			combined := fn(arg(rhs, t), arg(lhsInst.Arg(1), t))
			inst.SetArg(0, lhsInst.Arg(0))
			inst.SetArg(1, combined)
		}
	}
	return true
}

func add32(a, b uint64) ir.Value { return ir.ImmU32(uint32(a + b)) }
func add64(a, b uint64) ir.Value { return ir.ImmU64(a + b) }
func and1(a, b uint64) ir.Value  { return ir.ImmU1(a != 0 && b != 0) }
func or1(a, b uint64) ir.Value   { return ir.ImmU1(a != 0 || b != 0) }

func foldAdd32(b *ir.Block, inst *ir.Inst) error {
	if inst.HasAssociatedPseudoOperation() {
		return nil
	}
	if !foldCommutative(inst, argU32, add32) {
		return nil
	}
	if rhs := inst.Arg(1); rhs.IsImmediate() && rhs.U32() == 0 {
		inst.ReplaceUsesWith(inst.Arg(0))
		return nil
	}
	foldXmadMultiply(b, inst)
	return nil
}

func foldAdd64(_ *ir.Block, inst *ir.Inst) error {
	if inst.HasAssociatedPseudoOperation() {
		return nil
	}
	if !foldCommutative(inst, argU64, add64) {
		return nil
	}
	if rhs := inst.Arg(1); rhs.IsImmediate() && rhs.U64() == 0 {
		inst.ReplaceUsesWith(inst.Arg(0))
	}
	return nil
}

// isCbufU32 reports whether in reads a u32 from a constant buffer.
func isCbufU32(in *ir.Inst) bool {
	return in.Opcode() == ir.OpGetCbufU32
}

// equalCbuf reports whether a and b read the same constant buffer slot.
func equalCbuf(a, b *ir.Inst) bool {
	return isCbufU32(a) && isCbufU32(b) &&
		a.Arg(0).Equal(b.Arg(0)) && a.Arg(1).Equal(b.Arg(1))
}

func foldISub32(_ *ir.Block, inst *ir.Inst) error {
	if folded, err := foldWhenAllImmediates(inst); folded || err != nil {
		return err
	}
	if inst.Arg(0).IsImmediate() || inst.Arg(1).IsImmediate() {
		return nil
	}
	// ISub32 is commonly used to subtract two constant buffer reads;
	// the result is zero when both read the same slot.
	opA := inst.Arg(0).InstRecursive()
	opB := inst.Arg(1).InstRecursive()
	if equalCbuf(opA, opB) {
		inst.ReplaceUsesWith(ir.ImmU32(0))
		return nil
	}
	// (x + cbuf) - cbuf -> x. Only the minuend may be the addition:
	// cbuf - (x + cbuf) is -x.
	if opA.Opcode() != ir.OpIAdd32 || !isCbufU32(opB) {
		return nil
	}
	addA := opA.Arg(0)
	addB := opA.Arg(1)
	if addB.IsImmediate() {
		// Canonicalize
		addA, addB = addB, addA
	}
	if addB.IsImmediate() {
		return nil
	}
	if equalCbuf(addB.InstRecursive(), opB) {
		inst.ReplaceUsesWith(addA)
	}
	return nil
}

func foldLogicalAnd(inst *ir.Inst) {
	if !foldCommutative(inst, argU1, and1) {
		return
	}
	rhs := inst.Arg(1)
	if !rhs.IsImmediate() {
		return
	}
	if rhs.U1() {
		inst.ReplaceUsesWith(inst.Arg(0))
	} else {
		inst.ReplaceUsesWith(ir.ImmU1(false))
	}
}

func foldLogicalOr(inst *ir.Inst) {
	if !foldCommutative(inst, argU1, or1) {
		return
	}
	rhs := inst.Arg(1)
	if !rhs.IsImmediate() {
		return
	}
	if rhs.U1() {
		inst.ReplaceUsesWith(ir.ImmU1(true))
	} else {
		inst.ReplaceUsesWith(inst.Arg(0))
	}
}

func foldLogicalNot(inst *ir.Inst) {
	value := inst.Arg(0)
	if value.IsImmediate() {
		inst.ReplaceUsesWith(ir.ImmU1(!value.U1()))
		return
	}
	if argInst := value.InstRecursive(); argInst.Opcode() == ir.OpLogicalNot {
		inst.ReplaceUsesWith(argInst.Arg(0))
	}
}

// foldBitCastF32U32 handles u32 -> f32 casts.
func foldBitCastF32U32(inst *ir.Inst) {
	value := inst.Arg(0)
	if value.IsImmediate() {
		inst.ReplaceUsesWith(ir.ImmBits(ir.KindF32, uint64(value.U32())))
		return
	}
	argInst := value.InstRecursive()
	switch argInst.Opcode() {
	case ir.OpBitCastU32F32:
		inst.ReplaceUsesWith(argInst.Arg(0))
	case ir.OpGetCbufU32:
		// Read the constant buffer as f32 directly instead of casting.
		index, offset := argInst.Arg(0), argInst.Arg(1)
		inst.ReplaceOpcode(ir.OpGetCbufF32)
		inst.SetArg(0, index)
		inst.SetArg(1, offset)
	}
}

// foldBitCastU32F32 handles f32 -> u32 casts.
func foldBitCastU32F32(inst *ir.Inst) {
	value := inst.Arg(0)
	if value.IsImmediate() {
		inst.ReplaceUsesWith(ir.ImmU32(math.Float32bits(value.F32())))
		return
	}
	if argInst := value.InstRecursive(); argInst.Opcode() == ir.OpBitCastF32U32 {
		inst.ReplaceUsesWith(argInst.Arg(0))
	}
}

// foldInverseFunc cancels f(g(x)) to x when g is the inverse of f.
func foldInverseFunc(inst *ir.Inst, reverse ir.Opcode) {
	value := inst.Arg(0)
	if value.IsImmediate() {
		return
	}
	if argInst := value.InstRecursive(); argInst.Opcode() == reverse {
		inst.ReplaceUsesWith(argInst.Arg(0))
	}
}
