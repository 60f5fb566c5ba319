package passes

import (
	"github.com/you-not-fish/shaderopt/internal/ir"
)

// foldXmadMultiply replaces the pattern generated by two XMAD
// multiplications computing a full 32-bit product:
//
//	%rhs_bfe = BitFieldUExtract %factor_a, #0, #16
//	%rhs_mul = IMul32 %rhs_bfe, %factor_b
//	%lhs_bfe = BitFieldUExtract %factor_a, #16, #16
//	%lhs_mul = IMul32 %lhs_bfe, %factor_b
//	%lhs_shl = ShiftLeftLogical32 %lhs_mul, #16
//	%result  = IAdd32 %lhs_shl, %rhs_mul
//
// with
//
//	%result  = IMul32 %factor_a, %factor_b
//
// Every precondition must hold; nothing is rewritten on a partial match.
func foldXmadMultiply(b *ir.Block, inst *ir.Inst) bool {
	lhsArg := inst.Arg(0)
	rhsArg := inst.Arg(1)
	if lhsArg.IsImmediate() || rhsArg.IsImmediate() {
		return false
	}
	lhsShl := lhsArg.InstRecursive()
	if lhsShl.Opcode() != ir.OpShiftLeftLogical32 || !lhsShl.Arg(1).Equal(ir.ImmU32(16)) {
		return false
	}
	if lhsShl.Arg(0).IsImmediate() {
		return false
	}
	lhsMul := lhsShl.Arg(0).InstRecursive()
	rhsMul := rhsArg.InstRecursive()
	if lhsMul.Opcode() != ir.OpIMul32 || rhsMul.Opcode() != ir.OpIMul32 {
		return false
	}
	if !lhsMul.Arg(1).Equal(rhsMul.Arg(1)) {
		return false
	}
	factorB := lhsMul.Arg(1).Resolve()
	if lhsMul.Arg(0).IsImmediate() || rhsMul.Arg(0).IsImmediate() {
		return false
	}
	lhsBfe := lhsMul.Arg(0).InstRecursive()
	rhsBfe := rhsMul.Arg(0).InstRecursive()
	if lhsBfe.Opcode() != ir.OpBitFieldUExtract || rhsBfe.Opcode() != ir.OpBitFieldUExtract {
		return false
	}
	if !lhsBfe.Arg(1).Equal(ir.ImmU32(16)) || !lhsBfe.Arg(2).Equal(ir.ImmU32(16)) {
		return false
	}
	if !rhsBfe.Arg(1).Equal(ir.ImmU32(0)) || !rhsBfe.Arg(2).Equal(ir.ImmU32(16)) {
		return false
	}
	if !lhsBfe.Arg(0).Equal(rhsBfe.Arg(0)) {
		return false
	}
	factorA := lhsBfe.Arg(0).Resolve()

	e := ir.NewEmitterBefore(b, inst)
	inst.ReplaceUsesWith(e.IMul32(factorA, factorB))
	return true
}

// foldFPMul32 folds the perspective interpolation idiom
//
//	%attr_a = GetAttribute a
//	%attr_b = GetAttribute a
//	%mul    = FPMul32 %x, %attr_b
//	%recip  = FPRecip32 %attr_a
//	%result = FPMul32 %mul, %recip
//
// to %x. Instructions marked no-contraction are never touched.
func foldFPMul32(inst *ir.Inst) {
	if inst.FpControl().NoContraction {
		return
	}
	lhsValue := inst.Arg(0)
	rhsValue := inst.Arg(1)
	if lhsValue.IsImmediate() || rhsValue.IsImmediate() {
		return
	}
	lhsOp := lhsValue.InstRecursive()
	rhsOp := rhsValue.InstRecursive()
	if lhsOp.Opcode() != ir.OpFPMul32 || rhsOp.Opcode() != ir.OpFPRecip32 {
		return
	}
	recipSource := rhsOp.Arg(0)
	lhsMulSource := lhsOp.Arg(1).Resolve()
	if recipSource.IsImmediate() || lhsMulSource.IsImmediate() {
		return
	}
	attrA := recipSource.InstRecursive()
	attrB := lhsMulSource.InstRecursive()
	if attrA.Opcode() != ir.OpGetAttribute || attrB.Opcode() != ir.OpGetAttribute {
		return
	}
	if attrA.Arg(0).Equal(attrB.Arg(0)) {
		inst.ReplaceUsesWith(lhsOp.Arg(0))
	}
}
