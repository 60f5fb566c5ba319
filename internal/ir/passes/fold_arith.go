package passes

import (
	"github.com/you-not-fish/shaderopt/internal/ir"
)

// argType is the type an operand is read as before evaluation. The IR only
// knows u32; signedness is a property of the opcode.
type argType uint8

const (
	argU1 argType = iota
	argU32
	argS32 // u32 payload, sign-extended
	argU64
)

// arg reads an immediate operand as t. The result is the operand widened
// to 64 bits: sign-extended for argS32, zero-extended otherwise.
func arg(v ir.Value, t argType) uint64 {
	switch t {
	case argU1:
		if v.U1() {
			return 1
		}
		return 0
	case argU32:
		return uint64(v.U32())
	case argS32:
		return uint64(int64(int32(v.U32())))
	case argU64:
		return v.U64()
	}
	panic("unreachable")
}

// immFold describes how to evaluate an opcode whose operands are all
// immediates.
type immFold struct {
	args []argType
	eval func(x []uint64) (ir.Value, error)
}

func u32Args(n int) []argType {
	a := make([]argType, n)
	for i := range a {
		a[i] = argU32
	}
	return a
}

func compareU(fn func(a, b uint64) bool) *immFold {
	return &immFold{
		args: []argType{argU32, argU32},
		eval: func(x []uint64) (ir.Value, error) { return ir.ImmU1(fn(x[0], x[1])), nil },
	}
}

func compareS(fn func(a, b int64) bool) *immFold {
	return &immFold{
		args: []argType{argS32, argS32},
		eval: func(x []uint64) (ir.Value, error) { return ir.ImmU1(fn(int64(x[0]), int64(x[1]))), nil },
	}
}

// immFolds is indexed by opcode.
var immFolds = [ir.NumOpcodes]*immFold{
	ir.OpISub32: {
		args: u32Args(2),
		eval: func(x []uint64) (ir.Value, error) { return ir.ImmU32(uint32(x[0] - x[1])), nil },
	},

	ir.OpSLessThan:         compareS(func(a, b int64) bool { return a < b }),
	ir.OpULessThan:         compareU(func(a, b uint64) bool { return a < b }),
	ir.OpSLessThanEqual:    compareS(func(a, b int64) bool { return a <= b }),
	ir.OpULessThanEqual:    compareU(func(a, b uint64) bool { return a <= b }),
	ir.OpSGreaterThan:      compareS(func(a, b int64) bool { return a > b }),
	ir.OpUGreaterThan:      compareU(func(a, b uint64) bool { return a > b }),
	ir.OpSGreaterThanEqual: compareS(func(a, b int64) bool { return a >= b }),
	ir.OpUGreaterThanEqual: compareU(func(a, b uint64) bool { return a >= b }),
	ir.OpIEqual:            compareU(func(a, b uint64) bool { return a == b }),
	ir.OpINotEqual:         compareU(func(a, b uint64) bool { return a != b }),

	ir.OpBitFieldUExtract: {args: u32Args(3), eval: bitFieldUExtract},
	ir.OpBitFieldSExtract: {args: []argType{argS32, argU32, argU32}, eval: bitFieldSExtract},
}

func bitFieldUExtract(x []uint64) (ir.Value, error) {
	base, shift, count := uint32(x[0]), x[1], x[2]
	if shift+count > 32 {
		return ir.Value{}, ir.Invariantf(ir.OpBitFieldUExtract,
			"undefined result in %s(%d, %d, %d)", ir.OpBitFieldUExtract, base, shift, count)
	}
	mask := uint32(uint64(1)<<count - 1)
	return ir.ImmU32(uint32(uint64(base)>>shift) & mask), nil
}

func bitFieldSExtract(x []uint64) (ir.Value, error) {
	base, shift, count := int32(x[0]), x[1], x[2]
	backShift := shift + count
	if backShift > 32 {
		return ir.Value{}, ir.Invariantf(ir.OpBitFieldSExtract,
			"undefined result in %s(%d, %d, %d)", ir.OpBitFieldSExtract, base, shift, count)
	}
	if count == 0 {
		return ir.ImmU32(0), nil
	}
	leftShift := 32 - backShift
	return ir.ImmU32(uint32(int32(uint32(base)<<leftShift) >> (32 - count))), nil
}

// foldWhenAllImmediates replaces inst with its value when every operand is
// an immediate and no pseudo-operation depends on it. It reports whether it
// folded.
func foldWhenAllImmediates(inst *ir.Inst) (bool, error) {
	if !inst.AreAllArgsImmediates() || inst.HasAssociatedPseudoOperation() {
		return false, nil
	}
	f := immFolds[inst.Opcode()]
	if f == nil {
		return false, nil
	}
	v, err := evalImmediates(inst, f)
	if err != nil {
		return false, err
	}
	inst.ReplaceUsesWith(v)
	return true, nil
}

func evalImmediates(inst *ir.Inst, f *immFold) (ir.Value, error) {
	x := make([]uint64, len(f.args))
	for i, t := range f.args {
		x[i] = arg(inst.Arg(i), t)
	}
	return f.eval(x)
}

func foldGetRegister(inst *ir.Inst) {
	if inst.Arg(0).Reg() == ir.RZ {
		inst.ReplaceUsesWith(ir.ImmU32(0))
	}
}

func foldGetPred(inst *ir.Inst) {
	if inst.Arg(0).Pred() == ir.PT {
		inst.ReplaceUsesWith(ir.ImmU1(true))
	}
}

func foldSelect(inst *ir.Inst) {
	cond := inst.Arg(0)
	if !cond.IsImmediate() {
		return
	}
	if cond.U1() {
		inst.ReplaceUsesWith(inst.Arg(1))
	} else {
		inst.ReplaceUsesWith(inst.Arg(2))
	}
}
