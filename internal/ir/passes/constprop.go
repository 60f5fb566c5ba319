package passes

import (
	"fmt"

	"github.com/you-not-fish/shaderopt/internal/ir"
)

// ConstantPropagation folds constant computations, removes algebraic
// identities, fuses known multi-instruction idioms and normalizes branch
// conditions.
//
// Blocks are visited in reverse post-order and instructions in block order.
// Every instruction is offered to its opcode's rule exactly once; a rule
// rewrites at most one thing and nothing is revisited, so folds that only
// become visible after a later rewrite need another run of the pass.
//
// An *ir.InvariantError (for example a bit-field extract past 32 bits)
// aborts the sweep.
func ConstantPropagation(p *ir.Program) error {
	for i := len(p.PostOrderBlocks) - 1; i >= 0; i-- {
		b := p.PostOrderBlocks[i]
		// Rules may insert instructions before the current one; take a
		// snapshot so those are not visited in this sweep.
		insts := append([]*ir.Inst(nil), b.Insts...)
		for _, inst := range insts {
			if err := constantPropagation(b, inst); err != nil {
				return fmt.Errorf("block %s: %w", b, err)
			}
		}
	}
	return nil
}

// rule rewrites inst if its pattern matches. Mismatch is not an error.
type rule func(b *ir.Block, inst *ir.Inst) error

// rules is indexed by opcode; nil entries have nothing to fold.
var rules = [ir.NumOpcodes]rule{
	ir.OpGetRegister:   simple(foldGetRegister),
	ir.OpGetPred:       simple(foldGetPred),
	ir.OpIAdd32:        foldAdd32,
	ir.OpIAdd64:        foldAdd64,
	ir.OpISub32:        foldISub32,
	ir.OpBitCastF32U32: simple(foldBitCastF32U32),
	ir.OpBitCastU32F32: simple(foldBitCastU32F32),

	ir.OpPackHalf2x16:   inverseOf(ir.OpUnpackHalf2x16),
	ir.OpUnpackHalf2x16: inverseOf(ir.OpPackHalf2x16),

	ir.OpSelectU1:  simple(foldSelect),
	ir.OpSelectU8:  simple(foldSelect),
	ir.OpSelectU16: simple(foldSelect),
	ir.OpSelectU32: simple(foldSelect),
	ir.OpSelectU64: simple(foldSelect),
	ir.OpSelectF16: simple(foldSelect),
	ir.OpSelectF32: simple(foldSelect),
	ir.OpSelectF64: simple(foldSelect),

	ir.OpFPMul32:    simple(foldFPMul32),
	ir.OpLogicalAnd: simple(foldLogicalAnd),
	ir.OpLogicalOr:  simple(foldLogicalOr),
	ir.OpLogicalNot: simple(foldLogicalNot),

	ir.OpBranchConditional: simple(foldBranchConditional),

	ir.OpSLessThan:         immediates,
	ir.OpULessThan:         immediates,
	ir.OpSLessThanEqual:    immediates,
	ir.OpULessThanEqual:    immediates,
	ir.OpSGreaterThan:      immediates,
	ir.OpUGreaterThan:      immediates,
	ir.OpSGreaterThanEqual: immediates,
	ir.OpUGreaterThanEqual: immediates,
	ir.OpIEqual:            immediates,
	ir.OpINotEqual:         immediates,
	ir.OpBitFieldUExtract:  immediates,
	ir.OpBitFieldSExtract:  immediates,

	ir.OpCompositeExtractF32x2: extractFrom(ir.OpCompositeConstructF32x2, ir.OpCompositeInsertF32x2),
	ir.OpCompositeExtractF32x3: extractFrom(ir.OpCompositeConstructF32x3, ir.OpCompositeInsertF32x3),
	ir.OpCompositeExtractF32x4: extractFrom(ir.OpCompositeConstructF32x4, ir.OpCompositeInsertF32x4),
	ir.OpCompositeExtractF16x2: extractFrom(ir.OpCompositeConstructF16x2, ir.OpCompositeInsertF16x2),
	ir.OpCompositeExtractF16x3: extractFrom(ir.OpCompositeConstructF16x3, ir.OpCompositeInsertF16x3),
	ir.OpCompositeExtractF16x4: extractFrom(ir.OpCompositeConstructF16x4, ir.OpCompositeInsertF16x4),
}

func constantPropagation(b *ir.Block, inst *ir.Inst) error {
	r := rules[inst.Opcode()]
	if r == nil {
		return nil
	}
	return r(b, inst)
}

// simple adapts a rule that needs neither the block nor an error result.
func simple(fn func(inst *ir.Inst)) rule {
	return func(_ *ir.Block, inst *ir.Inst) error {
		fn(inst)
		return nil
	}
}

func immediates(_ *ir.Block, inst *ir.Inst) error {
	_, err := foldWhenAllImmediates(inst)
	return err
}

func inverseOf(reverse ir.Opcode) rule {
	return simple(func(inst *ir.Inst) { foldInverseFunc(inst, reverse) })
}

func extractFrom(construct, insert ir.Opcode) rule {
	return simple(func(inst *ir.Inst) { foldCompositeExtract(inst, construct, insert) })
}
