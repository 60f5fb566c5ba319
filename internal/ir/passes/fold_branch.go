package passes

import (
	"github.com/you-not-fish/shaderopt/internal/ir"
)

// foldBranchConditional removes a negation on the branch condition by
// swapping the targets.
func foldBranchConditional(inst *ir.Inst) {
	cond := inst.Arg(0)
	if cond.IsImmediate() {
		// TODO: convert to Branch once passes can drop the dead CFG edge
		// and the phi operands flowing through it.
		return
	}
	condInst := cond.InstRecursive()
	if condInst.Opcode() != ir.OpLogicalNot {
		return
	}
	trueLabel := inst.Arg(1)
	falseLabel := inst.Arg(2)
	inst.SetArg(0, condInst.Arg(0))
	inst.SetArg(1, falseLabel)
	inst.SetArg(2, trueLabel)

	b := inst.Block()
	if len(b.Succs) == 2 && b.Succs[0].ID == trueLabel.Label() && b.Succs[1].ID == falseLabel.Label() {
		b.Succs[0], b.Succs[1] = b.Succs[1], b.Succs[0]
	}
}

// foldCompositeExtract forwards an element extract to the value that was
// stored in that element by a construct or insert.
func foldCompositeExtract(inst *ir.Inst, construct, insert ir.Opcode) {
	composite := inst.Arg(0)
	index := inst.Arg(1)
	if composite.IsImmediate() || !index.IsImmediate() {
		return
	}
	if v, ok := compositeElement(composite, construct, insert, index.U32()); ok {
		inst.ReplaceUsesWith(v)
	}
}

// compositeElement walks an insert chain back to its construct. Each step
// moves to an older composite, and chains end at a construct or another
// producer, so the loop terminates.
func compositeElement(composite ir.Value, construct, insert ir.Opcode, index uint32) (ir.Value, bool) {
	for {
		in := composite.InstRecursive()
		switch in.Opcode() {
		case construct:
			if int(index) >= in.NumArgs() {
				return ir.Value{}, false
			}
			return in.Arg(int(index)), true
		case insert:
		default:
			return ir.Value{}, false
		}
		insertIndex := in.Arg(2)
		if !insertIndex.IsImmediate() {
			return ir.Value{}, false
		}
		if insertIndex.U32() == index {
			return in.Arg(1), true
		}
		composite = in.Arg(0)
		if composite.IsImmediate() {
			return ir.Value{}, false
		}
	}
}
