package ir

// Emitter creates instructions in a block, either at its end or before a
// fixed instruction.
type Emitter struct {
	prog   *Program
	block  *Block
	before *Inst // nil: append
}

// NewEmitter returns an emitter appending to b.
func NewEmitter(b *Block) *Emitter {
	return &Emitter{prog: b.Program, block: b}
}

// NewEmitterBefore returns an emitter inserting into b just before at.
// Successive instructions keep program order.
func NewEmitterBefore(b *Block, at *Inst) *Emitter {
	return &Emitter{prog: b.Program, block: b, before: at}
}

// Block returns the block being emitted into.
func (e *Emitter) Block() *Block { return e.block }

// Emit creates an instruction and returns it.
func (e *Emitter) Emit(op Opcode, args ...Value) *Inst {
	if e.before != nil {
		return e.prog.NewInstBefore(e.block, e.before, op, args...)
	}
	return e.prog.NewInst(e.block, op, args...)
}

func (e *Emitter) value(op Opcode, args ...Value) Value {
	return Ref(e.Emit(op, args...))
}

func (e *Emitter) Identity(v Value) Value { return e.value(OpIdentity, v) }

func (e *Emitter) Phi(kind Kind, args ...Value) Value {
	return Ref(e.prog.NewPhi(e.block, kind, args...))
}

// Guest state.

func (e *Emitter) GetRegister(r Reg) Value { return e.value(OpGetRegister, ImmReg(r)) }
func (e *Emitter) SetRegister(r Reg, v Value) *Inst {
	return e.Emit(OpSetRegister, ImmReg(r), v)
}
func (e *Emitter) GetPred(p Pred) Value { return e.value(OpGetPred, ImmPred(p)) }
func (e *Emitter) SetPred(p Pred, v Value) *Inst {
	return e.Emit(OpSetPred, ImmPred(p), v)
}
func (e *Emitter) GetCbufU32(index, offset Value) Value {
	return e.value(OpGetCbufU32, index, offset)
}
func (e *Emitter) GetCbufF32(index, offset Value) Value {
	return e.value(OpGetCbufF32, index, offset)
}
func (e *Emitter) GetAttribute(a Attribute) Value {
	return e.value(OpGetAttribute, ImmAttribute(a))
}
func (e *Emitter) SetAttribute(a Attribute, v Value) *Inst {
	return e.Emit(OpSetAttribute, ImmAttribute(a), v)
}

// PseudoOp attaches a pseudo-operation (GetZeroFromOp etc.) to producer.
func (e *Emitter) PseudoOp(op Opcode, producer Value) Value {
	if !op.IsPseudo() {
		panic(Invariantf(op, "%s is not a pseudo-operation", op))
	}
	return e.value(op, producer)
}

// Integer arithmetic.

func (e *Emitter) IAdd32(a, b Value) Value { return e.value(OpIAdd32, a, b) }
func (e *Emitter) IAdd64(a, b Value) Value { return e.value(OpIAdd64, a, b) }
func (e *Emitter) ISub32(a, b Value) Value { return e.value(OpISub32, a, b) }
func (e *Emitter) IMul32(a, b Value) Value { return e.value(OpIMul32, a, b) }
func (e *Emitter) ShiftLeftLogical32(base, shift Value) Value {
	return e.value(OpShiftLeftLogical32, base, shift)
}
func (e *Emitter) BitFieldUExtract(base, offset, count Value) Value {
	return e.value(OpBitFieldUExtract, base, offset, count)
}
func (e *Emitter) BitFieldSExtract(base, offset, count Value) Value {
	return e.value(OpBitFieldSExtract, base, offset, count)
}

// Compare emits one of the integer comparison opcodes.
func (e *Emitter) Compare(op Opcode, a, b Value) Value {
	if op < OpSLessThan || op > OpINotEqual {
		panic(Invariantf(op, "%s is not an integer comparison", op))
	}
	return e.value(op, a, b)
}

// Logical.

func (e *Emitter) LogicalAnd(a, b Value) Value { return e.value(OpLogicalAnd, a, b) }
func (e *Emitter) LogicalOr(a, b Value) Value  { return e.value(OpLogicalOr, a, b) }
func (e *Emitter) LogicalNot(a Value) Value    { return e.value(OpLogicalNot, a) }

var selectOps = map[Kind]Opcode{
	KindU1:  OpSelectU1,
	KindU8:  OpSelectU8,
	KindU16: OpSelectU16,
	KindU32: OpSelectU32,
	KindU64: OpSelectU64,
	KindF16: OpSelectF16,
	KindF32: OpSelectF32,
	KindF64: OpSelectF64,
}

// Select emits the Select opcode matching the kind of t.
func (e *Emitter) Select(cond, t, f Value) Value {
	op, ok := selectOps[t.Kind()]
	if !ok {
		panic(Invariantf(OpInvalid, "no select for kind %s", t.Kind()))
	}
	return e.value(op, cond, t, f)
}

// Casts and packing.

func (e *Emitter) BitCastU32F32(v Value) Value  { return e.value(OpBitCastU32F32, v) }
func (e *Emitter) BitCastF32U32(v Value) Value  { return e.value(OpBitCastF32U32, v) }
func (e *Emitter) PackHalf2x16(v Value) Value   { return e.value(OpPackHalf2x16, v) }
func (e *Emitter) UnpackHalf2x16(v Value) Value { return e.value(OpUnpackHalf2x16, v) }

// Floating point.

func (e *Emitter) FPAdd32(a, b Value, ctl FpControl) Value {
	inst := e.Emit(OpFPAdd32, a, b)
	inst.SetFlags(ctl.Bits())
	return Ref(inst)
}

func (e *Emitter) FPMul32(a, b Value, ctl FpControl) Value {
	inst := e.Emit(OpFPMul32, a, b)
	inst.SetFlags(ctl.Bits())
	return Ref(inst)
}

func (e *Emitter) FPRecip32(v Value) Value { return e.value(OpFPRecip32, v) }

// Composites.

type compositeOps struct {
	construct, extract, insert Opcode
}

var compositeByKind = map[Kind]compositeOps{
	KindF16x2: {OpCompositeConstructF16x2, OpCompositeExtractF16x2, OpCompositeInsertF16x2},
	KindF16x3: {OpCompositeConstructF16x3, OpCompositeExtractF16x3, OpCompositeInsertF16x3},
	KindF16x4: {OpCompositeConstructF16x4, OpCompositeExtractF16x4, OpCompositeInsertF16x4},
	KindF32x2: {OpCompositeConstructF32x2, OpCompositeExtractF32x2, OpCompositeInsertF32x2},
	KindF32x3: {OpCompositeConstructF32x3, OpCompositeExtractF32x3, OpCompositeInsertF32x3},
	KindF32x4: {OpCompositeConstructF32x4, OpCompositeExtractF32x4, OpCompositeInsertF32x4},
}

func compositeKind(elem Kind, n int) Kind {
	for k := range compositeByKind {
		if ek, en := k.ElemKind(); ek == elem && en == n {
			return k
		}
	}
	panic(Invariantf(OpInvalid, "no composite of %d x %s", n, elem))
}

// CompositeConstruct builds a vector from 2-4 elements of the same kind.
func (e *Emitter) CompositeConstruct(elems ...Value) Value {
	if len(elems) == 0 {
		panic(Invariantf(OpInvalid, "empty composite construct"))
	}
	k := compositeKind(elems[0].Kind(), len(elems))
	return e.value(compositeByKind[k].construct, elems...)
}

// CompositeExtract reads element index of composite c.
func (e *Emitter) CompositeExtract(c Value, index uint32) Value {
	ops, ok := compositeByKind[c.Kind()]
	if !ok {
		panic(Invariantf(OpInvalid, "extract from non-composite %s", c.Kind()))
	}
	return e.value(ops.extract, c, ImmU32(index))
}

// CompositeInsert replaces element index of composite c with obj.
func (e *Emitter) CompositeInsert(c, obj Value, index uint32) Value {
	ops, ok := compositeByKind[c.Kind()]
	if !ok {
		panic(Invariantf(OpInvalid, "insert into non-composite %s", c.Kind()))
	}
	return e.value(ops.insert, c, obj, ImmU32(index))
}

// Control flow. These maintain the CFG edges.

func (e *Emitter) Branch(target *Block) *Inst {
	inst := e.Emit(OpBranch, ImmLabel(target))
	e.block.AddSucc(target)
	return inst
}

func (e *Emitter) BranchConditional(cond Value, t, f *Block) *Inst {
	inst := e.Emit(OpBranchConditional, cond, ImmLabel(t), ImmLabel(f))
	e.block.AddSucc(t)
	e.block.AddSucc(f)
	return inst
}

func (e *Emitter) Return() *Inst { return e.Emit(OpReturn) }
