package ir

// Opcode identifies the operation an instruction performs.
type Opcode uint16

const (
	OpInvalid Opcode = iota

	// SSA plumbing
	OpPhi      // φ; one arg per predecessor
	OpIdentity // forwards Args[0]; left behind by ReplaceUsesWith
	OpVoid     // no-op

	// Control flow (terminators)
	OpBranch            // Args[0] = label
	OpBranchConditional // Args[0] = cond, Args[1] = true label, Args[2] = false label
	OpReturn

	// Guest state
	OpGetRegister
	OpSetRegister
	OpGetPred
	OpSetPred
	OpGetCbufU32 // Args[0] = buffer index, Args[1] = byte offset
	OpGetCbufF32
	OpGetAttribute
	OpSetAttribute

	// Pseudo-operations; Args[0] = producer
	OpGetZeroFromOp
	OpGetSignFromOp
	OpGetCarryFromOp
	OpGetOverflowFromOp

	// Integer arithmetic
	OpIAdd32
	OpIAdd64
	OpISub32
	OpIMul32
	OpShiftLeftLogical32
	OpBitFieldUExtract // base, shift, count
	OpBitFieldSExtract

	// Integer comparison
	OpSLessThan
	OpULessThan
	OpSLessThanEqual
	OpULessThanEqual
	OpSGreaterThan
	OpUGreaterThan
	OpSGreaterThanEqual
	OpUGreaterThanEqual
	OpIEqual
	OpINotEqual

	// Logical
	OpLogicalAnd
	OpLogicalOr
	OpLogicalNot

	// Select(cond, true value, false value)
	OpSelectU1
	OpSelectU8
	OpSelectU16
	OpSelectU32
	OpSelectU64
	OpSelectF16
	OpSelectF32
	OpSelectF64

	// Bit casts and packing
	OpBitCastU32F32 // f32 bits -> u32
	OpBitCastF32U32 // u32 bits -> f32
	OpPackHalf2x16
	OpUnpackHalf2x16

	// Floating point
	OpFPAdd32
	OpFPMul32
	OpFPRecip32

	// Composites
	OpCompositeConstructF16x2
	OpCompositeConstructF16x3
	OpCompositeConstructF16x4
	OpCompositeConstructF32x2
	OpCompositeConstructF32x3
	OpCompositeConstructF32x4
	OpCompositeExtractF16x2 // composite, index
	OpCompositeExtractF16x3
	OpCompositeExtractF16x4
	OpCompositeExtractF32x2
	OpCompositeExtractF32x3
	OpCompositeExtractF32x4
	OpCompositeInsertF16x2 // composite, object, index
	OpCompositeInsertF16x3
	OpCompositeInsertF16x4
	OpCompositeInsertF32x2
	OpCompositeInsertF32x3
	OpCompositeInsertF32x4

	NumOpcodes // sentinel; must be last
)

// OpInfo holds the static description of an opcode.
type OpInfo struct {
	Name   string
	Result Kind   // KindOpaque: same kind as Args[0] (Identity) or per-instruction (Phi)
	Args   []Kind // declared operand kinds; KindOpaque accepts any kind

	Variadic   bool // Phi
	Terminator bool
	Pseudo     bool // attaches to the producer in Args[0]
}

func kinds(ks ...Kind) []Kind { return ks }

var (
	u32x2 = kinds(KindU32, KindU32)
	u64x2 = kinds(KindU64, KindU64)
	u32x3 = kinds(KindU32, KindU32, KindU32)
	u1x2  = kinds(KindU1, KindU1)
)

// opInfoTable maps each Opcode to its OpInfo. Index by Opcode value.
var opInfoTable = [NumOpcodes]OpInfo{
	OpInvalid: {Name: "Invalid"},

	OpPhi:      {Name: "Phi", Result: KindOpaque, Variadic: true},
	OpIdentity: {Name: "Identity", Result: KindOpaque, Args: kinds(KindOpaque)},
	OpVoid:     {Name: "Void", Result: KindVoid},

	OpBranch:            {Name: "Branch", Result: KindVoid, Args: kinds(KindLabel), Terminator: true},
	OpBranchConditional: {Name: "BranchConditional", Result: KindVoid, Args: kinds(KindU1, KindLabel, KindLabel), Terminator: true},
	OpReturn:            {Name: "Return", Result: KindVoid, Terminator: true},

	OpGetRegister:  {Name: "GetRegister", Result: KindU32, Args: kinds(KindReg)},
	OpSetRegister:  {Name: "SetRegister", Result: KindVoid, Args: kinds(KindReg, KindU32)},
	OpGetPred:      {Name: "GetPred", Result: KindU1, Args: kinds(KindPred)},
	OpSetPred:      {Name: "SetPred", Result: KindVoid, Args: kinds(KindPred, KindU1)},
	OpGetCbufU32:   {Name: "GetCbufU32", Result: KindU32, Args: u32x2},
	OpGetCbufF32:   {Name: "GetCbufF32", Result: KindF32, Args: u32x2},
	OpGetAttribute: {Name: "GetAttribute", Result: KindF32, Args: kinds(KindAttribute)},
	OpSetAttribute: {Name: "SetAttribute", Result: KindVoid, Args: kinds(KindAttribute, KindF32)},

	OpGetZeroFromOp:     {Name: "GetZeroFromOp", Result: KindU1, Args: kinds(KindOpaque), Pseudo: true},
	OpGetSignFromOp:     {Name: "GetSignFromOp", Result: KindU1, Args: kinds(KindOpaque), Pseudo: true},
	OpGetCarryFromOp:    {Name: "GetCarryFromOp", Result: KindU1, Args: kinds(KindOpaque), Pseudo: true},
	OpGetOverflowFromOp: {Name: "GetOverflowFromOp", Result: KindU1, Args: kinds(KindOpaque), Pseudo: true},

	OpIAdd32:             {Name: "IAdd32", Result: KindU32, Args: u32x2},
	OpIAdd64:             {Name: "IAdd64", Result: KindU64, Args: u64x2},
	OpISub32:             {Name: "ISub32", Result: KindU32, Args: u32x2},
	OpIMul32:             {Name: "IMul32", Result: KindU32, Args: u32x2},
	OpShiftLeftLogical32: {Name: "ShiftLeftLogical32", Result: KindU32, Args: u32x2},
	OpBitFieldUExtract:   {Name: "BitFieldUExtract", Result: KindU32, Args: u32x3},
	OpBitFieldSExtract:   {Name: "BitFieldSExtract", Result: KindU32, Args: u32x3},

	OpSLessThan:         {Name: "SLessThan", Result: KindU1, Args: u32x2},
	OpULessThan:         {Name: "ULessThan", Result: KindU1, Args: u32x2},
	OpSLessThanEqual:    {Name: "SLessThanEqual", Result: KindU1, Args: u32x2},
	OpULessThanEqual:    {Name: "ULessThanEqual", Result: KindU1, Args: u32x2},
	OpSGreaterThan:      {Name: "SGreaterThan", Result: KindU1, Args: u32x2},
	OpUGreaterThan:      {Name: "UGreaterThan", Result: KindU1, Args: u32x2},
	OpSGreaterThanEqual: {Name: "SGreaterThanEqual", Result: KindU1, Args: u32x2},
	OpUGreaterThanEqual: {Name: "UGreaterThanEqual", Result: KindU1, Args: u32x2},
	OpIEqual:            {Name: "IEqual", Result: KindU1, Args: u32x2},
	OpINotEqual:         {Name: "INotEqual", Result: KindU1, Args: u32x2},

	OpLogicalAnd: {Name: "LogicalAnd", Result: KindU1, Args: u1x2},
	OpLogicalOr:  {Name: "LogicalOr", Result: KindU1, Args: u1x2},
	OpLogicalNot: {Name: "LogicalNot", Result: KindU1, Args: kinds(KindU1)},

	OpSelectU1:  {Name: "SelectU1", Result: KindU1, Args: kinds(KindU1, KindU1, KindU1)},
	OpSelectU8:  {Name: "SelectU8", Result: KindU8, Args: kinds(KindU1, KindU8, KindU8)},
	OpSelectU16: {Name: "SelectU16", Result: KindU16, Args: kinds(KindU1, KindU16, KindU16)},
	OpSelectU32: {Name: "SelectU32", Result: KindU32, Args: kinds(KindU1, KindU32, KindU32)},
	OpSelectU64: {Name: "SelectU64", Result: KindU64, Args: kinds(KindU1, KindU64, KindU64)},
	OpSelectF16: {Name: "SelectF16", Result: KindF16, Args: kinds(KindU1, KindF16, KindF16)},
	OpSelectF32: {Name: "SelectF32", Result: KindF32, Args: kinds(KindU1, KindF32, KindF32)},
	OpSelectF64: {Name: "SelectF64", Result: KindF64, Args: kinds(KindU1, KindF64, KindF64)},

	OpBitCastU32F32:  {Name: "BitCastU32F32", Result: KindU32, Args: kinds(KindF32)},
	OpBitCastF32U32:  {Name: "BitCastF32U32", Result: KindF32, Args: kinds(KindU32)},
	OpPackHalf2x16:   {Name: "PackHalf2x16", Result: KindU32, Args: kinds(KindF32x2)},
	OpUnpackHalf2x16: {Name: "UnpackHalf2x16", Result: KindF32x2, Args: kinds(KindU32)},

	OpFPAdd32:   {Name: "FPAdd32", Result: KindF32, Args: kinds(KindF32, KindF32)},
	OpFPMul32:   {Name: "FPMul32", Result: KindF32, Args: kinds(KindF32, KindF32)},
	OpFPRecip32: {Name: "FPRecip32", Result: KindF32, Args: kinds(KindF32)},

	OpCompositeConstructF16x2: {Name: "CompositeConstructF16x2", Result: KindF16x2, Args: kinds(KindF16, KindF16)},
	OpCompositeConstructF16x3: {Name: "CompositeConstructF16x3", Result: KindF16x3, Args: kinds(KindF16, KindF16, KindF16)},
	OpCompositeConstructF16x4: {Name: "CompositeConstructF16x4", Result: KindF16x4, Args: kinds(KindF16, KindF16, KindF16, KindF16)},
	OpCompositeConstructF32x2: {Name: "CompositeConstructF32x2", Result: KindF32x2, Args: kinds(KindF32, KindF32)},
	OpCompositeConstructF32x3: {Name: "CompositeConstructF32x3", Result: KindF32x3, Args: kinds(KindF32, KindF32, KindF32)},
	OpCompositeConstructF32x4: {Name: "CompositeConstructF32x4", Result: KindF32x4, Args: kinds(KindF32, KindF32, KindF32, KindF32)},

	OpCompositeExtractF16x2: {Name: "CompositeExtractF16x2", Result: KindF16, Args: kinds(KindF16x2, KindU32)},
	OpCompositeExtractF16x3: {Name: "CompositeExtractF16x3", Result: KindF16, Args: kinds(KindF16x3, KindU32)},
	OpCompositeExtractF16x4: {Name: "CompositeExtractF16x4", Result: KindF16, Args: kinds(KindF16x4, KindU32)},
	OpCompositeExtractF32x2: {Name: "CompositeExtractF32x2", Result: KindF32, Args: kinds(KindF32x2, KindU32)},
	OpCompositeExtractF32x3: {Name: "CompositeExtractF32x3", Result: KindF32, Args: kinds(KindF32x3, KindU32)},
	OpCompositeExtractF32x4: {Name: "CompositeExtractF32x4", Result: KindF32, Args: kinds(KindF32x4, KindU32)},

	OpCompositeInsertF16x2: {Name: "CompositeInsertF16x2", Result: KindF16x2, Args: kinds(KindF16x2, KindF16, KindU32)},
	OpCompositeInsertF16x3: {Name: "CompositeInsertF16x3", Result: KindF16x3, Args: kinds(KindF16x3, KindF16, KindU32)},
	OpCompositeInsertF16x4: {Name: "CompositeInsertF16x4", Result: KindF16x4, Args: kinds(KindF16x4, KindF16, KindU32)},
	OpCompositeInsertF32x2: {Name: "CompositeInsertF32x2", Result: KindF32x2, Args: kinds(KindF32x2, KindF32, KindU32)},
	OpCompositeInsertF32x3: {Name: "CompositeInsertF32x3", Result: KindF32x3, Args: kinds(KindF32x3, KindF32, KindU32)},
	OpCompositeInsertF32x4: {Name: "CompositeInsertF32x4", Result: KindF32x4, Args: kinds(KindF32x4, KindF32, KindU32)},
}

// String returns the human-readable name of the opcode.
func (o Opcode) String() string {
	if o < NumOpcodes {
		return opInfoTable[o].Name
	}
	return "unknown"
}

// Info returns the OpInfo for this opcode.
func (o Opcode) Info() OpInfo {
	if o < NumOpcodes {
		return opInfoTable[o]
	}
	return OpInfo{Name: "unknown"}
}

// NumArgs returns the fixed arity of the opcode, or -1 for Phi.
func (o Opcode) NumArgs() int {
	info := o.Info()
	if info.Variadic {
		return -1
	}
	return len(info.Args)
}

// ArgKind returns the declared kind of operand i.
func (o Opcode) ArgKind(i int) Kind {
	info := o.Info()
	if i < 0 || i >= len(info.Args) {
		return KindOpaque
	}
	return info.Args[i]
}

// IsTerminator reports whether the opcode ends a block.
func (o Opcode) IsTerminator() bool { return o.Info().Terminator }

// IsPseudo reports whether the opcode is a pseudo-operation of its first operand.
func (o Opcode) IsPseudo() bool { return o.Info().Pseudo }

// OpcodeByName looks up an opcode by name.
func OpcodeByName(name string) (Opcode, bool) {
	op, ok := opByName[name]
	return op, ok
}

var opByName = func() map[string]Opcode {
	m := make(map[string]Opcode, NumOpcodes)
	for op := OpInvalid + 1; op < NumOpcodes; op++ {
		m[opInfoTable[op].Name] = op
	}
	return m
}()
