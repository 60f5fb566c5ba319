package ir

import (
	"fmt"
	"math"
	"strconv"
)

// Value is an instruction operand: either an immediate scalar or a
// reference to the instruction producing it. The zero Value is empty.
type Value struct {
	kind Kind   // KindOpaque for references
	bits uint64 // immediate payload
	inst *Inst  // producer, when kind == KindOpaque
}

// Immediate constructors.

func ImmU1(b bool) Value {
	if b {
		return Value{kind: KindU1, bits: 1}
	}
	return Value{kind: KindU1}
}

func ImmU8(x uint8) Value            { return Value{kind: KindU8, bits: uint64(x)} }
func ImmU16(x uint16) Value          { return Value{kind: KindU16, bits: uint64(x)} }
func ImmU32(x uint32) Value          { return Value{kind: KindU32, bits: uint64(x)} }
func ImmU64(x uint64) Value          { return Value{kind: KindU64, bits: x} }
func ImmF16(bits uint16) Value       { return Value{kind: KindF16, bits: uint64(bits)} }
func ImmF32(f float32) Value         { return Value{kind: KindF32, bits: uint64(math.Float32bits(f))} }
func ImmF64(f float64) Value         { return Value{kind: KindF64, bits: math.Float64bits(f)} }
func ImmReg(r Reg) Value             { return Value{kind: KindReg, bits: uint64(r)} }
func ImmPred(p Pred) Value           { return Value{kind: KindPred, bits: uint64(p)} }
func ImmAttribute(a Attribute) Value { return Value{kind: KindAttribute, bits: uint64(a)} }

// ImmLabel refers to block b as a branch target.
func ImmLabel(b *Block) Value { return Value{kind: KindLabel, bits: uint64(b.ID)} }

// ImmBits builds an immediate of kind k from its raw payload.
func ImmBits(k Kind, bits uint64) Value {
	if !k.IsScalar() {
		panic(Invariantf(OpInvalid, "immediate of non-scalar kind %s", k))
	}
	return Value{kind: k, bits: bits}
}

// Ref returns a Value referring to the result of inst.
func Ref(inst *Inst) Value {
	if inst == nil {
		panic(Invariantf(OpInvalid, "reference to nil instruction"))
	}
	return Value{kind: KindOpaque, inst: inst}
}

// IsEmpty reports whether v is the zero Value.
func (v Value) IsEmpty() bool { return v.kind == KindVoid }

// IsRef reports whether v directly references an instruction.
func (v Value) IsRef() bool { return v.kind == KindOpaque }

// Inst returns the directly referenced instruction without resolving
// identities, or nil for immediates.
func (v Value) Inst() *Inst { return v.inst }

// Resolve follows Identity instructions until it reaches an immediate or
// the true producing instruction.
func (v Value) Resolve() Value {
	for v.kind == KindOpaque && v.inst.op == OpIdentity {
		v = v.inst.args[0]
	}
	return v
}

// IsImmediate reports whether v is, after resolving, an immediate.
func (v Value) IsImmediate() bool {
	r := v.Resolve()
	return r.kind != KindOpaque && r.kind != KindVoid
}

// InstRecursive returns the producing instruction after resolving
// identities, or nil if v resolves to an immediate.
func (v Value) InstRecursive() *Inst {
	return v.Resolve().inst
}

// Kind returns the kind of the resolved value.
func (v Value) Kind() Kind {
	r := v.Resolve()
	if r.kind == KindOpaque {
		return r.inst.Type()
	}
	return r.kind
}

// Bits returns the raw payload of an immediate.
func (v Value) Bits() uint64 {
	r := v.Resolve()
	if r.kind == KindOpaque || r.kind == KindVoid {
		panic(Invariantf(OpInvalid, "bits of non-immediate value %s", v))
	}
	return r.bits
}

func (v Value) imm(want Kind) uint64 {
	r := v.Resolve()
	if r.kind != want {
		panic(Invariantf(OpInvalid, "%s read as %s", v, want))
	}
	return r.bits
}

func (v Value) U1() bool             { return v.imm(KindU1) != 0 }
func (v Value) U8() uint8            { return uint8(v.imm(KindU8)) }
func (v Value) U16() uint16          { return uint16(v.imm(KindU16)) }
func (v Value) U32() uint32          { return uint32(v.imm(KindU32)) }
func (v Value) U64() uint64          { return v.imm(KindU64) }
func (v Value) F16Bits() uint16      { return uint16(v.imm(KindF16)) }
func (v Value) F32() float32         { return math.Float32frombits(uint32(v.imm(KindF32))) }
func (v Value) F64() float64         { return math.Float64frombits(v.imm(KindF64)) }
func (v Value) Reg() Reg             { return Reg(v.imm(KindReg)) }
func (v Value) Pred() Pred           { return Pred(v.imm(KindPred)) }
func (v Value) Attribute() Attribute { return Attribute(v.imm(KindAttribute)) }
func (v Value) Label() ID            { return ID(v.imm(KindLabel)) }

// Equal reports structural equality: identical immediates, or references
// that resolve to the same producer.
func (v Value) Equal(o Value) bool {
	a, b := v.Resolve(), o.Resolve()
	if a.kind != b.kind {
		return false
	}
	if a.kind == KindOpaque {
		return a.inst == b.inst
	}
	return a.bits == b.bits
}

// String formats v as in the text format: "%5", "u32 7", "label b2".
func (v Value) String() string {
	switch v.kind {
	case KindVoid:
		return "<empty>"
	case KindOpaque:
		return v.inst.String()
	}
	return v.kind.String() + " " + v.literal()
}

func (v Value) literal() string {
	switch v.kind {
	case KindU1:
		return strconv.FormatBool(v.bits != 0)
	case KindF16:
		return fmt.Sprintf("0x%04x", v.bits)
	case KindF32:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(v.bits))), 'g', -1, 32)
	case KindF64:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindReg:
		return Reg(v.bits).String()
	case KindPred:
		return Pred(v.bits).String()
	case KindAttribute:
		return Attribute(v.bits).String()
	case KindLabel:
		return fmt.Sprintf("b%d", v.bits)
	}
	return strconv.FormatUint(v.bits, 10)
}
