// Package ir implements the SSA intermediate representation consumed by the
// shader optimizer: immediates and instruction references, instructions with
// use-lists, basic blocks and programs.
package ir

// Kind is the type of a Value or of an instruction result.
type Kind uint8

const (
	KindVoid   Kind = iota // no value; also the kind of an empty Value
	KindOpaque             // reference to an instruction; "any" in operand descriptors

	KindReg
	KindPred
	KindAttribute
	KindLabel

	KindU1
	KindU8
	KindU16
	KindU32
	KindU64
	KindF16
	KindF32
	KindF64

	// Composite kinds only appear as instruction result types.
	KindF16x2
	KindF16x3
	KindF16x4
	KindF32x2
	KindF32x3
	KindF32x4

	kindCount
)

var kindNames = [kindCount]string{
	KindVoid:      "void",
	KindOpaque:    "opaque",
	KindReg:       "reg",
	KindPred:      "pred",
	KindAttribute: "attr",
	KindLabel:     "label",
	KindU1:        "u1",
	KindU8:        "u8",
	KindU16:       "u16",
	KindU32:       "u32",
	KindU64:       "u64",
	KindF16:       "f16",
	KindF32:       "f32",
	KindF64:       "f64",
	KindF16x2:     "f16x2",
	KindF16x3:     "f16x3",
	KindF16x4:     "f16x4",
	KindF32x2:     "f32x2",
	KindF32x3:     "f32x3",
	KindF32x4:     "f32x4",
}

// String returns the lower-case name used by the text format.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// KindByName looks up a kind by its text-format name.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindVoid, false
}

// IsScalar reports whether values of kind k can be immediates.
func (k Kind) IsScalar() bool {
	return k >= KindReg && k <= KindF64
}

// IsComposite reports whether k is a vector kind.
func (k Kind) IsComposite() bool {
	return k >= KindF16x2 && k <= KindF32x4
}

// ElemKind returns the element kind and width of a composite kind.
func (k Kind) ElemKind() (Kind, int) {
	switch k {
	case KindF16x2:
		return KindF16, 2
	case KindF16x3:
		return KindF16, 3
	case KindF16x4:
		return KindF16, 4
	case KindF32x2:
		return KindF32, 2
	case KindF32x3:
		return KindF32, 3
	case KindF32x4:
		return KindF32, 4
	}
	return KindVoid, 0
}
