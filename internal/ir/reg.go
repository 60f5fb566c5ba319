package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Reg is a guest general-purpose register.
type Reg uint8

// RZ always reads as zero.
const RZ Reg = 255

func (r Reg) String() string {
	if r == RZ {
		return "RZ"
	}
	return fmt.Sprintf("R%d", uint8(r))
}

// ParseReg parses "R<n>" or "RZ".
func ParseReg(s string) (Reg, error) {
	if s == "RZ" {
		return RZ, nil
	}
	n, err := parseSuffix(s, "R", 254)
	return Reg(n), err
}

// Pred is a guest predicate register.
type Pred uint8

// PT always reads as true.
const PT Pred = 7

func (p Pred) String() string {
	if p == PT {
		return "PT"
	}
	return fmt.Sprintf("P%d", uint8(p))
}

// ParsePred parses "P<n>" or "PT".
func ParsePred(s string) (Pred, error) {
	if s == "PT" {
		return PT, nil
	}
	n, err := parseSuffix(s, "P", 6)
	return Pred(n), err
}

// Attribute names an input or output varying slot.
// Slots 0-3 are the position components; generic attributes follow with
// four components each.
type Attribute uint16

const (
	AttrPositionX Attribute = iota
	AttrPositionY
	AttrPositionZ
	AttrPositionW
	attrGenericBase

	// NumGenerics is the number of generic attribute vectors.
	NumGenerics = 32
)

var componentNames = [4]string{"x", "y", "z", "w"}

// GenericAttribute returns the attribute for component c of generic vector index.
func GenericAttribute(index, c int) Attribute {
	return attrGenericBase + Attribute(index*4+c)
}

func (a Attribute) String() string {
	if a < attrGenericBase {
		return "position." + componentNames[a]
	}
	g := int(a - attrGenericBase)
	if g >= NumGenerics*4 {
		return fmt.Sprintf("attr%d", uint16(a))
	}
	return fmt.Sprintf("generic%d.%s", g/4, componentNames[g%4])
}

// ParseAttribute parses the names produced by Attribute.String.
func ParseAttribute(s string) (Attribute, error) {
	name, comp, ok := strings.Cut(s, ".")
	if !ok {
		n, err := parseSuffix(s, "attr", 0xffff)
		return Attribute(n), err
	}
	c := -1
	for i, cn := range componentNames {
		if cn == comp {
			c = i
		}
	}
	if c < 0 {
		return 0, fmt.Errorf("bad attribute component %q", comp)
	}
	if name == "position" {
		return AttrPositionX + Attribute(c), nil
	}
	index, err := parseSuffix(name, "generic", NumGenerics-1)
	if err != nil {
		return 0, err
	}
	return GenericAttribute(index, c), nil
}

func parseSuffix(s, prefix string, max int) (int, error) {
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("%q: want %s<n>", s, prefix)
	}
	n, err := strconv.Atoi(s[len(prefix):])
	if err != nil || n < 0 || n > max {
		return 0, fmt.Errorf("%q: index out of range [0,%d]", s, max)
	}
	return n, nil
}

// FpRounding is the rounding mode of a floating-point instruction.
type FpRounding uint8

const (
	RoundDontCare FpRounding = iota
	RoundNearest
	RoundMinusInf
	RoundPlusInf
	RoundZero
)

// FmzMode controls denormal flushing and 0*inf behavior.
type FmzMode uint8

const (
	FmzDontCare FmzMode = iota
	FmzFTZ
	FmzFMZ
	FmzNone
)

// FpControl is the flag payload of floating-point instructions.
type FpControl struct {
	NoContraction bool
	Rounding      FpRounding
	Fmz           FmzMode
}

// Flag bit layout: bit 0 no-contraction, bits 1-3 rounding, bits 4-5 fmz.
const (
	fpNoContraction = 1 << 0
	fpRoundShift    = 1
	fpFmzShift      = 4
)

// Bits packs c into instruction flag bits.
func (c FpControl) Bits() uint32 {
	var bits uint32
	if c.NoContraction {
		bits |= fpNoContraction
	}
	bits |= uint32(c.Rounding&7) << fpRoundShift
	bits |= uint32(c.Fmz&3) << fpFmzShift
	return bits
}

// FpControlFromBits decodes instruction flag bits.
func FpControlFromBits(bits uint32) FpControl {
	return FpControl{
		NoContraction: bits&fpNoContraction != 0,
		Rounding:      FpRounding(bits>>fpRoundShift) & 7,
		Fmz:           FmzMode(bits>>fpFmzShift) & 3,
	}
}
