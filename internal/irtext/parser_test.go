package irtext

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/you-not-fish/shaderopt/internal/ir"
)

const loopSrc = `shaderir 1.0.0 loop
; counts R1 up to the constant buffer limit
b0:
  %0 = GetCbufU32 u32 1, u32 0x10
  %1 = GetRegister reg R1
  Branch label b1
b1: ; <- b0 b2
  %2 = Phi.u32 %1, %4
  %3 = ULessThan %2, %0
  BranchConditional %3, label b2, label b3
b2: ; <- b1
  %4 = IAdd32 %2, u32 1
  Branch label b1
b3: ; <- b1
  %5 = FPMul32 f32 1.5, f32 -0.25 !flags 0x1
  SetAttribute attr generic0.x, %5
  SetRegister reg R1, %2
  Return
`

func mustParse(t *testing.T, src string) *ir.Program {
	t.Helper()
	p, err := Parse("test.ir", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func TestParseLoop(t *testing.T) {
	p := mustParse(t, loopSrc)

	if p.Name != "loop" {
		t.Errorf("Name = %q, want %q", p.Name, "loop")
	}
	if p.NumBlocks() != 4 {
		t.Fatalf("NumBlocks = %d, want 4", p.NumBlocks())
	}
	if err := ir.Verify(p); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	header := p.Blocks[1]
	if len(header.Preds) != 2 || header.Preds[0] != p.Blocks[0] || header.Preds[1] != p.Blocks[2] {
		t.Errorf("b1 preds = %v, want [b0 b2]", header.Preds)
	}
	phi := header.Insts[0]
	if phi.Opcode() != ir.OpPhi || phi.Type() != ir.KindU32 {
		t.Fatalf("b1 first inst = %s, want a u32 phi", ir.FormatInst(phi))
	}
	// The phi's second operand is defined later in the text.
	if got := phi.Arg(1).Inst(); got == nil || got.Opcode() != ir.OpIAdd32 {
		t.Errorf("phi operand 1 = %s, want the IAdd32 from b2", phi.Arg(1))
	}

	mul := p.Blocks[3].Insts[0]
	if !mul.FpControl().NoContraction {
		t.Error("FPMul32 lost its no-contraction flag")
	}
	if got := mul.Arg(1).F32(); got != -0.25 {
		t.Errorf("FPMul32 operand 1 = %v, want -0.25", got)
	}

	if len(p.PostOrderBlocks) != 4 || p.PostOrderBlocks[len(p.PostOrderBlocks)-1] != p.Entry() {
		t.Errorf("post-order = %v, want 4 blocks ending with the entry", p.PostOrderBlocks)
	}
}

func TestParseCycleThroughPhi(t *testing.T) {
	// The loop-carried value depends on itself only through the phi.
	p := mustParse(t, `shaderir 1.0.0 phi
b0:
  %0 = GetRegister reg R1
  Branch label b1
b1:
  %1 = Phi.u32 %0, %2
  %2 = IAdd32 %1, u32 1
  %3 = ULessThan %2, u32 8
  BranchConditional %3, label b1, label b2
b2:
  SetRegister reg R1, %2
  Return
`)
	if err := ir.Verify(p); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	p := mustParse(t, loopSrc)
	printed := ir.Sprint(p)

	again := mustParse(t, printed)
	if got := ir.Sprint(again); got != printed {
		t.Errorf("round trip mismatch:\nfirst:\n%s\nsecond:\n%s", printed, got)
	}
}

func TestRoundTripImmediates(t *testing.T) {
	p := ir.NewProgram("imms")
	b := p.NewBlock()
	e := ir.NewEmitter(b)
	e.SetPred(ir.PT, e.LogicalOr(ir.ImmU1(false), ir.ImmU1(true)))
	e.SetRegister(ir.RZ, e.Select(ir.ImmU1(true), ir.ImmU32(0xffffffff), ir.ImmU32(7)))
	e.Select(ir.ImmU1(false), ir.ImmU8(200), ir.ImmU8(1))
	e.Select(ir.ImmU1(false), ir.ImmU16(65535), ir.ImmU16(1))
	e.IAdd64(ir.ImmU64(1<<63), ir.ImmU64(5))
	e.Select(ir.ImmU1(true), ir.ImmF16(0x3c00), ir.ImmF16(0xbc00))
	e.Select(ir.ImmU1(true), ir.ImmF64(1e300), ir.ImmF64(-2.5))
	e.SetAttribute(ir.AttrPositionW, e.FPRecip32(ir.ImmF32(3.1415927)))
	e.Return()

	printed := ir.Sprint(p)
	q := mustParse(t, printed)
	if got := ir.Sprint(q); got != printed {
		t.Errorf("round trip mismatch:\nfirst:\n%s\nsecond:\n%s", printed, got)
	}
	if err := ir.Verify(q); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestParseUnnamedAndBlankLines(t *testing.T) {
	p := mustParse(t, "shaderir 1.0.0\n\n; header comment\nb0:\n\n  GetRegister reg R3   ; unused\n  Return\n")
	if p.Name != "" {
		t.Errorf("Name = %q, want empty", p.Name)
	}
	if n := p.Entry().NumInsts(); n != 2 {
		t.Errorf("entry has %d insts, want 2", n)
	}
}

func TestParseNoTrailingNewline(t *testing.T) {
	p := mustParse(t, "shaderir 1.0.0 x\nb0:\n  Return")
	if p.Entry().Terminator() == nil {
		t.Error("entry block has no terminator")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		header string
		ok     bool
	}{
		{"shaderir 1.0.0", true},
		{"shaderir 1.4.2", true},
		{"shaderir 1.0", true},
		{"shaderir 2.0.0", false},
		{"shaderir 0.9.0", false},
		{"shaderir one", false},
	}
	for _, tt := range tests {
		_, err := Parse("v.ir", strings.NewReader(tt.header+"\nb0:\n  Return\n"))
		if tt.ok && err != nil {
			t.Errorf("%q: unexpected error %v", tt.header, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%q: expected error", tt.header)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		pos  string
		msg  string
	}{
		{"no header", "b0:\n  Return\n", "e.ir:1:1", "expected shaderir header"},
		{"unsupported version", "shaderir 3.1.0\n", "e.ir:1:10", "unsupported format version"},
		{"no blocks", "shaderir 1.0.0\n", "e.ir", "no blocks"},
		{"inst before block", "shaderir 1.0.0\n  Return\n", "e.ir:2:3", "expected block header"},
		{"unknown opcode", "shaderir 1.0.0\nb0:\n  %0 = Frobnicate u32 1\n", "e.ir:3:8", `unknown opcode "Frobnicate"`},
		{"arity", "shaderir 1.0.0\nb0:\n  %0 = IAdd32 u32 1\n  Return\n", "e.ir:3:8", "IAdd32 takes 2 operands, got 1"},
		{"undefined value", "shaderir 1.0.0\nb0:\n  %0 = IAdd32 %x, u32 1\n  Return\n", "e.ir:3:15", "undefined value %x"},
		{"undefined block", "shaderir 1.0.0\nb0:\n  Branch label b9\n", "e.ir:3:10", "undefined block b9"},
		{"bad literal", "shaderir 1.0.0\nb0:\n  %0 = IAdd32 u32 0x1ffffffff, u32 1\n", "e.ir:3:19", "bad u32 literal"},
		{"bad kind", "shaderir 1.0.0\nb0:\n  %0 = IAdd32 i32 1, u32 1\n", "e.ir:3:15", `unknown immediate kind "i32"`},
		{"bad bool", "shaderir 1.0.0\nb0:\n  %0 = LogicalNot u1 yes\n", "e.ir:3:22", "bad u1 literal"},
		{"named void", "shaderir 1.0.0\nb0:\n  %0 = Return\n", "e.ir:3:3", "has no result"},
		{"redefined value", "shaderir 1.0.0\nb0:\n  %a = GetRegister reg R1\n  %a = GetRegister reg R2\n  Return\n", "e.ir:4:3", "value %a redefined"},
		{"redefined block", "shaderir 1.0.0\nb0:\n  Return\nb0:\n  Return\n", "e.ir:4:1", "block b0 redefined"},
		{"self reference", "shaderir 1.0.0\nb0:\n  %a = IAdd32 %a, u32 1\n  Return\n", "e.ir:3:15", "refers to itself"},
		{"identity cycle", "shaderir 1.0.0\nb0:\n  %a = Identity %b\n  %b = Identity %a\n  Return\n", "e.ir:4:17", "value cycle through %a"},
		{"logical cycle", "shaderir 1.0.0\nb0:\n  %1 = LogicalNot %2\n  %2 = LogicalNot %1\n  SetPred pred P0, %1\n  Return\n", "e.ir:4:19", "value cycle through %1"},
		{"insert cycle", "shaderir 1.0.0\nb0:\n  %a = GetAttribute attr generic0.x\n  %1 = CompositeInsertF32x2 %2, %a, u32 0\n  %2 = CompositeInsertF32x2 %1, %a, u32 0\n  CompositeExtractF32x2 %2, u32 1\n  Return\n", "e.ir:5:29", "value cycle through %1"},
		{"phi kind", "shaderir 1.0.0\nb0:\n  %0 = Phi.u7\n", "e.ir:3:8", "bad phi kind"},
		{"bad character", "shaderir 1.0.0\nb0:\n  %0 = IAdd32 u32 1 # u32 2\n", "e.ir:3:21", "unexpected character"},
		{"flags", "shaderir 1.0.0\nb0:\n  Return !nocontract\n", "e.ir:3:11", "expected flags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("e.ir", strings.NewReader(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("error %v is not an *Error", err)
			}
			if got := perr.Pos.String(); !strings.HasPrefix(got, tt.pos) {
				t.Errorf("position = %s, want %s", got, tt.pos)
			}
			if !strings.Contains(perr.Msg, tt.msg) {
				t.Errorf("message = %q, want it to contain %q", perr.Msg, tt.msg)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.ir")
	if err := os.WriteFile(path, []byte(loopSrc), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if p.Name != "loop" {
		t.Errorf("Name = %q, want loop", p.Name)
	}

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.ir"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}
