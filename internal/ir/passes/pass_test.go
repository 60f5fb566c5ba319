package passes

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/you-not-fish/shaderopt/internal/ir"
)

// returnProgram builds a program whose only block returns.
func returnProgram(name string) *ir.Program {
	p := ir.NewProgram(name)
	ir.NewEmitter(p.NewBlock()).Return()
	ir.ComputePostOrder(p)
	return p
}

func TestRunEmpty(t *testing.T) {
	p := returnProgram("f")

	err := Run(p, nil, Config{})
	if err != nil {
		t.Fatalf("Run with no passes: %v", err)
	}
}

func TestRunSinglePass(t *testing.T) {
	p := returnProgram("f")

	called := false
	passes := []Pass{
		{Name: "test", Fn: func(*ir.Program) error { called = true; return nil }},
	}

	err := Run(p, passes, Config{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !called {
		t.Error("pass was not called")
	}
}

func TestRunWithVerify(t *testing.T) {
	p := returnProgram("f")

	passes := []Pass{
		{Name: "noop", Fn: func(*ir.Program) error { return nil }},
	}

	err := Run(p, passes, Config{Verify: true})
	if err != nil {
		t.Fatalf("Run with verify: %v", err)
	}
}

func TestRunVerifyCatchesBrokenPass(t *testing.T) {
	p := returnProgram("f")

	passes := []Pass{
		{Name: "breaker", Fn: func(p *ir.Program) error {
			b := p.Entry()
			b.Insts = b.Insts[:0]
			return nil
		}},
	}

	err := Run(p, passes, Config{Verify: true})
	if err == nil {
		t.Fatal("expected verification error after broken pass")
	}
	if !strings.Contains(err.Error(), "verify after breaker") {
		t.Errorf("error = %v, want it to name the pass", err)
	}
}

func TestRunMultiplePasses(t *testing.T) {
	p := returnProgram("f")

	var order []string
	passes := []Pass{
		{Name: "first", Fn: func(*ir.Program) error { order = append(order, "first"); return nil }},
		{Name: "second", Fn: func(*ir.Program) error { order = append(order, "second"); return nil }},
	}

	err := Run(p, passes, Config{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("pass order = %v, want [first second]", order)
	}
}

func TestRunRepeat(t *testing.T) {
	p := returnProgram("f")

	for _, tt := range []struct{ repeat, want int }{{0, 1}, {1, 1}, {3, 3}} {
		n := 0
		passes := []Pass{{Name: "count", Fn: func(*ir.Program) error { n++; return nil }}}
		if err := Run(p, passes, Config{Repeat: tt.repeat}); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if n != tt.want {
			t.Errorf("Repeat %d: pass ran %d times, want %d", tt.repeat, n, tt.want)
		}
	}
}

func TestRunStopsOnError(t *testing.T) {
	p := returnProgram("f")

	boom := errors.New("boom")
	ranSecond := false
	passes := []Pass{
		{Name: "fail", Fn: func(*ir.Program) error { return boom }},
		{Name: "second", Fn: func(*ir.Program) error { ranSecond = true; return nil }},
	}

	err := Run(p, passes, Config{})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want wrapped boom", err)
	}
	if got, want := err.Error(), "fail: boom"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
	if ranSecond {
		t.Error("pass after a failing pass should not run")
	}
}

func TestRunDumps(t *testing.T) {
	p := returnProgram("main")
	noop := []Pass{{Name: "noop", Fn: func(*ir.Program) error { return nil }}}

	var buf bytes.Buffer
	if err := Run(p, noop, Config{DumpBefore: "noop", DumpAfter: "*", Out: &buf}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"--- before noop (main) ---\n",
		"--- after noop (main) ---\n",
		"shaderir 1.0.0 main\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := Run(p, noop, Config{DumpAfter: "*", DumpProgram: "other", Out: &buf}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("dump filtered to another program should be empty, got:\n%s", buf.String())
	}
}
