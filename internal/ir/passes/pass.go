// Package passes implements optimization passes over shader IR programs.
package passes

import (
	"fmt"
	"io"
	"os"

	"github.com/you-not-fish/shaderopt/internal/ir"
)

// Pass describes a single IR optimization pass.
type Pass struct {
	Name string
	Fn   func(p *ir.Program) error
}

// Config controls pass execution behavior.
type Config struct {
	DumpBefore  string    // dump IR before this pass ("*" for all)
	DumpAfter   string    // dump IR after this pass ("*" for all)
	Verify      bool      // verify IR before/after each pass
	DumpProgram string    // restrict dumps to this program name
	Repeat      int       // times to run each pass; values below 1 mean once
	Out         io.Writer // dump destination; nil means stderr
}

// Default returns the standard pipeline.
func Default() []Pass {
	return []Pass{
		{Name: "constprop", Fn: ConstantPropagation},
	}
}

// Run executes the given passes on p in order. Each pass runs cfg.Repeat
// times back to back; a single sweep is not a fixpoint, so repeating lets
// folds exposed by earlier rewrites be picked up.
func Run(p *ir.Program, passes []Pass, cfg Config) error {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	repeat := cfg.Repeat
	if repeat < 1 {
		repeat = 1
	}

	for _, ps := range passes {
		if shouldDump(cfg.DumpBefore, ps.Name) && matchProgram(cfg.DumpProgram, p.Name) {
			fmt.Fprintf(out, "--- before %s (%s) ---\n", ps.Name, p.Name)
			ir.Fprint(out, p)
			fmt.Fprintln(out)
		}

		if cfg.Verify {
			if err := ir.Verify(p); err != nil {
				return fmt.Errorf("verify before %s: %w", ps.Name, err)
			}
		}

		for i := 0; i < repeat; i++ {
			if err := ps.Fn(p); err != nil {
				return fmt.Errorf("%s: %w", ps.Name, err)
			}
		}

		if cfg.Verify {
			if err := ir.Verify(p); err != nil {
				return fmt.Errorf("verify after %s: %w", ps.Name, err)
			}
		}

		if shouldDump(cfg.DumpAfter, ps.Name) && matchProgram(cfg.DumpProgram, p.Name) {
			fmt.Fprintf(out, "--- after %s (%s) ---\n", ps.Name, p.Name)
			ir.Fprint(out, p)
			fmt.Fprintln(out)
		}
	}
	return nil
}

func shouldDump(pattern, name string) bool {
	return pattern == "*" || pattern == name
}

func matchProgram(filter, name string) bool {
	return filter == "" || filter == name
}
