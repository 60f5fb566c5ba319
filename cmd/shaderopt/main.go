// Package main implements the shader IR optimizer entry point.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/you-not-fish/shaderopt/internal/ir"
	"github.com/you-not-fish/shaderopt/internal/ir/passes"
	"github.com/you-not-fish/shaderopt/internal/irtext"
)

// Optimizer flags
var (
	output      = flag.String("o", "", "Output file (single input only)")
	repeat      = flag.Int("repeat", 1, "Run each pass this many times")
	verify      = flag.Bool("verify", true, "Verify IR before and after each pass")
	dumpBefore  = flag.String("dump-before", "", "Dump IR before pass (name or \"*\")")
	dumpAfter   = flag.String("dump-after", "", "Dump IR after pass (name or \"*\")")
	dumpProgram = flag.String("dump-program", "", "Only dump the named program")
	jobs        = flag.Int("j", runtime.NumCPU(), "Number of files optimized in parallel")
	watch       = flag.Bool("watch", false, "Re-run when an input file changes")
	version     = flag.Bool("version", false, "Print version")
)

// Version information
const Version = "0.1.0-dev"

// watchDelay coalesces the bursts of events a single save produces.
const watchDelay = 100 * time.Millisecond

// options is the flag state handed to the run functions.
type options struct {
	output string
	jobs   int
	config passes.Config
}

func optionsFromFlags() options {
	return options{
		output: *output,
		jobs:   *jobs,
		config: passes.Config{
			DumpBefore:  *dumpBefore,
			DumpAfter:   *dumpAfter,
			DumpProgram: *dumpProgram,
			Verify:      *verify,
			Repeat:      *repeat,
		},
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "shaderopt %s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: shaderopt [options] <file.ir>...\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *version {
		fmt.Printf("shaderopt version %s\n", Version)
		fmt.Printf("ir format %s\n", ir.FormatVersion)
		fmt.Printf("go version %s\n", runtime.Version())
		os.Exit(0)
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "error: no input file")
		fmt.Fprintln(os.Stderr, "usage: shaderopt [options] <file.ir>...")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	var code int
	if *watch {
		code = runWatch(ctx, files, optionsFromFlags(), os.Stdout, os.Stderr, nil)
	} else {
		code = runOptimize(ctx, files, optionsFromFlags(), os.Stdout, os.Stderr)
	}
	stop()
	os.Exit(code)
}

// result is the outcome of optimizing one file.
type result struct {
	text []byte // optimized program
	dump []byte // pass dumps
}

// runOptimize optimizes every file, at most opts.jobs at a time. Dumps go to
// stderr and programs to stdout (or opts.output), both in argument order.
// Nothing is written to stdout unless every file succeeds.
func runOptimize(ctx context.Context, files []string, opts options, stdout, stderr io.Writer) int {
	if opts.output != "" && len(files) > 1 {
		fmt.Fprintln(stderr, "error: -o requires a single input file")
		return 1
	}

	results := make([]result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.jobs, 1))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var dump bytes.Buffer
			text, err := optimizeFile(path, opts.config, &dump)
			results[i] = result{text: text, dump: dump.Bytes()}
			return err
		})
	}
	err := g.Wait()

	for _, r := range results {
		stderr.Write(r.dump)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, results[0].text, 0o644); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}
	for _, r := range results {
		stdout.Write(r.text)
	}
	return 0
}

// optimizeFile parses path, runs the default pipeline and returns the
// printed result. Pass dumps are written to dump.
func optimizeFile(path string, cfg passes.Config, dump io.Writer) ([]byte, error) {
	prog, err := irtext.ParseFile(path)
	if err != nil {
		return nil, err
	}

	cfg.Out = dump
	if err := passes.Run(prog, passes.Default(), cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var buf bytes.Buffer
	ir.Fprint(&buf, prog)
	return buf.Bytes(), nil
}

// runWatch optimizes files once and again whenever one of them is written,
// until ctx is done. The exit code of each run is sent on ran if it is not nil.
func runWatch(ctx context.Context, files []string, opts options, stdout, stderr io.Writer, ran chan<- int) int {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer w.Close()

	// Editors often save by renaming over the file, which drops a watch on
	// the file itself; watch the directories instead.
	targets := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		targets[filepath.Clean(f)] = true
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := w.Add(dir); err != nil {
			fmt.Fprintf(stderr, "error: watch %s: %v\n", dir, err)
			return 1
		}
	}

	report := func(code int) {
		if ran == nil {
			return
		}
		select {
		case ran <- code:
		case <-ctx.Done():
		}
	}
	report(runOptimize(ctx, files, opts, stdout, stderr))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return 0
		case ev, ok := <-w.Events:
			if !ok {
				return 0
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !targets[filepath.Clean(ev.Name)] {
				continue
			}
			pending = time.After(watchDelay)
		case err, ok := <-w.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(stderr, "error: watch: %v\n", err)
		case <-pending:
			pending = nil
			fmt.Fprintf(stderr, "--- %s: input changed, re-running ---\n", time.Now().Format(time.TimeOnly))
			report(runOptimize(ctx, files, opts, stdout, stderr))
		}
	}
}
