package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/you-not-fish/shaderopt/internal/ir/passes"
)

const addSrc = `shaderir 1.0.0 add
b0:
  %0 = IAdd32 u32 2, u32 3
  SetRegister reg R0, %0
  Return
`

func defaultOptions() options {
	return options{jobs: 2, config: passes.Config{Verify: true, Repeat: 1}}
}

func TestRunOptimizeFoldsConstants(t *testing.T) {
	filename := writeTempIRFile(t, "add.ir", addSrc)
	var out, errOut bytes.Buffer
	code := runOptimize(context.Background(), []string{filename}, defaultOptions(), &out, &errOut)

	if code != 0 {
		t.Fatalf("runOptimize exit=%d\nstderr:\n%s", code, errOut.String())
	}
	if errOut.Len() != 0 {
		t.Fatalf("unexpected stderr:\n%s", errOut.String())
	}
	if !strings.HasPrefix(out.String(), "shaderir 1.0.0 add\n") {
		t.Fatalf("output missing header:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "SetRegister reg R0, u32 5") {
		t.Fatalf("output missing folded operand:\n%s", out.String())
	}
}

func TestRunOptimizeKeepsArgumentOrder(t *testing.T) {
	var files []string
	for _, name := range []string{"first", "second", "third", "fourth"} {
		src := strings.Replace(addSrc, "shaderir 1.0.0 add", "shaderir 1.0.0 "+name, 1)
		files = append(files, writeTempIRFile(t, name+".ir", src))
	}
	var out, errOut bytes.Buffer
	code := runOptimize(context.Background(), files, defaultOptions(), &out, &errOut)
	if code != 0 {
		t.Fatalf("runOptimize exit=%d\nstderr:\n%s", code, errOut.String())
	}

	last := -1
	for _, name := range []string{"first", "second", "third", "fourth"} {
		i := strings.Index(out.String(), "shaderir 1.0.0 "+name+"\n")
		if i <= last {
			t.Fatalf("program %s out of order:\n%s", name, out.String())
		}
		last = i
	}
}

func TestRunOptimizeReportsParseError(t *testing.T) {
	good := writeTempIRFile(t, "good.ir", addSrc)
	bad := writeTempIRFile(t, "bad.ir", "shaderir 1.0.0\nb0:\n  %0 = Frobnicate u32 1\n")
	var out, errOut bytes.Buffer
	code := runOptimize(context.Background(), []string{good, bad}, defaultOptions(), &out, &errOut)

	if code != 1 {
		t.Fatalf("runOptimize exit=%d, want 1", code)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected stdout after failure:\n%s", out.String())
	}
	want := "error: " + bad + `:3:8: unknown opcode "Frobnicate"`
	if !strings.Contains(errOut.String(), want) {
		t.Fatalf("stderr = %q, want it to contain %q", errOut.String(), want)
	}
}

func TestRunOptimizeReportsInvariantViolation(t *testing.T) {
	filename := writeTempIRFile(t, "bfe.ir", `shaderir 1.0.0 bfe
b0:
  %0 = BitFieldUExtract u32 1, u32 24, u32 16
  SetRegister reg R2, %0
  Return
`)
	var out, errOut bytes.Buffer
	code := runOptimize(context.Background(), []string{filename}, defaultOptions(), &out, &errOut)

	if code != 1 {
		t.Fatalf("runOptimize exit=%d, want 1", code)
	}
	want := "constprop: block b0: invariant violation: undefined result in BitFieldUExtract(1, 24, 16)"
	if !strings.Contains(errOut.String(), want) {
		t.Fatalf("stderr = %q, want it to contain %q", errOut.String(), want)
	}
}

func TestRunOptimizeWritesOutputFile(t *testing.T) {
	filename := writeTempIRFile(t, "add.ir", addSrc)
	opts := defaultOptions()
	opts.output = filepath.Join(t.TempDir(), "add.opt.ir")

	var out, errOut bytes.Buffer
	if code := runOptimize(context.Background(), []string{filename}, opts, &out, &errOut); code != 0 {
		t.Fatalf("runOptimize exit=%d\nstderr:\n%s", code, errOut.String())
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected stdout with -o:\n%s", out.String())
	}
	data, err := os.ReadFile(opts.output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "SetRegister reg R0, u32 5") {
		t.Fatalf("output file missing folded operand:\n%s", data)
	}
}

func TestRunOptimizeOutputNeedsSingleInput(t *testing.T) {
	a := writeTempIRFile(t, "a.ir", addSrc)
	b := writeTempIRFile(t, "b.ir", addSrc)
	opts := defaultOptions()
	opts.output = filepath.Join(t.TempDir(), "out.ir")

	var out, errOut bytes.Buffer
	if code := runOptimize(context.Background(), []string{a, b}, opts, &out, &errOut); code != 1 {
		t.Fatalf("runOptimize exit=%d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "-o requires a single input file") {
		t.Fatalf("unexpected stderr:\n%s", errOut.String())
	}
	if _, err := os.Stat(opts.output); !os.IsNotExist(err) {
		t.Fatalf("output file was written: %v", err)
	}
}

func TestRunOptimizeDumps(t *testing.T) {
	filename := writeTempIRFile(t, "add.ir", addSrc)
	opts := defaultOptions()
	opts.config.DumpBefore = "*"
	opts.config.DumpAfter = "constprop"

	var out, errOut bytes.Buffer
	if code := runOptimize(context.Background(), []string{filename}, opts, &out, &errOut); code != 0 {
		t.Fatalf("runOptimize exit=%d\nstderr:\n%s", code, errOut.String())
	}
	dump := errOut.String()
	before := strings.Index(dump, "--- before constprop (add) ---")
	after := strings.Index(dump, "--- after constprop (add) ---")
	if before < 0 || after < before {
		t.Fatalf("dump headers missing or misordered:\n%s", dump)
	}
	if !strings.Contains(dump[before:after], "SetRegister reg R0, %0") {
		t.Fatalf("before dump should show the unfolded program:\n%s", dump)
	}
	if !strings.Contains(dump[after:], "SetRegister reg R0, u32 5") {
		t.Fatalf("after dump should show the folded program:\n%s", dump)
	}
}

func TestRunOptimizeCanceled(t *testing.T) {
	filename := writeTempIRFile(t, "add.ir", addSrc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errOut bytes.Buffer
	if code := runOptimize(ctx, []string{filename}, defaultOptions(), &out, &errOut); code != 1 {
		t.Fatalf("runOptimize exit=%d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "context canceled") {
		t.Fatalf("unexpected stderr:\n%s", errOut.String())
	}
}

func TestRunWatchRerunsOnChange(t *testing.T) {
	filename := writeTempIRFile(t, "add.ir", addSrc)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out, errOut syncBuffer
	ran := make(chan int)
	done := make(chan int, 1)
	go func() {
		done <- runWatch(ctx, []string{filename}, defaultOptions(), &out, &errOut, ran)
	}()

	select {
	case code := <-ran:
		if code != 0 {
			t.Fatalf("first run exit=%d\nstderr:\n%s", code, errOut.String())
		}
	case <-done:
		// Only watcher setup can fail before the first run.
		t.Skip("fsnotify not supported: ", errOut.String())
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for first run")
	}

	changed := strings.Replace(addSrc, "u32 3", "u32 7", 1)
	if err := os.WriteFile(filename, []byte(changed), 0o600); err != nil {
		t.Fatalf("rewrite input: %v", err)
	}

	select {
	case code := <-ran:
		if code != 0 {
			t.Fatalf("rerun exit=%d\nstderr:\n%s", code, errOut.String())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for rerun")
	}
	if !strings.Contains(out.String(), "SetRegister reg R0, u32 9") {
		t.Fatalf("rerun output missing new fold:\n%s", out.String())
	}
	if !strings.Contains(errOut.String(), "input changed, re-running") {
		t.Fatalf("rerun banner missing:\n%s", errOut.String())
	}

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("runWatch exit=%d after cancel", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runWatch did not stop after cancel")
	}
}

func writeTempIRFile(t *testing.T, name, src string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(filename, []byte(src), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return filename
}

// syncBuffer is a bytes.Buffer safe for use by the watch goroutine and the
// test at once.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
