// Package irtext parses the text form of shader IR programs written by
// ir.Fprint.
package irtext

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/you-not-fish/shaderopt/internal/ir"
)

// Magic is the first word of every text program.
const Magic = "shaderir"

// SupportedVersions is the constraint a program's format version must meet.
const SupportedVersions = "^1.0"

var supported = func() *semver.Constraints {
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		panic(err)
	}
	return c
}()

// Maximum number of errors before aborting parse.
const maxErrors = 10

// Parse reads a program in text form. name is used in error positions.
// Only the first error is returned; parsing resumes at the next line after
// an error so that the count of further errors is bounded.
func Parse(name string, r io.Reader) (*ir.Program, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	p := newParser(name, src)
	prog := p.parseProgram()
	if p.first != nil {
		return nil, p.first
	}
	return prog, nil
}

// ParseFile parses the program stored at path.
func ParseFile(path string) (*ir.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(path, f)
}

// operand is an unresolved instruction operand.
type operand struct {
	pos   Pos
	ref   string   // %name, or
	label string   // block name for label immediates, or
	imm   ir.Value // any other immediate
}

// pendingInst is an instruction whose operands are set once every name in
// the program is known.
type pendingInst struct {
	inst *ir.Inst
	args []operand
}

type parser struct {
	scanner *scanner

	tok token
	lit string
	pos Pos

	errcnt int
	first  error

	prog    *ir.Program
	blocks  map[string]*ir.Block
	values  map[string]*ir.Inst
	pending []pendingInst
}

func newParser(filename string, src []byte) *parser {
	p := &parser{
		blocks: make(map[string]*ir.Block),
		values: make(map[string]*ir.Inst),
	}
	p.scanner = newScanner(filename, src, p.errorAt)
	p.next()
	return p
}

func (p *parser) next() {
	p.scanner.next()
	p.tok = p.scanner.tok
	p.lit = p.scanner.lit
	p.pos = p.scanner.tokPos
}

func (p *parser) got(tok token) bool {
	if p.tok == tok {
		p.next()
		return true
	}
	return false
}

func (p *parser) errorAt(pos Pos, msg string) {
	if p.errcnt == 0 {
		p.first = &Error{Pos: pos, Msg: msg}
	}
	p.errcnt++
}

func (p *parser) errorf(pos Pos, format string, args ...interface{}) {
	p.errorAt(pos, fmt.Sprintf(format, args...))
}

// syntaxError reports msg at the current token and skips to the next line.
func (p *parser) syntaxError(msg string) {
	found := p.tok.String()
	if p.lit != "" {
		found = fmt.Sprintf("%q", p.lit)
	}
	p.errorf(p.pos, "%s, found %s", msg, found)
	p.skipLine()
}

func (p *parser) skipLine() {
	for p.tok != _Newline && p.tok != _EOF {
		p.next()
	}
	p.got(_Newline)
}

func (p *parser) aborted() bool { return p.errcnt >= maxErrors }

// ----------------------------------------------------------------------------
// Program structure

func (p *parser) parseProgram() *ir.Program {
	name, ok := p.parseHeader()
	if !ok {
		return nil
	}
	p.prog = ir.NewProgram(name)

	var cur *ir.Block
	for p.tok != _EOF && !p.aborted() {
		if p.tok == _Name && p.scanner.ch == ':' {
			cur = p.parseBlockHeader()
			continue
		}
		if cur == nil {
			p.syntaxError("expected block header")
			continue
		}
		p.parseInst(cur)
	}
	if p.first != nil {
		return nil
	}
	if p.prog.NumBlocks() == 0 {
		p.errorf(p.pos, "program has no blocks")
		return nil
	}

	p.resolve()
	if p.first == nil {
		p.checkCycles()
	}
	if p.first != nil {
		return nil
	}
	ir.ComputePostOrder(p.prog)
	return p.prog
}

// parseHeader parses "shaderir <version> [name]".
func (p *parser) parseHeader() (string, bool) {
	if p.tok != _Name || p.lit != Magic {
		p.syntaxError("expected " + Magic + " header")
		return "", false
	}
	p.next()

	verPos := p.pos
	if p.tok != _Number && p.tok != _Name {
		p.syntaxError("expected format version")
		return "", false
	}
	v, err := semver.NewVersion(p.lit)
	if err != nil {
		p.errorf(verPos, "bad format version %q: %v", p.lit, err)
		return "", false
	}
	if !supported.Check(v) {
		p.errorf(verPos, "unsupported format version %s (want %s)", v, SupportedVersions)
		return "", false
	}

	name := p.scanner.restOfLine()
	p.next()
	if !p.got(_Newline) && p.tok != _EOF {
		p.syntaxError("expected newline after header")
	}
	return name, true
}

func (p *parser) parseBlockHeader() *ir.Block {
	name, pos := p.lit, p.pos
	p.next() // name
	p.next() // ':'
	if _, dup := p.blocks[name]; dup {
		p.errorf(pos, "block %s redefined", name)
	}
	b := p.prog.NewBlock()
	p.blocks[name] = b
	if !p.got(_Newline) && p.tok != _EOF {
		p.syntaxError("expected newline after block header")
	}
	return b
}

// parseInst parses "[%name =] Opcode operand, ... [!flags N]".
func (p *parser) parseInst(b *ir.Block) {
	var result string
	var resultPos Pos
	if p.tok == _Ref {
		result, resultPos = p.lit, p.pos
		p.next()
		if !p.got(_Assign) {
			p.syntaxError("expected '=' after result name")
			return
		}
	}

	if p.tok != _Name {
		p.syntaxError("expected opcode")
		return
	}
	opPos := p.pos
	opName := p.lit
	phiKind := ir.KindVoid
	if base, kind, ok := strings.Cut(opName, "."); ok && base == "Phi" {
		k, valid := ir.KindByName(kind)
		if !valid || !(k.IsScalar() || k.IsComposite()) {
			p.errorf(opPos, "bad phi kind %q", kind)
			p.skipLine()
			return
		}
		opName, phiKind = base, k
	}
	op, ok := ir.OpcodeByName(opName)
	if !ok {
		p.errorf(opPos, "unknown opcode %q", opName)
		p.skipLine()
		return
	}
	if op == ir.OpPhi && phiKind == ir.KindVoid {
		p.errorf(opPos, "phi needs a result kind, e.g. Phi.u32")
		p.skipLine()
		return
	}
	p.next()

	var args []operand
	if p.tok != _Newline && p.tok != _EOF && p.tok != _Bang {
		for {
			a, ok := p.parseOperand()
			if !ok {
				return
			}
			args = append(args, a)
			if !p.got(_Comma) {
				break
			}
		}
	}

	var flags uint32
	if p.got(_Bang) {
		var ok bool
		if flags, ok = p.parseFlags(); !ok {
			return
		}
	}
	if !p.got(_Newline) && p.tok != _EOF {
		p.syntaxError("expected newline after instruction")
		return
	}

	if n := op.NumArgs(); n >= 0 && n != len(args) {
		p.errorf(opPos, "%s takes %d operands, got %d", op, n, len(args))
		return
	}

	// Operands are filled in by resolve once all names are defined.
	empty := make([]ir.Value, len(args))
	var inst *ir.Inst
	if op == ir.OpPhi {
		inst = p.prog.NewPhi(b, phiKind, empty...)
	} else {
		inst = p.prog.NewInst(b, op, empty...)
	}
	inst.SetFlags(flags)
	p.pending = append(p.pending, pendingInst{inst: inst, args: args})

	if result == "" {
		return
	}
	if op.Info().Result == ir.KindVoid {
		p.errorf(resultPos, "%s has no result to name %%%s", op, result)
		return
	}
	if _, dup := p.values[result]; dup {
		p.errorf(resultPos, "value %%%s redefined", result)
		return
	}
	p.values[result] = inst
}

// parseFlags parses the word after '!'.
func (p *parser) parseFlags() (uint32, bool) {
	if p.tok != _Name || p.lit != "flags" {
		p.syntaxError("expected flags")
		return 0, false
	}
	p.next()
	if p.tok != _Number {
		p.syntaxError("expected flag bits")
		return 0, false
	}
	bits, err := strconv.ParseUint(p.lit, 0, 32)
	if err != nil {
		p.errorf(p.pos, "bad flag bits %q", p.lit)
		p.skipLine()
		return 0, false
	}
	p.next()
	return uint32(bits), true
}

func (p *parser) parseOperand() (operand, bool) {
	a := operand{pos: p.pos}
	if p.tok == _Ref {
		a.ref = p.lit
		p.next()
		return a, true
	}
	if p.tok != _Name {
		p.syntaxError("expected operand")
		return a, false
	}
	kind, ok := ir.KindByName(p.lit)
	if !ok || !kind.IsScalar() {
		p.errorf(p.pos, "unknown immediate kind %q", p.lit)
		p.skipLine()
		return a, false
	}
	p.next()
	if p.tok != _Name && p.tok != _Number {
		p.syntaxError("expected " + kind.String() + " literal")
		return a, false
	}
	litPos, lit := p.pos, p.lit
	p.next()

	if kind == ir.KindLabel {
		a.label = lit
		return a, true
	}
	v, err := parseImmediate(kind, lit)
	if err != nil {
		p.errorf(litPos, "bad %s literal %q: %v", kind, lit, err)
		p.skipLine()
		return a, false
	}
	a.imm = v
	return a, true
}

// parseImmediate converts the literal of a non-label immediate.
func parseImmediate(kind ir.Kind, lit string) (ir.Value, error) {
	switch kind {
	case ir.KindU1:
		if lit != "true" && lit != "false" {
			return ir.Value{}, fmt.Errorf("want true or false")
		}
		return ir.ImmU1(lit == "true"), nil
	case ir.KindU8, ir.KindU16, ir.KindU32, ir.KindU64, ir.KindF16:
		size := map[ir.Kind]int{ir.KindU8: 8, ir.KindU16: 16, ir.KindU32: 32, ir.KindU64: 64, ir.KindF16: 16}[kind]
		n, err := strconv.ParseUint(lit, 0, size)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.ImmBits(kind, n), nil
	case ir.KindF32:
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.ImmF32(float32(f)), nil
	case ir.KindF64:
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.ImmF64(f), nil
	case ir.KindReg:
		r, err := ir.ParseReg(lit)
		return ir.ImmReg(r), err
	case ir.KindPred:
		pr, err := ir.ParsePred(lit)
		return ir.ImmPred(pr), err
	case ir.KindAttribute:
		at, err := ir.ParseAttribute(lit)
		return ir.ImmAttribute(at), err
	}
	return ir.Value{}, fmt.Errorf("no literal syntax for %s", kind)
}

// ----------------------------------------------------------------------------
// Name resolution

// resolve fills in every operand and builds the CFG edges from terminator
// labels.
func (p *parser) resolve() {
	for _, pi := range p.pending {
		for i, a := range pi.args {
			switch {
			case a.ref != "":
				def, ok := p.values[a.ref]
				if !ok {
					p.errorf(a.pos, "undefined value %%%s", a.ref)
					continue
				}
				if def == pi.inst {
					p.errorf(a.pos, "%%%s refers to itself", a.ref)
					continue
				}
				pi.inst.SetArg(i, ir.Ref(def))
			case a.label != "":
				target, ok := p.blocks[a.label]
				if !ok {
					p.errorf(a.pos, "undefined block %s", a.label)
					continue
				}
				pi.inst.SetArg(i, ir.ImmLabel(target))
				if pi.inst.IsTerminator() {
					pi.inst.Block().AddSucc(target)
				}
			default:
				pi.inst.SetArg(i, a.imm)
			}
		}
	}
}

// checkCycles rejects definitions that depend on themselves without going
// through a phi. The pass and ir.Value.Resolve require the def relation
// outside phis to be acyclic.
func (p *parser) checkCycles() {
	const (
		visiting = 1
		done     = 2
	)
	pending := make(map[*ir.Inst]*pendingInst, len(p.pending))
	for i := range p.pending {
		pending[p.pending[i].inst] = &p.pending[i]
	}
	state := make(map[*ir.Inst]int, len(p.pending))

	// visit reports whether a cycle was found below in.
	var visit func(in *ir.Inst) bool
	visit = func(in *ir.Inst) bool {
		state[in] = visiting
		if in.Opcode() != ir.OpPhi {
			pi := pending[in]
			for i, a := range pi.args {
				def := in.Arg(i).Inst()
				if def == nil {
					continue
				}
				switch state[def] {
				case visiting:
					p.errorf(a.pos, "value cycle through %s", p.nameOf(def))
					return true
				case 0:
					if visit(def) {
						return true
					}
				}
			}
		}
		state[in] = done
		return false
	}

	for _, pi := range p.pending {
		if state[pi.inst] == 0 && visit(pi.inst) {
			return
		}
	}
}

// nameOf returns the name that defines in in the text.
func (p *parser) nameOf(in *ir.Inst) string {
	for name, def := range p.values {
		if def == in {
			return "%" + name
		}
	}
	return in.String()
}
