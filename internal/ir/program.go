package ir

// ID is a unique identifier for Insts and Blocks within a Program.
type ID int32

// Program is one shader compilation unit: an ordered collection of blocks.
// Blocks[0] is the entry block.
type Program struct {
	// Name identifies the unit in diagnostics.
	Name string

	// Blocks is the list of basic blocks in layout order.
	Blocks []*Block

	// PostOrderBlocks is the traversal order consumed by passes. It is
	// computed upstream, or by ComputePostOrder.
	PostOrderBlocks []*Block

	nextInstID  ID
	nextBlockID ID
}

// NewProgram creates an empty program.
func NewProgram(name string) *Program {
	return &Program{Name: name}
}

// NewBlock creates a new basic block and appends it to the program.
func (p *Program) NewBlock() *Block {
	b := &Block{
		ID:      p.nextBlockID,
		Program: p,
	}
	p.nextBlockID++
	p.Blocks = append(p.Blocks, b)
	return b
}

// BlockByID returns the block with the given ID, or nil.
func (p *Program) BlockByID(id ID) *Block {
	for _, b := range p.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Entry returns the entry block, or nil for an empty program.
func (p *Program) Entry() *Block {
	if len(p.Blocks) == 0 {
		return nil
	}
	return p.Blocks[0]
}

// newInst allocates an instruction with the given operands. It checks the
// opcode's arity but not operand kinds; Verify does that.
func (p *Program) newInst(op Opcode, args []Value) *Inst {
	if op == OpInvalid || op >= NumOpcodes {
		panic(Invariantf(OpInvalid, "creating instruction with invalid opcode %d", op))
	}
	if n := op.NumArgs(); n >= 0 && n != len(args) {
		panic(Invariantf(op, "%s takes %d operands, got %d", op, n, len(args)))
	}
	inst := &Inst{
		ID:   p.nextInstID,
		op:   op,
		args: make([]Value, len(args)),
	}
	p.nextInstID++
	for i, a := range args {
		inst.SetArg(i, a)
	}
	return inst
}

// NewInst creates an instruction and appends it to b.
func (p *Program) NewInst(b *Block, op Opcode, args ...Value) *Inst {
	inst := p.newInst(op, args)
	b.insert(len(b.Insts), inst)
	return inst
}

// NewInstBefore creates an instruction and inserts it in b just before at.
func (p *Program) NewInstBefore(b *Block, at *Inst, op Opcode, args ...Value) *Inst {
	i := b.Index(at)
	if i < 0 {
		panic(Invariantf(op, "%s is not in %s", at, b))
	}
	inst := p.newInst(op, args)
	b.insert(i, inst)
	return inst
}

// NewPhi creates a phi of the given result kind at the start of b.
func (p *Program) NewPhi(b *Block, kind Kind, args ...Value) *Inst {
	inst := p.newInst(OpPhi, args)
	inst.phiKind = kind
	i := 0
	for i < len(b.Insts) && b.Insts[i].op == OpPhi {
		i++
	}
	b.insert(i, inst)
	return inst
}

// NumBlocks returns the number of blocks in the program.
func (p *Program) NumBlocks() int { return len(p.Blocks) }

// NumInsts returns the total number of instructions across all blocks.
func (p *Program) NumInsts() int {
	n := 0
	for _, b := range p.Blocks {
		n += len(b.Insts)
	}
	return n
}

// ComputePostOrder fills p.PostOrderBlocks with a depth-first post-order of
// the blocks reachable from the entry. Unreachable blocks are excluded.
func ComputePostOrder(p *Program) {
	p.PostOrderBlocks = p.PostOrderBlocks[:0]
	entry := p.Entry()
	if entry == nil {
		return
	}
	visited := make(map[*Block]bool, len(p.Blocks))

	var dfs func(b *Block)
	dfs = func(b *Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			dfs(s)
		}
		p.PostOrderBlocks = append(p.PostOrderBlocks, b)
	}
	dfs(entry)
}

// ReversePostOrder returns the blocks of p in reverse post-order.
func ReversePostOrder(p *Program) []*Block {
	rpo := make([]*Block, len(p.PostOrderBlocks))
	for i, b := range p.PostOrderBlocks {
		rpo[len(rpo)-1-i] = b
	}
	return rpo
}
