package ir

import "fmt"

// Block is a basic block: an ordered instruction sequence ending in a
// terminator (Branch, BranchConditional or Return).
type Block struct {
	// ID is a unique identifier within the containing Program.
	ID ID

	// Insts is the ordered list of instructions in this block.
	Insts []*Inst

	// Succs and Preds are the CFG edges. They are kept in sync by the
	// Emitter's branch helpers. Succs follows the terminator's label
	// order; passes that reorder labels reorder Succs too.
	Succs []*Block
	Preds []*Block

	// Program is the program containing this block.
	Program *Program
}

// String returns a short string representation (e.g., "b3").
func (b *Block) String() string {
	return fmt.Sprintf("b%d", b.ID)
}

// AddSucc adds a successor block, updating both Succs and the successor's Preds.
func (b *Block) AddSucc(succ *Block) {
	b.Succs = append(b.Succs, succ)
	succ.Preds = append(succ.Preds, b)
}

// Terminator returns the last instruction if it is a terminator, else nil.
func (b *Block) Terminator() *Inst {
	if len(b.Insts) == 0 {
		return nil
	}
	if last := b.Insts[len(b.Insts)-1]; last.IsTerminator() {
		return last
	}
	return nil
}

// Index returns the position of inst in the block, or -1.
func (b *Block) Index(inst *Inst) int {
	for i, x := range b.Insts {
		if x == inst {
			return i
		}
	}
	return -1
}

// insert places inst at position i.
func (b *Block) insert(i int, inst *Inst) {
	b.Insts = append(b.Insts, nil)
	copy(b.Insts[i+1:], b.Insts[i:])
	b.Insts[i] = inst
	inst.block = b
}

// NumInsts returns the number of instructions in this block.
func (b *Block) NumInsts() int { return len(b.Insts) }
