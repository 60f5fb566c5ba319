package ir

import "fmt"

// InvariantError reports a malformed program: a condition the IR contract
// rules out, such as a bit-field extract past the operand width. It aborts
// compilation of the shader unit.
type InvariantError struct {
	Op  Opcode // opcode involved, OpInvalid if none
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Msg
}

// Invariantf builds an InvariantError for op.
func Invariantf(op Opcode, format string, args ...interface{}) *InvariantError {
	return &InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
