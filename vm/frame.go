package vm

import (
	"github.com/kerkeslager/fur-infinity/code"
)

// Frame is an activation record on the call-frame stack: everything needed
// to resume the caller when the callee returns.
type Frame struct {
	// closure is the caller's closure, nil when the caller is the
	// top-level code.
	closure *code.Closure

	// ip is the caller's saved instruction pointer.
	ip int

	// fp is the caller's saved frame pointer: the stack index of the
	// first argument or local of the caller's frame.
	fp int
}

// NewFrame creates an activation record for a suspended caller.
func NewFrame(closure *code.Closure, ip, fp int) Frame {
	return Frame{closure: closure, ip: ip, fp: fp}
}
