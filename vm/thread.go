// Package vm implements the bytecode interpreter for the Fur programming language.
//
// A Thread executes instructions from a Code against a bounded value stack
// and a bounded call-frame stack. Locals are slots on the value stack
// addressed from the current frame pointer; a call rebases the frame pointer
// so the arguments become the callee's first slots, and a return overwrites
// the frame base with the result and pops the rest.
//
// The thread owns the heap list of objects constructed at run time (string
// concatenations, native wrappers, native results). Objects are linked into
// the heap only after they are reachable from the stack, so a future
// collector can never sweep a value mid-construction. Interned objects
// pushed by OpIntern belong to their Code and never enter the heap.
//
// A Thread may be reused across Run calls; the value stack carries over,
// which is how the REPL keeps bindings live between entries.
package vm

import (
	"fmt"

	"github.com/kerkeslager/fur-infinity/code"
	"github.com/kerkeslager/fur-infinity/value"
)

// Execution limits, fixed at compile time.
const (
	// MaxStackDepth is the capacity of the value stack.
	MaxStackDepth = 256

	// MaxFrameDepth is the capacity of the call-frame stack.
	MaxFrameDepth = 64
)

// Thread is a single execution context: a value stack, a frame stack, and
// the heap list of objects it has constructed.
type Thread struct {
	stack [MaxStackDepth]value.Value
	sp    int

	frames     [MaxFrameDepth]Frame
	frameCount int

	heap []value.Obj

	// current is the closure being executed, nil at the top level.
	current *code.Closure
}

// NewThread creates a thread with an empty stack and heap.
func NewThread() *Thread {
	return &Thread{}
}

// StackDepth returns the number of values currently on the stack.
func (t *Thread) StackDepth() int { return t.sp }

// addToHeap links an object constructed at run time into the thread's heap.
// Callers must have already made the object reachable from the stack.
func (t *Thread) addToHeap(o value.Obj) {
	t.heap = append(t.heap, o)
}

func (t *Thread) push(v value.Value) error {
	if t.sp >= MaxStackDepth {
		return fmt.Errorf("stack overflow")
	}
	t.stack[t.sp] = v
	t.sp++
	return nil
}

func (t *Thread) pop() (value.Value, error) {
	if t.sp == 0 {
		return value.Nil(), fmt.Errorf("stack underflow")
	}
	t.sp--
	return t.stack[t.sp], nil
}

// Run executes co from the given start offset until a top-level return, and
// returns the produced value. Errors carry the source line of the faulting
// instruction, taken from the code's line map.
func (t *Thread) Run(co *code.Code, start int) (value.Value, error) {
	cur := co
	ip := start
	fp := 0

	// fail formats a runtime error located at the instruction offset.
	fail := func(offset int, format string, args ...any) error {
		return fmt.Errorf("line %d: %s", cur.LineAt(offset), fmt.Sprintf(format, args...))
	}

	for {
		if ip >= len(cur.Instructions) {
			return value.Nil(), fail(ip-1, "ran off the end of the code")
		}

		opOffset := ip
		op := code.Opcode(cur.Instructions[ip])
		// The instruction pointer advances immediately; each case advances
		// it further past its own operand.
		ip++

		switch op {
		case code.OpNil:
			if err := t.push(value.Nil()); err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}

		case code.OpTrue:
			if err := t.push(value.FromBool(true)); err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}

		case code.OpFalse:
			if err := t.push(value.FromBool(false)); err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}

		case code.OpInteger:
			n := cur.ReadI32(ip)
			ip += 4
			if err := t.push(value.FromInt32(n)); err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}

		case code.OpIntern:
			index := cur.ReadU8(ip)
			ip++
			// Interned objects belong to the Code and may be shared by
			// every thread that runs it; they never enter the heap.
			if err := t.push(value.FromObj(cur.Interned(index))); err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}

		case code.OpNative:
			index := cur.ReadU8(ip)
			ip++
			native := value.MakeNative(index)
			if err := t.push(value.FromObj(native)); err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}
			t.addToHeap(native)

		case code.OpGet:
			slot := int(cur.ReadU8(ip))
			ip++
			if fp+slot >= t.sp {
				return value.Nil(), fail(opOffset, "slot %d is not occupied", slot)
			}
			if err := t.push(t.stack[fp+slot]); err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}

		case code.OpSet:
			slot := int(cur.ReadU8(ip))
			ip++
			v, err := t.pop()
			if err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}
			if fp+slot >= t.sp {
				return value.Nil(), fail(opOffset, "slot %d is not occupied", slot)
			}
			t.stack[fp+slot] = v

		case code.OpDrop:
			if _, err := t.pop(); err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}

		case code.OpNegate:
			if t.sp == 0 {
				return value.Nil(), fail(opOffset, "stack underflow")
			}
			v := t.stack[t.sp-1]
			if !v.IsInteger() {
				return value.Nil(), fail(opOffset, "cannot negate %s", v.Repr())
			}
			t.stack[t.sp-1] = value.FromInt32(-v.AsInt32())

		case code.OpNot:
			if t.sp == 0 {
				return value.Nil(), fail(opOffset, "stack underflow")
			}
			v := t.stack[t.sp-1]
			if !v.IsBoolean() {
				return value.Nil(), fail(opOffset, "cannot apply not to %s", v.Repr())
			}
			t.stack[t.sp-1] = value.FromBool(!v.AsBool())

		case code.OpAdd:
			a, b, err := t.binaryOperands()
			if err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}
			switch {
			case b.IsInteger():
				if !a.IsInteger() {
					return value.Nil(), fail(opOffset, "cannot add %s and %s", a.Repr(), b.Repr())
				}
				t.stack[t.sp-1] = value.FromInt32(a.AsInt32() + b.AsInt32())

			case b.IsObj():
				bs, bok := b.AsObj().(*value.String)
				if !bok {
					return value.Nil(), fail(opOffset, "cannot add %s and %s", a.Repr(), b.Repr())
				}
				var left *value.String
				aok := false
				if a.IsObj() {
					left, aok = a.AsObj().(*value.String)
				}
				if !aok {
					return value.Nil(), fail(opOffset, "cannot concatenate %s and %s", a.Repr(), b.Repr())
				}
				s := value.NewString(left.Characters + bs.Characters)
				t.stack[t.sp-1] = value.FromObj(s)
				// Linked into the heap only now that the stack holds it.
				t.addToHeap(s)

			default:
				return value.Nil(), fail(opOffset, "cannot add %s and %s", a.Repr(), b.Repr())
			}

		case code.OpSubtract, code.OpMultiply, code.OpDivide:
			a, b, err := t.binaryOperands()
			if err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}
			if !a.IsInteger() || !b.IsInteger() {
				return value.Nil(), fail(opOffset, "cannot apply arithmetic to %s and %s", a.Repr(), b.Repr())
			}
			var result int32
			switch op {
			case code.OpSubtract:
				result = a.AsInt32() - b.AsInt32()
			case code.OpMultiply:
				result = a.AsInt32() * b.AsInt32()
			case code.OpDivide:
				if b.AsInt32() == 0 {
					return value.Nil(), fail(opOffset, "division by zero")
				}
				result = a.AsInt32() / b.AsInt32()
			}
			t.stack[t.sp-1] = value.FromInt32(result)

		case code.OpEq:
			a, b, err := t.binaryOperands()
			if err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}
			t.stack[t.sp-1] = value.FromBool(value.Equals(a, b))

		case code.OpNeq:
			a, b, err := t.binaryOperands()
			if err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}
			t.stack[t.sp-1] = value.FromBool(!value.Equals(a, b))

		case code.OpLt, code.OpGt, code.OpLeq, code.OpGeq:
			a, b, err := t.binaryOperands()
			if err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}
			if !a.IsInteger() || !b.IsInteger() {
				return value.Nil(), fail(opOffset, "cannot compare %s and %s", a.Repr(), b.Repr())
			}
			var result bool
			switch op {
			case code.OpLt:
				result = a.AsInt32() < b.AsInt32()
			case code.OpGt:
				result = a.AsInt32() > b.AsInt32()
			case code.OpLeq:
				result = a.AsInt32() <= b.AsInt32()
			case code.OpGeq:
				result = a.AsInt32() >= b.AsInt32()
			}
			t.stack[t.sp-1] = value.FromBool(result)

		case code.OpJump:
			delta := int(cur.ReadI16(ip))
			// Deltas are measured from the offset of the delta bytes, which
			// is exactly where ip points now.
			ip += delta

		case code.OpJumpIfTrue, code.OpJumpIfFalse:
			delta := int(cur.ReadI16(ip))
			v, err := t.pop()
			if err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}
			if !v.IsBoolean() {
				return value.Nil(), fail(opOffset, "condition is %s, not a boolean", v.Repr())
			}
			if v.AsBool() == (op == code.OpJumpIfTrue) {
				ip += delta
			} else {
				ip += 2
			}

		case code.OpAnd, code.OpOr:
			delta := int(cur.ReadI16(ip))
			if t.sp == 0 {
				return value.Nil(), fail(opOffset, "stack underflow")
			}
			v := t.stack[t.sp-1]
			if !v.IsBoolean() {
				return value.Nil(), fail(opOffset, "operand is %s, not a boolean", v.Repr())
			}
			// Short-circuit: jump with the deciding value still on the
			// stack as the result; otherwise drop it and evaluate the
			// right operand.
			if v.AsBool() == (op == code.OpOr) {
				ip += delta
			} else {
				t.sp--
				ip += 2
			}

		case code.OpCall:
			argc := int(cur.ReadU8(ip))
			ip++

			callee, err := t.pop()
			if err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}
			if !callee.IsObj() {
				return value.Nil(), fail(opOffset, "cannot call %s", callee.Repr())
			}
			if t.sp < argc {
				return value.Nil(), fail(opOffset, "stack underflow")
			}

			switch fn := callee.AsObj().(type) {
			case *value.Native:
				// The arguments stay on the stack during the call so a
				// collector would see them as live.
				args := t.stack[t.sp-argc : t.sp]
				result, err := fn.Fn(args)
				if err != nil {
					return value.Nil(), fail(opOffset, "%s", err)
				}
				t.sp -= argc
				t.stack[t.sp] = result
				t.sp++
				if result.IsObj() {
					t.addToHeap(result.AsObj())
				}

			case *code.Closure:
				if argc != int(fn.Arity) {
					return value.Nil(), fail(opOffset,
						"%s takes %d arguments, got %d", fn.Name.Name, fn.Arity, argc)
				}
				if t.frameCount >= MaxFrameDepth {
					return value.Nil(), fail(opOffset, "call stack overflow")
				}
				t.frames[t.frameCount] = NewFrame(t.current, ip, fp)
				t.frameCount++

				t.current = fn
				cur = fn.Code
				ip = 0
				fp = t.sp - argc

			default:
				return value.Nil(), fail(opOffset, "cannot call %s", callee.Repr())
			}

		case code.OpReturn:
			if t.frameCount == 0 {
				if t.sp == 0 {
					return value.Nil(), nil
				}
				return t.pop()
			}

			result, err := t.pop()
			if err != nil {
				return value.Nil(), fail(opOffset, "%s", err)
			}

			t.frameCount--
			frame := t.frames[t.frameCount]

			t.stack[fp] = result
			t.sp = fp + 1

			t.current = frame.closure
			if frame.closure == nil {
				cur = co
			} else {
				cur = frame.closure.Code
			}
			ip = frame.ip
			fp = frame.fp

		case code.OpProp:
			return value.Nil(), fail(opOffset, "property access is not implemented")

		default:
			return value.Nil(), fail(opOffset, "unknown opcode %d", op)
		}
	}
}

// binaryOperands pops the right operand and peeks the left, so the result
// can overwrite the left in place with only one stack adjustment.
func (t *Thread) binaryOperands() (value.Value, value.Value, error) {
	if t.sp < 2 {
		return value.Nil(), value.Nil(), fmt.Errorf("stack underflow")
	}
	b := t.stack[t.sp-1]
	t.sp--
	a := t.stack[t.sp-1]
	return a, b, nil
}
