package code

import (
	"github.com/kerkeslager/fur-infinity/symbol"
)

// MaxArity is the largest number of parameters a closure can declare: the
// argument count is encoded in one byte.
const MaxArity = 255

// Closure is a callable object owning its own Code. There are no captured
// variables in this design; a closure is its name, its arity, and its body.
//
// Closures are compile-time products: the compiler interns them into the
// enclosing Code, which owns them. They satisfy value.Obj and compare by
// identity only.
type Closure struct {
	// Name is the interned name the closure was defined with.
	Name *symbol.Symbol

	// Arity is the number of parameters; calls with a different argument
	// count are fatal.
	Arity uint8

	// Code is the compiled body, owned by this closure.
	Code *Code
}

// NewClosure constructs a closure.
func NewClosure(name *symbol.Symbol, arity uint8, c *Code) *Closure {
	return &Closure{Name: name, Arity: arity, Code: c}
}

// Repr returns the representation of the closure.
func (c *Closure) Repr() string { return "<fn " + c.Name.Name + ">" }
