// Package types defines L2 instruction types, operand kinds and operators.
package types

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ArithmeticOperation defines a two-address arithmetic or shift operation, w op= t.
type ArithmeticOperation uint

// RelationalOperation defines the comparison operators available to compare and cjump instructions.
type RelationalOperation uint

// InstructionType defines the closed set of L2 instruction variants.
type InstructionType uint

// ItemType defines the kind of an instruction operand.
type ItemType uint

// VariableKind separates virtual variables from physical registers.
type VariableKind uint

// ---------------------
// ----- Constants -----
// ---------------------

const (
	Add    ArithmeticOperation = iota // Add identifies w += t.
	Sub                               // Sub identifies w -= t.
	Mul                               // Mul identifies w *= t.
	And                               // And identifies w &= t.
	LShift                            // LShift identifies w <<= t.
	RShift                            // RShift identifies w >>= t.
)

const (
	LessThan        RelationalOperation = iota // LessThan defines <.
	LessThanOrEqual                            // LessThanOrEqual defines <=.
	Equal                                      // Equal defines =.
)

const (
	Return      InstructionType = iota // return
	Assign                             // w <- s
	Load                               // w <- mem x M
	Store                              // mem x M <- s
	Arith                              // w aop t
	LoadArith                          // w aop mem x M
	StoreArith                         // mem x M aop t
	Compare                            // w <- t cmp t
	CJump                              // cjump t cmp t label
	Label                              // :label
	Goto                               // goto label
	Call                               // call u N
	RuntimeCall                        // call print 1, call input 0, call allocate 2, call tuple-error 3, call tensor-error F
	Increment                          // w++
	Decrement                          // w--
	Lea                                // w @ w w E
	StackArg                           // w <- stack-arg M
)

const (
	Variable ItemType = iota // Variable operand; virtual variable or physical register.
	Number                   // Number operand; signed 64-bit immediate.
	LabelName                // LabelName operand; :label.
	FunctionName             // FunctionName operand; @name.
)

const (
	Virtual  VariableKind = iota // Virtual defines an unbounded symbolic variable.
	Physical                     // Physical defines a machine register.
)

// Runtime functions callable with the RuntimeCall instruction.
const (
	RuntimePrint       = "print"
	RuntimeInput       = "input"
	RuntimeAllocate    = "allocate"
	RuntimeTupleError  = "tuple-error"
	RuntimeTensorError = "tensor-error"
)

// -------------------
// ----- Globals -----
// -------------------

// aTyp provides string literals for ArithmeticOperation constants.
var aTyp = [...]string{
	"+=",
	"-=",
	"*=",
	"&=",
	"<<=",
	">>=",
}

// lTyp provides string literals for RelationalOperation constants.
var lTyp = [...]string{
	"<",
	"<=",
	"=",
}

// iTyp provides the interchange names of InstructionType constants.
var iTyp = [...]string{
	"return",
	"assign",
	"load",
	"store",
	"arith",
	"load-arith",
	"store-arith",
	"compare",
	"cjump",
	"label",
	"goto",
	"call",
	"runtime-call",
	"increment",
	"decrement",
	"lea",
	"stack-arg",
}

// itTyp provides string literals for ItemType constants.
var itTyp = [...]string{
	"var",
	"num",
	"label",
	"name",
}

// runtimeArity maps the runtime functions to their fixed arity. tensor-error takes its arity from the
// instruction.
var runtimeArity = map[string]int{
	RuntimePrint:       1,
	RuntimeInput:       0,
	RuntimeAllocate:    2,
	RuntimeTupleError:  3,
	RuntimeTensorError: -1,
}

// ---------------------
// ----- Functions -----
// ---------------------

// String returns the L2 operator of the ArithmeticOperation.
func (op ArithmeticOperation) String() string {
	if int(op) < len(aTyp) {
		return aTyp[op]
	}
	return fmt.Sprintf("aop(%d)", op)
}

// IsShift returns true for the shift operators, whose right hand side must be rcx or a number.
func (op ArithmeticOperation) IsShift() bool {
	return op == LShift || op == RShift
}

// String returns the L2 operator of the RelationalOperation.
func (op RelationalOperation) String() string {
	if int(op) < len(lTyp) {
		return lTyp[op]
	}
	return fmt.Sprintf("cmp(%d)", op)
}

// Eval applies the RelationalOperation to two constants.
func (op RelationalOperation) Eval(a, b int64) bool {
	switch op {
	case LessThan:
		return a < b
	case LessThanOrEqual:
		return a <= b
	default:
		return a == b
	}
}

// String returns the interchange name of the InstructionType.
func (typ InstructionType) String() string {
	if int(typ) < len(iTyp) {
		return iTyp[typ]
	}
	return fmt.Sprintf("instruction(%d)", typ)
}

// String returns the interchange name of the ItemType.
func (typ ItemType) String() string {
	if int(typ) < len(itTyp) {
		return itTyp[typ]
	}
	return fmt.Sprintf("item(%d)", typ)
}

// String returns either "virtual" or "physical".
func (k VariableKind) String() string {
	if k == Physical {
		return "physical"
	}
	return "virtual"
}

// ParseInstructionType returns the InstructionType with interchange name s.
func ParseInstructionType(s string) (InstructionType, error) {
	for i1, e1 := range iTyp {
		if e1 == s {
			return InstructionType(i1), nil
		}
	}
	return 0, fmt.Errorf("unknown instruction %q", s)
}

// ParseArithmetic returns the ArithmeticOperation written as s in L2.
func ParseArithmetic(s string) (ArithmeticOperation, error) {
	for i1, e1 := range aTyp {
		if e1 == s {
			return ArithmeticOperation(i1), nil
		}
	}
	return 0, fmt.Errorf("unknown arithmetic operator %q", s)
}

// ParseRelational returns the RelationalOperation written as s in L2.
func ParseRelational(s string) (RelationalOperation, error) {
	for i1, e1 := range lTyp {
		if e1 == s {
			return RelationalOperation(i1), nil
		}
	}
	return 0, fmt.Errorf("unknown comparison operator %q", s)
}

// RuntimeArity returns the fixed arity of runtime function name. The second return value is false if name
// is not a runtime function. An arity of -1 means the arity is given by the call site.
func RuntimeArity(name string) (int, bool) {
	n, ok := runtimeArity[name]
	return n, ok
}

// IsTrap returns true if calling runtime function name never returns.
func IsTrap(name string) bool {
	return name == RuntimeTupleError || name == RuntimeTensorError
}
