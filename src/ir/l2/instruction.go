package l2

import (
	"l2c/src/ir/l2/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Instruction is the closed set of L2 instruction variants. The computed used and defined sets and the
// control flow links are derived data, filled in by ResolveUseDef and BuildCFG.
type Instruction interface {
	Type() types.InstructionType // Variant tag.
	Used() VarSet                // Variables read by the instruction.
	Defined() VarSet             // Variables written by the instruction.
	Pred() []int                 // Indices of predecessor instructions.
	Succ() []int                 // Indices of successor instructions.

	// rewrite returns a copy of the instruction with fn applied to every operand. The copy has no derived
	// data.
	rewrite(fn func(Item) Item) Instruction
	meta() *Meta
}

// Meta holds the derived data of an Instruction.
type Meta struct {
	used    VarSet // Variables read.
	defined VarSet // Variables written.
	pred    []int  // Predecessor instruction indices.
	succ    []int  // Successor instruction indices.
}

// ReturnInstruction returns from the function.
type ReturnInstruction struct {
	Meta
}

// AssignInstruction defines Dst <- Src.
type AssignInstruction struct {
	Meta
	Dst Item // Variable.
	Src Item // Variable, number, label or function name.
}

// LoadInstruction defines Dst <- mem Base Offset.
type LoadInstruction struct {
	Meta
	Dst    Item  // Variable.
	Base   Item  // Variable holding the base address.
	Offset int64 // Byte offset, multiple of 8.
}

// StoreInstruction defines mem Base Offset <- Src.
type StoreInstruction struct {
	Meta
	Base   Item  // Variable holding the base address.
	Offset int64 // Byte offset, multiple of 8.
	Src    Item  // Variable, number, label or function name.
}

// ArithInstruction defines Dst Op Src, i.e. Dst = Dst op Src.
type ArithInstruction struct {
	Meta
	Op  types.ArithmeticOperation
	Dst Item // Variable, read and written.
	Src Item // Variable or number.
}

// LoadArithInstruction defines Dst Op mem Base Offset.
type LoadArithInstruction struct {
	Meta
	Op     types.ArithmeticOperation
	Dst    Item // Variable, read and written.
	Base   Item // Variable holding the base address.
	Offset int64
}

// StoreArithInstruction defines mem Base Offset Op Src.
type StoreArithInstruction struct {
	Meta
	Op     types.ArithmeticOperation
	Base   Item // Variable holding the base address.
	Offset int64
	Src    Item // Variable or number.
}

// CompareInstruction defines Dst <- Left Op Right.
type CompareInstruction struct {
	Meta
	Op    types.RelationalOperation
	Dst   Item // Variable.
	Left  Item // Variable or number.
	Right Item // Variable or number.
}

// CJumpInstruction defines cjump Left Op Right Target.
type CJumpInstruction struct {
	Meta
	Op     types.RelationalOperation
	Left   Item   // Variable or number.
	Right  Item   // Variable or number.
	Target string // Label jumped to if the comparison holds.
}

// LabelInstruction defines a jump target.
type LabelInstruction struct {
	Meta
	Name string // Label name including the leading colon.
}

// GotoInstruction jumps unconditionally to Target.
type GotoInstruction struct {
	Meta
	Target string // Label name including the leading colon.
}

// CallInstruction calls an L2 function, call Callee Arity.
type CallInstruction struct {
	Meta
	Callee Item // Variable holding the function address, or function name.
	Arity  int  // Number of arguments.
}

// RuntimeCallInstruction calls one of the runtime functions print, input, allocate, tuple-error or
// tensor-error.
type RuntimeCallInstruction struct {
	Meta
	Name  string // Runtime function name.
	Arity int    // Number of arguments.
}

// IncDecInstruction defines Dst++ or Dst--.
type IncDecInstruction struct {
	Meta
	Dst Item // Variable, read and written.
	Dec bool // Set to true for Dst--.
}

// LeaInstruction defines Dst @ Base Index Scale, i.e. Dst = Base + Index * Scale.
type LeaInstruction struct {
	Meta
	Dst   Item  // Variable.
	Base  Item  // Variable.
	Index Item  // Variable.
	Scale int64 // One of 1, 2, 4 or 8.
}

// StackArgInstruction defines Dst <- stack-arg Offset, reading an argument passed on the stack.
type StackArgInstruction struct {
	Meta
	Dst    Item // Variable.
	Offset int64
}

// ---------------------
// ----- Functions -----
// ---------------------

// Used returns the variables read by the instruction.
func (m *Meta) Used() VarSet {
	return m.used
}

// Defined returns the variables written by the instruction.
func (m *Meta) Defined() VarSet {
	return m.defined
}

// Pred returns the indices of the predecessors of the instruction.
func (m *Meta) Pred() []int {
	return m.pred
}

// Succ returns the indices of the successors of the instruction.
func (m *Meta) Succ() []int {
	return m.succ
}

// meta returns the derived data of the instruction.
func (m *Meta) meta() *Meta {
	return m
}

// --------------------------
// ----- Constructors -----
// --------------------------

// Return creates a return instruction.
func Return() *ReturnInstruction {
	return &ReturnInstruction{}
}

// Assign creates dst <- src.
func Assign(dst, src Item) *AssignInstruction {
	return &AssignInstruction{Dst: dst, Src: src}
}

// Load creates dst <- mem base offset.
func Load(dst, base Item, offset int64) *LoadInstruction {
	return &LoadInstruction{Dst: dst, Base: base, Offset: offset}
}

// Store creates mem base offset <- src.
func Store(base Item, offset int64, src Item) *StoreInstruction {
	return &StoreInstruction{Base: base, Offset: offset, Src: src}
}

// Arith creates dst op src.
func Arith(op types.ArithmeticOperation, dst, src Item) *ArithInstruction {
	return &ArithInstruction{Op: op, Dst: dst, Src: src}
}

// LoadArith creates dst op mem base offset.
func LoadArith(op types.ArithmeticOperation, dst, base Item, offset int64) *LoadArithInstruction {
	return &LoadArithInstruction{Op: op, Dst: dst, Base: base, Offset: offset}
}

// StoreArith creates mem base offset op src.
func StoreArith(op types.ArithmeticOperation, base Item, offset int64, src Item) *StoreArithInstruction {
	return &StoreArithInstruction{Op: op, Base: base, Offset: offset, Src: src}
}

// Compare creates dst <- left op right.
func Compare(op types.RelationalOperation, dst, left, right Item) *CompareInstruction {
	return &CompareInstruction{Op: op, Dst: dst, Left: left, Right: right}
}

// CJump creates cjump left op right target.
func CJump(op types.RelationalOperation, left, right Item, target string) *CJumpInstruction {
	return &CJumpInstruction{Op: op, Left: left, Right: right, Target: target}
}

// Label creates the label instruction :name.
func Label(name string) *LabelInstruction {
	return &LabelInstruction{Name: name}
}

// Goto creates goto target.
func Goto(target string) *GotoInstruction {
	return &GotoInstruction{Target: target}
}

// Call creates call callee arity.
func Call(callee Item, arity int) *CallInstruction {
	return &CallInstruction{Callee: callee, Arity: arity}
}

// RuntimeCall creates a call to runtime function name. The arity of fixed-arity runtime functions is
// taken from the runtime table, arity is only used by tensor-error.
func RuntimeCall(name string, arity int) *RuntimeCallInstruction {
	if n, ok := types.RuntimeArity(name); ok && n >= 0 {
		arity = n
	}
	return &RuntimeCallInstruction{Name: name, Arity: arity}
}

// Inc creates dst++.
func Inc(dst Item) *IncDecInstruction {
	return &IncDecInstruction{Dst: dst}
}

// Dec creates dst--.
func Dec(dst Item) *IncDecInstruction {
	return &IncDecInstruction{Dst: dst, Dec: true}
}

// Lea creates dst @ base index scale.
func Lea(dst, base, index Item, scale int64) *LeaInstruction {
	return &LeaInstruction{Dst: dst, Base: base, Index: index, Scale: scale}
}

// StackArg creates dst <- stack-arg offset.
func StackArg(dst Item, offset int64) *StackArgInstruction {
	return &StackArgInstruction{Dst: dst, Offset: offset}
}

// ---------------------------
// ----- Variant methods -----
// ---------------------------

// Type returns types.Return.
func (inst *ReturnInstruction) Type() types.InstructionType { return types.Return }

// Type returns types.Assign.
func (inst *AssignInstruction) Type() types.InstructionType { return types.Assign }

// Type returns types.Load.
func (inst *LoadInstruction) Type() types.InstructionType { return types.Load }

// Type returns types.Store.
func (inst *StoreInstruction) Type() types.InstructionType { return types.Store }

// Type returns types.Arith.
func (inst *ArithInstruction) Type() types.InstructionType { return types.Arith }

// Type returns types.LoadArith.
func (inst *LoadArithInstruction) Type() types.InstructionType { return types.LoadArith }

// Type returns types.StoreArith.
func (inst *StoreArithInstruction) Type() types.InstructionType { return types.StoreArith }

// Type returns types.Compare.
func (inst *CompareInstruction) Type() types.InstructionType { return types.Compare }

// Type returns types.CJump.
func (inst *CJumpInstruction) Type() types.InstructionType { return types.CJump }

// Type returns types.Label.
func (inst *LabelInstruction) Type() types.InstructionType { return types.Label }

// Type returns types.Goto.
func (inst *GotoInstruction) Type() types.InstructionType { return types.Goto }

// Type returns types.Call.
func (inst *CallInstruction) Type() types.InstructionType { return types.Call }

// Type returns types.RuntimeCall.
func (inst *RuntimeCallInstruction) Type() types.InstructionType { return types.RuntimeCall }

// Type returns types.Increment or types.Decrement.
func (inst *IncDecInstruction) Type() types.InstructionType {
	if inst.Dec {
		return types.Decrement
	}
	return types.Increment
}

// Type returns types.Lea.
func (inst *LeaInstruction) Type() types.InstructionType { return types.Lea }

// Type returns types.StackArg.
func (inst *StackArgInstruction) Type() types.InstructionType { return types.StackArg }

func (inst *ReturnInstruction) rewrite(fn func(Item) Item) Instruction {
	return &ReturnInstruction{}
}

func (inst *AssignInstruction) rewrite(fn func(Item) Item) Instruction {
	return &AssignInstruction{Dst: fn(inst.Dst), Src: fn(inst.Src)}
}

func (inst *LoadInstruction) rewrite(fn func(Item) Item) Instruction {
	return &LoadInstruction{Dst: fn(inst.Dst), Base: fn(inst.Base), Offset: inst.Offset}
}

func (inst *StoreInstruction) rewrite(fn func(Item) Item) Instruction {
	return &StoreInstruction{Base: fn(inst.Base), Offset: inst.Offset, Src: fn(inst.Src)}
}

func (inst *ArithInstruction) rewrite(fn func(Item) Item) Instruction {
	return &ArithInstruction{Op: inst.Op, Dst: fn(inst.Dst), Src: fn(inst.Src)}
}

func (inst *LoadArithInstruction) rewrite(fn func(Item) Item) Instruction {
	return &LoadArithInstruction{Op: inst.Op, Dst: fn(inst.Dst), Base: fn(inst.Base), Offset: inst.Offset}
}

func (inst *StoreArithInstruction) rewrite(fn func(Item) Item) Instruction {
	return &StoreArithInstruction{Op: inst.Op, Base: fn(inst.Base), Offset: inst.Offset, Src: fn(inst.Src)}
}

func (inst *CompareInstruction) rewrite(fn func(Item) Item) Instruction {
	return &CompareInstruction{Op: inst.Op, Dst: fn(inst.Dst), Left: fn(inst.Left), Right: fn(inst.Right)}
}

func (inst *CJumpInstruction) rewrite(fn func(Item) Item) Instruction {
	return &CJumpInstruction{Op: inst.Op, Left: fn(inst.Left), Right: fn(inst.Right), Target: inst.Target}
}

func (inst *LabelInstruction) rewrite(fn func(Item) Item) Instruction {
	return &LabelInstruction{Name: inst.Name}
}

func (inst *GotoInstruction) rewrite(fn func(Item) Item) Instruction {
	return &GotoInstruction{Target: inst.Target}
}

func (inst *CallInstruction) rewrite(fn func(Item) Item) Instruction {
	return &CallInstruction{Callee: fn(inst.Callee), Arity: inst.Arity}
}

func (inst *RuntimeCallInstruction) rewrite(fn func(Item) Item) Instruction {
	return &RuntimeCallInstruction{Name: inst.Name, Arity: inst.Arity}
}

func (inst *IncDecInstruction) rewrite(fn func(Item) Item) Instruction {
	return &IncDecInstruction{Dst: fn(inst.Dst), Dec: inst.Dec}
}

func (inst *LeaInstruction) rewrite(fn func(Item) Item) Instruction {
	return &LeaInstruction{Dst: fn(inst.Dst), Base: fn(inst.Base), Index: fn(inst.Index), Scale: inst.Scale}
}

func (inst *StackArgInstruction) rewrite(fn func(Item) Item) Instruction {
	return &StackArgInstruction{Dst: fn(inst.Dst), Offset: inst.Offset}
}

// Rewrite returns a copy of Instruction inst where every variable operand with a key in m is replaced by the
// mapped variable. The copy carries no derived data.
func Rewrite(inst Instruction, m map[VarID]VarID) Instruction {
	return inst.rewrite(func(it Item) Item {
		if it.IsVar() {
			if r, ok := m[it.v]; ok {
				return VarItem(r)
			}
		}
		return it
	})
}

// Copy returns a copy of Instruction inst without derived data.
func Copy(inst Instruction) Instruction {
	return inst.rewrite(func(it Item) Item { return it })
}

// IsTerminal returns true if control never falls through Instruction inst to the next instruction.
func IsTerminal(inst Instruction) bool {
	switch i := inst.(type) {
	case *ReturnInstruction, *GotoInstruction:
		return true
	case *RuntimeCallInstruction:
		return types.IsTrap(i.Name)
	}
	return false
}

// IsCall returns true if Instruction inst transfers control to another function and clobbers the
// caller-saved registers.
func IsCall(inst Instruction) bool {
	switch inst.(type) {
	case *CallInstruction, *RuntimeCallInstruction:
		return true
	}
	return false
}

// IsBranch returns the target label of branching Instruction inst, if any.
func IsBranch(inst Instruction) (string, bool) {
	switch i := inst.(type) {
	case *GotoInstruction:
		return i.Target, true
	case *CJumpInstruction:
		return i.Target, true
	}
	return "", false
}
