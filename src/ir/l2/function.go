package l2

import (
	"fmt"
	"sort"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Function represents an L2 function. It has a name, an argument count, a number of stack slots,
// instructions and the variable table interning every operand name.
type Function struct {
	name         string          // Name of function including the leading @.
	args         int             // Number of arguments.
	locals       int             // Number of 8 byte stack slots reserved by the function.
	instructions []Instruction   // Function body.
	vars         *VarTable       // Interned variables.
	spilled      map[string]bool // Names of variables already spilled to the stack.
	cc           Convention      // Calling convention classifying register names.
}

// Program is an ordered list of Functions with a designated entry point.
type Program struct {
	Entry     string      // Name of entry function.
	Functions []*Function // Functions of the program.
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewFunction creates an empty Function.
func NewFunction(name string, args int, cc Convention) *Function {
	return &Function{
		name:         name,
		args:         args,
		instructions: make([]Instruction, 0, 32),
		vars:         newVarTable(cc),
		spilled:      make(map[string]bool),
		cc:           cc,
	}
}

// Name returns the name of Function f.
func (f *Function) Name() string {
	return f.name
}

// Args returns the number of arguments of Function f.
func (f *Function) Args() int {
	return f.args
}

// Locals returns the number of stack slots of Function f.
func (f *Function) Locals() int {
	return f.locals
}

// SetLocals sets the number of stack slots of Function f.
func (f *Function) SetLocals(n int) {
	f.locals = n
}

// Convention returns the calling convention of Function f.
func (f *Function) Convention() Convention {
	return f.cc
}

// Instructions returns the body of Function f.
func (f *Function) Instructions() []Instruction {
	return f.instructions
}

// Len returns the number of instructions of Function f.
func (f *Function) Len() int {
	return len(f.instructions)
}

// Append adds instructions to the end of Function f's body.
func (f *Function) Append(inst ...Instruction) {
	f.instructions = append(f.instructions, inst...)
}

// Vars returns the variable table of Function f.
func (f *Function) Vars() *VarTable {
	return f.vars
}

// Var interns name and returns a variable operand for it.
func (f *Function) Var(name string) Item {
	return VarItem(f.vars.Intern(name))
}

// Variable returns the variable with arena index id.
func (f *Function) Variable(id VarID) Variable {
	return f.vars.Get(id)
}

// MarkSpilled records variable name as spilled.
func (f *Function) MarkSpilled(name string) {
	f.spilled[name] = true
}

// IsSpilled returns true if the variable name has been spilled in Function f or any function it was derived
// from.
func (f *Function) IsSpilled(name string) bool {
	return f.spilled[name]
}

// Spilled returns the sorted names of all spilled variables.
func (f *Function) Spilled() []string {
	res := make([]string, 0, len(f.spilled))
	for k := range f.spilled {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// AllocSlot reserves a new stack slot and returns its byte offset from the stack pointer.
func (f *Function) AllocSlot() int64 {
	off := int64(f.locals * WordSize)
	f.locals++
	return off
}

// Derive returns a Function with the same name, arguments, stack slots, variable table and spilled set as
// Function f, but with an empty body. The variable table and spilled set are copies, so VarIDs of f stay
// valid in the derived function and f itself is never changed through it.
func (f *Function) Derive() *Function {
	d := &Function{
		name:         f.name,
		args:         f.args,
		locals:       f.locals,
		instructions: make([]Instruction, 0, len(f.instructions)+8),
		vars:         f.vars.clone(),
		spilled:      make(map[string]bool, len(f.spilled)+1),
		cc:           f.cc,
	}
	for k, v := range f.spilled {
		d.spilled[k] = v
	}
	return d
}

// Clone returns a deep copy of Function f. Derived instruction data is not copied.
func (f *Function) Clone() *Function {
	c := f.Derive()
	for _, e1 := range f.instructions {
		c.instructions = append(c.instructions, Copy(e1))
	}
	return c
}

// Referenced returns every variable appearing in the used or defined set of an instruction of Function f.
// ResolveUseDef must have been run on f.
func (f *Function) Referenced() VarSet {
	res := make(VarSet, f.vars.Len())
	for _, e1 := range f.instructions {
		for k := range e1.Used() {
			res[k] = struct{}{}
		}
		for k := range e1.Defined() {
			res[k] = struct{}{}
		}
	}
	return res
}

// String returns the L2 textual representation of Function f.
func (f *Function) String() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("(%s %d %d\n", f.name, f.args, f.locals))
	for _, e1 := range f.instructions {
		sb.WriteRune('\t')
		sb.WriteString(f.Format(e1))
		sb.WriteRune('\n')
	}
	sb.WriteRune(')')
	return sb.String()
}

// --------------------------
// ----- Program methods -----
// --------------------------

// Function returns the function called name, or <nil> if Program p has no such function.
func (p *Program) Function(name string) *Function {
	for _, e1 := range p.Functions {
		if e1.name == name {
			return e1
		}
	}
	return nil
}

// String returns the L2 textual representation of Program p.
func (p *Program) String() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("(%s\n", p.Entry))
	for _, e1 := range p.Functions {
		sb.WriteString(e1.String())
		sb.WriteRune('\n')
	}
	sb.WriteRune(')')
	return sb.String()
}
