package l2

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"l2c/src/ir/l2/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// validator accumulates every problem found in one function.
type validator struct {
	f   *Function
	idx int   // Index of instruction being validated.
	err error // Combined errors.
}

// ---------------------
// ----- Functions -----
// ---------------------

// Validate checks that every function of Program p is well formed, such that the allocator never meets an
// operand of the wrong kind. All problems are reported, combined into one error.
func Validate(p *Program) error {
	var err error
	names := make(map[string]bool, len(p.Functions))
	for _, e1 := range p.Functions {
		if names[e1.name] {
			err = multierr.Append(err, fmt.Errorf("function %s defined more than once", e1.name))
		}
		names[e1.name] = true
		err = multierr.Append(err, ValidateFunction(e1))
	}
	if len(p.Entry) > 0 && !names[p.Entry] {
		err = multierr.Append(err, fmt.Errorf("entry function %s is not defined", p.Entry))
	}
	return err
}

// ValidateFunction checks that Function f is well formed.
func ValidateFunction(f *Function) error {
	v := validator{f: f}
	if !strings.HasPrefix(f.name, "@") {
		v.fail("function name %q must start with @", f.name)
	}
	if f.args < 0 {
		v.fail("negative argument count %d", f.args)
	}

	labels := make(map[string]bool, 8)
	for i1, e1 := range f.instructions {
		v.idx = i1
		if l, ok := e1.(*LabelInstruction); ok {
			if labels[l.Name] {
				v.fail("label %s defined more than once", l.Name)
			}
			labels[l.Name] = true
		}
	}

	for i1, e1 := range f.instructions {
		v.idx = i1
		v.instruction(e1)
		if target, ok := IsBranch(e1); ok && !labels[target] {
			v.fail("branch to undefined label %s", target)
		}
	}
	return v.err
}

// fail records a problem at the current instruction.
func (v *validator) fail(format string, args ...interface{}) {
	v.err = multierr.Append(v.err, fmt.Errorf("function %s, instruction %d: %s", v.f.name, v.idx,
		fmt.Sprintf(format, args...)))
}

// instruction validates the operands of Instruction inst.
func (v *validator) instruction(inst Instruction) {
	switch i := inst.(type) {
	case *ReturnInstruction, *GotoInstruction:
	case *AssignInstruction:
		v.variable("destination", i.Dst)
		v.value("source", i.Src)
	case *LoadInstruction:
		v.variable("destination", i.Dst)
		v.variable("base", i.Base)
		v.offset(i.Offset)
	case *StoreInstruction:
		v.variable("base", i.Base)
		v.offset(i.Offset)
		v.value("source", i.Src)
	case *ArithInstruction:
		v.variable("destination", i.Dst)
		v.operand("source", i.Src)
	case *LoadArithInstruction:
		v.variable("destination", i.Dst)
		v.variable("base", i.Base)
		v.offset(i.Offset)
		if i.Op.IsShift() {
			v.fail("shift %s cannot read memory", i.Op.String())
		}
	case *StoreArithInstruction:
		v.variable("base", i.Base)
		v.offset(i.Offset)
		v.operand("source", i.Src)
		if i.Op.IsShift() {
			v.fail("shift %s cannot write memory", i.Op.String())
		}
	case *CompareInstruction:
		v.variable("destination", i.Dst)
		v.operand("left operand", i.Left)
		v.operand("right operand", i.Right)
	case *CJumpInstruction:
		v.operand("left operand", i.Left)
		v.operand("right operand", i.Right)
	case *LabelInstruction:
		if !strings.HasPrefix(i.Name, ":") {
			v.fail("label %q must start with :", i.Name)
		}
	case *CallInstruction:
		if i.Callee.Type() != types.Variable && i.Callee.Type() != types.FunctionName {
			v.fail("callee must be a variable or a function name, got %s", i.Callee.Type().String())
		} else {
			v.name(i.Callee)
		}
		if i.Arity < 0 {
			v.fail("negative arity %d", i.Arity)
		}
	case *RuntimeCallInstruction:
		n, ok := types.RuntimeArity(i.Name)
		switch {
		case !ok:
			v.fail("unknown runtime function %s", i.Name)
		case n >= 0 && n != i.Arity:
			v.fail("runtime function %s takes %d arguments, got %d", i.Name, n, i.Arity)
		case n < 0 && i.Arity != 1 && i.Arity != 3 && i.Arity != 4:
			v.fail("runtime function %s takes 1, 3 or 4 arguments, got %d", i.Name, i.Arity)
		}
	case *IncDecInstruction:
		v.variable("destination", i.Dst)
	case *LeaInstruction:
		v.variable("destination", i.Dst)
		v.variable("base", i.Base)
		v.variable("index", i.Index)
		if i.Scale != 1 && i.Scale != 2 && i.Scale != 4 && i.Scale != 8 {
			v.fail("scale must be 1, 2, 4 or 8, got %d", i.Scale)
		}
	case *StackArgInstruction:
		v.variable("destination", i.Dst)
		if i.Offset < 0 {
			v.fail("negative stack argument offset %d", i.Offset)
		}
		v.offset(i.Offset)
	default:
		v.fail("unexpected instruction %T", inst)
	}
}

// variable requires Item it to be a variable.
func (v *validator) variable(what string, it Item) {
	if !it.IsVar() {
		v.fail("%s must be a variable, got %s", what, it.Type().String())
		return
	}
	v.name(it)
}

// operand requires Item it to be a variable or a number.
func (v *validator) operand(what string, it Item) {
	if it.Type() != types.Variable && it.Type() != types.Number {
		v.fail("%s must be a variable or a number, got %s", what, it.Type().String())
		return
	}
	v.name(it)
}

// value accepts any Item kind, but checks names.
func (v *validator) value(what string, it Item) {
	if it.Type() > types.FunctionName {
		v.fail("%s has unknown kind %s", what, it.Type().String())
		return
	}
	v.name(it)
}

// name checks the spelling of a variable, label or function name operand.
func (v *validator) name(it Item) {
	switch it.Type() {
	case types.Variable:
		va := v.f.vars.Get(it.v)
		if !va.IsRegister() && !strings.HasPrefix(va.Name, VirtualPrefix) {
			v.fail("%q is neither a register nor a variable", va.Name)
		}
	case types.LabelName:
		if !strings.HasPrefix(it.s, ":") {
			v.fail("label %q must start with :", it.s)
		}
	case types.FunctionName:
		if !strings.HasPrefix(it.s, "@") {
			v.fail("function name %q must start with @", it.s)
		}
	}
}

// offset requires memory offsets to be word aligned.
func (v *validator) offset(off int64) {
	if off%WordSize != 0 {
		v.fail("offset %d is not a multiple of %d", off, WordSize)
	}
}
