package l2

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// useDef collects the used and defined sets of one instruction.
type useDef struct {
	f       *Function
	sp      VarID // Stack pointer, excluded from both sets. NoVar if the convention has none.
	used    VarSet
	defined VarSet
}

// ---------------------
// ----- Functions -----
// ---------------------

// ResolveUseDef computes the used and defined sets of every instruction of Function f, including the
// registers implied by the calling convention for calls and returns.
func ResolveUseDef(f *Function) {
	sp := NoVar
	if f.cc != nil && len(f.cc.SP()) > 0 {
		sp = f.vars.Intern(f.cc.SP())
	}
	for _, e1 := range f.instructions {
		ud := useDef{
			f:       f,
			sp:      sp,
			used:    make(VarSet, 4),
			defined: make(VarSet, 2),
		}
		ud.resolve(e1)
		m := e1.meta()
		m.used = ud.used
		m.defined = ud.defined
	}
}

// resolve fills the used and defined sets for Instruction inst.
func (ud *useDef) resolve(inst Instruction) {
	switch i := inst.(type) {
	case *ReturnInstruction:
		if ud.f.cc != nil {
			ud.useReg(ud.f.cc.Result())
			for _, e1 := range ud.f.cc.CalleeSaved() {
				ud.useReg(e1)
			}
		}
	case *AssignInstruction:
		ud.use(i.Src)
		ud.def(i.Dst)
	case *LoadInstruction:
		ud.use(i.Base)
		ud.def(i.Dst)
	case *StoreInstruction:
		ud.use(i.Src)
		ud.use(i.Base)
	case *ArithInstruction:
		ud.use(i.Dst)
		ud.use(i.Src)
		ud.def(i.Dst)
	case *LoadArithInstruction:
		ud.use(i.Dst)
		ud.use(i.Base)
		ud.def(i.Dst)
	case *StoreArithInstruction:
		ud.use(i.Base)
		ud.use(i.Src)
	case *CompareInstruction:
		ud.use(i.Left)
		ud.use(i.Right)
		ud.def(i.Dst)
	case *CJumpInstruction:
		ud.use(i.Left)
		ud.use(i.Right)
	case *LabelInstruction, *GotoInstruction:
	case *CallInstruction:
		ud.use(i.Callee)
		ud.call(i.Arity)
	case *RuntimeCallInstruction:
		ud.call(i.Arity)
	case *IncDecInstruction:
		ud.use(i.Dst)
		ud.def(i.Dst)
	case *LeaInstruction:
		ud.use(i.Base)
		ud.use(i.Index)
		ud.def(i.Dst)
	case *StackArgInstruction:
		ud.def(i.Dst)
	default:
		panic(fmt.Sprintf("function %s: unexpected instruction %T", ud.f.name, inst))
	}
}

// call adds the argument registers of a call with arity n to the used set and every caller-saved register
// to the defined set.
func (ud *useDef) call(n int) {
	if ud.f.cc == nil {
		return
	}
	args := ud.f.cc.Args()
	if n > len(args) {
		n = len(args)
	}
	for _, e1 := range args[:n] {
		ud.useReg(e1)
	}
	for _, e1 := range ud.f.cc.CallerSaved() {
		ud.defined.Add(ud.f.vars.Intern(e1))
	}
}

// use adds Item it to the used set if it is a variable other than the stack pointer.
func (ud *useDef) use(it Item) {
	if it.IsVar() && it.v != ud.sp {
		ud.used.Add(it.v)
	}
}

// def adds Item it to the defined set. Item it must be a variable.
func (ud *useDef) def(it Item) {
	if id := it.Var(); id != ud.sp {
		ud.defined.Add(id)
	}
}

// useReg adds register name to the used set.
func (ud *useDef) useReg(name string) {
	if len(name) < 1 {
		return
	}
	if id := ud.f.vars.Intern(name); id != ud.sp {
		ud.used.Add(id)
	}
}
