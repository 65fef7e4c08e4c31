package l2

import (
	"fmt"
	"strings"
)

// ---------------------
// ----- Functions -----
// ---------------------

// Format returns the L2 textual representation of Instruction inst, resolving its variables in Function f.
func (f *Function) Format(inst Instruction) string {
	t := f.vars
	switch i := inst.(type) {
	case *ReturnInstruction:
		return "return"
	case *AssignInstruction:
		return fmt.Sprintf("%s <- %s", i.Dst.Format(t), i.Src.Format(t))
	case *LoadInstruction:
		return fmt.Sprintf("%s <- mem %s %d", i.Dst.Format(t), i.Base.Format(t), i.Offset)
	case *StoreInstruction:
		return fmt.Sprintf("mem %s %d <- %s", i.Base.Format(t), i.Offset, i.Src.Format(t))
	case *ArithInstruction:
		return fmt.Sprintf("%s %s %s", i.Dst.Format(t), i.Op.String(), i.Src.Format(t))
	case *LoadArithInstruction:
		return fmt.Sprintf("%s %s mem %s %d", i.Dst.Format(t), i.Op.String(), i.Base.Format(t), i.Offset)
	case *StoreArithInstruction:
		return fmt.Sprintf("mem %s %d %s %s", i.Base.Format(t), i.Offset, i.Op.String(), i.Src.Format(t))
	case *CompareInstruction:
		return fmt.Sprintf("%s <- %s %s %s", i.Dst.Format(t), i.Left.Format(t), i.Op.String(), i.Right.Format(t))
	case *CJumpInstruction:
		return fmt.Sprintf("cjump %s %s %s %s", i.Left.Format(t), i.Op.String(), i.Right.Format(t), i.Target)
	case *LabelInstruction:
		return i.Name
	case *GotoInstruction:
		return fmt.Sprintf("goto %s", i.Target)
	case *CallInstruction:
		return fmt.Sprintf("call %s %d", i.Callee.Format(t), i.Arity)
	case *RuntimeCallInstruction:
		return fmt.Sprintf("call %s %d", i.Name, i.Arity)
	case *IncDecInstruction:
		if i.Dec {
			return fmt.Sprintf("%s--", i.Dst.Format(t))
		}
		return fmt.Sprintf("%s++", i.Dst.Format(t))
	case *LeaInstruction:
		return fmt.Sprintf("%s @ %s %s %d", i.Dst.Format(t), i.Base.Format(t), i.Index.Format(t), i.Scale)
	case *StackArgInstruction:
		return fmt.Sprintf("%s <- stack-arg %d", i.Dst.Format(t), i.Offset)
	}
	panic(fmt.Sprintf("function %s: unexpected instruction %T", f.name, inst))
}

// Format returns the IN and OUT sets of Liveness lv in the L2 checker format:
//
//	((in (a b) ...) (out (c) ...))
func (lv *Liveness) Format(f *Function) string {
	sb := strings.Builder{}
	sb.WriteString("(\n(in\n")
	for _, e1 := range lv.In {
		sb.WriteString(fmt.Sprintf("(%s)\n", e1.Format(f.vars)))
	}
	sb.WriteString(")\n\n(out\n")
	for _, e1 := range lv.Out {
		sb.WriteString(fmt.Sprintf("(%s)\n", e1.Format(f.vars)))
	}
	sb.WriteString(")\n\n)\n")
	return sb.String()
}
