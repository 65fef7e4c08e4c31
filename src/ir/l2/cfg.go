package l2

import "fmt"

// ---------------------
// ----- Functions -----
// ---------------------

// BuildCFG computes the predecessor and successor links of every instruction of Function f. Any links
// from an earlier run are discarded, so BuildCFG must be called again whenever the body changes.
// An error is returned if a branch targets a label that is not defined in f.
func BuildCFG(f *Function) error {
	labels := make(map[string]int, 8)
	for i1, e1 := range f.instructions {
		m := e1.meta()
		m.pred = m.pred[:0]
		m.succ = m.succ[:0]
		if l, ok := e1.(*LabelInstruction); ok {
			labels[l.Name] = i1
		}
	}

	for i1, e1 := range f.instructions {
		// Fallthrough edge.
		if !IsTerminal(e1) && i1+1 < len(f.instructions) {
			link(f, i1, i1+1)
		}

		// Branch edge.
		if target, ok := IsBranch(e1); ok {
			i2, ok := labels[target]
			if !ok {
				return fmt.Errorf("function %s, instruction %d: branch to undefined label %s", f.name, i1, target)
			}
			link(f, i1, i2)
		}
	}
	return nil
}

// link adds the control flow edge from instruction index from to instruction index to, unless it exists.
func link(f *Function, from, to int) {
	src := f.instructions[from].meta()
	for _, e1 := range src.succ {
		if e1 == to {
			return
		}
	}
	src.succ = append(src.succ, to)
	dst := f.instructions[to].meta()
	dst.pred = append(dst.pred, from)
}
