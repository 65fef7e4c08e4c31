package l2

import (
	"errors"
	"fmt"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Liveness holds the IN and OUT sets of every instruction of a function, indexed like the function body.
type Liveness struct {
	In     []VarSet // Variables live on entry of each instruction.
	Out    []VarSet // Variables live on exit of each instruction.
	Passes int      // Number of full passes until the fixpoint was reached.
}

// -------------------
// ----- Globals -----
// -------------------

// ErrNoFixpoint is returned if the liveness equations fail to converge within the theoretical bound.
var ErrNoFixpoint = errors.New("liveness did not reach a fixpoint")

// ---------------------
// ----- Functions -----
// ---------------------

// Analyze builds the control flow graph of Function f, resolves the used and defined sets of its
// instructions and computes the variable liveness at every instruction.
func Analyze(f *Function) (*Liveness, error) {
	if err := BuildCFG(f); err != nil {
		return nil, err
	}
	ResolveUseDef(f)
	return CalcLiveness(f)
}

// CalcLiveness solves the backward dataflow equations
//
//	IN[i]  = used[i] ∪ (OUT[i] \ defined[i])
//	OUT[i] = ⋃ IN[s] for all successors s of i
//
// by repeating full passes over Function f until no set changes. BuildCFG and ResolveUseDef must have been
// run on f.
func CalcLiveness(f *Function) (*Liveness, error) {
	n := len(f.instructions)
	lv := &Liveness{
		In:  make([]VarSet, n),
		Out: make([]VarSet, n),
	}
	for i1 := range f.instructions {
		lv.In[i1] = make(VarSet)
		lv.Out[i1] = make(VarSet)
	}

	// Sets only grow, so every pass that changes something adds at least one variable to one set.
	limit := f.vars.Len()*2*n + 1
	for changed := true; changed; {
		if lv.Passes > limit {
			return nil, fmt.Errorf("function %s: %w after %d passes", f.name, ErrNoFixpoint, lv.Passes)
		}
		changed = false
		lv.Passes++

		// Reverse order; from end of function to top of function. Converges in fewer passes, the result
		// is the same in any order.
		for i1 := n - 1; i1 >= 0; i1-- {
			e1 := f.instructions[i1]

			out := make(VarSet, len(lv.Out[i1]))
			for _, e2 := range e1.Succ() {
				for k := range lv.In[e2] {
					out[k] = struct{}{}
				}
			}
			in := e1.Used().Union(out.Minus(e1.Defined()))

			if !in.Equal(lv.In[i1]) || !out.Equal(lv.Out[i1]) {
				changed = true
			}
			lv.In[i1] = in
			lv.Out[i1] = out
		}
	}
	return lv, nil
}
