package regalloc

import (
	"fmt"
	"sort"
	"strings"

	"l2c/src/backend/regfile"
	"l2c/src/ir/l2"
	"l2c/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Result holds the outcome of one colouring attempt.
type Result struct {
	Colors     map[l2.VarID]int // Colour index of every coloured node, pre-coloured registers included.
	Uncolored  []l2.VarID       // Virtual nodes without colour, ascending VarID order.
	BigFail    bool             // Set to true if simplification ran out of optimistic picks.
	Optimistic int              // Number of optimistic picks made.
}

// ---------------------
// ----- Functions -----
// ---------------------

// Color attempts to k-colour Graph g, where k is the number of allocatable registers of RegisterFile rf, using
// Chaitin's simplify and select. Nodes in temps are spill temporaries and are the last choice for optimistic
// picks. Graph g is not modified, simplification works on a clone.
//
// Simplify repeatedly removes the virtual node with the lowest VarID and fewer than k neighbours, pushing it on
// the stack. If no such node exists, the virtual node with the most neighbours is pushed optimistically. Once more
// than rf.Retry() optimistic picks are made, colouring stops and reports a big fail. Select pops the stack,
// giving each node the lowest colour not used by a coloured neighbour; nodes without a free colour are
// uncoloured. Pre-coloured register nodes are never pushed and never change colour; an error wrapping
// ErrInternal is returned if they do.
func Color(g *Graph, rf regfile.RegisterFile, temps l2.VarSet) (*Result, error) {
	k := rf.K()
	res := &Result{
		Colors: make(map[l2.VarID]int, g.Len()),
	}

	// Simplify on a working copy.
	w := g.Clone()
	stack := util.Stack[l2.VarID]{}
	virtual := make([]l2.VarID, 0, g.Len())
	for _, e1 := range g.Nodes() {
		if _, ok := g.Precolored(e1); !ok {
			virtual = append(virtual, e1)
		}
	}

	for remaining := len(virtual); remaining > 0; remaining-- {
		pick := l2.NoVar
		for _, e1 := range virtual {
			if w.HasNode(e1) && w.Degree(e1) < k {
				pick = e1
				break
			}
		}

		if pick == l2.NoVar {
			// If the budget is spent, we give up on this attempt.
			res.Optimistic++
			if res.Optimistic > rf.Retry() {
				res.BigFail = true
				for _, e1 := range virtual {
					if w.HasNode(e1) {
						res.Uncolored = append(res.Uncolored, e1)
					}
				}
				return res, nil
			}
			pick = optimistic(w, virtual, temps)
		}
		stack.Push(pick)
		w.Remove(pick)
	}

	// Pre-coloured registers keep their colour.
	for _, e1 := range g.Nodes() {
		if c, ok := g.Precolored(e1); ok {
			res.Colors[e1] = c
		}
	}

	// Select.
	used := make([]bool, k)
	for n, ok := stack.Pop(); ok; n, ok = stack.Pop() {
		for i1 := range used {
			used[i1] = false
		}
		for _, e1 := range g.Neighbors(n) {
			if c, ok := res.Colors[e1]; ok {
				used[c] = true
			}
		}
		color := -1
		for i1, e1 := range used {
			if !e1 {
				color = i1
				break
			}
		}
		if color < 0 {
			res.Uncolored = append(res.Uncolored, n)
			continue
		}
		res.Colors[n] = color
	}
	sort.Slice(res.Uncolored, func(i, j int) bool { return res.Uncolored[i] < res.Uncolored[j] })

	if err := verify(g, rf, res); err != nil {
		return nil, err
	}
	return res, nil
}

// optimistic returns the node of w with the highest degree among the virtual nodes still present, ties broken by
// the lowest VarID. Nodes not in temps are preferred.
func optimistic(w *Graph, virtual []l2.VarID, temps l2.VarSet) l2.VarID {
	best, bestTemp := l2.NoVar, l2.NoVar
	for _, e1 := range virtual {
		if !w.HasNode(e1) {
			continue
		}
		if temps.Has(e1) {
			if bestTemp == l2.NoVar || w.Degree(e1) > w.Degree(bestTemp) {
				bestTemp = e1
			}
		} else if best == l2.NoVar || w.Degree(e1) > w.Degree(best) {
			best = e1
		}
	}
	if best != l2.NoVar {
		return best
	}
	return bestTemp
}

// verify checks that every register node has the colour of its own name and that no edge connects two nodes of
// the same colour.
func verify(g *Graph, rf regfile.RegisterFile, res *Result) error {
	f := g.Function()
	for _, e1 := range g.Nodes() {
		v := f.Variable(e1)
		if !v.IsRegister() {
			continue
		}
		r, ok := rf.Lookup(v.Name)
		if !ok {
			return fmt.Errorf("function %s: %w: register %s is not allocatable", f.Name(), ErrInternal, v.Name)
		}
		if c, ok := res.Colors[e1]; !ok || c != r.Id() {
			return fmt.Errorf("function %s: %w: register %s lost its colour", f.Name(), ErrInternal, v.Name)
		}
	}
	for _, e1 := range g.Nodes() {
		c1, ok := res.Colors[e1]
		if !ok {
			continue
		}
		for _, e2 := range g.Neighbors(e1) {
			if c2, ok := res.Colors[e2]; ok && c1 == c2 {
				return fmt.Errorf("function %s: %w: interfering %s and %s share colour %s", f.Name(), ErrInternal,
					f.Variable(e1).Name, f.Variable(e2).Name, rf.Get(c1))
			}
		}
	}
	return nil
}

// Success returns true if every node of the attempt got a colour.
func (r *Result) Success() bool {
	return !r.BigFail && len(r.Uncolored) == 0
}

// Format returns the colouring of the virtual variables of Function f, one "variable register" pair per line
// sorted by variable name, followed by the uncoloured variables.
func (r *Result) Format(f *l2.Function, rf regfile.RegisterFile) string {
	lines := make([]string, 0, len(r.Colors))
	for k, v := range r.Colors {
		if va := f.Variable(k); !va.IsRegister() {
			lines = append(lines, fmt.Sprintf("%s %s", va.Name, rf.Get(v)))
		}
	}
	sort.Strings(lines)
	sb := strings.Builder{}
	for _, e1 := range lines {
		sb.WriteString(e1)
		sb.WriteRune('\n')
	}
	if r.BigFail {
		sb.WriteString("big fail\n")
	}
	if len(r.Uncolored) > 0 {
		s := l2.NewVarSet(r.Uncolored...)
		sb.WriteString(fmt.Sprintf("uncolored %s\n", s.Format(f.Vars())))
	}
	return sb.String()
}
