package regalloc

import (
	"testing"

	"l2c/src/backend/regfile"
	"l2c/src/ir/l2"
	"l2c/src/util"
)

// TestGraphEdges verifies that edges are symmetric, self edges are dropped and clones are independent.
func TestGraphEdges(t *testing.T) {
	f := l2.NewFunction("@f", 0, twoRegisters(t, 0))
	a, b, c := f.Var("%a").Var(), f.Var("%b").Var(), f.Var("%c").Var()

	g := NewGraph(f)
	g.AddEdge(a, b)
	g.AddEdge(b, c)
	g.AddEdge(c, c)
	if !g.HasEdge(b, a) || !g.HasEdge(c, b) {
		t.Errorf("edges are not symmetric")
	}
	if g.HasEdge(c, c) {
		t.Errorf("self edge added")
	}
	if g.Len() != 3 || g.Degree(b) != 2 || g.Degree(c) != 1 {
		t.Errorf("expected 3 nodes with degrees 1 2 1, got %d nodes with degrees %d %d %d",
			g.Len(), g.Degree(a), g.Degree(b), g.Degree(c))
	}

	w := g.Clone()
	w.Remove(b)
	if w.HasNode(b) || w.Degree(a) != 0 || w.Degree(c) != 0 {
		t.Errorf("remove left edges of %%b in clone")
	}
	if !g.HasEdge(a, b) || g.Degree(b) != 2 {
		t.Errorf("removing from clone changed the original graph")
	}
	if n := g.Neighbors(b); len(n) != 2 || n[0] != a || n[1] != c {
		t.Errorf("expected neighbours [%d %d], got %v", a, c, n)
	}
}

// TestBuild verifies the interference graph of the triangle and the pre-coloured registers.
func TestBuild(t *testing.T) {
	rf := twoRegisters(t, 0)
	f := triangle(rf)
	lv, err := l2.Analyze(f)
	if err != nil {
		t.Fatalf("could not analyze function: %s", err)
	}
	g := Build(f, lv, rf)

	exp := "%a %b %c\n%b %a %c\n%c %a %b\nr0 r1\nr1 r0\n"
	if s := g.String(); s != exp {
		t.Errorf("expected graph\n%s\ngot\n%s", exp, s)
	}
	sp, ok := f.Vars().Lookup("rsp")
	if !ok {
		t.Fatalf("stack pointer not interned")
	}
	if g.HasNode(sp) {
		t.Errorf("stack pointer is a node")
	}
	for i1, e1 := range []string{"r0", "r1"} {
		id, _ := f.Vars().Lookup(e1)
		if c, ok := g.Precolored(id); !ok || c != i1 {
			t.Errorf("expected %s pre-coloured with %d, got %d, %t", e1, i1, c, ok)
		}
	}
}

// TestBuildCall verifies that a variable live across a call interferes with every register.
func TestBuildCall(t *testing.T) {
	rf, err := regfile.New(util.Config{
		CallerSaved: []string{"r0"},
		CalleeSaved: []string{"r1"},
		Result:      "r0",
		SP:          "rsp",
	})
	if err != nil {
		t.Fatalf("could not create register file: %s", err)
	}

	f := l2.NewFunction("@f", 0, rf)
	f.Append(
		l2.Assign(f.Var("%a"), l2.Num(1)),
		l2.Call(l2.NameItem("@g"), 0),
		l2.Assign(f.Var("r0"), f.Var("%a")),
		l2.Return(),
	)
	lv, err := l2.Analyze(f)
	if err != nil {
		t.Fatalf("could not analyze function: %s", err)
	}
	g := Build(f, lv, rf)
	a, _ := f.Vars().Lookup("%a")
	if g.Degree(a) != rf.K() {
		t.Errorf("expected %%a to interfere with all %d registers, got\n%s", rf.K(), g)
	}
}
