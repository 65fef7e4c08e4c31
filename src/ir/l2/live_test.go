package l2

import (
	"errors"
	"testing"

	"l2c/src/ir/l2/types"
)

// TestCFG verifies fallthrough and branch edges for labels, goto, cjump and return.
func TestCFG(t *testing.T) {
	f := NewFunction("@f", 0, testConvention{})
	f.Append(
		Assign(f.Var("%i"), Num(0)),
		Label(":loop"),
		Inc(f.Var("%i")),
		CJump(types.LessThan, f.Var("%i"), Num(10), ":loop"),
		Goto(":end"),
		Assign(f.Var("%dead"), Num(1)),
		Label(":end"),
		Return(),
	)
	if err := BuildCFG(f); err != nil {
		t.Fatalf("could not build CFG: %s", err)
	}

	exp := [][]int{{1}, {2}, {3}, {4, 1}, {6}, {6}, {7}, {}}
	for i1, e1 := range f.Instructions() {
		succ := e1.Succ()
		if len(succ) != len(exp[i1]) {
			t.Fatalf("instruction %d: expected successors %v, got %v", i1, exp[i1], succ)
		}
		for i2, e2 := range exp[i1] {
			if succ[i2] != e2 {
				t.Errorf("instruction %d: expected successors %v, got %v", i1, exp[i1], succ)
			}
		}
	}

	if p := f.Instructions()[1].Pred(); len(p) != 2 {
		t.Errorf("expected label :loop to have 2 predecessors, got %v", p)
	}
	if p := f.Instructions()[5].Pred(); len(p) != 0 {
		t.Errorf("expected instruction after goto to be unreachable, got predecessors %v", p)
	}

	// Rebuilding must not duplicate edges.
	if err := BuildCFG(f); err != nil {
		t.Fatalf("could not rebuild CFG: %s", err)
	}
	if s := f.Instructions()[3].Succ(); len(s) != 2 {
		t.Errorf("expected 2 successors after rebuild, got %v", s)
	}
}

// TestCFGUndefinedLabel verifies that a branch to a missing label is reported.
func TestCFGUndefinedLabel(t *testing.T) {
	f := NewFunction("@f", 0, testConvention{})
	f.Append(Goto(":nowhere"), Return())
	if err := BuildCFG(f); err == nil {
		t.Fatalf("expected error for undefined label")
	}
}

// TestCFGTrap verifies that trapping runtime calls have no fallthrough.
func TestCFGTrap(t *testing.T) {
	f := NewFunction("@f", 0, testConvention{})
	f.Append(
		RuntimeCall(types.RuntimeTupleError, 3),
		Return(),
		RuntimeCall(types.RuntimePrint, 1),
		Return(),
	)
	if err := BuildCFG(f); err != nil {
		t.Fatalf("could not build CFG: %s", err)
	}
	if s := f.Instructions()[0].Succ(); len(s) != 0 {
		t.Errorf("expected tuple-error to have no successors, got %v", s)
	}
	if s := f.Instructions()[2].Succ(); len(s) != 1 {
		t.Errorf("expected print to fall through, got %v", s)
	}
}

// TestUseDef verifies the used and defined sets of representative instructions.
func TestUseDef(t *testing.T) {
	f := NewFunction("@f", 0, testConvention{})
	tests := []struct {
		inst    Instruction
		used    string
		defined string
	}{
		{Assign(f.Var("%a"), Num(1)), "", "%a"},
		{Assign(f.Var("%a"), f.Var("%b")), "%b", "%a"},
		{Load(f.Var("%a"), f.Var("rsp"), 8), "", "%a"},
		{Load(f.Var("%a"), f.Var("%p"), 8), "%p", "%a"},
		{Store(f.Var("rsp"), 0, f.Var("%a")), "%a", ""},
		{Arith(types.Add, f.Var("%a"), f.Var("%b")), "%a %b", "%a"},
		{Arith(types.LShift, f.Var("%a"), Num(3)), "%a", "%a"},
		{LoadArith(types.Sub, f.Var("%a"), f.Var("%p"), 0), "%a %p", "%a"},
		{StoreArith(types.Mul, f.Var("%p"), 0, f.Var("%b")), "%b %p", ""},
		{Compare(types.Equal, f.Var("%c"), f.Var("%a"), Num(2)), "%a", "%c"},
		{CJump(types.LessThanOrEqual, f.Var("%a"), f.Var("%b"), ":l"), "%a %b", ""},
		{Label(":l"), "", ""},
		{Goto(":l"), "", ""},
		{Call(f.Var("%fp"), 1), "%fp rdi", "r10 rax rdi rsi"},
		{Call(NameItem("@g"), 5), "rdi rsi", "r10 rax rdi rsi"},
		{RuntimeCall(types.RuntimeInput, 0), "", "r10 rax rdi rsi"},
		{RuntimeCall(types.RuntimeAllocate, 2), "rdi rsi", "r10 rax rdi rsi"},
		{Inc(f.Var("%a")), "%a", "%a"},
		{Lea(f.Var("%a"), f.Var("%b"), f.Var("%c"), 8), "%b %c", "%a"},
		{StackArg(f.Var("%a"), 0), "", "%a"},
		{Return(), "rax rbx", ""},
	}
	for _, e1 := range tests {
		f.Append(e1.inst)
	}
	ResolveUseDef(f)

	for i1, e1 := range tests {
		inst := f.Instructions()[i1]
		if s := inst.Used().Format(f.Vars()); s != e1.used {
			t.Errorf("%s: expected used (%s), got (%s)", f.Format(inst), e1.used, s)
		}
		if s := inst.Defined().Format(f.Vars()); s != e1.defined {
			t.Errorf("%s: expected defined (%s), got (%s)", f.Format(inst), e1.defined, s)
		}
	}
}

// TestLivenessStraightLine verifies liveness of a function without branches, where OUT of every instruction
// equals IN of the next.
func TestLivenessStraightLine(t *testing.T) {
	f := NewFunction("@f", 0, testConvention{})
	f.Append(
		Assign(f.Var("%a"), Num(1)),
		Assign(f.Var("%b"), f.Var("%a")),
		Assign(f.Var("rax"), f.Var("%b")),
		Return(),
	)
	lv := analyze(t, f)

	expIn := []string{"rbx", "%a rbx", "%b rbx", "rax rbx"}
	expOut := []string{"%a rbx", "%b rbx", "rax rbx", ""}
	for i1 := range f.Instructions() {
		if s := lv.In[i1].Format(f.Vars()); s != expIn[i1] {
			t.Errorf("IN[%d]: expected (%s), got (%s)", i1, expIn[i1], s)
		}
		if s := lv.Out[i1].Format(f.Vars()); s != expOut[i1] {
			t.Errorf("OUT[%d]: expected (%s), got (%s)", i1, expOut[i1], s)
		}
		if i1+1 < f.Len() && !lv.Out[i1].Equal(lv.In[i1+1]) {
			t.Errorf("OUT[%d] differs from IN[%d]", i1, i1+1)
		}
	}
}

// TestLivenessLoop verifies that a variable used after a loop stays live around the back edge.
func TestLivenessLoop(t *testing.T) {
	f := NewFunction("@f", 0, testConvention{})
	f.Append(
		Assign(f.Var("%i"), Num(0)),
		Assign(f.Var("%n"), Num(7)),
		Label(":loop"),
		Inc(f.Var("%i")),
		CJump(types.LessThan, f.Var("%i"), Num(10), ":loop"),
		Assign(f.Var("rax"), f.Var("%n")),
		Return(),
	)
	lv := analyze(t, f)

	n, _ := f.Vars().Lookup("%n")
	i, _ := f.Vars().Lookup("%i")
	for i1 := 1; i1 <= 4; i1++ {
		if !lv.Out[i1].Has(n) {
			t.Errorf("expected %%n live out of instruction %d", i1)
		}
	}
	if !lv.Out[4].Has(i) {
		t.Errorf("expected %%i live out of cjump through the back edge")
	}
	if lv.Out[5].Has(i) || lv.Out[5].Has(n) {
		t.Errorf("expected %%i and %%n dead after the loop")
	}
	for i1, e1 := range f.Instructions() {
		for k := range e1.Used() {
			if !lv.In[i1].Has(k) {
				t.Errorf("IN[%d] misses used variable %s", i1, f.Variable(k).Name)
			}
		}
	}
	if lv.Passes < 2 {
		t.Errorf("expected at least 2 passes, got %d", lv.Passes)
	}
}

// TestLivenessAcrossCall verifies that a variable used after a call is live across it, and that the
// argument registers are live into the call.
func TestLivenessAcrossCall(t *testing.T) {
	f := NewFunction("@f", 0, testConvention{})
	f.Append(
		Assign(f.Var("%x"), Num(5)),
		Assign(f.Var("rdi"), Num(1)),
		RuntimeCall(types.RuntimePrint, 1),
		Assign(f.Var("rax"), f.Var("%x")),
		Return(),
	)
	lv := analyze(t, f)

	x, _ := f.Vars().Lookup("%x")
	rdi, _ := f.Vars().Lookup("rdi")
	if !lv.In[2].Has(x) || !lv.Out[2].Has(x) {
		t.Errorf("expected %%x live across the call, IN (%s) OUT (%s)",
			lv.In[2].Format(f.Vars()), lv.Out[2].Format(f.Vars()))
	}
	if !lv.In[2].Has(rdi) {
		t.Errorf("expected rdi live into the call")
	}
	if lv.Out[2].Has(rdi) {
		t.Errorf("expected rdi dead after the call")
	}
}

// TestLivenessFormat verifies the liveness dump format.
func TestLivenessFormat(t *testing.T) {
	f := NewFunction("@f", 0, testConvention{})
	f.Append(Assign(f.Var("rax"), Num(1)), Return())
	lv := analyze(t, f)
	exp := "(\n(in\n(rbx)\n(rax rbx)\n)\n\n(out\n(rax rbx)\n()\n)\n\n)\n"
	if s := lv.Format(f); s != exp {
		t.Errorf("expected\n%q\ngot\n%q", exp, s)
	}
}

// TestAnalyzeError verifies that Analyze reports CFG errors.
func TestAnalyzeError(t *testing.T) {
	f := NewFunction("@f", 0, testConvention{})
	f.Append(CJump(types.Equal, Num(1), Num(1), ":x"), Return())
	_, err := Analyze(f)
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrNoFixpoint) {
		t.Errorf("expected CFG error, got %s", err)
	}
}
