package regalloc

import (
	"errors"
	"fmt"

	"l2c/src/ir/l2"
	"l2c/src/util"
)

// -------------------
// ----- Globals -----
// -------------------

// ErrSpilled is returned when spilling a variable that has been spilled before.
var ErrSpilled = errors.New("variable already spilled")

// ---------------------
// ----- Functions -----
// ---------------------

// Spill returns a copy of Function f where virtual variable v lives in a new stack slot mem sp 8*locals. Every
// instruction referencing v gets its own fresh temporary named by Sequence seq: an instruction reading v is
// preceded by a load of the slot into the temporary, an instruction writing v is followed by a store of the
// temporary to the slot. Names already used in f are skipped. The names of the temporaries are returned in order
// of introduction. Function f is not modified, apart from its derived instruction data.
func Spill(f *l2.Function, v l2.VarID, seq *util.Sequence) (*l2.Function, []string, error) {
	va := f.Variable(v)
	if va.IsRegister() {
		return nil, nil, fmt.Errorf("function %s: cannot spill register %s", f.Name(), va.Name)
	}
	if f.IsSpilled(va.Name) {
		return nil, nil, fmt.Errorf("function %s: %w: %s", f.Name(), ErrSpilled, va.Name)
	}
	cc := f.Convention()
	if cc == nil || len(cc.SP()) < 1 {
		return nil, nil, fmt.Errorf("function %s: cannot spill %s without a stack pointer", f.Name(), va.Name)
	}
	l2.ResolveUseDef(f)

	d := f.Derive()
	slot := d.AllocSlot()
	sp := d.Var(cc.SP())
	temps := make([]string, 0, 8)

	// fresh returns the next temporary name not yet used in d.
	fresh := func() l2.Item {
		for {
			name := seq.Next()
			if _, ok := d.Vars().Lookup(name); !ok {
				temps = append(temps, name)
				return d.Var(name)
			}
		}
	}

	for _, e1 := range f.Instructions() {
		reads, writes := e1.Used().Has(v), e1.Defined().Has(v)
		if !reads && !writes {
			d.Append(l2.Copy(e1))
			continue
		}
		tmp := fresh()
		if reads {
			d.Append(l2.Load(tmp, sp, slot))
		}
		d.Append(l2.Rewrite(e1, map[l2.VarID]l2.VarID{v: tmp.Var()}))
		if writes {
			d.Append(l2.Store(sp, slot, tmp))
		}
	}
	d.MarkSpilled(va.Name)
	return d, temps, nil
}

// SpillByName spills the variable called name of Function f. See Spill.
func SpillByName(f *l2.Function, name string, seq *util.Sequence) (*l2.Function, []string, error) {
	v, ok := f.Vars().Lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("function %s: no variable %s", f.Name(), name)
	}
	return Spill(f, v, seq)
}
