// Package regalloc maps the virtual variables of L2 functions to physical registers by graph colouring,
// spilling variables to the stack where the registers don't suffice.
package regalloc

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"l2c/src/backend/regfile"
	"l2c/src/ir/l2"
	"l2c/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Stats counts the work done by the allocator.
type Stats struct {
	Functions  int // Functions allocated.
	Iterations int // Analyze, build and colour cycles.
	Spills     int // Variables spilled.
	Sweeps     int // Sweeps spilling every remaining variable.
	Rewrites   int // Virtual variables rewritten to their register.
}

// state is a state of the allocation state machine.
type state int

// allocator holds the allocation context of one function. Nothing in it outlives the allocation.
type allocator struct {
	rf    regfile.RegisterFile
	log   *zap.Logger
	f     *l2.Function   // Current function, replaced by every spill.
	lv    *l2.Liveness   // Liveness of f.
	g     *Graph         // Interference graph of f.
	res   *Result        // Last colouring attempt.
	seq   *util.Sequence // Spill temporary names.
	temps l2.VarSet      // Spill temporaries introduced so far.
	bound int            // Maximum number of iterations.
	stats Stats
}

// counters aggregates Stats of functions allocated in parallel.
type counters struct {
	functions, iterations, spills, sweeps, rewrites atomic.Int64
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	stateAnalyze state = iota
	stateBuild
	stateColor
	stateSpill
	stateSweep
	stateDone
)

// -------------------
// ----- Globals -----
// -------------------

// ErrAllocation is returned when a function cannot be allocated.
var ErrAllocation = errors.New("register allocation failed")

// ErrInternal is returned when the allocator breaks one of its own invariants.
var ErrInternal = errors.New("internal register allocator error")

// stateNames provides string literals for state constants.
var stateNames = [...]string{
	"analyze",
	"build",
	"color",
	"spill",
	"sweep",
	"done",
}

// ---------------------
// ----- Functions -----
// ---------------------

// AllocateRegisters allocates the registers of every function of Program p, and returns a new Program where every
// variable is a physical register of RegisterFile rf. Functions are independent and are distributed over
// opt.Threads worker go routines. All errors are returned, combined into one.
func AllocateRegisters(opt util.Options, log *zap.Logger, rf regfile.RegisterFile, p *l2.Program) (*l2.Program, Stats, error) {
	if log == nil {
		log = zap.NewNop()
	}
	res := &l2.Program{
		Entry:     p.Entry,
		Functions: make([]*l2.Function, len(p.Functions)),
	}
	cnt := counters{}
	if len(p.Functions) < 1 {
		return res, Stats{}, nil
	}

	// alloc allocates function i1 and records the result.
	alloc := func(i1 int) error {
		f, st, err := AllocateFunction(p.Functions[i1], rf, log)
		cnt.add(st)
		if err != nil {
			return err
		}
		res.Functions[i1] = f
		return nil
	}

	if opt.Threads < 2 {
		// Sequential.
		var err error
		for i1 := range p.Functions {
			err = multierr.Append(err, alloc(i1))
		}
		return res, cnt.load(), err
	}

	// Parallel.
	t := opt.Threads
	l := len(p.Functions)
	if t > l {
		t = l
	}
	n := l / t
	rest := l % t

	start := 0
	end := n

	// Create error listener.
	perr := util.NewPerror(t)

	// Create wait group for main go routine to wait for worker go routines.
	wg := sync.WaitGroup{}
	wg.Add(t)

	// Spawn t worker go routines.
	for i1 := 0; i1 < t; i1++ {
		if i1 < rest {
			end++
		}

		// Every worker owns the functions in [start, end).
		go func(start, end int) {
			defer wg.Done()
			for i2 := start; i2 < end; i2++ {
				perr.Append(alloc(i2))
			}
		}(start, end)

		start = end
		end += n
	}

	// Wait for worker go routines to finish register allocation.
	wg.Wait()
	perr.Stop()
	if perr.Len() > 0 {
		log.Warn("parallel register allocation failed", zap.Int("errors", perr.Len()), zap.Int("threads", t))
	}
	return res, cnt.load(), perr.Err()
}

// AllocateFunction allocates the registers of Function f and returns a new Function where every variable is a
// physical register of RegisterFile rf, together with the work done. Function f itself is never changed, apart
// from its derived instruction data.
//
// The allocator loops Analyze, Build and Color. If colouring succeeds, every variable is rewritten to its register.
// Otherwise every uncoloured variable that is neither a spill temporary nor spilled before is spilled, and the loop
// restarts. Every remaining variable is spilled in one sweep if colouring reports a big fail, or if no uncoloured
// variable can be spilled. Allocation fails if a sweep finds nothing to spill, or if the number of iterations
// exceeds the number of virtual variables of f plus two.
func AllocateFunction(f *l2.Function, rf regfile.RegisterFile, log *zap.Logger) (*l2.Function, Stats, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := allocator{
		rf:    rf,
		log:   log.With(zap.String("function", f.Name())),
		f:     f,
		seq:   util.NewSequence(rf.TempPrefix(), nil),
		temps: make(l2.VarSet),
		stats: Stats{Functions: 1},
	}

	for st := stateAnalyze; ; {
		a.log.Debug("state", zap.Int("iteration", a.stats.Iterations), zap.Stringer("state", st))
		switch st {
		case stateAnalyze:
			a.stats.Iterations++
			lv, err := l2.Analyze(a.f)
			if err != nil {
				return nil, a.stats, fmt.Errorf("function %s: %w", f.Name(), err)
			}
			a.lv = lv
			if a.bound == 0 {
				a.bound = a.virtuals() + 2
			}
			if a.stats.Iterations > a.bound {
				return nil, a.stats, fmt.Errorf("function %s: %w: no allocation within %d iterations",
					f.Name(), ErrAllocation, a.bound)
			}
			a.log.Debug("liveness", zap.Int("iteration", a.stats.Iterations), zap.Int("passes", lv.Passes))
			st = stateBuild
		case stateBuild:
			a.g = Build(a.f, a.lv, a.rf)
			st = stateColor
		case stateColor:
			res, err := Color(a.g, a.rf, a.temps)
			if err != nil {
				return nil, a.stats, err
			}
			a.res = res
			a.log.Debug("color",
				zap.Int("iteration", a.stats.Iterations),
				zap.Int("nodes", a.g.Len()),
				zap.Int("optimistic", res.Optimistic),
				zap.Bool("big_fail", res.BigFail),
				zap.Strings("uncolored", a.names(res.Uncolored)))
			switch {
			case res.BigFail:
				st = stateSweep
			case len(res.Uncolored) == 0:
				st = stateDone
			default:
				st = stateSpill
			}
		case stateSpill:
			victims := make([]l2.VarID, 0, len(a.res.Uncolored))
			for _, e1 := range a.res.Uncolored {
				if a.spillable(e1) {
					victims = append(victims, e1)
				}
			}
			if len(victims) < 1 {
				st = stateSweep
				continue
			}
			if err := a.spill(victims); err != nil {
				return nil, a.stats, err
			}
			st = stateAnalyze
		case stateSweep:
			victims := make([]l2.VarID, 0, 16)
			for _, e1 := range a.g.Nodes() {
				if a.spillable(e1) {
					victims = append(victims, e1)
				}
			}
			if len(victims) < 1 {
				return nil, a.stats, fmt.Errorf("function %s: %w: nothing left to spill, uncolored %v",
					f.Name(), ErrAllocation, a.names(a.res.Uncolored))
			}
			a.stats.Sweeps++
			a.log.Debug("sweep", zap.Strings("spilled", a.names(victims)))
			if err := a.spill(victims); err != nil {
				return nil, a.stats, err
			}
			st = stateAnalyze
		case stateDone:
			fn := a.rewrite()
			a.log.Debug("done",
				zap.Int("iterations", a.stats.Iterations),
				zap.Int("spills", a.stats.Spills),
				zap.Int("locals", fn.Locals()))
			return fn, a.stats, nil
		default:
			return nil, a.stats, fmt.Errorf("function %s: %w: unexpected state %s", f.Name(), ErrInternal, st)
		}
	}
}

// spillable returns true if node id is a virtual variable that is neither a spill temporary nor spilled before.
func (a *allocator) spillable(id l2.VarID) bool {
	v := a.f.Variable(id)
	return !v.IsRegister() && !a.temps.Has(id) && !a.f.IsSpilled(v.Name)
}

// spill spills every variable of victims in turn. VarIDs stay valid across spills, since every spill derives
// the new function's variable table from the old one.
func (a *allocator) spill(victims []l2.VarID) error {
	names := a.names(victims)
	for _, e1 := range victims {
		f, temps, err := Spill(a.f, e1, a.seq)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInternal, err)
		}
		for _, e2 := range temps {
			id, _ := f.Vars().Lookup(e2)
			a.temps.Add(id)
		}
		a.f = f
		a.stats.Spills++
	}
	a.log.Debug("spill", zap.Int("iteration", a.stats.Iterations), zap.Strings("spilled", names),
		zap.Int("locals", a.f.Locals()))
	return nil
}

// rewrite returns the current function with every virtual variable replaced by the register of its colour.
func (a *allocator) rewrite() *l2.Function {
	m := make(map[l2.VarID]l2.VarID, len(a.res.Colors))
	d := a.f.Derive()
	for k, v := range a.res.Colors {
		if a.f.Variable(k).IsRegister() {
			continue
		}
		m[k] = d.Vars().Intern(a.rf.Get(v).String())
	}
	for _, e1 := range a.f.Instructions() {
		d.Append(l2.Rewrite(e1, m))
	}
	a.stats.Rewrites += len(m)
	return d
}

// virtuals returns the number of virtual variables referenced by the current function.
func (a *allocator) virtuals() int {
	n := 0
	for k := range a.f.Referenced() {
		if !a.f.Variable(k).IsRegister() {
			n++
		}
	}
	return n
}

// names resolves ids to variable names.
func (a *allocator) names(ids []l2.VarID) []string {
	res := make([]string, len(ids))
	for i1, e1 := range ids {
		res[i1] = a.f.Variable(e1).Name
	}
	return res
}

// String returns the name of state st.
func (st state) String() string {
	if int(st) < len(stateNames) {
		return stateNames[st]
	}
	return fmt.Sprintf("state(%d)", int(st))
}

// add adds Stats st to the counters.
func (c *counters) add(st Stats) {
	c.functions.Add(int64(st.Functions))
	c.iterations.Add(int64(st.Iterations))
	c.spills.Add(int64(st.Spills))
	c.sweeps.Add(int64(st.Sweeps))
	c.rewrites.Add(int64(st.Rewrites))
}

// load returns the aggregated Stats.
func (c *counters) load() Stats {
	return Stats{
		Functions:  int(c.functions.Load()),
		Iterations: int(c.iterations.Load()),
		Spills:     int(c.spills.Load()),
		Sweeps:     int(c.sweeps.Load()),
		Rewrites:   int(c.rewrites.Load()),
	}
}
