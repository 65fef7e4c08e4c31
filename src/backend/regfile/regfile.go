// Package regfile provides the register file consumed by the register allocator: the calling convention
// together with the ordered set of allocatable physical registers, the colours.
package regfile

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"l2c/src/ir/l2"
	"l2c/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Register defines a physical register interface.
type Register interface {
	Id() int           // Colour index of the register, its position in the allocation order.
	String() string    // String returns the L2 name of the register.
	CallerSaved() bool // CallerSaved returns true if calls clobber the register.
}

// RegisterFile defines the calling convention of a target and its allocatable registers.
type RegisterFile interface {
	l2.Convention
	Get(i int) Register                  // Returns the register with colour index i.
	Lookup(name string) (Register, bool) // Returns the allocatable register called name.
	K() int                              // K returns the number of allocatable registers, the colours.
	Retry() int                          // Retry returns the optimistic picks allowed per colouring attempt.
	TempPrefix() string                  // TempPrefix returns the name prefix of spill temporaries.
}

// Table is a RegisterFile backed by name tables. A Table is immutable once created and may be shared between
// worker threads.
type Table struct {
	args        []string       // Ordered argument registers.
	callerSaved []string       // Registers clobbered by calls.
	calleeSaved []string       // Registers preserved across calls.
	result      string         // Return value register.
	sp          string         // Stack pointer, never allocated.
	regs        []register     // Allocatable registers in colour order.
	index       map[string]int // Register name to colour index.
	retry       int            // Optimistic picks per colouring attempt.
	prefix      string         // Spill temporary prefix.
}

// register is an allocatable register of a Table.
type register struct {
	name   string // L2 name.
	idx    int    // Colour index.
	caller bool   // Set to true if caller-saved.
}

// ---------------------
// ----- Constants -----
// ---------------------

// DefaultRetry is the number of optimistic picks allowed per colouring attempt if the configuration doesn't
// set one.
const DefaultRetry = 128

// DefaultTempPrefix prefixes spill temporaries if the configuration doesn't set a prefix.
const DefaultTempPrefix = "%S"

// ---------------------
// ----- Functions -----
// ---------------------

// New validates Config cfg and returns the register file it describes. If cfg lists no allocatable
// registers, the caller-saved registers followed by the callee-saved registers are the colours. Every
// problem with cfg is reported, combined into one error.
func New(cfg util.Config) (*Table, error) {
	var err error
	fail := func(format string, args ...interface{}) {
		err = multierr.Append(err, fmt.Errorf(format, args...))
	}

	alloc := cfg.Allocatable
	if len(alloc) < 1 {
		alloc = make([]string, 0, len(cfg.CallerSaved)+len(cfg.CalleeSaved))
		alloc = append(alloc, cfg.CallerSaved...)
		alloc = append(alloc, cfg.CalleeSaved...)
	}

	t := &Table{
		args:        append([]string(nil), cfg.Args...),
		callerSaved: append([]string(nil), cfg.CallerSaved...),
		calleeSaved: append([]string(nil), cfg.CalleeSaved...),
		result:      cfg.Result,
		sp:          cfg.SP,
		regs:        make([]register, 0, len(alloc)),
		index:       make(map[string]int, len(alloc)),
		retry:       cfg.Retry,
		prefix:      cfg.TempPrefix,
	}
	if t.retry < 1 {
		t.retry = DefaultRetry
	}
	if len(t.prefix) < 1 {
		t.prefix = DefaultTempPrefix
	}

	caller := make(map[string]bool, len(cfg.CallerSaved))
	for _, e1 := range cfg.CallerSaved {
		caller[e1] = true
	}
	for _, e1 := range cfg.CalleeSaved {
		if caller[e1] {
			fail("register %s is both caller-saved and callee-saved", e1)
		}
	}

	for _, e1 := range alloc {
		if len(e1) < 1 || strings.HasPrefix(e1, l2.VirtualPrefix) {
			fail("allocatable register %q is not a register name", e1)
			continue
		}
		if _, ok := t.index[e1]; ok {
			fail("allocatable register %s listed more than once", e1)
			continue
		}
		t.index[e1] = len(t.regs)
		t.regs = append(t.regs, register{name: e1, idx: len(t.regs), caller: caller[e1]})
	}
	if len(t.regs) < 1 {
		fail("no allocatable registers")
	}

	if len(t.sp) < 1 {
		fail("no stack pointer")
	} else if _, ok := t.index[t.sp]; ok {
		fail("stack pointer %s must not be allocatable", t.sp)
	}
	if len(t.result) < 1 {
		fail("no result register")
	} else if _, ok := t.index[t.result]; !ok {
		fail("result register %s is not allocatable", t.result)
	}
	for _, e1 := range [][]string{t.args, t.callerSaved, t.calleeSaved} {
		for _, e2 := range e1 {
			if _, ok := t.index[e2]; !ok {
				fail("register %s is not allocatable", e2)
			}
		}
	}
	if !strings.HasPrefix(t.prefix, l2.VirtualPrefix) {
		fail("spill temporary prefix %q must start with %s", t.prefix, l2.VirtualPrefix)
	}

	if err != nil {
		return nil, fmt.Errorf("invalid register file: %w", err)
	}
	return t, nil
}

// ------------------------
// ----- Table methods -----
// ------------------------

// Args returns the ordered argument registers.
func (t *Table) Args() []string { return t.args }

// CallerSaved returns the registers clobbered by calls.
func (t *Table) CallerSaved() []string { return t.callerSaved }

// CalleeSaved returns the registers preserved across calls.
func (t *Table) CalleeSaved() []string { return t.calleeSaved }

// Result returns the return value register.
func (t *Table) Result() string { return t.result }

// SP returns the stack pointer register.
func (t *Table) SP() string { return t.sp }

// IsRegister returns true if name is an allocatable register or the stack pointer.
func (t *Table) IsRegister(name string) bool {
	if name == t.sp {
		return true
	}
	_, ok := t.index[name]
	return ok
}

// Get returns the register with colour index i. Get panics if i is out of range.
func (t *Table) Get(i int) Register {
	if i < 0 || i >= len(t.regs) {
		panic(fmt.Sprintf("colour %d out of range [0, %d)", i, len(t.regs)))
	}
	return t.regs[i]
}

// Lookup returns the allocatable register called name.
func (t *Table) Lookup(name string) (Register, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.regs[i], true
}

// K returns the number of colours.
func (t *Table) K() int { return len(t.regs) }

// Retry returns the optimistic picks allowed per colouring attempt.
func (t *Table) Retry() int { return t.retry }

// TempPrefix returns the name prefix of spill temporaries.
func (t *Table) TempPrefix() string { return t.prefix }

// ---------------------------
// ----- Register methods -----
// ---------------------------

// Id returns the colour index of the register r.
func (r register) Id() int {
	return r.idx
}

// String returns the L2 name of the register.
func (r register) String() string {
	return r.name
}

// CallerSaved returns true if the register is clobbered by calls.
func (r register) CallerSaved() bool {
	return r.caller
}
