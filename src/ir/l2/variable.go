package l2

import (
	"fmt"
	"sort"
	"strings"

	"l2c/src/ir/l2/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// VarID is the arena index of a Variable in its Function's VarTable. VarIDs are stable for the lifetime of
// the table and survive Function.Derive.
type VarID int

// Variable is an interned virtual variable or physical register. Two Variables are the same variable iff
// their names are equal.
type Variable struct {
	Name string             // Name of variable, %name for virtual variables.
	Kind types.VariableKind // Kind tells if the variable is a physical register.
}

// VarTable interns Variables by name, such that every name has exactly one VarID.
type VarTable struct {
	vars  []Variable       // Arena of variables, indexed by VarID.
	index map[string]VarID // Name to arena index.
	cc    Convention       // Calling convention deciding which names are registers.
}

// VarSet is a set of variables identified by their arena index.
type VarSet map[VarID]struct{}

// ---------------------
// ----- Constants -----
// ---------------------

// VirtualPrefix prefixes every virtual variable name.
const VirtualPrefix = "%"

// NoVar is returned by lookups that fail.
const NoVar VarID = -1

// ---------------------
// ----- Functions -----
// ---------------------

// newVarTable returns an empty VarTable classifying names with Convention cc.
func newVarTable(cc Convention) *VarTable {
	return &VarTable{
		vars:  make([]Variable, 0, 32),
		index: make(map[string]VarID, 32),
		cc:    cc,
	}
}

// Intern returns the VarID of name, creating the Variable if it doesn't exist yet.
func (t *VarTable) Intern(name string) VarID {
	if id, ok := t.index[name]; ok {
		return id
	}
	v := Variable{Name: name, Kind: types.Virtual}
	if t.cc != nil && t.cc.IsRegister(name) {
		v.Kind = types.Physical
	}
	id := VarID(len(t.vars))
	t.vars = append(t.vars, v)
	t.index[name] = id
	return id
}

// Lookup returns the VarID of name, or NoVar and false if name was never interned.
func (t *VarTable) Lookup(name string) (VarID, bool) {
	id, ok := t.index[name]
	if !ok {
		return NoVar, false
	}
	return id, true
}

// Get returns the Variable with arena index id. Get panics if id is out of range.
func (t *VarTable) Get(id VarID) Variable {
	if id < 0 || int(id) >= len(t.vars) {
		panic(fmt.Sprintf("variable %d not in table of %d variables", id, len(t.vars)))
	}
	return t.vars[id]
}

// Len returns the number of interned variables.
func (t *VarTable) Len() int {
	return len(t.vars)
}

// clone returns an independent copy of VarTable t.
func (t *VarTable) clone() *VarTable {
	c := &VarTable{
		vars:  make([]Variable, len(t.vars), cap(t.vars)),
		index: make(map[string]VarID, len(t.index)),
		cc:    t.cc,
	}
	copy(c.vars, t.vars)
	for k, v := range t.index {
		c.index[k] = v
	}
	return c
}

// IsRegister returns true if the variable is a physical register.
func (v Variable) IsRegister() bool {
	return v.Kind == types.Physical
}

// String returns the name of Variable v.
func (v Variable) String() string {
	return v.Name
}

// -------------------------
// ----- VarSet methods -----
// -------------------------

// NewVarSet returns a VarSet holding ids.
func NewVarSet(ids ...VarID) VarSet {
	s := make(VarSet, len(ids))
	for _, e1 := range ids {
		s[e1] = struct{}{}
	}
	return s
}

// Add inserts id into VarSet s.
func (s VarSet) Add(id VarID) {
	s[id] = struct{}{}
}

// Has returns true if id is a member of VarSet s.
func (s VarSet) Has(id VarID) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new VarSet holding the members of s and o.
func (s VarSet) Union(o VarSet) VarSet {
	r := make(VarSet, len(s)+len(o))
	for k := range s {
		r[k] = struct{}{}
	}
	for k := range o {
		r[k] = struct{}{}
	}
	return r
}

// Minus returns a new VarSet holding the members of s that are not in o.
func (s VarSet) Minus(o VarSet) VarSet {
	r := make(VarSet, len(s))
	for k := range s {
		if _, ok := o[k]; !ok {
			r[k] = struct{}{}
		}
	}
	return r
}

// Equal returns true if s and o hold the same members.
func (s VarSet) Equal(o VarSet) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if _, ok := o[k]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the members of s in ascending VarID order.
func (s VarSet) Sorted() []VarID {
	res := make([]VarID, 0, len(s))
	for k := range s {
		res = append(res, k)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Names returns the sorted variable names of the members of s, resolved in VarTable t.
func (s VarSet) Names(t *VarTable) []string {
	res := make([]string, 0, len(s))
	for k := range s {
		res = append(res, t.Get(k).Name)
	}
	sort.Strings(res)
	return res
}

// Format returns the members of s as a space separated, sorted list of names.
func (s VarSet) Format(t *VarTable) string {
	return strings.Join(s.Names(t), " ")
}
