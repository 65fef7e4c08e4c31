package l2

import (
	"fmt"
	"strconv"

	"l2c/src/ir/l2/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Item is an instruction operand: a variable, an immediate number, a label or a function name.
// Variables are referenced by their VarID in the owning Function's VarTable.
type Item struct {
	typ types.ItemType // Kind of operand.
	v   VarID          // Variable arena index, set if typ is types.Variable.
	n   int64          // Immediate value, set if typ is types.Number.
	s   string         // Label or function name, set if typ is types.LabelName or types.FunctionName.
}

// ---------------------
// ----- Functions -----
// ---------------------

// VarItem returns a variable operand referencing VarID id.
func VarItem(id VarID) Item {
	return Item{typ: types.Variable, v: id}
}

// Num returns an immediate number operand.
func Num(n int64) Item {
	return Item{typ: types.Number, n: n}
}

// LabelItem returns a label operand. The name includes the leading colon.
func LabelItem(name string) Item {
	return Item{typ: types.LabelName, s: name}
}

// NameItem returns a function name operand. The name includes the leading @.
func NameItem(name string) Item {
	return Item{typ: types.FunctionName, s: name}
}

// Type returns the ItemType of Item it.
func (it Item) Type() types.ItemType {
	return it.typ
}

// IsVar returns true if Item it is a variable operand.
func (it Item) IsVar() bool {
	return it.typ == types.Variable
}

// Var returns the VarID of a variable operand. Var panics if Item it is not a variable, because the
// front end must never hand over instructions with a non-variable in a variable slot.
func (it Item) Var() VarID {
	if it.typ != types.Variable {
		panic(fmt.Sprintf("operand is a %s, expected a variable", it.typ.String()))
	}
	return it.v
}

// Value returns the immediate of a number operand. Value panics if Item it is not a number.
func (it Item) Value() int64 {
	if it.typ != types.Number {
		panic(fmt.Sprintf("operand is a %s, expected a number", it.typ.String()))
	}
	return it.n
}

// Symbol returns the label or function name of Item it. Symbol panics for variables and numbers.
func (it Item) Symbol() string {
	if it.typ != types.LabelName && it.typ != types.FunctionName {
		panic(fmt.Sprintf("operand is a %s, expected a label or function name", it.typ.String()))
	}
	return it.s
}

// Format returns the L2 textual form of Item it, resolving variables in VarTable t.
func (it Item) Format(t *VarTable) string {
	switch it.typ {
	case types.Variable:
		return t.Get(it.v).Name
	case types.Number:
		return strconv.FormatInt(it.n, 10)
	default:
		return it.s
	}
}
