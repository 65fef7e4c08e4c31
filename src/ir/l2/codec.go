package l2

import (
	"fmt"

	"github.com/segmentio/encoding/json"
	"go.uber.org/multierr"

	"l2c/src/ir/l2/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// jsonProgram is the interchange form of a Program.
type jsonProgram struct {
	Entry     string         `json:"entry"`
	Functions []jsonFunction `json:"functions"`
}

// jsonFunction is the interchange form of a Function.
type jsonFunction struct {
	Name         string            `json:"name"`
	Args         int               `json:"args"`
	Locals       int               `json:"locals,omitempty"`
	Spilled      []string          `json:"spilled,omitempty"`
	Instructions []jsonInstruction `json:"instructions"`
}

// jsonInstruction is the interchange form of every Instruction variant. Only the fields of the variant
// named by Op are set.
type jsonInstruction struct {
	Op       string    `json:"op"`
	Operator string    `json:"operator,omitempty"`
	Dst      *jsonItem `json:"dst,omitempty"`
	Src      *jsonItem `json:"src,omitempty"`
	Left     *jsonItem `json:"left,omitempty"`
	Right    *jsonItem `json:"right,omitempty"`
	Base     *jsonItem `json:"base,omitempty"`
	Index    *jsonItem `json:"index,omitempty"`
	Callee   *jsonItem `json:"callee,omitempty"`
	Offset   int64     `json:"offset,omitempty"`
	Scale    int64     `json:"scale,omitempty"`
	Label    string    `json:"label,omitempty"`
	Runtime  string    `json:"runtime,omitempty"`
	Arity    int       `json:"arity,omitempty"`
}

// jsonItem is the interchange form of an Item. Exactly one field is set. Physical registers are written
// as reg, but either of var and reg is accepted for any variable.
type jsonItem struct {
	Var   *string `json:"var,omitempty"`
	Reg   *string `json:"reg,omitempty"`
	Num   *int64  `json:"num,omitempty"`
	Label *string `json:"label,omitempty"`
	Name  *string `json:"name,omitempty"`
}

// decoder converts one jsonFunction into a Function, collecting errors.
type decoder struct {
	f   *Function
	idx int
	err error
}

// ---------------------
// ----- Functions -----
// ---------------------

// Decode parses the JSON interchange form of a program, classifying register names with Convention cc.
// The decoded program is validated before it is returned.
func Decode(data []byte, cc Convention) (*Program, error) {
	var jp jsonProgram
	if err := json.Unmarshal(data, &jp); err != nil {
		return nil, fmt.Errorf("could not decode program: %w", err)
	}

	p := &Program{
		Entry:     jp.Entry,
		Functions: make([]*Function, 0, len(jp.Functions)),
	}
	var err error
	for _, e1 := range jp.Functions {
		f, ferr := decodeFunction(e1, cc)
		err = multierr.Append(err, ferr)
		p.Functions = append(p.Functions, f)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Encode returns the indented JSON interchange form of Program p.
func Encode(p *Program) ([]byte, error) {
	jp := jsonProgram{
		Entry:     p.Entry,
		Functions: make([]jsonFunction, len(p.Functions)),
	}
	for i1, e1 := range p.Functions {
		jp.Functions[i1] = encodeFunction(e1)
	}
	return json.MarshalIndent(jp, "", "  ")
}

// decodeFunction converts jsonFunction jf into a Function.
func decodeFunction(jf jsonFunction, cc Convention) (*Function, error) {
	d := decoder{f: NewFunction(jf.Name, jf.Args, cc)}
	d.f.locals = jf.Locals
	for _, e1 := range jf.Spilled {
		d.f.MarkSpilled(e1)
	}
	for i1, e1 := range jf.Instructions {
		d.idx = i1
		if inst := d.instruction(e1); inst != nil {
			d.f.Append(inst)
		}
	}
	return d.f, d.err
}

// fail records a problem at the current instruction.
func (d *decoder) fail(format string, args ...interface{}) {
	d.err = multierr.Append(d.err, fmt.Errorf("function %s, instruction %d: %s", d.f.name, d.idx,
		fmt.Sprintf(format, args...)))
}

// instruction converts jsonInstruction ji, or returns <nil> after recording the problem.
func (d *decoder) instruction(ji jsonInstruction) Instruction {
	typ, err := types.ParseInstructionType(ji.Op)
	if err != nil {
		d.fail("%s", err)
		return nil
	}
	switch typ {
	case types.Return:
		return Return()
	case types.Assign:
		return Assign(d.item("dst", ji.Dst), d.item("src", ji.Src))
	case types.Load:
		return Load(d.item("dst", ji.Dst), d.item("base", ji.Base), ji.Offset)
	case types.Store:
		return Store(d.item("base", ji.Base), ji.Offset, d.item("src", ji.Src))
	case types.Arith:
		return Arith(d.aop(ji.Operator), d.item("dst", ji.Dst), d.item("src", ji.Src))
	case types.LoadArith:
		return LoadArith(d.aop(ji.Operator), d.item("dst", ji.Dst), d.item("base", ji.Base), ji.Offset)
	case types.StoreArith:
		return StoreArith(d.aop(ji.Operator), d.item("base", ji.Base), ji.Offset, d.item("src", ji.Src))
	case types.Compare:
		return Compare(d.cmp(ji.Operator), d.item("dst", ji.Dst), d.item("left", ji.Left), d.item("right", ji.Right))
	case types.CJump:
		return CJump(d.cmp(ji.Operator), d.item("left", ji.Left), d.item("right", ji.Right), ji.Label)
	case types.Label:
		return Label(ji.Label)
	case types.Goto:
		return Goto(ji.Label)
	case types.Call:
		return Call(d.item("callee", ji.Callee), ji.Arity)
	case types.RuntimeCall:
		return &RuntimeCallInstruction{Name: ji.Runtime, Arity: ji.Arity}
	case types.Increment:
		return Inc(d.item("dst", ji.Dst))
	case types.Decrement:
		return Dec(d.item("dst", ji.Dst))
	case types.Lea:
		return Lea(d.item("dst", ji.Dst), d.item("base", ji.Base), d.item("index", ji.Index), ji.Scale)
	case types.StackArg:
		return StackArg(d.item("dst", ji.Dst), ji.Offset)
	}
	d.fail("unsupported instruction %s", ji.Op)
	return nil
}

// item converts the operand called what. A missing or ambiguous operand is recorded and replaced by the
// number 0, so decoding can continue and report further problems.
func (d *decoder) item(what string, ji *jsonItem) Item {
	if ji == nil {
		d.fail("missing operand %s", what)
		return Num(0)
	}
	set := 0
	var it Item
	if ji.Var != nil {
		set++
		it = d.f.Var(*ji.Var)
	}
	if ji.Reg != nil {
		set++
		it = d.f.Var(*ji.Reg)
	}
	if ji.Num != nil {
		set++
		it = Num(*ji.Num)
	}
	if ji.Label != nil {
		set++
		it = LabelItem(*ji.Label)
	}
	if ji.Name != nil {
		set++
		it = NameItem(*ji.Name)
	}
	if set != 1 {
		d.fail("operand %s must have exactly one of var, reg, num, label or name", what)
		return Num(0)
	}
	return it
}

// aop parses an arithmetic operator.
func (d *decoder) aop(s string) types.ArithmeticOperation {
	op, err := types.ParseArithmetic(s)
	if err != nil {
		d.fail("%s", err)
	}
	return op
}

// cmp parses a comparison operator.
func (d *decoder) cmp(s string) types.RelationalOperation {
	op, err := types.ParseRelational(s)
	if err != nil {
		d.fail("%s", err)
	}
	return op
}

// encodeFunction converts Function f into its interchange form.
func encodeFunction(f *Function) jsonFunction {
	jf := jsonFunction{
		Name:         f.name,
		Args:         f.args,
		Locals:       f.locals,
		Spilled:      f.Spilled(),
		Instructions: make([]jsonInstruction, len(f.instructions)),
	}
	for i1, e1 := range f.instructions {
		jf.Instructions[i1] = encodeInstruction(f, e1)
	}
	return jf
}

// encodeInstruction converts Instruction inst of Function f into its interchange form.
func encodeInstruction(f *Function, inst Instruction) jsonInstruction {
	ji := jsonInstruction{Op: inst.Type().String()}
	it := func(i Item) *jsonItem { return encodeItem(f, i) }
	switch i := inst.(type) {
	case *AssignInstruction:
		ji.Dst, ji.Src = it(i.Dst), it(i.Src)
	case *LoadInstruction:
		ji.Dst, ji.Base, ji.Offset = it(i.Dst), it(i.Base), i.Offset
	case *StoreInstruction:
		ji.Base, ji.Offset, ji.Src = it(i.Base), i.Offset, it(i.Src)
	case *ArithInstruction:
		ji.Operator, ji.Dst, ji.Src = i.Op.String(), it(i.Dst), it(i.Src)
	case *LoadArithInstruction:
		ji.Operator, ji.Dst, ji.Base, ji.Offset = i.Op.String(), it(i.Dst), it(i.Base), i.Offset
	case *StoreArithInstruction:
		ji.Operator, ji.Base, ji.Offset, ji.Src = i.Op.String(), it(i.Base), i.Offset, it(i.Src)
	case *CompareInstruction:
		ji.Operator, ji.Dst, ji.Left, ji.Right = i.Op.String(), it(i.Dst), it(i.Left), it(i.Right)
	case *CJumpInstruction:
		ji.Operator, ji.Left, ji.Right, ji.Label = i.Op.String(), it(i.Left), it(i.Right), i.Target
	case *LabelInstruction:
		ji.Label = i.Name
	case *GotoInstruction:
		ji.Label = i.Target
	case *CallInstruction:
		ji.Callee, ji.Arity = it(i.Callee), i.Arity
	case *RuntimeCallInstruction:
		ji.Runtime, ji.Arity = i.Name, i.Arity
	case *IncDecInstruction:
		ji.Dst = it(i.Dst)
	case *LeaInstruction:
		ji.Dst, ji.Base, ji.Index, ji.Scale = it(i.Dst), it(i.Base), it(i.Index), i.Scale
	case *StackArgInstruction:
		ji.Dst, ji.Offset = it(i.Dst), i.Offset
	}
	return ji
}

// encodeItem converts Item it of Function f into its interchange form.
func encodeItem(f *Function, it Item) *jsonItem {
	switch it.typ {
	case types.Variable:
		v := f.vars.Get(it.v)
		s := v.Name
		if v.IsRegister() {
			return &jsonItem{Reg: &s}
		}
		return &jsonItem{Var: &s}
	case types.Number:
		n := it.n
		return &jsonItem{Num: &n}
	case types.LabelName:
		s := it.s
		return &jsonItem{Label: &s}
	default:
		s := it.s
		return &jsonItem{Name: &s}
	}
}
