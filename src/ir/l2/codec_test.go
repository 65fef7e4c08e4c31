package l2

import (
	"strings"
	"testing"

	"l2c/src/ir/l2/types"
)

// sample is a program exercising most operand and instruction kinds.
const sample = `{
  "entry": "@main",
  "functions": [
    {
      "name": "@main",
      "args": 0,
      "instructions": [
        {"op": "assign", "dst": {"reg": "rdi"}, "src": {"num": 5}},
        {"op": "call", "callee": {"name": "@double"}, "arity": 1},
        {"op": "assign", "dst": {"var": "%r"}, "src": {"reg": "rax"}},
        {"op": "cjump", "operator": "<", "left": {"var": "%r"}, "right": {"num": 11}, "label": ":small"},
        {"op": "assign", "dst": {"reg": "rdi"}, "src": {"var": "%r"}},
        {"op": "runtime-call", "runtime": "print", "arity": 1},
        {"op": "label", "label": ":small"},
        {"op": "return"}
      ]
    },
    {
      "name": "@double",
      "args": 1,
      "locals": 1,
      "instructions": [
        {"op": "assign", "dst": {"var": "%x"}, "src": {"reg": "rdi"}},
        {"op": "store", "base": {"reg": "rsp"}, "offset": 0, "src": {"var": "%x"}},
        {"op": "load-arith", "operator": "+=", "dst": {"var": "%x"}, "base": {"reg": "rsp"}, "offset": 0},
        {"op": "assign", "dst": {"reg": "rax"}, "src": {"var": "%x"}},
        {"op": "return"}
      ]
    }
  ]
}`

// TestDecode verifies that the interchange form is decoded into the expected instructions.
func TestDecode(t *testing.T) {
	p, err := Decode([]byte(sample), testConvention{})
	if err != nil {
		t.Fatalf("could not decode sample: %s", err)
	}
	if p.Entry != "@main" || len(p.Functions) != 2 {
		t.Fatalf("expected entry @main and 2 functions, got %s and %d", p.Entry, len(p.Functions))
	}

	f := p.Function("@double")
	if f == nil {
		t.Fatalf("function @double missing")
	}
	if f.Args() != 1 || f.Locals() != 1 {
		t.Errorf("expected 1 argument and 1 local, got %d and %d", f.Args(), f.Locals())
	}
	exp := []string{
		"%x <- rdi",
		"mem rsp 0 <- %x",
		"%x += mem rsp 0",
		"rax <- %x",
		"return",
	}
	for i1, e1 := range f.Instructions() {
		if s := f.Format(e1); s != exp[i1] {
			t.Errorf("instruction %d: expected %q, got %q", i1, exp[i1], s)
		}
	}

	m := p.Function("@main")
	if c, ok := m.Instructions()[5].(*RuntimeCallInstruction); !ok || c.Name != types.RuntimePrint {
		t.Errorf("expected runtime call to print, got %s", m.Format(m.Instructions()[5]))
	}
	if _, ok := m.Instructions()[3].(*CJumpInstruction); !ok {
		t.Errorf("expected cjump, got %T", m.Instructions()[3])
	}
}

// TestEncodeRoundTrip verifies that encoding and decoding a program preserves its text form and
// spilled set.
func TestEncodeRoundTrip(t *testing.T) {
	p, err := Decode([]byte(sample), testConvention{})
	if err != nil {
		t.Fatalf("could not decode sample: %s", err)
	}
	p.Functions[1].MarkSpilled("%y")

	data, err := Encode(p)
	if err != nil {
		t.Fatalf("could not encode program: %s", err)
	}
	q, err := Decode(data, testConvention{})
	if err != nil {
		t.Fatalf("could not decode encoded program: %s\n%s", err, data)
	}
	if p.String() != q.String() {
		t.Errorf("round trip changed program\nbefore:\n%s\nafter:\n%s", p, q)
	}
	if !q.Functions[1].IsSpilled("%y") {
		t.Errorf("spilled set lost in round trip")
	}
}

// TestDecodeErrors verifies that every decoding problem is reported.
func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		src string
		err string
	}{
		{`{"functions": [{"name": "@f", "instructions": [{"op": "jump"}]}]}`, "jump"},
		{`{"functions": [{"name": "@f", "instructions": [{"op": "assign", "src": {"num": 1}}]}]}`, "missing operand dst"},
		{`{"functions": [{"name": "@f", "instructions": [{"op": "assign", "dst": {"var": "%a", "num": 1}, "src": {"num": 1}}]}]}`, "exactly one"},
		{`{"functions": [{"name": "@f", "instructions": [{"op": "arith", "operator": "/=", "dst": {"var": "%a"}, "src": {"num": 1}}]}]}`, "/="},
		{`{"functions": [{"name": "@f", "instructions": [{"op": "goto", "label": ":x"}]}]}`, "undefined label"},
		{`{"entry": "@main", "functions": []}`, "entry function"},
		{`{"functions": [`, "could not decode"},
	}
	for _, e1 := range tests {
		_, err := Decode([]byte(e1.src), testConvention{})
		if err == nil {
			t.Errorf("%s: expected error containing %q", e1.src, e1.err)
			continue
		}
		if !strings.Contains(err.Error(), e1.err) {
			t.Errorf("%s: expected error containing %q, got %q", e1.src, e1.err, err)
		}
	}
}
