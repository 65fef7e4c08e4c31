package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"l2c/src/backend/amd64"
	"l2c/src/backend/regalloc"
	"l2c/src/backend/regfile"
	"l2c/src/ir/l2"
	"l2c/src/util"
)

// ----------------------
// ----- Constants ------
// ----------------------

// p defines the maximum number of parallel threads to pass to the allocator.
const p = 4

// --------------------
// ----- Globals ------
// --------------------

// srcPath defines the relative path from the src directory to the bundled L2 programs.
var srcPath = "../resources/l2/"

// ccPath defines the relative path from the src directory to the bundled calling conventions.
var ccPath = "../resources/cc/"

// ----------------------
// ----- Functions ------
// ----------------------

// TestAllocate allocates every bundled program with the x86-64 and the small register file, for 1 to p threads,
// and verifies that the output is physical, stable across thread counts and a fixpoint of allocation.
func TestAllocate(t *testing.T) {
	src, names := helperReadFiles(t, srcPath)
	small := helperSmallRegisterFile(t)

	for _, rf := range []*regfile.Table{amd64.CreateRegisterFile(), small} {
		for i1, e1 := range src {
			var first []byte
			for i2 := 1; i2 <= p; i2++ {
				opt := util.Options{Threads: i2, Format: util.FormatJSON}
				buf := bytes.Buffer{}
				if err := run(opt, zap.NewNop(), rf, e1, &buf); err != nil {
					t.Fatalf("%s, k=%d, threads=%d: %s", names[i1], rf.K(), i2, err)
				}
				if first == nil {
					first = buf.Bytes()
				} else if !bytes.Equal(first, buf.Bytes()) {
					t.Errorf("%s, k=%d: output with %d threads differs from sequential output", names[i1], rf.K(), i2)
				}
			}

			out, err := l2.Decode(first, rf)
			if err != nil {
				t.Fatalf("%s, k=%d: could not decode allocated program: %s", names[i1], rf.K(), err)
			}
			for _, e2 := range out.Functions {
				if _, err := l2.Analyze(e2); err != nil {
					t.Fatalf("%s: %s", e2.Name(), err)
				}
				for k := range e2.Referenced() {
					if v := e2.Variable(k); !v.IsRegister() {
						t.Errorf("%s, k=%d, function %s: variable %s left after allocation", names[i1], rf.K(),
							e2.Name(), v.Name)
					}
				}
			}
			_, st, err := regalloc.AllocateRegisters(util.Options{Threads: 1}, nil, rf, out)
			if err != nil {
				t.Fatalf("%s, k=%d: reallocation failed: %s", names[i1], rf.K(), err)
			}
			if st.Spills != 0 || st.Rewrites != 0 {
				t.Errorf("%s, k=%d: reallocation is not a fixpoint: %+v", names[i1], rf.K(), st)
			}
		}
	}
}

// TestAllocateSpills verifies that the small register file forces spills for variables live across calls.
func TestAllocateSpills(t *testing.T) {
	src, err := os.ReadFile(filepath.Join(srcPath, "pressure.json"))
	if err != nil {
		t.Fatalf("could not read program: %s", err)
	}
	rf := helperSmallRegisterFile(t)
	prog, err := l2.Decode(src, rf)
	if err != nil {
		t.Fatalf("could not decode program: %s", err)
	}
	res, st, err := regalloc.AllocateRegisters(util.Options{Threads: 2}, nil, rf, prog)
	if err != nil {
		t.Fatalf("allocation failed: %s", err)
	}
	if st.Spills != 8 {
		t.Errorf("expected the 8 variables live across the call spilled, got %+v", st)
	}
	if m := res.Function("@main"); m.Locals() != 8 {
		t.Errorf("expected 8 stack slots, got %d", m.Locals())
	}
	if !strings.Contains(res.String(), "mem rsp 56 <- ") {
		t.Errorf("expected a store to the last slot in\n%s", res)
	}
}

// TestDump verifies the liveness, interference, colour and spill artifacts of a single function.
func TestDump(t *testing.T) {
	src, err := os.ReadFile(filepath.Join(srcPath, "sum.json"))
	if err != nil {
		t.Fatalf("could not read program: %s", err)
	}
	rf := amd64.CreateRegisterFile()

	tests := []struct {
		name string
		opt  util.Options
		exp  []string
	}{
		{"liveness", util.Options{Mode: util.ModeLiveness, Function: "@sum"}, []string{"(\n(in\n", "\n(out\n"}},
		{"interference", util.Options{Mode: util.ModeInterference, Function: "@sum"}, []string{"\n%acc ", "\nrsp"}},
		{"color", util.Options{Mode: util.ModeColor, Function: "@sum"}, []string{"\n%acc r", "\n%n r"}},
		{"spill", util.Options{Mode: util.ModeSpill, Function: "@sum", SpillVar: "%i"}, []string{
			"(@sum 1 1\n",
			"\t%S0 <- 0\n\tmem rsp 0 <- %S0\n",
		}},
		{"all", util.Options{Mode: util.ModeLiveness}, []string{"@main\n", "@sum\n"}},
	}
	for _, e1 := range tests {
		t.Run(e1.name, func(t *testing.T) {
			buf := bytes.Buffer{}
			if err := run(e1.opt, zap.NewNop(), rf, src, &buf); err != nil {
				t.Fatalf("%s", err)
			}
			out := "\n" + buf.String()
			for _, e2 := range e1.exp {
				if e2 == "\nrsp" {
					if strings.Contains(out, e2) {
						t.Errorf("stack pointer in interference graph:\n%s", out)
					}
					continue
				}
				if !strings.Contains(out, e2) {
					t.Errorf("expected %q in\n%s", e2, out)
				}
			}
		})
	}

	buf := bytes.Buffer{}
	if err := run(util.Options{Mode: util.ModeLiveness, Function: "@missing"}, zap.NewNop(), rf, src, &buf); err == nil {
		t.Errorf("dump of missing function succeeded")
	}
}

// TestRegisterFile verifies that the configuration file and the environment override the x86-64 defaults.
func TestRegisterFile(t *testing.T) {
	rf, err := registerFile(util.Options{}, util.Config{})
	if err != nil {
		t.Fatalf("%s", err)
	}
	if rf.K() != 15 || rf.TempPrefix() != regfile.DefaultTempPrefix {
		t.Errorf("expected the x86-64 defaults, got k=%d and prefix %s", rf.K(), rf.TempPrefix())
	}

	t.Setenv(util.EnvRetry, "7")
	opt, envCfg := util.ConfigFromEnv(util.Options{Config: filepath.Join(ccPath, "small.toml")})
	rf, err = registerFile(opt, envCfg)
	if err != nil {
		t.Fatalf("%s", err)
	}
	if rf.K() != 4 || rf.Retry() != 7 || rf.TempPrefix() != "%T" {
		t.Errorf("expected k=4, retry 7 and prefix %%T, got k=%d, retry %d and prefix %s", rf.K(), rf.Retry(),
			rf.TempPrefix())
	}

	if _, err = registerFile(util.Options{Config: filepath.Join(ccPath, "missing.toml")}, util.Config{}); err == nil {
		t.Errorf("missing configuration file accepted")
	}
}

// TestRunErrors verifies that malformed input is reported.
func TestRunErrors(t *testing.T) {
	rf := amd64.CreateRegisterFile()
	for _, e1 := range []string{
		`{`,
		`{"entry": "@main", "functions": [{"name": "@main", "instructions": [{"op": "goto", "label": ":nowhere"}]}]}`,
		`{"entry": "@main", "functions": [{"name": "@main", "instructions": [{"op": "jump"}]}]}`,
	} {
		buf := bytes.Buffer{}
		if err := run(util.Options{}, zap.NewNop(), rf, []byte(e1), &buf); err == nil {
			t.Errorf("expected error for %s", e1)
		}
	}
}

// BenchmarkAllocate benchmarks allocating all bundled L2 programs with the x86-64 register file.
func BenchmarkAllocate(b *testing.B) {
	src, names := helperReadFiles(b, srcPath)
	rf := amd64.CreateRegisterFile()

	// Run benchmarks for all L2 programs.
	for i1, e1 := range src {
		// Test for 1 to p parallel worker go routines.
		for i2 := 1; i2 <= p; i2++ {
			opt := util.Options{Threads: i2}
			b.Run(fmt.Sprintf("%s-threads=%d", names[i1], i2), func(b *testing.B) {
				for n := 0; n < b.N; n++ {
					buf := bytes.Buffer{}
					if err := run(opt, zap.NewNop(), rf, e1, &buf); err != nil {
						b.Fatalf("Allocation error: %s\n", err)
					}
				}
			})
		}
	}
}

// helperReadFiles reads every file of directory srcp.
func helperReadFiles(tb testing.TB, srcp string) ([][]byte, []string) {
	tb.Helper()
	files, err := os.ReadDir(srcp)
	if err != nil {
		tb.Fatalf("Could not read L2 programs: %s", err)
	}
	src := make([][]byte, 0, len(files))
	names := make([]string, 0, len(files))
	for _, e1 := range files {
		if e1.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(srcp, e1.Name()))
		if err != nil {
			tb.Fatalf("Could not read L2 program %s: %s", e1.Name(), err)
		}
		src = append(src, data)
		names = append(names, strings.TrimSuffix(e1.Name(), filepath.Ext(e1.Name())))
	}
	return src, names
}

// helperSmallRegisterFile returns the four colour register file of the bundled calling conventions.
func helperSmallRegisterFile(tb testing.TB) *regfile.Table {
	tb.Helper()
	cfg, err := util.LoadConfig(filepath.Join(ccPath, "small.toml"))
	if err != nil {
		tb.Fatalf("%s", err)
	}
	rf, err := amd64.CreateRegisterFileFrom(cfg)
	if err != nil {
		tb.Fatalf("%s", err)
	}
	return rf
}
