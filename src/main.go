package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"l2c/src/backend/amd64"
	"l2c/src/backend/regalloc"
	"l2c/src/backend/regfile"
	"l2c/src/ir/l2"
	"l2c/src/util"
)

func main() {
	// Parse command line arguments.
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Printf("Command line argument error: %s\n", err)
		os.Exit(1)
	}
	opt, envCfg := util.ConfigFromEnv(opt)

	log, err := util.NewLogger(opt)
	if err != nil {
		fmt.Printf("Could not create logger: %s\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Create register file from the x86-64 defaults, the configuration file and the environment.
	rf, err := registerFile(opt, envCfg)
	if err != nil {
		fmt.Printf("Configuration error: %s\n", err)
		os.Exit(1)
	}

	// Read source code.
	src, err := util.ReadSource(opt)
	if err != nil {
		fmt.Printf("Could not read source code: %s\n", err)
		os.Exit(1)
	}

	// Initiate output writer.
	w, err := util.NewWriter(opt)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if err := run(opt, log, rf, src, w); err != nil {
		_ = w.Close()
		fmt.Printf("Register allocation error: %s\n", err)
		os.Exit(1)
	}

	// Flush and close the output writer.
	if err := w.Close(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// registerFile returns the register file configured by the -cc file and the environment overrides envCfg.
func registerFile(opt util.Options, envCfg util.Config) (*regfile.Table, error) {
	var cfg util.Config
	if len(opt.Config) > 0 {
		c, err := util.LoadConfig(opt.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	return amd64.CreateRegisterFileFrom(cfg.Merge(envCfg))
}

// run decodes the JSON program src and writes the artifact selected by opt.Mode to w.
func run(opt util.Options, log *zap.Logger, rf regfile.RegisterFile, src []byte, w io.Writer) error {
	p, err := l2.Decode(src, rf)
	if err != nil {
		return err
	}
	log.Debug("decoded program", zap.String("entry", p.Entry), zap.Int("functions", len(p.Functions)))

	if opt.Mode == util.ModeAllocate {
		res, st, err := regalloc.AllocateRegisters(opt, log, rf, p)
		if err != nil {
			return err
		}
		log.Info("allocated program",
			zap.Int("functions", st.Functions),
			zap.Int("iterations", st.Iterations),
			zap.Int("spills", st.Spills),
			zap.Int("sweeps", st.Sweeps))
		if opt.Format == util.FormatJSON {
			b, err := l2.Encode(res)
			if err != nil {
				return err
			}
			_, err = w.Write(append(b, '\n'))
			return err
		}
		_, err = fmt.Fprintln(w, res.String())
		return err
	}

	// Dump modes work on one function at a time.
	fns := p.Functions
	if len(opt.Function) > 0 {
		f := p.Function(opt.Function)
		if f == nil {
			return fmt.Errorf("program has no function %s", opt.Function)
		}
		fns = []*l2.Function{f}
	}
	for _, e1 := range fns {
		s, err := dump(opt, rf, e1)
		if err != nil {
			return err
		}
		if len(fns) > 1 {
			if _, err := fmt.Fprintf(w, "%s\n", e1.Name()); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// dump returns the liveness, interference, colouring or spill artifact of Function f.
func dump(opt util.Options, rf regfile.RegisterFile, f *l2.Function) (string, error) {
	if opt.Mode == util.ModeSpill {
		d, _, err := regalloc.SpillByName(f, opt.SpillVar, util.NewSequence(rf.TempPrefix(), nil))
		if err != nil {
			return "", err
		}
		return d.String() + "\n", nil
	}

	lv, err := l2.Analyze(f)
	if err != nil {
		return "", fmt.Errorf("function %s: %w", f.Name(), err)
	}
	switch opt.Mode {
	case util.ModeLiveness:
		return lv.Format(f), nil
	case util.ModeInterference:
		return regalloc.Build(f, lv, rf).String(), nil
	case util.ModeColor:
		res, err := regalloc.Color(regalloc.Build(f, lv, rf), rf, nil)
		if err != nil {
			return "", err
		}
		return res.Format(f, rf), nil
	}
	return "", fmt.Errorf("unexpected mode %d", opt.Mode)
}
