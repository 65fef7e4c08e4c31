package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds the command line configuration of the allocator.
type Options struct {
	Src      string // Path to source file.
	Out      string // Path to output file.
	Config   string // Path to calling convention TOML file.
	Threads  int    // Thread count.
	Verbose  bool   // Set true to log every allocation step.
	Mode     int    // Artifact to produce, one of the Mode constants.
	Format   int    // Output format, one of the Format constants.
	SpillVar string // Variable spilled in ModeSpill.
	Function string // Restricts the dump modes to one function. Empty means every function.
}

// ---------------------
// ----- Constants -----
// ---------------------

const maxThreads = 64 // Maximum threads allowed executing in parallel.
const appVersion = "l2c register allocator 1.0"

// Artifacts produced by the allocator.
const (
	ModeAllocate     = iota // Full register allocation.
	ModeLiveness            // Liveness IN and OUT sets.
	ModeInterference        // Interference graph.
	ModeColor               // One colouring attempt.
	ModeSpill               // Spill a single variable.
)

// Output formats.
const (
	FormatL2 = iota
	FormatJSON
)

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses command line arguments.
func ParseArgs() (Options, error) {
	return parseArgs(os.Args[1:])
}

// parseArgs parses the argument list args, program name excluded.
func parseArgs(args []string) (Options, error) {
	opt := Options{Threads: 1}
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			// Help and usage.
			printHelp()
			os.Exit(0)
		case "-v", "--v", "-version", "--version":
			// Application version.
			fmt.Println(appVersion)
			os.Exit(0)
		case "-l":
			opt.Mode = ModeLiveness
		case "-i":
			opt.Mode = ModeInterference
		case "-c":
			opt.Mode = ModeColor
		case "-vb":
			// Verbose mode.
			opt.Verbose = true
		case "-o", "-t", "-cc", "-f", "-s", "-fn":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			arg := args[i1+1]
			if strings.HasPrefix(arg, "-") {
				return opt, fmt.Errorf("expected argument to flag %s, got new flag %s", args[i1], arg)
			}
			switch args[i1] {
			case "-o":
				// Output file.
				opt.Out = arg
			case "-cc":
				// Calling convention file.
				opt.Config = arg
			case "-s":
				// Spill one variable.
				if !strings.HasPrefix(arg, "%") {
					return opt, fmt.Errorf("expected variable to spill, got %s", arg)
				}
				opt.Mode = ModeSpill
				opt.SpillVar = arg
			case "-fn":
				// Restrict dumps to one function.
				opt.Function = arg
			case "-f":
				// Output format.
				switch arg {
				case "l2":
					opt.Format = FormatL2
				case "json":
					opt.Format = FormatJSON
				default:
					return opt, fmt.Errorf("unexpected output format: %s", arg)
				}
			case "-t":
				// Thread count.
				t, err := strconv.Atoi(arg)
				if err != nil {
					return opt, fmt.Errorf("expected integer thread count, got: %s", arg)
				}
				if t < 1 || t > maxThreads {
					return opt, fmt.Errorf("thread count must be integer in range [1, %d]", maxThreads)
				}
				opt.Threads = t
			}
			i1++
		default:
			if strings.HasPrefix(args[i1], "-") || i1 != len(args)-1 {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			opt.Src = args[i1]
		}
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "usage: l2c [flags] [program.json]")
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-l\tPrint the liveness IN and OUT sets of every instruction.")
	_, _ = fmt.Fprintln(w, "-i\tPrint the interference graph.")
	_, _ = fmt.Fprintln(w, "-c\tRun one colouring attempt and print the colours.")
	_, _ = fmt.Fprintf(w, "-s %%var\tSpill variable %%var once and print the result.\n")
	_, _ = fmt.Fprintln(w, "-fn @name\tRestrict -l, -i, -c and -s to one function.")
	_, _ = fmt.Fprintln(w, "-o\tPath and name of the output file.")
	_, _ = fmt.Fprintln(w, "-f\tOutput format of allocated programs, either 'l2' or 'json'. Defaults to 'l2'.")
	_, _ = fmt.Fprintln(w, "-cc\tPath to a TOML file overriding the x86-64 calling convention.")
	_, _ = fmt.Fprintf(w, "-t\tNumber of threads to run in parallel. Must be in range [1, %d].\n", maxThreads)
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: log every allocation step to stderr.")
	_ = w.Flush()
}
