package util

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/xyproto/env/v2"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Config holds the calling convention and allocator tuning read from a TOML file. Empty fields keep the
// value of the configuration they are merged into.
type Config struct {
	Args        []string `toml:"args"`         // Ordered argument registers.
	CallerSaved []string `toml:"caller_saved"` // Registers clobbered by calls.
	CalleeSaved []string `toml:"callee_saved"` // Registers preserved across calls.
	Result      string   `toml:"result"`       // Return value register.
	SP          string   `toml:"sp"`           // Stack pointer register.
	Allocatable []string `toml:"allocatable"`  // Colours in preference order. Empty means caller-saved then callee-saved.
	Retry       int      `toml:"retry"`        // Optimistic picks allowed per colouring attempt.
	TempPrefix  string   `toml:"temp_prefix"`  // Prefix of spill temporaries, including the %.
}

// ---------------------
// ----- Constants -----
// ---------------------

// Environment variables read by ConfigFromEnv.
const (
	EnvConfig  = "L2C_CONFIG"
	EnvThreads = "L2C_THREADS"
	EnvRetry   = "L2C_RETRY"
	EnvVerbose = "L2C_VERBOSE"
)

// ---------------------
// ----- Functions -----
// ---------------------

// LoadConfig reads the TOML configuration file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a TOML configuration.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Retry < 0 {
		return Config{}, fmt.Errorf("retry must not be negative, got %d", cfg.Retry)
	}
	return cfg, nil
}

// Merge returns Config c with every non-empty field of o applied on top.
func (c Config) Merge(o Config) Config {
	if o.Args != nil {
		c.Args = o.Args
	}
	if o.CallerSaved != nil {
		c.CallerSaved = o.CallerSaved
	}
	if o.CalleeSaved != nil {
		c.CalleeSaved = o.CalleeSaved
	}
	if len(o.Result) > 0 {
		c.Result = o.Result
	}
	if len(o.SP) > 0 {
		c.SP = o.SP
	}
	if o.Allocatable != nil {
		c.Allocatable = o.Allocatable
	}
	if o.Retry > 0 {
		c.Retry = o.Retry
	}
	if len(o.TempPrefix) > 0 {
		c.TempPrefix = o.TempPrefix
	}
	return c
}

// ConfigFromEnv applies the L2C_* environment variables on top of the command line Options opt and returns
// the resulting options together with the configuration overrides found in the environment. Command line
// flags take precedence over the environment.
func ConfigFromEnv(opt Options) (Options, Config) {
	var cfg Config
	if len(opt.Config) < 1 {
		opt.Config = env.Str(EnvConfig)
	}
	if opt.Threads < 2 {
		if t := env.Int(EnvThreads, opt.Threads); t > 0 && t <= maxThreads {
			opt.Threads = t
		}
	}
	if env.Bool(EnvVerbose) {
		opt.Verbose = true
	}
	if r := env.Int(EnvRetry, 0); r > 0 {
		cfg.Retry = r
	}
	return opt, cfg
}
