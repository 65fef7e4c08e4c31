// Package amd64 provides the x86-64 register file of the L2 language.
package amd64

import (
	"l2c/src/backend/regfile"
	"l2c/src/util"
)

// -------------------
// ----- Globals -----
// -------------------

// args holds the argument registers in argument order.
var args = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// callerSaved holds the registers clobbered by calls.
var callerSaved = []string{"r10", "r11", "r8", "r9", "rax", "rcx", "rdi", "rdx", "rsi"}

// calleeSaved holds the registers a function must restore before returning.
var calleeSaved = []string{"r12", "r13", "r14", "r15", "rbp", "rbx"}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	result = "rax" // Return value register.
	sp     = "rsp" // Stack pointer.
)

// ---------------------
// ----- Functions -----
// ---------------------

// Config returns the x86-64 calling convention. Every general purpose register except rsp is allocatable,
// caller-saved registers first.
func Config() util.Config {
	return util.Config{
		Args:        append([]string(nil), args...),
		CallerSaved: append([]string(nil), callerSaved...),
		CalleeSaved: append([]string(nil), calleeSaved...),
		Result:      result,
		SP:          sp,
		Retry:       regfile.DefaultRetry,
		TempPrefix:  regfile.DefaultTempPrefix,
	}
}

// CreateRegisterFile returns the x86-64 register file.
func CreateRegisterFile() *regfile.Table {
	rf, err := regfile.New(Config())
	if err != nil {
		panic(err)
	}
	return rf
}

// CreateRegisterFileFrom returns the x86-64 register file with the non-empty fields of Config cfg applied on
// top of the defaults.
func CreateRegisterFileFrom(cfg util.Config) (*regfile.Table, error) {
	return regfile.New(Config().Merge(cfg))
}
