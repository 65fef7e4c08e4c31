// Package l2 provides the L2 intermediate representation consumed by the register allocator: functions of
// three-address instructions over an unbounded pool of virtual variables, together with the control flow,
// use/def and liveness analyses run on them.
package l2

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Convention defines the calling convention tables needed to compute the variables an instruction uses
// and defines. Every register name returned must satisfy IsRegister.
type Convention interface {
	Args() []string              // Ordered argument registers.
	CallerSaved() []string       // Registers clobbered by a call.
	CalleeSaved() []string       // Registers that must hold their entry value at return.
	Result() string              // Register holding the return value.
	SP() string                  // Stack pointer; never allocated and never part of a used or defined set.
	IsRegister(name string) bool // Returns true if name is a physical register.
}

// ---------------------
// ----- Constants -----
// ---------------------

// WordSize is the size in bytes of every L2 value and stack slot.
const WordSize = 8
