// label.go provides generation of fresh names that never collide with names already in use.

package util

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Sequence generates names prefix0, prefix1, ... skipping every name for which taken returns true. A Sequence
// belongs to a single function and is not safe for concurrent use.
type Sequence struct {
	prefix string                 // Prefix of every generated name.
	next   int                    // Numerical suffix of the next candidate name.
	taken  func(name string) bool // Returns true if name is already in use.
}

// ---------------------
// ----- functions -----
// ---------------------

// NewSequence returns a Sequence generating names with prefix. Function taken may be <nil> if every name is free.
func NewSequence(prefix string, taken func(name string) bool) *Sequence {
	return &Sequence{prefix: prefix, taken: taken}
}

// Next returns the next free name of the sequence.
func (s *Sequence) Next() string {
	for {
		name := fmt.Sprintf("%s%d", s.prefix, s.next)
		s.next++
		if s.taken == nil || !s.taken(name) {
			return name
		}
	}
}

// Prefix returns the prefix of every name generated by Sequence s.
func (s *Sequence) Prefix() string {
	return s.prefix
}
