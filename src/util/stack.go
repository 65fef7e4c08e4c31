// stack.go provides a slice backed stack. The bottom element is the first entry into the stack, while the top is
// the last entry to be added to the stack.

package util

// Stack is a last in, first out stack of elements of type T. The zero value is an empty stack ready for use.
// Stack is not safe for concurrent use; every worker owns its stacks.
type Stack[T any] struct {
	elems []T // Elements, bottom first.
}

// Push adds a new element to the top of the stack.
func (s *Stack[T]) Push(e T) {
	s.elems = append(s.elems, e)
}

// Pop removes and returns the last inserted element on the stack. The second return value is false if the stack
// is empty.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.elems) == 0 {
		return zero, false
	}
	e := s.elems[len(s.elems)-1]
	s.elems[len(s.elems)-1] = zero
	s.elems = s.elems[:len(s.elems)-1]
	return e, true
}

// Peek works just like Pop, but it does not remove the element from the stack.
func (s *Stack[T]) Peek() (T, bool) {
	var zero T
	if len(s.elems) == 0 {
		return zero, false
	}
	return s.elems[len(s.elems)-1], true
}

// Size returns the number of elements in the stack.
func (s *Stack[T]) Size() int {
	return len(s.elems)
}

// Get returns the nth element from the stack, top down, not zero indexed.
// Get(1) returns the first element on stack, and is similar to Peek.
// Get(Stack.Size()) returns the bottom element. If the index n is out of range the second return value is false.
// Get does not remove elements from the stack.
func (s *Stack[T]) Get(n int) (T, bool) {
	var zero T
	if n < 1 || n > len(s.elems) {
		return zero, false
	}
	return s.elems[len(s.elems)-n], true
}
