package util

import (
	"sync"

	"go.uber.org/multierr"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// perror provides a structure for listening for errors reported from parallel worker threads and means for retrieving
// errors when a parallel job has been completed.
type perror struct {
	listen     chan error    // Channel for receiving error messages from worker threads.
	stop       chan struct{} // Closing this channel causes the perror struct to stop listening for errors.
	done       chan struct{} // Closed when the listener has drained and stopped.
	errors     []error       // Buffer of error messages.
	sync.Mutex               // For synchronising writes and reads.
}

// ----------------------
// ----- Constants ------
// ----------------------

// defaultBufferSize defines the fallback buffer size of the error array.
const defaultBufferSize = 16

// ---------------------
// ----- functions -----
// ---------------------

// NewPerror returns a pointer to a perror struct with n number of pre-allocated slots for errors in the buffer.
func NewPerror(n int) *perror {
	if n < 1 {
		n = defaultBufferSize
	}
	pe := perror{
		listen: make(chan error),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		errors: make([]error, 0, n),
	}
	go pe.run()
	return &pe
}

// run starts listening for errors on the listen channel. Closing the stop channel causes the error listener to
// stop.
func (pe *perror) run() {
	defer close(pe.done)
	for {
		select {
		case err := <-pe.listen:
			pe.Lock()
			pe.errors = append(pe.errors, err)
			pe.Unlock()
		case <-pe.stop:
			return
		}
	}
}

// Len returns the number of buffered errors.
func (pe *perror) Len() int {
	pe.Lock()
	defer pe.Unlock()
	return len(pe.errors)
}

// Stop stops the error listener. Append must not be called after Stop.
func (pe *perror) Stop() {
	close(pe.stop)
	<-pe.done
}

// Append sends the error message err to the error listener. <nil> errors are ignored. Append blocks until the
// listener has buffered err.
func (pe *perror) Append(err error) {
	if err != nil {
		pe.listen <- err
	}
}

// Errors returns a buffered channel with all the reported errors, effectively creating an iterator.
func (pe *perror) Errors() <-chan error {
	pe.Lock()
	defer pe.Unlock()
	c := make(chan error, len(pe.errors))
	for _, e1 := range pe.errors {
		c <- e1
	}
	close(c)
	return c
}

// Err combines every reported error into one, or returns <nil> if none was reported.
func (pe *perror) Err() error {
	pe.Lock()
	defer pe.Unlock()
	return multierr.Combine(pe.errors...)
}
