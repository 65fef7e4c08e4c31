package util

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Writer buffers output and writes it to a file or stdout when closed.
type Writer struct {
	*bufio.Writer
	f *os.File // Output file, <nil> for stdout.
}

// ---------------------
// ----- Constants -----
// ---------------------

// stdinTimeout is the time ReadSource waits for input on stdin.
const stdinTimeout = 500 * time.Millisecond

// ---------------------
// ----- Functions -----
// ---------------------

// ReadSource reads the program from file or stdin.
// If the Options structure holds a string for source the file will be opened and read.
// Else the function waits for a short period for input on stdin. If no input on stdin is
// provided the function returns an error.
func ReadSource(opt Options) ([]byte, error) {
	if len(opt.Src) > 0 {
		// Read from file.
		return os.ReadFile(opt.Src)
	}

	// Read stdin.
	c := make(chan []byte, 1)
	cerr := make(chan error, 1)

	// Concurrently wait for input on stdin.
	go func() {
		b, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			cerr <- err
			return
		}
		c <- b
	}()

	// Select between input from stdin or timer expiry.
	select {
	case <-time.After(stdinTimeout):
		return nil, errors.New("expected input from stdin, got none")
	case err := <-cerr:
		return nil, fmt.Errorf("could not read stdin: %w", err)
	case b := <-c:
		return b, nil
	}
}

// NewWriter returns a Writer to the output file of Options opt, or to stdout if no output file is set.
func NewWriter(opt Options) (*Writer, error) {
	if len(opt.Out) < 1 {
		return &Writer{Writer: bufio.NewWriter(os.Stdout)}, nil
	}
	f, err := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open output file: %w", err)
	}
	return &Writer{Writer: bufio.NewWriter(f), f: f}, nil
}

// Close flushes the buffered output and closes the output file.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
