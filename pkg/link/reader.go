package link

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const maxLineLength = 1024

var (
	// ErrReadTimeout is returned when no complete line arrived within the read timeout.
	ErrReadTimeout = errors.New("read timeout")
	// ErrLineTooLong is returned when a line exceeds maxLineLength bytes.
	ErrLineTooLong = errors.New("line too long")
)

// lineReader splits a timeout-driven byte stream into lines.
//
// bufio.Scanner cannot be used here: serial ports report a read timeout as
// (0, nil), which the scanner treats as a broken reader.
type lineReader struct {
	r       io.Reader
	buf     []byte
	pending []byte
	max     int

	// discarding is set after ErrLineTooLong until the oversized line ends.
	discarding bool
}

func newLineReader(r io.Reader, max int) *lineReader {
	return &lineReader{
		r:   r,
		buf: make([]byte, 256),
		max: max,
	}
}

// ReadLine returns the next line without its "\n" or "\r\n" terminator.
// A partial line survives a timeout and is completed by the next call.
// Any other read error drops the partial line. A line longer than max is
// reported once with ErrLineTooLong and the rest of it, up to and including
// its "\n", is thrown away.
func (lr *lineReader) ReadLine() (string, error) {
	for {
		i := bytes.IndexByte(lr.pending, '\n')
		if lr.discarding {
			if i < 0 {
				lr.pending = lr.pending[:0]
			} else {
				lr.pending = append(lr.pending[:0], lr.pending[i+1:]...)
				lr.discarding = false
				continue
			}
		} else if i >= 0 {
			line := strings.TrimSuffix(string(lr.pending[:i]), "\r")
			lr.pending = append(lr.pending[:0], lr.pending[i+1:]...)
			return line, nil
		}
		if len(lr.pending) > lr.max {
			lr.pending = lr.pending[:0]
			lr.discarding = true
			return "", ErrLineTooLong
		}

		n, err := lr.r.Read(lr.buf)
		lr.pending = append(lr.pending, lr.buf[:n]...)
		if err != nil {
			lr.pending = lr.pending[:0]
			return "", errors.Wrap(err, "read")
		}
		if n == 0 {
			return "", ErrReadTimeout
		}
	}
}
