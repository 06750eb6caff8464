// Package frame splits telemetry lines into per-channel readings.
//
// A line carries one integer field per channel separated by ';', e.g.
// "120;450;10". Splitting never fails: a line with the wrong number of fields
// simply yields an incomplete frame, which is still worth displaying but must
// not drive key events.
package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Separator delimits fields on the wire.
const Separator = ";"

// FormatError reports a field that is not a non-negative integer.
type FormatError struct {
	Index int
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("field %d %q: %v", e.Index, e.Field, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ErrNegative is wrapped by FormatError for readings below zero.
var ErrNegative = errors.New("negative reading")

// Split trims the line and returns its fields verbatim.
func Split(line string) []string {
	return strings.Split(strings.TrimSpace(line), Separator)
}

// Complete reports whether fields holds exactly one entry per channel.
func Complete(fields []string, channels int) bool {
	return len(fields) == channels
}

// Values converts fields into readings.
func Values(fields []string) ([]int, error) {
	values := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, &FormatError{Index: i, Field: f, Err: err}
		}
		if v < 0 {
			return nil, &FormatError{Index: i, Field: f, Err: ErrNegative}
		}
		values[i] = v
	}
	return values, nil
}

// Parse splits line and converts it when it is complete. The returned fields
// are always set; values is nil for incomplete frames.
func Parse(line string, channels int) (fields []string, values []int, err error) {
	fields = Split(line)
	if !Complete(fields, channels) {
		return fields, nil, nil
	}
	values, err = Values(fields)
	return fields, values, err
}
