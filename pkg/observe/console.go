package observe

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/itohio/sbpedals/pkg/link"
	"github.com/itohio/sbpedals/pkg/pedal"
)

// DefaultConsoleInterval limits console output to 10 lines per second.
const DefaultConsoleInterval = 100 * time.Millisecond

// Console prints observations as text, at most one per interval.
type Console struct {
	w        io.Writer
	interval time.Duration
	last     time.Time
}

// NewConsole creates a console sink writing to w.
func NewConsole(w io.Writer, interval time.Duration) *Console {
	return &Console{w: w, interval: interval}
}

// Handle prints o unless the previous line was printed less than an interval ago.
func (c *Console) Handle(_ context.Context, o link.Observation) error {
	if !c.last.IsZero() && o.Time.Sub(c.last) < c.interval {
		return nil
	}
	c.last = o.Time

	_, err := fmt.Fprintln(c.w, Format(o))
	return err
}

// Format renders an observation as "gas=120 brake=450 clutch=10". Frames
// that did not convert are shown raw.
func Format(o link.Observation) string {
	if !o.Complete() {
		return fmt.Sprintf("incomplete %q", o.Raw)
	}
	parts := make([]string, len(o.Values))
	for i, v := range o.Values {
		parts[i] = fmt.Sprintf("%s=%d", pedal.Channel(i), v)
	}
	return strings.Join(parts, " ")
}
