package link

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/itohio/sbpedals/pkg/config"
	"github.com/itohio/sbpedals/pkg/frame"
)

// ErrClosed is returned by reads on a closed Mock.
var ErrClosed = errors.New("port closed")

// Mock simulates the pedal box for testing and development. It emits one
// "gas;brake;clutch" line every SampleRate while every pedal sweeps its full
// travel once per Period, each a third of a period behind the previous one.
type Mock struct {
	cfg      config.MockConfig
	channels int

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	start   time.Time
	next    time.Time
	pending []byte
}

// Ensure Mock implements Port.
var _ Port = (*Mock)(nil)

// NewMock creates a mock port producing three channels.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}
	c := *cfg

	if c.SampleRate <= 0 {
		c.SampleRate = config.Default().Mock.SampleRate
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Mock{
		cfg:      c,
		channels: 3,
		ctx:      ctx,
		cancel:   cancel,
		timeout:  DefaultReadTimeout,
		start:    now,
		next:     now,
	}
}

// MockOpener returns an Opener that ignores the port name and opens a new Mock.
func MockOpener(cfg *config.MockConfig) Opener {
	return func(Config) (Port, error) {
		return NewMock(cfg), nil
	}
}

// SetReadTimeout bounds how long Read waits for the next line.
func (m *Mock) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = t
	return nil
}

// ResetInputBuffer drops any part of a line not yet read.
func (m *Mock) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = m.pending[:0]
	m.next = time.Now()
	return nil
}

// Read returns the rest of the current line or waits for the next one.
// Like a serial port it returns (0, nil) when nothing arrives in time.
func (m *Mock) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return 0, ErrClosed
	}
	if len(m.pending) == 0 {
		wait := time.Until(m.next)
		if wait < -m.cfg.SampleRate {
			// the reader fell behind; resume at the present instead of bursting
			m.next = time.Now()
			wait = 0
		}
		if wait > m.timeout {
			timeout := m.timeout
			m.mu.Unlock()
			return 0, m.sleep(timeout)
		}
		m.mu.Unlock()
		if err := m.sleep(wait); err != nil {
			return 0, err
		}
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.pending = append(m.pending, m.line(m.next)...)
			m.next = m.next.Add(m.cfg.SampleRate)
		}
	}
	n := copy(p, m.pending)
	m.pending = m.pending[n:]
	m.mu.Unlock()
	return n, nil
}

func (m *Mock) sleep(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-m.ctx.Done():
		return ErrClosed
	case <-timer.C:
		return nil
	}
}

// Close stops the mock. Pending and later reads fail with ErrClosed.
func (m *Mock) Close() error {
	m.cancel()
	return nil
}

// line renders the frame sampled at t.
func (m *Mock) line(t time.Time) string {
	values := m.Sample(t.Sub(m.start))
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = strconv.Itoa(v)
	}
	return strings.Join(fields, frame.Separator) + "\r\n"
}

// Sample returns the pedal readings at elapsed time since the mock started.
func (m *Mock) Sample(elapsed time.Duration) []int {
	period := float32(m.cfg.Period.Seconds())
	if period <= 0 {
		period = 1
	}
	phase := float32(elapsed.Seconds()) / period

	values := make([]int, m.channels)
	for i := range values {
		offset := float32(i) / float32(m.channels)
		// travel is 0 at rest and 1 fully pressed
		travel := (1 - math32.Cos(2*math32.Pi*(phase-offset))) / 2
		v := int(travel*float32(m.cfg.Max) + 0.5)
		if v < 0 {
			v = 0
		} else if v > m.cfg.Max {
			v = m.cfg.Max
		}
		values[i] = v
	}
	return values
}
