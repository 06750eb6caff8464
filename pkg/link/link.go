// Package link owns the serial connection to the pedal box and the read loop
// that turns telemetry lines into key events.
//
// Lifecycle: Open configures the port and discards stale input, Run reads
// until its context is cancelled, and on the way out every held key is
// released before the port is closed. Errors inside the loop never end it:
// the loop releases all keys and carries on.
package link

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/itohio/sbpedals/pkg/frame"
	"github.com/itohio/sbpedals/pkg/keys"
	"github.com/itohio/sbpedals/pkg/pedal"
)

// RetryDelay is the pause after a read failure other than a timeout.
var RetryDelay = 100 * time.Millisecond

var (
	// ErrNotOpen is returned by Run before a successful Open.
	ErrNotOpen = errors.New("link not open")
	// ErrAlreadyOpen is returned by a second Open.
	ErrAlreadyOpen = errors.New("link already open")
)

// OpenError reports that the port could not be opened or configured.
type OpenError struct {
	Port string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open serial port %s: %v", e.Port, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Config describes one connection. It is fixed for the lifetime of a Link.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// Observation is published once per line read from the port.
// Values is nil unless the frame was complete and every field converted.
type Observation struct {
	Time   time.Time
	Raw    string
	Fields []string
	Values []int
}

// Complete reports whether the observation carried a usable frame.
func (o Observation) Complete() bool {
	return o.Values != nil
}

// Observer receives observations from the read loop. Observe must not block.
type Observer interface {
	Observe(Observation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Observation)

// Observe calls f(o).
func (f ObserverFunc) Observe(o Observation) {
	f(o)
}

type nopObserver struct{}

func (nopObserver) Observe(Observation) {}

// Stats counts what the loop has seen.
type Stats struct {
	Lines      uint64
	Frames     uint64
	Incomplete uint64
	Timeouts   uint64
	Errors     uint64
}

// Link connects one serial port to a pedal bank.
type Link struct {
	cfg      Config
	bank     *pedal.Bank
	opener   Opener
	observer Observer
	log      *log.Entry

	port      Port
	reader    *lineReader
	closeOnce sync.Once
	closeErr  error

	lines, frames, incomplete, timeouts, errs atomic.Uint64
}

// Option configures a Link.
type Option func(*Link)

// WithOpener replaces the serial opener, e.g. with a mock port.
func WithOpener(o Opener) Option {
	return func(l *Link) {
		l.opener = o
	}
}

// WithObserver sets the observer notified for every line.
func WithObserver(o Observer) Option {
	return func(l *Link) {
		if o != nil {
			l.observer = o
		}
	}
}

// New creates a Link that feeds bank from the port in cfg.
func New(cfg Config, bank *pedal.Bank, opts ...Option) *Link {
	cfg = cfg.withDefaults()
	l := &Link{
		cfg:      cfg,
		bank:     bank,
		opener:   OpenSerial,
		observer: nopObserver{},
		log:      log.WithFields(log.Fields{"component": "link", "port": cfg.Port}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the connection configuration.
func (l *Link) Config() Config {
	return l.cfg
}

// Open opens and configures the port and discards any input that arrived
// before it, so a stale half line is never evaluated.
func (l *Link) Open() error {
	if l.port != nil {
		return ErrAlreadyOpen
	}

	port, err := l.opener(l.cfg)
	if err != nil {
		return &OpenError{Port: l.cfg.Port, Err: err}
	}
	if err := port.SetReadTimeout(l.cfg.ReadTimeout); err != nil {
		port.Close()
		return &OpenError{Port: l.cfg.Port, Err: errors.Wrap(err, "set read timeout")}
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return &OpenError{Port: l.cfg.Port, Err: errors.Wrap(err, "discard input")}
	}

	l.port = port
	l.reader = newLineReader(port, maxLineLength)
	l.log.WithFields(log.Fields{
		"baud":    l.cfg.BaudRate,
		"timeout": l.cfg.ReadTimeout,
	}).Info("serial port opened")
	return nil
}

// Run reads lines until ctx is cancelled. Cancellation is checked between
// reads, so stopping takes at most one read timeout. On return every pressed
// key has been released and the port is closed.
func (l *Link) Run(ctx context.Context) error {
	if l.port == nil {
		return ErrNotOpen
	}

	for ctx.Err() == nil {
		if err := l.step(); err != nil {
			l.failSafe(ctx, err)
		}
	}
	return l.shutdown()
}

// step reads and handles one line.
func (l *Link) step() error {
	line, err := l.reader.ReadLine()
	if err != nil {
		return err
	}
	l.lines.Add(1)

	fields, values, err := frame.Parse(line, l.bank.Len())
	l.observer.Observe(Observation{
		Time:   time.Now(),
		Raw:    line,
		Fields: fields,
		Values: values,
	})
	if err != nil {
		return err
	}
	if values == nil {
		l.incomplete.Add(1)
		return nil
	}
	l.frames.Add(1)
	return l.bank.Evaluate(values)
}

// failSafe runs after a failed step: all keys go up and the
// loop continues.
func (l *Link) failSafe(ctx context.Context, err error) {
	if rerr := l.bank.ReleaseAll(); rerr != nil {
		l.log.WithError(rerr).Error("failed to release keys")
	}

	if errors.Is(err, ErrReadTimeout) {
		l.timeouts.Add(1)
		l.log.Debug("no data within read timeout")
		return
	}
	l.errs.Add(1)

	var fe *frame.FormatError
	var ie *keys.InjectionError
	switch {
	case errors.As(err, &fe), errors.Is(err, ErrLineTooLong), errors.Is(err, pedal.ErrFrameSize):
		l.log.WithError(err).Warn("dropping malformed frame")
	case errors.As(err, &ie):
		l.log.WithError(err).Warn("key injection failed")
	default:
		l.log.WithError(err).Warn("serial read failed")
		select {
		case <-ctx.Done():
		case <-time.After(RetryDelay):
		}
	}
}

// shutdown releases all keys and closes the port.
func (l *Link) shutdown() error {
	rerr := l.bank.ReleaseAll()
	if rerr != nil {
		l.log.WithError(rerr).Error("failed to release keys on shutdown")
	}
	cerr := l.Close()
	if rerr != nil {
		return errors.Wrap(rerr, "release keys")
	}
	return cerr
}

// Close closes the port. Only the first call has an effect.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		if l.port == nil {
			return
		}
		if err := l.port.Close(); err != nil {
			l.closeErr = errors.Wrap(err, "close serial port")
			l.log.WithError(err).Warn("error closing serial port")
			return
		}
		l.log.Info("serial port closed")
	})
	return l.closeErr
}

// Stats returns the loop counters.
func (l *Link) Stats() Stats {
	return Stats{
		Lines:      l.lines.Load(),
		Frames:     l.frames.Load(),
		Incomplete: l.incomplete.Load(),
		Timeouts:   l.timeouts.Load(),
		Errors:     l.errs.Load(),
	}
}
