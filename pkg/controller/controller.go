// Package controller starts, stops and reconfigures the telemetry link.
//
// The controller owns the pedal bank so bindings and thresholds survive a
// port switch, while every stop releases all keys. Stopping is cooperative:
// RequestStop only signals the loop, Join waits until keys are released and
// the port is closed. The loop notices the signal between reads, so stop
// latency is bounded by the link read timeout.
package controller

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/itohio/sbpedals/pkg/keys"
	"github.com/itohio/sbpedals/pkg/link"
	"github.com/itohio/sbpedals/pkg/pedal"
)

// RunState is the lifecycle state of the controller.
type RunState int32

const (
	Stopped RunState = iota
	Starting
	Running
	Stopping
)

func (s RunState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

var (
	// ErrAlreadyRunning is returned by Start unless the controller is stopped.
	ErrAlreadyRunning = errors.New("already running")
	// ErrKeyNotAllowed is returned for key symbols that are unknown or may not
	// be bound to a pedal.
	ErrKeyNotAllowed = errors.New("key not allowed")
)

// session is one run of the link between Start and Join.
type session struct {
	link   *link.Link
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Controller drives one link at a time.
type Controller struct {
	bank     *pedal.Bank
	opener   link.Opener
	observer link.Observer
	log      *log.Entry

	state atomic.Int32

	mu      sync.Mutex
	current *session
}

// Option configures a Controller.
type Option func(*Controller)

// WithOpener sets the opener used for every link, e.g. link.MockOpener.
func WithOpener(o link.Opener) Option {
	return func(c *Controller) {
		c.opener = o
	}
}

// WithObserver sets the observer notified for every telemetry line.
func WithObserver(o link.Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// New creates a stopped controller whose pedals emit through emitter.
func New(emitter pedal.Emitter, bindings []pedal.Binding, opts ...Option) (*Controller, error) {
	bank, err := pedal.NewBank(emitter, bindings)
	if err != nil {
		return nil, errors.Wrap(err, "invalid pedal bindings")
	}

	c := &Controller{
		bank: bank,
		log:  log.WithField("component", "controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() RunState {
	return RunState(c.state.Load())
}

func (c *Controller) setState(s RunState) {
	old := RunState(c.state.Swap(int32(s)))
	if old != s {
		c.log.WithFields(log.Fields{"from": old, "to": s}).Debug("state changed")
	}
}

// Start opens the port described by cfg and launches the read loop. It
// returns once the loop is running. Open failures leave the controller
// stopped and are returned as *link.OpenError.
func (c *Controller) Start(cfg link.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CompareAndSwap(int32(Stopped), int32(Starting)) {
		return ErrAlreadyRunning
	}

	var opts []link.Option
	if c.opener != nil {
		opts = append(opts, link.WithOpener(c.opener))
	}
	if c.observer != nil {
		opts = append(opts, link.WithObserver(c.observer))
	}
	l := link.New(cfg, c.bank, opts...)
	if err := l.Open(); err != nil {
		c.setState(Stopped)
		c.log.WithError(err).Error("failed to start")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		link:   l,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	started := make(chan struct{})
	go func() {
		defer close(s.done)
		close(started)
		s.err = l.Run(ctx)
	}()
	<-started

	c.current = s
	c.setState(Running)
	c.log.WithField("port", l.Config().Port).Info("started")
	return nil
}

// RequestStop asks the read loop to stop and returns immediately.
// It is a no-op unless the controller is running.
func (c *Controller) RequestStop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.State() != Running {
		return
	}
	c.setState(Stopping)
	c.current.cancel()
}

// Join waits for a requested stop to complete and returns the error of the
// loop shutdown. Keys are released and the port is closed when it returns.
// Join on a stopped controller returns nil immediately.
func (c *Controller) Join() error {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return nil
	}

	<-s.done

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == s {
		c.current = nil
		c.setState(Stopped)
		c.log.Info("stopped")
	}
	return s.err
}

// Stop is RequestStop followed by Join.
func (c *Controller) Stop() error {
	c.RequestStop()
	return c.Join()
}

// SwitchPort stops the current link, if any, and starts a new one on cfg.
// The failure of the old link to shut down cleanly is logged, not returned.
func (c *Controller) SwitchPort(cfg link.Config) error {
	if err := c.Stop(); err != nil {
		c.log.WithError(err).Warn("previous link did not stop cleanly")
	}
	return c.Start(cfg)
}

// Rebind binds ch to key. It is safe while the loop is running; a held old
// key is released first.
func (c *Controller) Rebind(ch pedal.Channel, key keys.Code) error {
	if err := c.bank.Rebind(ch, key); err != nil {
		return err
	}
	c.log.WithFields(log.Fields{"channel": ch, "key": key}).Info("pedal rebound")
	return nil
}

// RebindSymbol binds ch to the key named by symbol, e.g. "A" or "NumPad6".
func (c *Controller) RebindSymbol(ch pedal.Channel, symbol string) error {
	if !keys.IsAllowed(symbol) {
		return errors.Wrapf(ErrKeyNotAllowed, "%q", symbol)
	}
	code, _ := keys.Lookup(symbol)
	return c.Rebind(ch, code)
}

// SetThreshold changes the press threshold of ch.
func (c *Controller) SetThreshold(ch pedal.Channel, threshold int) error {
	if err := c.bank.SetThreshold(ch, threshold); err != nil {
		return err
	}
	c.log.WithFields(log.Fields{"channel": ch, "threshold": threshold}).Info("threshold changed")
	return nil
}

// Snapshot returns the status of every pedal.
func (c *Controller) Snapshot() []pedal.Status {
	return c.bank.Snapshot()
}

// Stats returns the counters of the running link, if any.
func (c *Controller) Stats() (link.Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return link.Stats{}, false
	}
	return c.current.link.Stats(), true
}

// Port returns the port of the running link, or "" when stopped.
func (c *Controller) Port() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.link.Config().Port
}
