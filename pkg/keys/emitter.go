package keys

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Injector is the host key injection capability.
// KeyUp on a key that is not down must be tolerated.
type Injector interface {
	KeyDown(c Code) error
	KeyUp(c Code) error
}

// InjectionError reports a failed call into the Injector.
type InjectionError struct {
	Op   string
	Code Code
	Err  error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("key %s %s: %v", e.Op, e.Code, e.Err)
}

func (e *InjectionError) Unwrap() error {
	return e.Err
}

// Emitter presses and releases keys through an Injector.
// It does not track key state; callers avoid double presses.
type Emitter struct {
	inj Injector
	log *log.Entry
}

// NewEmitter creates an Emitter backed by inj.
func NewEmitter(inj Injector) *Emitter {
	return &Emitter{
		inj: inj,
		log: log.WithField("component", "emitter"),
	}
}

// Press sends a key-down event.
func (e *Emitter) Press(c Code) error {
	e.log.WithField("key", c).Debug("press")
	if err := e.inj.KeyDown(c); err != nil {
		return &InjectionError{Op: "down", Code: c, Err: err}
	}
	return nil
}

// Release sends a key-up event.
func (e *Emitter) Release(c Code) error {
	e.log.WithField("key", c).Debug("release")
	if err := e.inj.KeyUp(c); err != nil {
		return &InjectionError{Op: "up", Code: c, Err: err}
	}
	return nil
}
