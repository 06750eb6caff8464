package keys

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	_ Injector = (*Recorder)(nil)
	_ Injector = (*LogInjector)(nil)
	_ Injector = (*Xdotool)(nil)
	_ Injector = Discard{}
)

// Discard accepts and drops every key event.
type Discard struct{}

func (Discard) KeyDown(Code) error { return nil }
func (Discard) KeyUp(Code) error   { return nil }

// Event is a single recorded key transition.
type Event struct {
	Down bool
	Code Code
}

// Recorder keeps injected events in memory. It is used for dry runs and tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	fail   error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// KeyDown records a key-down event.
func (r *Recorder) KeyDown(c Code) error {
	return r.record(Event{Down: true, Code: c})
}

// KeyUp records a key-up event.
func (r *Recorder) KeyUp(c Code) error {
	return r.record(Event{Down: false, Code: c})
}

func (r *Recorder) record(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, ev)
	return nil
}

// Fail makes every following call return err. Pass nil to recover.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Event, len(r.events))
	copy(result, r.events)
	return result
}

// LogInjector only logs key events.
type LogInjector struct {
	log *log.Entry
}

// NewLogInjector creates a LogInjector.
func NewLogInjector() *LogInjector {
	return &LogInjector{log: log.WithField("component", "injector")}
}

// KeyDown logs a key-down event.
func (l *LogInjector) KeyDown(c Code) error {
	l.log.WithField("key", c).Info("key down")
	return nil
}

// KeyUp logs a key-up event.
func (l *LogInjector) KeyUp(c Code) error {
	l.log.WithField("key", c).Info("key up")
	return nil
}

// Xdotool injects keys into the focused X11 window through the xdotool binary.
type Xdotool struct {
	path    string
	timeout time.Duration
}

// NewXdotool locates xdotool in PATH.
func NewXdotool() (*Xdotool, error) {
	path, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, errors.Wrap(err, "xdotool not found")
	}
	return &Xdotool{path: path, timeout: time.Second}, nil
}

// KeyDown runs "xdotool keydown <keysym>".
func (x *Xdotool) KeyDown(c Code) error {
	return x.run("keydown", c)
}

// KeyUp runs "xdotool keyup <keysym>".
func (x *Xdotool) KeyUp(c Code) error {
	return x.run("keyup", c)
}

func (x *Xdotool) run(action string, c Code) error {
	sym, ok := keysym(c)
	if !ok {
		return errors.Errorf("no keysym for key %s", c)
	}
	ctx, cancel := context.WithTimeout(context.Background(), x.timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, x.path, action, sym).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "xdotool %s %s: %s", action, sym, out)
	}
	return nil
}
