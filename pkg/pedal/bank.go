// Package pedal turns per-channel readings into key presses and releases.
//
// Every channel runs an edge triggered state machine around a single
// threshold: the bound key goes down when the reading reaches the threshold
// and up when it falls below it. Repeated readings on the same side of the
// threshold never repeat an emission.
package pedal

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/itohio/sbpedals/pkg/keys"
)

// Emitter sends key events. *keys.Emitter implements it.
type Emitter interface {
	Press(c keys.Code) error
	Release(c keys.Code) error
}

var _ Emitter = (*keys.Emitter)(nil)

var (
	// ErrFrameSize is returned by Evaluate for a frame that does not carry
	// one reading per channel.
	ErrFrameSize = errors.New("frame size does not match channel count")
	// ErrUnknownChannel is returned for a channel the bank does not monitor.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrBadThreshold is returned for negative thresholds.
	ErrBadThreshold = errors.New("threshold must not be negative")
)

type state struct {
	threshold int
	key       keys.Code
	pressed   bool
}

// Bank holds the state machines of all channels behind one lock, so a
// reconfiguration is never observed half applied by Evaluate.
type Bank struct {
	mu      sync.Mutex
	emitter Emitter
	states  []state
}

// NewBank creates a bank for the given bindings. Channels must be numbered
// 0..N-1 without gaps; their order is the field order on the wire.
func NewBank(emitter Emitter, bindings []Binding) (*Bank, error) {
	sorted := make([]Binding, len(bindings))
	copy(sorted, bindings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Channel < sorted[j].Channel })

	b := &Bank{
		emitter: emitter,
		states:  make([]state, len(sorted)),
	}
	for i, bind := range sorted {
		if bind.Channel != Channel(i) {
			return nil, fmt.Errorf("channel %s: expected channel index %d", bind.Channel, i)
		}
		if bind.Threshold < 0 {
			return nil, fmt.Errorf("channel %s: %w", bind.Channel, ErrBadThreshold)
		}
		b.states[i] = state{threshold: bind.Threshold, key: bind.Key}
	}
	return b, nil
}

// Len returns the number of channels.
func (b *Bank) Len() int {
	return len(b.states)
}

// Evaluate runs every channel against its reading. The first injection
// failure aborts the evaluation and is returned; the caller is expected to
// ReleaseAll afterwards.
func (b *Bank) Evaluate(readings []int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(readings) != len(b.states) {
		return fmt.Errorf("%w: got %d readings, want %d", ErrFrameSize, len(readings), len(b.states))
	}
	for i, reading := range readings {
		s := &b.states[i]
		switch {
		case reading >= s.threshold && !s.pressed:
			// A failed press may still have reached the host, so the channel
			// counts as pressed either way and the fail-safe release covers it.
			s.pressed = true
			if err := b.emitter.Press(s.key); err != nil {
				return fmt.Errorf("channel %s: %w", Channel(i), err)
			}
		case reading < s.threshold && s.pressed:
			if err := b.emitter.Release(s.key); err != nil {
				return fmt.Errorf("channel %s: %w", Channel(i), err)
			}
			s.pressed = false
		}
	}
	return nil
}

// Release lets go of one channel. It is a no-op when the channel is not pressed.
func (b *Bank) Release(ch Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.state(ch)
	if err != nil {
		return err
	}
	return b.release(ch, s)
}

// ReleaseAll lets go of every pressed channel. All channels are attempted;
// the failures are joined.
func (b *Bank) ReleaseAll() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for i := range b.states {
		if err := b.release(Channel(i), &b.states[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bank) release(ch Channel, s *state) error {
	if !s.pressed {
		return nil
	}
	if err := b.emitter.Release(s.key); err != nil {
		return fmt.Errorf("channel %s: %w", ch, err)
	}
	s.pressed = false
	return nil
}

// Rebind binds ch to key. A pressed channel first releases its old key and
// starts clean with the new one. The channel is reset even when that release
// fails; the failure is returned.
func (b *Bank) Rebind(ch Channel, key keys.Code) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.state(ch)
	if err != nil {
		return err
	}
	if s.pressed {
		err = b.emitter.Release(s.key)
		s.pressed = false
	}
	s.key = key
	if err != nil {
		return fmt.Errorf("channel %s: releasing old key: %w", ch, err)
	}
	return nil
}

// SetThreshold changes the threshold of ch. The pressed state is kept; the
// next frame settles it against the new threshold.
func (b *Bank) SetThreshold(ch Channel, threshold int) error {
	if threshold < 0 {
		return ErrBadThreshold
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.state(ch)
	if err != nil {
		return err
	}
	s.threshold = threshold
	return nil
}

// Pressed reports whether ch currently holds its key down.
func (b *Bank) Pressed(ch Channel) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.state(ch)
	return err == nil && s.pressed
}

// Snapshot returns the status of every channel in wire order.
func (b *Bank) Snapshot() []Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]Status, len(b.states))
	for i, s := range b.states {
		result[i] = Status{
			Binding: Binding{Channel: Channel(i), Threshold: s.threshold, Key: s.key},
			Pressed: s.pressed,
		}
	}
	return result
}

// state must be called with mu held.
func (b *Bank) state(ch Channel) (*state, error) {
	if ch < 0 || int(ch) >= len(b.states) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}
	return &b.states[ch], nil
}
