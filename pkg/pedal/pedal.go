package pedal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/sbpedals/pkg/keys"
)

// DefaultThreshold is the reading at or above which a pedal counts as pressed.
const DefaultThreshold = 300

// Channel identifies a monitored pedal. Its value is the field index on the wire.
type Channel int

const (
	Gas Channel = iota
	Brake
	Clutch
)

// Channels lists the pedals of the stock pedal box in wire order.
var Channels = []Channel{Gas, Brake, Clutch}

var channelNames = []string{"gas", "brake", "clutch"}

func (c Channel) String() string {
	if c >= 0 && int(c) < len(channelNames) {
		return channelNames[c]
	}
	return fmt.Sprintf("channel%d", int(c))
}

// ParseChannel resolves a channel name ("gas", "brake", "clutch") or its index.
func ParseChannel(s string) (Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range channelNames {
		if s == name {
			return Channel(i), nil
		}
	}
	if idx, err := strconv.Atoi(s); err == nil && idx >= 0 {
		return Channel(idx), nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownChannel, s)
}

// Binding configures one channel.
type Binding struct {
	Channel   Channel
	Threshold int
	Key       keys.Code
}

// DefaultBindings returns the stock configuration: gas on D, brake and clutch on A.
func DefaultBindings() []Binding {
	return []Binding{
		{Channel: Gas, Threshold: DefaultThreshold, Key: keys.KeyD},
		{Channel: Brake, Threshold: DefaultThreshold, Key: keys.KeyA},
		{Channel: Clutch, Threshold: DefaultThreshold, Key: keys.KeyA},
	}
}

// Status is a point-in-time view of one channel.
type Status struct {
	Binding
	Pressed bool
}
