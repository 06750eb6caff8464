package main

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/sbpedals/pkg/config"
	"github.com/itohio/sbpedals/pkg/controller"
	"github.com/itohio/sbpedals/pkg/keys"
	"github.com/itohio/sbpedals/pkg/link"
	"github.com/itohio/sbpedals/pkg/observe"
	"github.com/itohio/sbpedals/pkg/pedal"
)

func newTestConsole(t *testing.T) *console {
	t.Helper()
	cfg := config.Default()
	cfg.Serial.Port = config.MockPort
	cfg.Serial.ReadTimeout = 50 * time.Millisecond
	cfg.Mock.SampleRate = 5 * time.Millisecond

	bindings, err := cfg.Bindings()
	require.NoError(t, err)
	ctl, err := controller.New(keys.NewEmitter(keys.NewRecorder()), bindings,
		controller.WithOpener(openPort(&cfg.Mock)))
	require.NoError(t, err)
	t.Cleanup(func() { ctl.Stop() })

	return &console{
		ctl:    ctl,
		serial: cfg.Serial,
		ports: func() ([]link.PortInfo, error) {
			return []link.PortInfo{{Name: "/dev/ttyACM0", Description: "Pedals (USB 2341:0043)"}}, nil
		},
	}
}

func TestConsole_Bind(t *testing.T) {
	c := newTestConsole(t)

	out, err := c.bind([]string{"gas", "numpad6"})
	require.NoError(t, err)
	assert.Equal(t, "gas bound to NumPad6", out)
	assert.Equal(t, keys.Numpad6, c.ctl.Snapshot()[pedal.Gas].Key)

	_, err = c.bind([]string{"gas", "Space"})
	assert.True(t, errors.Is(err, controller.ErrKeyNotAllowed))

	_, err = c.bind([]string{"throttle", "A"})
	assert.True(t, errors.Is(err, pedal.ErrUnknownChannel))

	_, err = c.bind([]string{"gas"})
	assert.True(t, errors.Is(err, errUsage))
}

func TestConsole_Threshold(t *testing.T) {
	c := newTestConsole(t)

	out, err := c.threshold([]string{"brake", "512"})
	require.NoError(t, err)
	assert.Equal(t, "brake threshold 512", out)
	assert.Equal(t, 512, c.ctl.Snapshot()[pedal.Brake].Threshold)

	_, err = c.threshold([]string{"brake", "lots"})
	assert.Error(t, err)
	_, err = c.threshold([]string{"brake", "-1"})
	assert.True(t, errors.Is(err, pedal.ErrBadThreshold))
}

func TestConsole_StartStopPort(t *testing.T) {
	c := newTestConsole(t)

	out, err := c.start()
	require.NoError(t, err)
	assert.Equal(t, "listening on mock", out)
	assert.Equal(t, controller.Running, c.ctl.State())

	_, err = c.start()
	assert.Equal(t, controller.ErrAlreadyRunning, err)

	out, err = c.port([]string{"MOCK"})
	require.NoError(t, err)
	assert.Equal(t, "listening on MOCK", out)
	assert.Equal(t, "MOCK", c.ctl.Port())

	assert.Contains(t, c.status(), "running on MOCK")

	out, err = c.stop()
	require.NoError(t, err)
	assert.Equal(t, "stopped", out)
	assert.Equal(t, controller.Stopped, c.ctl.State())
	assert.Contains(t, c.status(), "stopped")
}

func TestConsole_Status(t *testing.T) {
	c := newTestConsole(t)

	status := c.status()
	assert.Contains(t, status, "gas")
	assert.Contains(t, status, "clutch")
	assert.Contains(t, status, "300")
	assert.NotContains(t, status, "frames")
	assert.NotContains(t, status, "dropped")
}

func TestConsole_StatusShowsDropped(t *testing.T) {
	c := newTestConsole(t)
	q := observe.NewLatest("mqtt")
	c.queues = []*observe.Latest{q}

	for i := 0; i < 3; i++ {
		q.Observe(link.Observation{Raw: "1;2;3"})
	}
	assert.Regexp(t, `mqtt\s+dropped 2`, c.status())
}

func TestConsole_Ports(t *testing.T) {
	c := newTestConsole(t)

	out, err := c.listPorts()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0\tPedals (USB 2341:0043)\n", out)

	c.ports = func() ([]link.PortInfo, error) { return nil, nil }
	out, err = c.listPorts()
	require.NoError(t, err)
	assert.Equal(t, "No serial ports found", out)
}

func TestNewInjector(t *testing.T) {
	inj, err := newInjector(config.BackendNone)
	require.NoError(t, err)
	assert.Equal(t, keys.Discard{}, inj)

	inj, err = newInjector(config.BackendLog)
	require.NoError(t, err)
	assert.IsType(t, &keys.LogInjector{}, inj)
}

func TestNewInjector_Xdotool(t *testing.T) {
	defer func(f func() (*keys.Xdotool, error)) { newXdotool = f }(newXdotool)

	newXdotool = func() (*keys.Xdotool, error) { return &keys.Xdotool{}, nil }
	inj, err := newInjector(config.Default().Injector.Backend)
	require.NoError(t, err)
	assert.IsType(t, &keys.Xdotool{}, inj, "keys are injected by default")

	newXdotool = func() (*keys.Xdotool, error) { return nil, errors.New("xdotool not found") }
	inj, err = newInjector(config.BackendXdotool)
	require.NoError(t, err)
	assert.IsType(t, &keys.LogInjector{}, inj)
}
