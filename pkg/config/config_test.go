package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/sbpedals/pkg/keys"
	"github.com/itohio/sbpedals/pkg/pedal"
)

func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", pattern)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	_, err = tmpfile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, time.Second, cfg.Serial.ReadTimeout)
	assert.Equal(t, PedalConfig{Threshold: 300, Key: "D"}, cfg.Pedals.Gas)
	assert.Equal(t, PedalConfig{Threshold: 300, Key: "A"}, cfg.Pedals.Brake)
	assert.Equal(t, PedalConfig{Threshold: 300, Key: "A"}, cfg.Pedals.Clutch)
	assert.Equal(t, BackendXdotool, cfg.Injector.Backend)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, 20*time.Millisecond, cfg.Mock.SampleRate)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	name := writeTemp(t, "test_config_*.yaml", `
serial:
  port: "/dev/ttyACM0"
  baud_rate: 57600
  read_timeout: 500ms

pedals:
  gas:
    threshold: 250
    key: W
  brake:
    threshold: 400
    key: S
  clutch:
    threshold: 100
    key: NumPad6

injector:
  backend: none

mqtt:
  enabled: true
  broker: tcp://broker:1883
  qos: 1

mock:
  period: 2s
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.BaudRate)
	assert.Equal(t, 500*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, PedalConfig{Threshold: 250, Key: "W"}, cfg.Pedals.Gas)
	assert.Equal(t, PedalConfig{Threshold: 400, Key: "S"}, cfg.Pedals.Brake)
	assert.Equal(t, PedalConfig{Threshold: 100, Key: "NumPad6"}, cfg.Pedals.Clutch)
	assert.Equal(t, BackendNone, cfg.Injector.Backend)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "sbpedals/telemetry", cfg.MQTT.Topic) // default
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, 2*time.Second, cfg.Mock.Period)
	assert.Equal(t, 20*time.Millisecond, cfg.Mock.SampleRate) // default
}

func TestLoad_ValidTOML(t *testing.T) {
	name := writeTemp(t, "test_config_*.toml", `
[serial]
port = "/dev/ttyUSB1"
read_timeout = "2s"

[pedals.brake]
threshold = 512
key = "F1"

[observe]
console = true
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 2*time.Second, cfg.Serial.ReadTimeout)
	assert.Equal(t, PedalConfig{Threshold: 512, Key: "F1"}, cfg.Pedals.Brake)
	assert.Equal(t, PedalConfig{Threshold: 300, Key: "D"}, cfg.Pedals.Gas)
	assert.True(t, cfg.Observe.Console)
}

func TestLoad_InvalidYAML(t *testing.T) {
	name := writeTemp(t, "test_config_*.yaml", "invalid: yaml: content: [")

	cfg, err := Load(name)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidTOML(t *testing.T) {
	name := writeTemp(t, "test_config_*.toml", "[serial\nport = ")

	cfg, err := Load(name)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	name := writeTemp(t, "test_config_*.yaml", `
serial:
  port: "/dev/ttyACM0"
pedals:
  gas:
    key: E
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, PedalConfig{Threshold: 300, Key: "E"}, cfg.Pedals.Gas)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero threshold", func(c *Config) { c.Pedals.Gas.Threshold = 0 }, true},
		{"negative threshold", func(c *Config) { c.Pedals.Brake.Threshold = -1 }, false},
		{"unknown key", func(c *Config) { c.Pedals.Clutch.Key = "Hyper" }, false},
		{"modifier key", func(c *Config) { c.Pedals.Gas.Key = "LeftShift" }, false},
		{"space", func(c *Config) { c.Pedals.Gas.Key = "Space" }, false},
		{"unknown backend", func(c *Config) { c.Injector.Backend = "uinput" }, false},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	name := writeTemp(t, "test_config_*.yaml", `
pedals:
  gas:
    key: LeftCtrl
`)

	cfg, err := Load(name)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestBindings(t *testing.T) {
	cfg := Default()
	cfg.Pedals.Clutch = PedalConfig{Threshold: 10, Key: "c"}

	bindings, err := cfg.Bindings()
	require.NoError(t, err)
	assert.Equal(t, []pedal.Binding{
		{Channel: pedal.Gas, Threshold: 300, Key: keys.KeyD},
		{Channel: pedal.Brake, Threshold: 300, Key: keys.KeyA},
		{Channel: pedal.Clutch, Threshold: 10, Key: keys.KeyC},
	}, bindings)
}

func TestSerialConfig_IsMock(t *testing.T) {
	assert.True(t, SerialConfig{Port: "mock"}.IsMock())
	assert.True(t, SerialConfig{Port: "MOCK"}.IsMock())
	assert.False(t, SerialConfig{Port: "/dev/ttyACM0"}.IsMock())
}
