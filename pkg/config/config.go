package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/itohio/sbpedals/pkg/keys"
	"github.com/itohio/sbpedals/pkg/pedal"
)

// MockPort is the serial port name that selects the simulated pedal box.
const MockPort = "mock"

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial" toml:"serial"`
	Pedals   PedalsConfig   `yaml:"pedals" toml:"pedals"`
	Injector InjectorConfig `yaml:"injector" toml:"injector"`
	Observe  ObserveConfig  `yaml:"observe" toml:"observe"`
	MQTT     MQTTConfig     `yaml:"mqtt" toml:"mqtt"`
	Mock     MockConfig     `yaml:"mock" toml:"mock"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port" toml:"port"`
	BaudRate    int           `yaml:"baud_rate" toml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout" toml:"read_timeout"`
}

// PedalConfig binds one pedal to a key.
type PedalConfig struct {
	Threshold int    `yaml:"threshold" toml:"threshold"`
	Key       string `yaml:"key" toml:"key"`
}

// PedalsConfig lists the pedals in wire order.
type PedalsConfig struct {
	Gas    PedalConfig `yaml:"gas" toml:"gas"`
	Brake  PedalConfig `yaml:"brake" toml:"brake"`
	Clutch PedalConfig `yaml:"clutch" toml:"clutch"`
}

// InjectorConfig selects how key events reach the host.
type InjectorConfig struct {
	Backend string `yaml:"backend" toml:"backend"` // xdotool, log or none
}

// ObserveConfig controls the telemetry observers.
type ObserveConfig struct {
	Console bool `yaml:"console" toml:"console"`
}

// MQTTConfig contains the optional MQTT telemetry sink settings.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Broker   string `yaml:"broker" toml:"broker"`
	Topic    string `yaml:"topic" toml:"topic"`
	ClientID string `yaml:"client_id" toml:"client_id"` // empty derives one from the machine id
	QoS      byte   `yaml:"qos" toml:"qos"`
}

// MockConfig contains simulated pedal box configuration.
type MockConfig struct {
	SampleRate time.Duration `yaml:"sample_rate" toml:"sample_rate"` // Interval between lines
	Period     time.Duration `yaml:"period" toml:"period"`           // Full press and release cycle of one pedal
	Max        int           `yaml:"max" toml:"max"`                 // Reading at full travel
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Backends accepted by InjectorConfig.Backend.
const (
	BackendLog     = "log"
	BackendXdotool = "xdotool"
	BackendNone    = "none"
)

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate:    115200,
			ReadTimeout: time.Second,
		},
		Pedals: PedalsConfig{
			Gas:    PedalConfig{Threshold: pedal.DefaultThreshold, Key: "D"},
			Brake:  PedalConfig{Threshold: pedal.DefaultThreshold, Key: "A"},
			Clutch: PedalConfig{Threshold: pedal.DefaultThreshold, Key: "A"},
		},
		Injector: InjectorConfig{
			Backend: BackendXdotool,
		},
		MQTT: MQTTConfig{
			Broker: "tcp://localhost:1883",
			Topic:  "sbpedals/telemetry",
		},
		Mock: MockConfig{
			SampleRate: 20 * time.Millisecond, // 50 lines per second
			Period:     4 * time.Second,
			Max:        1023,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML or TOML file, chosen by extension.
// If the file doesn't exist or fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "failed to read config file")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", filename)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	fill := func(p *PedalConfig, d PedalConfig) {
		if p.Key == "" {
			p.Key = d.Key
		}
	}
	fill(&c.Pedals.Gas, def.Pedals.Gas)
	fill(&c.Pedals.Brake, def.Pedals.Brake)
	fill(&c.Pedals.Clutch, def.Pedals.Clutch)

	if c.Injector.Backend == "" {
		c.Injector.Backend = def.Injector.Backend
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = def.MQTT.Broker
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.Max == 0 {
		c.Mock.Max = def.Mock.Max
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	for i, p := range c.PedalList() {
		ch := pedal.Channel(i)
		if p.Threshold < 0 {
			return errors.Errorf("pedal %s: threshold %d must not be negative", ch, p.Threshold)
		}
		if _, ok := keys.Lookup(p.Key); !ok {
			return errors.Errorf("pedal %s: unknown key %q", ch, p.Key)
		}
		if !keys.IsAllowed(p.Key) {
			return errors.Errorf("pedal %s: key %q cannot be bound", ch, p.Key)
		}
	}

	switch c.Injector.Backend {
	case BackendLog, BackendXdotool, BackendNone:
	default:
		return errors.Errorf("unknown injector backend %q", c.Injector.Backend)
	}

	if c.Serial.BaudRate < 0 {
		return errors.Errorf("invalid baud rate %d", c.Serial.BaudRate)
	}
	if c.MQTT.QoS > 2 {
		return errors.Errorf("invalid mqtt qos %d", c.MQTT.QoS)
	}
	if c.Mock.Max < 0 {
		return errors.Errorf("invalid mock max %d", c.Mock.Max)
	}
	return nil
}

// PedalList returns the pedal settings in wire order.
func (c *Config) PedalList() []PedalConfig {
	return []PedalConfig{c.Pedals.Gas, c.Pedals.Brake, c.Pedals.Clutch}
}

// Bindings converts the pedal settings into bank bindings. Call Validate first.
func (c *Config) Bindings() ([]pedal.Binding, error) {
	list := c.PedalList()
	result := make([]pedal.Binding, len(list))
	for i, p := range list {
		code, ok := keys.Lookup(p.Key)
		if !ok {
			return nil, errors.Errorf("pedal %s: unknown key %q", pedal.Channel(i), p.Key)
		}
		result[i] = pedal.Binding{
			Channel:   pedal.Channel(i),
			Threshold: p.Threshold,
			Key:       code,
		}
	}
	return result, nil
}

// IsMock reports whether the configured port selects the simulated device.
func (s SerialConfig) IsMock() bool {
	return strings.EqualFold(s.Port, MockPort)
}
