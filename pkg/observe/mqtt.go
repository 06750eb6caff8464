package observe

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/itohio/sbpedals/pkg/link"
	"github.com/itohio/sbpedals/pkg/pedal"
)

const appID = "sbpedals"

// MQTTConfig describes the broker connection of the MQTT sink.
type MQTTConfig struct {
	Broker         string
	Topic          string
	ClientID       string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

func (c MQTTConfig) withDefaults() MQTTConfig {
	if c.ClientID == "" {
		c.ClientID = DefaultClientID()
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = time.Second
	}
	return c
}

// DefaultClientID derives a client id that is stable for this machine
// without revealing its raw machine id.
func DefaultClientID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		host, _ := os.Hostname()
		return appID + "-" + host
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return appID + "-" + id
}

// Message is the JSON payload published per observation.
type Message struct {
	Time     time.Time      `json:"time"`
	Raw      string         `json:"raw"`
	Complete bool           `json:"complete"`
	Pedals   map[string]int `json:"pedals,omitempty"`
}

// NewMessage converts an observation into its payload.
func NewMessage(o link.Observation) Message {
	m := Message{
		Time:     o.Time,
		Raw:      o.Raw,
		Complete: o.Complete(),
	}
	if m.Complete {
		m.Pedals = make(map[string]int, len(o.Values))
		for i, v := range o.Values {
			m.Pedals[pedal.Channel(i).String()] = v
		}
	}
	return m
}

// publisher is the part of mqtt.Client the sink needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes observations to a broker.
type MQTT struct {
	cfg    MQTTConfig
	client publisher
	log    *log.Entry
}

// DialMQTT connects to the broker and returns a ready sink.
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	cfg = cfg.withDefaults()
	l := log.WithFields(log.Fields{"component": "mqtt", "broker": cfg.Broker})

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		l.Info("connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		l.WithError(err).Warn("connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, errors.Errorf("timeout connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to MQTT broker %s", cfg.Broker)
	}
	return newMQTT(cfg, client), nil
}

func newMQTT(cfg MQTTConfig, client publisher) *MQTT {
	cfg = cfg.withDefaults()
	return &MQTT{
		cfg:    cfg,
		client: client,
		log:    log.WithFields(log.Fields{"component": "mqtt", "topic": cfg.Topic}),
	}
}

// Handle publishes o as JSON and waits for the broker to accept it.
func (m *MQTT) Handle(_ context.Context, o link.Observation) error {
	payload, err := json.Marshal(NewMessage(o))
	if err != nil {
		return errors.Wrap(err, "failed to marshal observation")
	}

	token := m.client.Publish(m.cfg.Topic, m.cfg.QoS, false, payload)
	if !token.WaitTimeout(m.cfg.PublishTimeout) {
		return errors.Errorf("timeout publishing to %s", m.cfg.Topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "failed to publish to %s", m.cfg.Topic)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
	m.log.Info("disconnected from broker")
}
