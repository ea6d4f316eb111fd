// Package publish forwards sensor samples to an MQTT broker.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/fakeyudi/gaslog/internal/state"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "gaslog/samples"

const defaultTimeout = 2 * time.Second

// ErrTimeout means the broker did not acknowledge a publish in time.
var ErrTimeout = errors.New("publish: broker did not acknowledge in time")

// Client is the subset of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Observer is told the outcome of every publish: ok, timeout or error.
type Observer interface {
	PublishResult(result string)
}

// Options configures Dial.
type Options struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string
	ClientID string // generated when empty
	Timeout  time.Duration
	Observer Observer
}

// Payload is the JSON document published for each sample.
type Payload struct {
	Timestamp string `json:"timestamp"`
	Value     string `json:"value"`
}

// MQTT publishes samples at QoS 0.
type MQTT struct {
	client  Client
	topic   string
	timeout time.Duration
	obs     Observer
}

// Dial connects to the broker in opts and returns a ready publisher.
func Dial(opts Options) (*MQTT, error) {
	if opts.Broker == "" {
		return nil, errors.New("publish: no broker configured")
	}
	id := opts.ClientID
	if id == "" {
		id = "gaslog-" + uuid.NewString()[:8]
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	c := mqtt.NewClient(co)

	tok := c.Connect()
	if !tok.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connecting to %s: %w", opts.Broker, ErrTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", opts.Broker, err)
	}
	return New(c, opts), nil
}

// New wraps an already connected client.
func New(c Client, opts Options) *MQTT {
	p := &MQTT{client: c, topic: opts.Topic, timeout: opts.Timeout, obs: opts.Observer}
	if p.topic == "" {
		p.topic = DefaultTopic
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	return p
}

// Topic returns the topic samples are published to.
func (p *MQTT) Topic() string { return p.topic }

// Publish sends smp and waits for the client to finish with it.
func (p *MQTT) Publish(ctx context.Context, smp state.Sample) error {
	payload, err := json.Marshal(Payload{
		Timestamp: smp.Timestamp.Format(time.RFC3339Nano),
		Value:     smp.Value,
	})
	if err != nil {
		p.observe("error")
		return err
	}

	tok := p.client.Publish(p.topic, 0, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
	case <-timer.C:
		p.observe("timeout")
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := tok.Error(); err != nil {
		p.observe("error")
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	p.observe("ok")
	return nil
}

// Close disconnects, giving in-flight messages a moment to drain.
func (p *MQTT) Close() {
	p.client.Disconnect(250)
}

func (p *MQTT) observe(result string) {
	if p.obs != nil {
		p.obs.PublishResult(result)
	}
}
