// Package telemetry publishes engine state changes and animation frames to an MQTT broker.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/engine"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrConnect is returned when the broker cannot be reached.
var ErrConnect = errors.New("telemetry connect failed")

const (
	stateSuffix = "/state"
	frameSuffix = "/frame"

	defaultQueueSize = 64
)

// Message is the JSON payload published on every topic.
type Message struct {
	State string `json:"state"`
	Frame uint32 `json:"frame"`
	Time  string `json:"time"`
}

type publishFunc func(topic string, retained bool, payload []byte) error

type outgoing struct {
	topic    string
	retained bool
	msg      Message
}

// Publisher forwards engine events to MQTT. The observer callbacks only queue messages; one goroutine publishes
// them. Messages are dropped when the queue is full, and publish failures are logged and dropped.
type Publisher interface {
	engine.Observer

	// Close stops accepting messages, waits for the queued ones to be published and disconnects from the broker.
	// Safe to call more than once.
	//
	// Returns:
	//   - error: always nil, kept for io.Closer compatibility
	Close() error
}

type publisher struct {
	mu       *sync.Mutex
	broker   string
	topic    string
	clientID string
	username string
	password string
	timeout  time.Duration

	client  mqtt.Client
	publish publishFunc
	now     func() time.Time

	queueSize int
	queue     chan outgoing
	drained   chan struct{}
	closed    bool
	dropped   int
	closeOnce sync.Once

	state engine.State
	frame uint32
}

var _ Publisher = &publisher{}

// NewPublisher connects to the broker and returns a Publisher ready to be registered with engine.WithObserver.
//
// Parameters:
//   - options: functional options, WithBroker is required unless a publish function is injected
//
// Returns:
//   - Publisher: the connected publisher
//   - error: ErrConnect if the broker is unreachable
func NewPublisher(options ...PublisherBuilderOption) (Publisher, error) {
	p := &publisher{
		mu:       &sync.Mutex{},
		topic:    "oxy/overlay",
		clientID: "oxy-overlay",
		timeout:   5 * time.Second,
		now:       time.Now,
		queueSize: defaultQueueSize,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.publish != nil {
		p.start()
		return p, nil
	}
	if p.broker == "" {
		return nil, fmt.Errorf("%w: no broker configured", ErrConnect)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(p.broker).
		SetClientID(p.clientID).
		SetUsername(p.username).
		SetPassword(p.password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true)
	p.client = mqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(p.timeout) {
		return nil, fmt.Errorf("%w: %s did not answer within %s", ErrConnect, p.broker, p.timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	p.publish = p.mqttPublish
	p.start()
	log.Printf("[Telemetry] connected to %s as %s", p.broker, p.clientID)
	return p, nil
}

func (p *publisher) mqttPublish(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

func (p *publisher) start() {
	p.queue = make(chan outgoing, p.queueSize)
	p.drained = make(chan struct{})
	go p.run()
}

// run publishes queued messages in order until the queue is closed.
func (p *publisher) run() {
	defer close(p.drained)
	for out := range p.queue {
		payload, err := json.Marshal(out.msg)
		if err != nil {
			log.Printf("[Telemetry] failed to encode %s: %v", out.topic, err)
			continue
		}
		if err := p.publish(out.topic, out.retained, payload); err != nil {
			log.Printf("[Telemetry] failed to publish %s: %v", out.topic, err)
		}
	}
}

func (p *publisher) OnStateChange(from, to engine.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = to
	p.enqueue(p.topic+stateSuffix, true)
}

func (p *publisher) OnFrameAdvance(frame uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame = frame
	p.enqueue(p.topic+frameSuffix, false)
}

func (p *publisher) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		dropped := p.dropped
		p.mu.Unlock()

		<-p.drained
		if dropped > 0 {
			log.Printf("[Telemetry] dropped %d message(s) while the broker was slow", dropped)
		}
		if p.client != nil && p.client.IsConnected() {
			p.client.Disconnect(250)
			log.Printf("[Telemetry] disconnected from %s", p.broker)
		}
	})
	return nil
}

// enqueue must be called with mu held. It never blocks.
func (p *publisher) enqueue(topic string, retained bool) {
	if p.closed {
		return
	}
	out := outgoing{
		topic:    topic,
		retained: retained,
		msg: Message{
			State: p.state.String(),
			Frame: p.frame,
			Time:  p.now().UTC().Format(time.RFC3339),
		},
	}
	select {
	case p.queue <- out:
	default:
		p.dropped++
	}
}
