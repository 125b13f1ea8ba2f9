package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/weather-station/internal/fusion"
)

// DefaultBacklog is how many messages are held while disconnected.
const DefaultBacklog = 600

// Config configures a RealPublisher.
type Config struct {
	Broker   string
	ClientID string

	// Backlog is the offline buffer size. Zero means DefaultBacklog.
	Backlog int

	// OnConnectionChange, if set, is called with the new state after every
	// connect and connection loss.
	OnConnectionChange func(connected bool)

	// Now is the clock for will and reconnect events. Defaults to time.Now.
	Now func() time.Time
}

// RealPublisher publishes to an MQTT broker. While the connection is down,
// messages go to a bounded backlog that is flushed on reconnect. New messages
// keep queueing behind the backlog until the flush has drained it.
type RealPublisher struct {
	client paho.Client
	cfg    Config
	pub    func(message) error

	mu        sync.Mutex
	backlog   *backlog
	connected bool
	flushing  bool
	everUp    bool
	session   int
}

// NewRealPublisher creates a publisher and starts connecting. If the broker
// is not reachable within the connect timeout the publisher is still
// returned; it keeps retrying in the background and buffers meanwhile.
func NewRealPublisher(cfg Config) (*RealPublisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt: no broker configured")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "weather-station"
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultBacklog
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	p := &RealPublisher{cfg: cfg, backlog: newBacklog(cfg.Backlog)}
	p.pub = p.publish

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: cfg.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: %s not reachable yet, buffering until connected", cfg.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// Publish sends a record on TopicRecords with QoS 0.
func (p *RealPublisher) Publish(rec fusion.Record, at time.Time) error {
	payload, err := FormatPayload(rec, at)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(message{topic: TopicRecords, payload: payload})
}

// PublishSystem sends a system event on TopicSystem with QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(message{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}

func (p *RealPublisher) send(m message) error {
	p.mu.Lock()
	if !p.connected || p.flushing {
		p.backlog.add(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.pub(m)
}

func (p *RealPublisher) publish(m message) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

func (p *RealPublisher) onConnect(paho.Client) {
	p.mu.Lock()
	p.connected = true
	p.flushing = true
	reconnect := p.everUp
	p.everUp = true
	p.session++
	session := p.session
	p.mu.Unlock()

	log.Printf("mqtt: connected to %s", p.cfg.Broker)
	if p.cfg.OnConnectionChange != nil {
		p.cfg.OnConnectionChange(true)
	}

	// Publishing from inside the handler can stall the client's router.
	go p.flush(session, reconnect)
}

// flush drains the backlog in order, including anything queued while it
// runs, then lets send publish directly again. It gives up once the
// connection it started on is gone, leaving the rest for the next one.
func (p *RealPublisher) flush(session int, reconnect bool) {
	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.cfg.Now(), Event: "RECONNECTED"})
		if err == nil {
			if err := p.pub(message{topic: TopicSystem, payload: payload, qos: 1}); err != nil {
				log.Printf("mqtt: %v", err)
			}
		}
	}
	for {
		p.mu.Lock()
		if !p.connected || p.session != session {
			p.mu.Unlock()
			return
		}
		pending, dropped := p.backlog.take()
		if len(pending) == 0 {
			p.flushing = false
			p.mu.Unlock()
			if dropped > 0 {
				log.Printf("mqtt: %d messages dropped while offline", dropped)
			}
			return
		}
		p.mu.Unlock()

		log.Printf("mqtt: flushing %d buffered messages (%d dropped while offline)", len(pending), dropped)
		for _, m := range pending {
			if err := p.pub(m); err != nil {
				log.Printf("mqtt: flush: %v", err)
			}
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.flushing = false
	p.mu.Unlock()

	log.Printf("mqtt: connection lost: %v", err)
	if p.cfg.OnConnectionChange != nil {
		p.cfg.OnConnectionChange(false)
	}
}
