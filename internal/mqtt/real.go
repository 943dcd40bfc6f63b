package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// outboxCapacity bounds how many messages are kept while the broker is away.
const outboxCapacity = 64

// RealClient publishes to and subscribes on an actual MQTT broker.
type RealClient struct {
	client paho.Client
	topics Topics

	mu      sync.Mutex
	outbox  *outbox
	handler func([]byte)
}

// NewRealClient connects to broker. If the broker is not reachable within the
// connect timeout the client keeps retrying in the background and buffers
// messages until it connects.
func NewRealClient(broker, clientID string, topics Topics) (*RealClient, error) {
	c := &RealClient{
		topics: topics,
		outbox: newOutbox(outboxCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(topics.System, string(will), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return c, nil
}

// onConnect restores the command subscription and replays the outbox.
func (c *RealClient) onConnect(client paho.Client) {
	c.mu.Lock()
	pending := c.outbox.drainAll()
	handler := c.handler
	c.mu.Unlock()

	if handler != nil {
		if err := c.subscribe(handler); err != nil {
			log.Printf("mqtt: resubscribe: %v", err)
		}
	}

	if len(pending) > 0 {
		log.Printf("mqtt: connected, replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		token := client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay to %s timed out", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay to %s: %v", m.topic, err)
		}
	}

	payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	client.Publish(c.topics.System, 1, false, payload)
}

// PublishState sends the channel state, retained so new subscribers see it.
func (c *RealClient) PublishState(event StateEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return c.publish(c.topics.State, 0, true, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return c.publish(c.topics.System, 1, event.Retained, payload)
}

func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		c.outbox.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		c.mu.Unlock()
		return nil
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler for the command topic. The subscription is
// renewed on every reconnect.
func (c *RealClient) Subscribe(handler func(payload []byte)) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return nil // onConnect subscribes
	}
	return c.subscribe(handler)
}

func (c *RealClient) subscribe(handler func([]byte)) error {
	token := c.client.Subscribe(c.topics.Command, 1, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s timeout", c.topics.Command)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.topics.Command, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
