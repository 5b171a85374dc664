package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const opTimeout = 10 * time.Second

// Options configures a broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// StatusTopic, when set, carries a retained "online" after each connect
	// and "offline" as the last will.
	StatusTopic string
}

// Client is a Paho connection with bounded waits on every operation.
type Client struct {
	mu     sync.Mutex
	paho   paho.Client
	broker string
	status string
}

// NewClient prepares a connection; nothing is dialled until Connect.
func NewClient(o Options) *Client {
	c := &Client{broker: o.Broker, status: o.StatusTopic}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection to %s lost: %v", o.Broker, err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username).SetPassword(o.Password)
	}
	if o.StatusTopic != "" {
		opts.SetWill(o.StatusTopic, "offline", 1, true)
	}

	c.paho = paho.NewClient(opts)
	return c
}

func (c *Client) onConnect(pc paho.Client) {
	if c.status == "" {
		return
	}
	// Runs on the paho goroutine; waiting here would stall its router.
	pc.Publish(c.status, 1, true, "online")
}

// Broker returns the broker URL.
func (c *Client) Broker() string {
	return c.broker
}

// Connect dials the broker, giving up after opTimeout.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wait(c.paho.Connect(), "connect", "")
}

// Start connects and logs the outcome. Returns true if connected.
func (c *Client) Start() bool {
	if err := c.Connect(); err != nil {
		log.Printf("mqtt: failed to connect to %s: %v", c.broker, err)
		return false
	}
	log.Printf("mqtt: connected to %s", c.broker)
	return true
}

// Publish sends payload to topic without the retain flag.
func (c *Client) Publish(topic string, qos byte, payload []byte) error {
	return wait(c.paho.Publish(topic, qos, false, payload), "publish", topic)
}

// Subscribe registers handler for topic at QoS 1.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return wait(c.paho.Subscribe(topic, 1, handler), "subscribe", topic)
}

// Disconnect marks the server offline and closes the connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != "" && c.paho.IsConnected() {
		c.paho.Publish(c.status, 1, true, "offline").WaitTimeout(time.Second)
	}
	c.paho.Disconnect(1000)
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.paho.IsConnected()
}

func wait(t paho.Token, op, topic string) error {
	if !t.WaitTimeout(opTimeout) {
		return &TimeoutError{Op: op, Topic: topic}
	}
	return t.Error()
}

// TimeoutError is returned when the broker does not acknowledge an
// operation within opTimeout.
type TimeoutError struct {
	Op    string
	Topic string
}

func (e *TimeoutError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("mqtt %s timeout", e.Op)
	}
	return fmt.Sprintf("mqtt %s timeout: %s", e.Op, e.Topic)
}
