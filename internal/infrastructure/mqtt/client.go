package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/sqlez/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for publishing and watching sqlez events.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are automatically restored on reconnection.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected atomic.Bool

	// Set by options before connecting, read-only afterwards.
	logger       Logger
	onConnect    func()
	onDisconnect func(err error)
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Option configures a Client before it connects.
type Option func(*Client)

// WithLogger sets the logger for connection and handler problems.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// OnConnect sets a callback invoked on the initial connect and every reconnect.
func OnConnect(fn func()) Option {
	return func(c *Client) {
		c.onConnect = fn
	}
}

// OnDisconnect sets a callback invoked when the connection is lost.
func OnDisconnect(fn func(err error)) Option {
	return func(c *Client) {
		c.onDisconnect = fn
	}
}

// Connect establishes a connection to the MQTT broker.
//
// The Last Will on {prefix}/status is registered before connecting, and the
// retained online status is published from the connect handler on the first
// connection and on every reconnect. Connect waits at most
// defaultConnectTimeout for the broker.
func Connect(cfg config.MQTTConfig, opts ...Option) (*Client, error) {
	c := newClient(cfg, opts...)

	clientOpts := buildClientOptions(cfg)
	configureLWT(clientOpts, c.topics, cfg.Broker.ClientID)
	clientOpts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	clientOpts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(clientOpts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: no answer from %s within %v", ErrConnectionFailed, brokerURL(cfg), defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler may still be running; IsConnected must be true
	// as soon as Connect returns.
	c.connected.Store(true)
	return c, nil
}

// newClient builds an unconnected client.
func newClient(cfg config.MQTTConfig, opts ...Option) *Client {
	c := &Client{
		cfg:           cfg,
		topics:        NewTopics(cfg.TopicPrefix),
		subscriptions: make(map[string]subscription),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Topics returns the topic builders for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

func (c *Client) handleConnect() {
	c.connected.Store(true)

	c.restoreSubscriptions()
	c.publishStatus("online", "")

	if c.onConnect != nil {
		c.onConnect()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)
	c.log().Warn("MQTT connection lost", "broker", brokerURL(c.cfg), "error", err)

	if c.onDisconnect != nil {
		c.onDisconnect(err)
	}
}

// publishStatus sends a retained status message without waiting for it.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	// #nosec G115 -- qos validated by config to be 0-2
	return c.client.Publish(c.topics.Status(), byte(c.cfg.QoS), true,
		buildStatusPayload(status, c.cfg.Broker.ClientID, reason))
}

// Close publishes a graceful offline status and disconnects from the broker.
// Closing a client that never connected is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		c.publishStatus("offline", "graceful_shutdown").WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports whether the client is connected.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

func (c *Client) log() Logger {
	if c.logger == nil {
		return nopLogger{}
	}
	return c.logger
}

type nopLogger struct{}

func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
