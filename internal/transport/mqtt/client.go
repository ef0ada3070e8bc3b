// Package mqtt connects the scan workflow to RFID readers over MQTT. It
// subscribes to the scan topics, turns messages into scan events and
// publishes one result per event.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/types"
)

var (
	// ErrNoBroker means every configured broker failed the connect probe.
	// The caller keeps running without scan intake.
	ErrNoBroker     = errors.New("mqtt: no broker reachable")
	ErrNotConnected = errors.New("mqtt: not connected")
)

const (
	DefaultProbeTimeout = 3 * time.Second
	publishTimeout      = 2 * time.Second
	qos                 = byte(1)
)

// Handler receives every decoded scan event. It runs on its own goroutine
// per event.
type Handler func(ctx context.Context, ev types.ScanEvent)

// Dialer builds a paho client from options. Tests replace it.
type Dialer func(opts *paho.ClientOptions) paho.Client

func defaultDialer(opts *paho.ClientOptions) paho.Client { return paho.NewClient(opts) }

type Options struct {
	// Brokers are tried in order; the first one that connects within
	// ProbeTimeout wins.
	Brokers      []string
	ClientID     string
	Username     string
	Password     string
	ProbeTimeout time.Duration
	Topics       Topics
	Logger       logging.Logger
	Dial         Dialer
}

type Client struct {
	opts   Options
	logger logging.Logger

	mu     sync.RWMutex
	conn   paho.Client
	broker string
	closed bool

	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(opts Options) *Client {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.Topics == (Topics{}) {
		opts.Topics = NewTopics(DefaultTopicPrefix)
	}
	if opts.ClientID == "" {
		opts.ClientID = "parkgate-server"
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Dial == nil {
		opts.Dial = defaultDialer
	}
	return &Client{opts: opts, logger: opts.Logger.With("component", "mqtt")}
}

// Start connects to the first reachable broker and subscribes h to the
// scan topics. It returns ErrNoBroker when all brokers fail; the Client is
// then inert and Publish reports ErrNotConnected.
func (c *Client) Start(ctx context.Context, h Handler) error {
	c.handler = h
	c.ctx, c.cancel = context.WithCancel(ctx)

	for _, broker := range c.opts.Brokers {
		broker = strings.TrimSpace(broker)
		if broker == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := c.connect(broker)
		if err != nil {
			c.logger.Warn(ctx, "broker unreachable", "broker", broker, "error", err)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.broker = broker
		c.mu.Unlock()

		c.logger.Info(ctx, "connected", "broker", broker, "topics", strings.Join(c.opts.Topics.Subscriptions(), ","))
		return nil
	}

	c.logger.Error(ctx, "all brokers failed, running without scan intake")
	return ErrNoBroker
}

func (c *Client) connect(broker string) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(c.opts.ClientID).
		SetConnectTimeout(c.opts.ProbeTimeout).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.logger.Warn(c.ctx, "connection lost", "broker", broker, "error", err)
		})
	if c.opts.Username != "" {
		opts.SetUsername(c.opts.Username)
		opts.SetPassword(c.opts.Password)
	}

	conn := c.opts.Dial(opts)
	tok := conn.Connect()
	if !tok.WaitTimeout(c.opts.ProbeTimeout) {
		conn.Disconnect(0)
		return nil, fmt.Errorf("connect %s: probe timed out after %s", broker, c.opts.ProbeTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", broker, err)
	}
	if !conn.IsConnected() {
		conn.Disconnect(0)
		return nil, fmt.Errorf("connect %s: not connected after probe", broker)
	}
	return conn, nil
}

// onConnect runs on every (re)connect; the session is clean, so
// subscriptions are renewed each time.
func (c *Client) onConnect(conn paho.Client) {
	for _, topic := range c.opts.Topics.Subscriptions() {
		tok := conn.Subscribe(topic, qos, c.onMessage)
		if !tok.WaitTimeout(c.opts.ProbeTimeout) || tok.Error() != nil {
			c.logger.Error(c.ctx, "subscribe failed", "topic", topic, "error", tok.Error())
		}
	}
}

func (c *Client) onMessage(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	dir, ok := c.opts.Topics.DirectionFor(topic)
	if !ok {
		return
	}

	ev, ok := ToEvent(ParseScanPayload(msg.Payload()), topic, dir, time.Now().UTC())
	if !ok {
		c.logger.Warn(c.ctx, "scan without uid dropped", "topic", topic)
		return
	}
	if c.handler == nil {
		return
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	c.wg.Add(1)
	c.mu.RUnlock()

	go func() {
		defer c.wg.Done()
		c.handler(c.ctx, ev)
	}()
}

// Publish sends res to its direction's response topic and mirrors it to the
// legacy response topic. It implements service.Publisher.
func (c *Client) Publish(ctx context.Context, res types.ScanResult) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}

	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("mqtt: marshal result: %w", err)
	}

	var errs []error
	for _, topic := range []string{c.opts.Topics.ResponseFor(res.Direction), c.opts.Topics.ResponseLegacy} {
		tok := conn.Publish(topic, qos, false, body)
		select {
		case <-tok.Done():
			if err := tok.Error(); err != nil {
				errs = append(errs, fmt.Errorf("publish %s: %w", topic, err))
			}
		case <-time.After(publishTimeout):
			errs = append(errs, fmt.Errorf("publish %s: timed out", topic))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.Join(errs...)
}

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Broker returns the active broker URL, or "" in degraded mode.
func (c *Client) Broker() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.broker
}

// Close disconnects and waits for in-flight handlers.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()
	if conn != nil {
		conn.Disconnect(250)
	}
	c.wg.Wait()
}
