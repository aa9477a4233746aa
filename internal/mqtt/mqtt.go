package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"surfsup-server/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	qos            = byte(1) // At least once delivery
	publishTimeout = 5 * time.Second
	queryTimeout   = 10 * time.Second
)

// Query is a request received on <prefix>/query/<name>. The payload is
// optional; an empty payload is an empty query.
type Query struct {
	Name          string `json:"-"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Start         string `json:"start,omitempty"`
	End           string `json:"end,omitempty"`
}

// Reply is published to <prefix>/reply/<name>. Status and Body match what the
// HTTP endpoint for the same query would return.
type Reply struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	Status        int    `json:"status"`
	Body          any    `json:"body"`
}

type QueryHandler func(ctx context.Context, q Query) Reply

// Bridge answers read-only dataset queries over MQTT.
type Bridge struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	handler   QueryHandler

	stopCh   chan struct{}
	stopOnce sync.Once

	publish func(topic string, payload []byte) error
}

func NewBridge(cfg config.Config, logger *slog.Logger) *Bridge {
	b := &Bridge{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Resubscribe on every (re)connect since the session is clean.
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		b.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := b.subscribe(); err != nil {
			logger.Error("mqtt subscribe failed", "error", err)
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	b.client = mqtt.NewClient(opts)
	b.publish = b.publishToBroker
	return b
}

// SetQueryHandler must be called before Connect.
func (b *Bridge) SetQueryHandler(handler QueryHandler) {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()
}

func (b *Bridge) QueryTopic() string {
	return b.cfg.MQTTTopicPrefix + "/query/+"
}

func (b *Bridge) ReplyTopic(name string) string {
	return b.cfg.MQTTTopicPrefix + "/reply/" + name
}

// Connect waits for the initial broker connection, honoring ctx and Disconnect.
func (b *Bridge) Connect(ctx context.Context) error {
	select {
	case <-b.stopCh:
		return fmt.Errorf("bridge stopped")
	default:
	}

	if b.IsConnected() {
		return nil
	}

	token := b.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			b.client.Disconnect(0)
			return ctx.Err()
		case <-b.stopCh:
			b.client.Disconnect(0)
			return fmt.Errorf("bridge stopped")
		default:
		}
	}
}

func (b *Bridge) subscribe() error {
	topic := b.QueryTopic()
	token := b.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		b.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	b.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (b *Bridge) handleMessage(topic string, payload []byte) {
	name := topic[strings.LastIndex(topic, "/")+1:]
	b.logger.Debug("received mqtt query", "topic", topic, "query", name, "size", len(payload))

	q := Query{}
	var reply Reply
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &q); err != nil {
			b.logger.Warn("failed to parse mqtt query", "topic", topic, "error", err)
			reply = Reply{Status: 400, Body: map[string]string{"error": "invalid query payload"}}
		}
	}
	q.Name = name

	if reply.Status == 0 {
		b.mu.RLock()
		handler := b.handler
		b.mu.RUnlock()
		if handler == nil {
			b.logger.Warn("mqtt query dropped: no handler", "query", name)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		reply = handler(ctx, q)
		cancel()
	}
	reply.CorrelationID = q.CorrelationID

	body, err := json.Marshal(reply)
	if err != nil {
		b.logger.Error("failed to encode mqtt reply", "query", name, "error", err)
		return
	}
	replyTopic := b.ReplyTopic(name)
	if err := b.publish(replyTopic, body); err != nil {
		b.logger.Error("failed to publish mqtt reply", "topic", replyTopic, "error", err)
		return
	}
	b.logger.Debug("published mqtt reply", "topic", replyTopic, "status", reply.Status)
}

func (b *Bridge) publishToBroker(topic string, payload []byte) error {
	token := b.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	return token.Error()
}

// IsConnected returns whether the client is connected.
func (b *Bridge) IsConnected() bool {
	b.mu.RLock()
	connected := b.connected
	b.mu.RUnlock()
	return connected && b.client.IsConnected()
}

// Disconnect stops the bridge and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (b *Bridge) Disconnect() {
	b.stopOnce.Do(func() { close(b.stopCh) })

	if b.IsConnected() {
		token := b.client.Unsubscribe(b.QueryTopic())
		token.WaitTimeout(2 * time.Second)
	}

	// Disconnect without holding b.mu to avoid lock contention/deadlocks.
	b.client.Disconnect(250)

	b.setConnected(false)
	b.logger.Info("mqtt bridge disconnected")
}

func (b *Bridge) setConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
}
