package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/multierr"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
)

var errBrokersRequired = errors.New("kafka brokers are required")

// Client owns one writer per topic so repeated publishes reuse connections.
type Client struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafkago.Writer
}

// NewClient validates the broker list and verifies one broker answers.
func NewClient(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (*Client, error) {
	brokers := normalizeBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errBrokersRequired
	}

	c := &Client{
		brokers: brokers,
		writers: make(map[string]*kafkago.Writer),
	}

	if err := c.Ping(ctx); err != nil {
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "brokers", strings.Join(brokers, ",")), "kafka client initialized")
	}

	return c, nil
}

func normalizeBrokers(raw []string) []string {
	brokers := make([]string, 0, len(raw))
	for _, broker := range raw {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

// Writer returns the cached writer for topic. Messages are hashed by key so every
// event of one order lands on the same partition and keeps its order.
func (c *Client) Writer(topic string) *kafkago.Writer {
	if c == nil {
		return nil
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.writers[topic]; ok {
		return w
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(c.brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	c.writers[topic] = w
	return w
}

// Ping succeeds as soon as any broker accepts a connection.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("kafka client not initialized")
	}
	var errs error
	for _, broker := range c.brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dial %s: %w", broker, err))
			continue
		}
		_ = conn.Close()
		return nil
	}
	return errs
}

// Close flushes and closes every writer.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs error
	for topic, w := range c.writers {
		if err := w.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close writer %s: %w", topic, err))
		}
		delete(c.writers, topic)
	}
	return errs
}
