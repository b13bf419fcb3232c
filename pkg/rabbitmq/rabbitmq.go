package rabbitmq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Queue names used by the checkout pipeline.
const (
	OrderQueue          = "order_queue"
	ProfileAddressQueue = "profile_address_queue"
)

// Publisher is the channel operation the client needs to publish. *amqp.Channel
// satisfies it.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	publisher Publisher
	logger    *zap.Logger
	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the durable queues.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() // Close connection if channel creation fails
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queue := range []string{OrderQueue, ProfileAddressQueue} {
		_, err = ch.QueueDeclare(
			queue, // name
			true,  // durable (persists messages across broker restarts)
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare %s: %w", queue, err)
		}
	}

	logger.Info("RabbitMQ client connected", zap.Strings("queues", []string{OrderQueue, ProfileAddressQueue}))

	return &Client{
		conn:      conn,
		channel:   ch,
		publisher: ch,
		logger:    logger,
	}, nil
}

// NewClientWithPublisher builds a publish-only client over p.
func NewClientWithPublisher(p Publisher, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{publisher: p, logger: logger}
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish marshals payload to JSON and sends it persistently to queue through the
// default exchange.
func (c *Client) Publish(queue string, payload interface{}) error {
	if c.publisher == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message for %s: %w", queue, err)
	}

	c.mu.Lock()
	err = c.publisher.Publish(
		"",    // exchange: default exchange
		queue, // routing key: the queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", queue, err)
	}

	c.logger.Debug("message published", zap.String("queue", queue), zap.Int("bytes", len(body)))
	return nil
}

// PublishOrderCreated publishes an order.created event to the order queue.
func (c *Client) PublishOrderCreated(payload interface{}) error {
	return c.Publish(OrderQueue, payload)
}

// PublishAddressSaved forwards a captured checkout address to the profile queue.
func (c *Client) PublishAddressSaved(payload interface{}) error {
	return c.Publish(ProfileAddressQueue, payload)
}

// Consume delivers messages from queue to handler on a goroutine. A nil error
// acks the message; an error nacks it for redelivery. The goroutine ends when the
// channel closes.
func (c *Client) Consume(queue string, handler func(body []byte) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		queue, // queue
		"",    // consumer tag
		false, // auto-ack: acknowledged manually below
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", queue, err)
	}

	c.logger.Info("consuming", zap.String("queue", queue))
	go func() {
		for msg := range msgs {
			handle(c.logger, queue, msg, handler)
		}
		c.logger.Info("consumer stopped", zap.String("queue", queue))
	}()
	return nil
}

// Acknowledger is the part of amqp.Delivery the consumer loop settles.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handle(logger *zap.Logger, queue string, msg amqp.Delivery, handler func([]byte) error) {
	settle(logger, queue, msg.DeliveryTag, msg.Body, msg, handler)
}

func settle(logger *zap.Logger, queue string, tag uint64, body []byte, ack Acknowledger, handler func([]byte) error) {
	if err := handler(body); err != nil {
		logger.Warn("message processing failed", zap.String("queue", queue), zap.Uint64("tag", tag), zap.Error(err))
		if nackErr := ack.Nack(false, true); nackErr != nil {
			logger.Error("failed to nack message", zap.Uint64("tag", tag), zap.Error(nackErr))
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		logger.Error("failed to ack message", zap.Uint64("tag", tag), zap.Error(ackErr))
	}
}
