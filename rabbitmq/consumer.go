package rabbitmq

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/launchfeed/launch-publisher/domain"
	"github.com/launchfeed/launch-publisher/metrics"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const consumeRetryDelay = 1 * time.Second

// LaunchHandler processes one decoded token launch. A returned error sends
// the delivery back to the broker for redelivery.
type LaunchHandler func(launch *domain.TokenLaunch) error

type brokerConnection interface {
	IsClosed() bool
	Close() error
}

type consumeChannel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	IsClosed() bool
	Close() error
}

type Consumer struct {
	cfg     Config
	logger  *zap.SugaredLogger
	metrics *metrics.ConsumerMetrics
	mutex   sync.Mutex
	conn    brokerConnection
	channel consumeChannel
	closed  bool
}

func NewConsumer(cfg Config, logger *zap.SugaredLogger, m *metrics.ConsumerMetrics) *Consumer {
	return &Consumer{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Init connects to the broker and declares the same topology as the
// producer side. Declarations are idempotent.
func (c *Consumer) Init() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connectLocked()
}

func (c *Consumer) connectLocked() error {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	conn, channel, err := connect(c.cfg)
	if err != nil {
		return err
	}
	c.conn = conn
	c.channel = channel
	c.logger.Infow("connected to message broker",
		"exchange", c.cfg.Exchange, "queue", c.cfg.Queue, "routingKey", c.cfg.RoutingKey)
	return nil
}

// Start consumes deliveries until Close is called. Malformed payloads are
// acknowledged and dropped so they cannot wedge the queue; handler failures
// are returned to the broker for redelivery. When the delivery channel
// breaks, consumption resumes after a short pause.
func (c *Consumer) Start(handler LaunchHandler) {
	for {
		if c.isClosed() {
			return
		}

		deliveries, err := c.beginConsuming()
		if err != nil {
			c.logger.Errorw("error starting consumption", "error", err, "delay", consumeRetryDelay)
			time.Sleep(consumeRetryDelay)
			continue
		}

		for delivery := range deliveries {
			c.handleDelivery(&delivery, handler)
		}

		if c.isClosed() {
			return
		}
		c.logger.Warnw("delivery channel closed, reconnecting", "delay", consumeRetryDelay)
		time.Sleep(consumeRetryDelay)
	}
}

func (c *Consumer) beginConsuming() (<-chan amqp.Delivery, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// a broker exception can close the channel while the connection stays open
	if c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed() {
		err := c.connectLocked()
		if err != nil {
			return nil, err
		}
	}

	deliveries, err := c.channel.Consume(c.cfg.Queue, c.cfg.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "registering consumer [%s]", c.cfg.ConsumerTag)
	}
	c.logger.Infow("waiting for token launches", "queue", c.cfg.Queue, "consumerTag", c.cfg.ConsumerTag)
	return deliveries, nil
}

func (c *Consumer) handleDelivery(delivery *amqp.Delivery, handler LaunchHandler) {
	c.metrics.IncConsumedDeliveries()

	var launch domain.TokenLaunch
	err := json.Unmarshal(delivery.Body, &launch)
	if err != nil {
		c.metrics.IncMalformedDeliveries()
		c.logger.Warnw("dropping malformed delivery", "error", err)
		// poison messages are acknowledged so they are not redelivered
		c.ack(delivery)
		return
	}

	err = handler(&launch)
	if err != nil {
		c.logger.Errorw("error processing token launch",
			"token", launch.TokenAddress, "signature", launch.Signature, "error", err)
		nackErr := delivery.Nack(false, true)
		if nackErr != nil {
			c.logger.Errorw("error returning delivery to broker", "error", nackErr)
		}
		return
	}

	c.ack(delivery)
}

func (c *Consumer) ack(delivery *amqp.Delivery) {
	err := delivery.Ack(false)
	if err != nil {
		c.logger.Errorw("error acknowledging delivery", "error", err)
	}
}

// IsConnected reports a live broker connection, for health checks.
func (c *Consumer) IsConnected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Consumer) isClosed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closed
}

// Close stops the consume loop and closes the broker connection.
func (c *Consumer) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.closed = true

	var channelErr, connErr error
	if c.channel != nil {
		channelErr = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		connErr = c.conn.Close()
		c.conn = nil
	}
	if channelErr != nil {
		return errors.Wrap(channelErr, "closing channel")
	}
	if connErr != nil {
		return errors.Wrap(connErr, "closing connection")
	}
	return nil
}
