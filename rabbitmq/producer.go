// Package rabbitmq publishes and consumes token launch events over AMQP.
// The topology is a durable topic exchange with one durable queue bound to
// the launch routing key. Both sides declare it so startup order does not
// matter.
package rabbitmq

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/launchfeed/launch-publisher/domain"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Config struct {
	Url         string
	Exchange    string
	Queue       string
	RoutingKey  string
	ConsumerTag string
}

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Producer struct {
	cfg     Config
	logger  *zap.SugaredLogger
	mutex   sync.Mutex
	conn    *amqp.Connection
	channel publishChannel
}

func NewProducer(cfg Config, logger *zap.SugaredLogger) *Producer {
	return &Producer{
		cfg:    cfg,
		logger: logger,
	}
}

// Init connects to the broker and declares the exchange, queue and binding.
func (p *Producer) Init() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.connectLocked()
}

func (p *Producer) connectLocked() error {
	conn, channel, err := connect(p.cfg)
	if err != nil {
		return err
	}
	p.conn = conn
	p.channel = channel
	p.logger.Infow("connected to message broker",
		"exchange", p.cfg.Exchange, "queue", p.cfg.Queue, "routingKey", p.cfg.RoutingKey)
	return nil
}

// PublishTokenLaunch sends one launch as a persistent JSON message to the
// configured exchange and routing key.
func (p *Producer) PublishTokenLaunch(ctx context.Context, launch *domain.TokenLaunch) error {
	payload, err := json.Marshal(launch)
	if err != nil {
		return errors.Wrap(err, "marshalling token launch to json")
	}

	p.mutex.Lock()
	channel := p.channel
	p.mutex.Unlock()
	if channel == nil {
		return errors.New("producer not initialized")
	}

	err = channel.PublishWithContext(ctx, p.cfg.Exchange, p.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return errors.Wrap(err, "publishing token launch")
	}
	return nil
}

// IsConnected reports a live broker connection, for health checks.
func (p *Producer) IsConnected() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.conn != nil && !p.conn.IsClosed()
}

// Reconnect discards the stale connection state and connects again.
func (p *Producer) Reconnect() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	_ = p.closeLocked()
	return p.connectLocked()
}

func (p *Producer) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.closeLocked()
}

func (p *Producer) closeLocked() error {
	var channelErr, connErr error
	if p.channel != nil {
		channelErr = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		connErr = p.conn.Close()
		p.conn = nil
	}
	if channelErr != nil {
		return errors.Wrap(channelErr, "closing channel")
	}
	if connErr != nil {
		return errors.Wrap(connErr, "closing connection")
	}
	return nil
}

func connect(cfg Config) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.Url)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to broker")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "opening channel")
	}

	err = declareTopology(channel, cfg)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, channel, nil
}

func declareTopology(channel *amqp.Channel, cfg Config) error {
	err := channel.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "declaring exchange [%s]", cfg.Exchange)
	}

	_, err = channel.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "declaring queue [%s]", cfg.Queue)
	}

	err = channel.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil)
	if err != nil {
		return errors.Wrapf(err, "binding queue [%s] to exchange [%s]", cfg.Queue, cfg.Exchange)
	}
	return nil
}
