// Package ingest consumes telemetry envelopes from RabbitMQ and persists
// them through the multi-database store. It is the queue-side counterpart of
// the HTTP telemetry endpoints: devices in the field publish to the broker,
// the broker absorbs bursts, and this consumer drains at store speed.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/store"
	"southerniot.dev/erp/pkg/metrics"
	"southerniot.dev/erp/pkg/mq"
)

// Envelope is the JSON message shape on the telemetry queue. Data is stored
// verbatim; only Kind and PublicID are interpreted.
type Envelope struct {
	Kind     string          `json:"kind"` // "end_device" or "gateway"
	PublicID string          `json:"public_id"`
	Data     json.RawMessage `json:"data"`
}

// Envelope kinds.
const (
	KindEndDevice = "end_device"
	KindGateway   = "gateway"
)

// Consumer consumes telemetry envelopes from RabbitMQ and persists them.
type Consumer struct {
	logger   *slog.Logger
	registry *store.Registry
	mqClient mq.ClientInterface
	metrics  *metrics.MQMetrics
	queue    string
	done     chan struct{}

	// ownsClient is set when the consumer created its own MQ client and
	// must wait out the client's initial connect.
	ownsClient bool
}

// ConsumerConfig holds the configuration for the Consumer.
type ConsumerConfig struct {
	Logger      *slog.Logger
	Registry    *store.Registry
	RabbitMQURL string
	QueueName   string
	Metrics     *metrics.MQMetrics // optional

	// Client overrides the MQ client, used by tests. When nil a real
	// client is created from RabbitMQURL and QueueName.
	Client mq.ClientInterface
}

// NewConsumer creates a new Consumer instance.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.New("consumer config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Registry == nil {
		return nil, errors.New("registry cannot be nil")
	}

	client := cfg.Client
	ownsClient := false
	if client == nil {
		ownsClient = true
		if cfg.RabbitMQURL == "" {
			return nil, errors.New("rabbitmq URL cannot be empty")
		}
		if cfg.QueueName == "" {
			return nil, errors.New("queue name cannot be empty")
		}
		mqClient := mq.New(cfg.QueueName, cfg.RabbitMQURL, cfg.Logger)
		if cfg.Metrics != nil {
			mqClient.SetMetrics(cfg.Metrics)
		}
		client = mqClient
	}

	return &Consumer{
		logger:     cfg.Logger,
		registry:   cfg.Registry,
		mqClient:   client,
		metrics:    cfg.Metrics,
		queue:      cfg.QueueName,
		done:       make(chan struct{}),
		ownsClient: ownsClient,
	}, nil
}

// Start begins consuming envelopes from RabbitMQ.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting telemetry consumer", "queue", c.queue)

	// Give the MQ client a moment to finish its initial connect.
	if c.ownsClient {
		time.Sleep(2 * time.Second)
	}

	deliveries, err := c.mqClient.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("telemetry consumer started, waiting for messages")

	go c.processMessages(ctx, deliveries)

	return nil
}

// processMessages processes incoming messages from the deliveries channel.
func (c *Consumer) processMessages(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context canceled, stopping message processing")
			close(c.done)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed")
				close(c.done)
				return
			}

			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery processes a single envelope. Malformed envelopes and
// envelopes for unknown parents are acknowledged and dropped: requeueing
// cannot make them valid. Storage failures are nacked for redelivery.
func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var env Envelope
	if err := json.Unmarshal(delivery.Body, &env); err != nil {
		c.logger.Error("failed to unmarshal telemetry envelope", "error", err)
		c.countFailure("malformed")
		c.ack(delivery)
		return
	}

	if env.PublicID == "" || len(env.Data) == 0 {
		c.logger.Error("incomplete telemetry envelope",
			"kind", env.Kind,
			"public_id", env.PublicID,
		)
		c.countFailure("incomplete")
		c.ack(delivery)
		return
	}

	err := c.persist(ctx, env)
	switch {
	case err == nil:
		if c.metrics != nil {
			c.metrics.MessagesConsumed.WithLabelValues(c.queue).Inc()
		}
		c.ack(delivery)
		c.logger.Debug("telemetry persisted",
			"kind", env.Kind,
			"public_id", env.PublicID,
		)

	case errors.Is(err, gorm.ErrRecordNotFound):
		c.logger.Warn("telemetry for unknown parent dropped",
			"kind", env.Kind,
			"public_id", env.PublicID,
		)
		c.countFailure("unknown_parent")
		c.ack(delivery)

	case errors.Is(err, errUnknownKind):
		c.logger.Error("telemetry envelope with unknown kind dropped", "kind", env.Kind)
		c.countFailure("unknown_kind")
		c.ack(delivery)

	default:
		c.logger.Error("failed to persist telemetry",
			"kind", env.Kind,
			"public_id", env.PublicID,
			"error", err,
		)
		c.countFailure("storage")
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack message", "error", nackErr)
		}
	}
}

var errUnknownKind = errors.New("unknown envelope kind")

// persist verifies the parent entity and appends the telemetry record, both
// within one session against the parent's database.
func (c *Consumer) persist(ctx context.Context, env Envelope) error {
	switch env.Kind {
	case KindEndDevice:
		return c.registry.WithSession(ctx, store.EndDevices, func(tx *gorm.DB) error {
			var device model.EndDevice
			if err := tx.Where("end_device_id = ?", env.PublicID).First(&device).Error; err != nil {
				return err
			}
			return tx.Create(&model.DeviceTelemetry{
				EndDeviceID: env.PublicID,
				Data:        datatypes.JSON(env.Data),
			}).Error
		})

	case KindGateway:
		return c.registry.WithSession(ctx, store.Gateways, func(tx *gorm.DB) error {
			var gateway model.Gateway
			if err := tx.Where("gateway_id = ?", env.PublicID).First(&gateway).Error; err != nil {
				return err
			}
			return tx.Create(&model.GatewayTelemetry{
				GatewayID: env.PublicID,
				Data:      datatypes.JSON(env.Data),
			}).Error
		})
	}

	return errUnknownKind
}

func (c *Consumer) ack(delivery amqp.Delivery) {
	if err := delivery.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "error", err)
	}
}

func (c *Consumer) countFailure(reason string) {
	if c.metrics != nil {
		c.metrics.ConsumptionFailures.WithLabelValues(c.queue, reason).Inc()
	}
}

// Stop stops the consumer and closes the MQ client.
func (c *Consumer) Stop() error {
	c.logger.Info("stopping telemetry consumer")

	if err := c.mqClient.Close(); err != nil {
		return fmt.Errorf("failed to close mq client: %w", err)
	}

	<-c.done

	c.logger.Info("telemetry consumer stopped")
	return nil
}
