package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/segmentio/kafka-go"
)

type Sender interface {
	SendOrderConfirmation(ctx context.Context, event domain.OrderPlacedEvent) error
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer sends a confirmation for every placed order. Failures are logged
// and the message is not retried.
type Consumer struct {
	reader      MessageReader
	sender      Sender
	sendTimeout time.Duration
	logger      *slog.Logger
}

func NewConsumer(sender Sender, topic string, logger *slog.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "order-notifier",
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(sender, reader, logger)
}

func NewConsumerWithReader(sender Sender, reader MessageReader, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:      reader,
		sender:      sender,
		sendTimeout: 15 * time.Second,
		logger:      logger,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.handleNext(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing reader", "error", err)
	}
}

func (c *Consumer) handleNext(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error("error reading message", "error", err)
		}
		return
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.logger.Error("error parsing message", "offset", m.Offset, "error", err)
		return
	}
	if event.EventType != domain.EventOrderPlaced {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()
	if err := c.sender.SendOrderConfirmation(sendCtx, event); err != nil {
		c.logger.Warn("order notification failed", "order_id", event.OrderID, "kind", domain.KindOf(err), "error", err)
	}
}
