package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/segmentio/kafka-go"
)

// Store is the part of the ledger the publisher needs.
type Store interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	GetStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]*Request, error)
	Complete(ctx context.Context, key, eventType string, payload []byte) error
	Abandon(ctx context.Context, key string) error
}

// OrderFinder reports a missing order with a domain.KindNotFound error.
type OrderFinder interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPublisher forwards outbox events to Kafka and settles checkout
// requests left pending by an interrupted placement.
type OutboxPublisher struct {
	eventTick    time.Duration
	recoveryTick time.Duration
	staleAfter   time.Duration
	repo         Store
	orders       OrderFinder
	writer       MessageWriter
	logger       *slog.Logger
}

func NewOutboxPublisher(repo Store, orders OrderFinder, topic string, logger *slog.Logger, brokers ...string) *OutboxPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewOutboxPublisherWithWriter(repo, orders, w, logger)
}

func NewOutboxPublisherWithWriter(repo Store, orders OrderFinder, writer MessageWriter, logger *slog.Logger) *OutboxPublisher {
	return &OutboxPublisher{
		eventTick:    time.Second,
		recoveryTick: 30 * time.Second,
		staleAfter:   time.Minute,
		repo:         repo,
		orders:       orders,
		writer:       writer,
		logger:       logger,
	}
}

func (p *OutboxPublisher) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStalePending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPublisher) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Error("error closing writer", "error", err)
	}
}

func (p *OutboxPublisher) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, 100)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		msg := kafka.Message{
			Key:   []byte(event.AggregateID),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
			},
		}
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.logger.Error("failed to publish outbox event", "event_id", event.ID, "error", err)
			// keep order: later events wait for this one
			return
		}
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark outbox event as processed", "event_id", event.ID, "error", err)
		}
	}
}

// recoverStalePending completes requests whose order was persisted and
// releases the rest.
func (p *OutboxPublisher) recoverStalePending(ctx context.Context) {
	requests, err := p.repo.GetStalePending(ctx, p.staleAfter, 100)
	if err != nil {
		p.logger.Error("failed to get stale checkout requests", "error", err)
		return
	}

	for _, req := range requests {
		order, err := p.orders.Get(ctx, req.OrderID)
		if domain.KindOf(err) == domain.KindNotFound {
			if err := p.repo.Abandon(ctx, req.IdempotencyKey); err != nil {
				p.logger.Error("failed to release checkout request", "key", req.IdempotencyKey, "error", err)
				continue
			}
			p.logger.Info("released checkout request without order", "key", req.IdempotencyKey, "order_id", req.OrderID)
			continue
		}
		if err != nil {
			p.logger.Error("failed to look up order for checkout request", "order_id", req.OrderID, "error", err)
			continue
		}

		if err := CompleteOrder(ctx, p.repo, req.IdempotencyKey, order); err != nil && !errors.Is(err, ErrNotPending) {
			p.logger.Error("failed to complete checkout request", "key", req.IdempotencyKey, "error", err)
			continue
		}
		p.logger.Info("checkout request recovered", "key", req.IdempotencyKey, "order_id", order.ID)
	}
}

// Completer marks a checkout request completed along with its event.
type Completer interface {
	Complete(ctx context.Context, key, eventType string, payload []byte) error
}

// CompleteOrder records the order.placed event for order under key.
func CompleteOrder(ctx context.Context, c Completer, key string, order *domain.Order) error {
	payload, err := json.Marshal(domain.NewOrderPlacedEvent(order))
	if err != nil {
		return err
	}
	return c.Complete(ctx, key, domain.EventOrderPlaced, payload)
}
