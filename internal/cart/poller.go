package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the poller uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Poller clears a user's server cart once their order has been placed.
type Poller struct {
	repo   Repository
	cache  Cache
	reader MessageReader
	logger *slog.Logger
}

func NewPoller(repo Repository, cache Cache, topic string, logger *slog.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "cart-clear-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return NewPollerWithReader(repo, cache, reader, logger)
}

func NewPollerWithReader(repo Repository, cache Cache, reader MessageReader, logger *slog.Logger) *Poller {
	return &Poller{repo: repo, cache: cache, reader: reader, logger: logger}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.getMessageAndEmptyCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Error("error closing reader", "error", err)
	}
}

func (p *Poller) getMessageAndEmptyCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("error reading message", "error", err)
		}
		return
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Error("error parsing message", "offset", m.Offset, "error", err)
		return
	}
	if event.EventType != domain.EventOrderPlaced || event.UserID == "" {
		// guest orders have no server cart
		return
	}

	if err := p.repo.DeleteCart(ctx, event.UserID); err != nil && !errors.Is(err, ErrCartNotFound) {
		p.logger.Error("failed to delete cart", "user_id", event.UserID, "order_id", event.OrderID, "error", err)
	}
	if err := p.cache.Delete(ctx, event.UserID); err != nil {
		p.logger.Error("failed to delete cached cart", "user_id", event.UserID, "error", err)
	}
	p.logger.Info("cart cleared after order", "user_id", event.UserID, "order_id", event.OrderID)
}
