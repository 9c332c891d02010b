package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/vapealley/internal/catalog"
	"github.com/fjod/vapealley/internal/checkout"
	"github.com/fjod/vapealley/internal/domain"
	"github.com/google/uuid"
)

// Ledger records order submissions by idempotency key.
type Ledger interface {
	Begin(ctx context.Context, key, orderID, userID string) (*checkout.Request, bool, error)
	Abandon(ctx context.Context, key string) error
	Complete(ctx context.Context, key, eventType string, payload []byte) error
}

// Transactor runs fn so that its store writes commit together. Stores called
// with the context given to fn take part.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	orders  Repository
	catalog catalog.Repository
	ledger  Ledger
	tx      Transactor
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(orders Repository, products catalog.Repository, ledger Ledger, tx Transactor, logger *slog.Logger) *Service {
	return &Service{
		orders:  orders,
		catalog: products,
		ledger:  ledger,
		tx:      tx,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder validates the request, takes the ordered quantities from stock
// and persists the order. Either all of that happens or none of it does.
// Repeating a request with the same idempotency key returns the first order.
func (s *Service) PlaceOrder(ctx context.Context, req *domain.PlaceOrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	claim, created, err := s.ledger.Begin(ctx, key, uuid.NewString(), req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to record checkout request: %w", err)
	}
	if !created {
		return s.replay(ctx, claim)
	}

	order, err := s.place(ctx, claim, req)
	if err != nil {
		if abandonErr := s.ledger.Abandon(context.WithoutCancel(ctx), key); abandonErr != nil {
			s.logger.ErrorContext(ctx, "failed to release checkout request", "key", key, "error", abandonErr)
		}
		return nil, err
	}

	// the order is committed; a failure here is settled by the recovery loop
	if err := checkout.CompleteOrder(context.WithoutCancel(ctx), s.ledger, key, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to complete checkout request", "key", key, "order_id", order.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "order placed", "order_id", order.ID, "user_id", order.UserID, "total", order.Total, "items", len(order.Items))
	return order, nil
}

func (s *Service) replay(ctx context.Context, claim *checkout.Request) (*domain.Order, error) {
	if claim.Status != checkout.StatusCompleted {
		return nil, domain.Conflictf("an order with this idempotency key is still being processed")
	}
	s.logger.InfoContext(ctx, "replaying order for idempotency key", "key", claim.IdempotencyKey, "order_id", claim.OrderID)
	return s.Get(ctx, claim.OrderID)
}

func (s *Service) place(ctx context.Context, claim *checkout.Request, req *domain.PlaceOrderRequest) (*domain.Order, error) {
	ids := make([]string, len(req.Items))
	for i, line := range req.Items {
		ids[i] = line.ProductID
	}
	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	var total int64
	for _, line := range req.Items {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, domain.NotFoundf("product %s not found", line.ProductID)
		}
		item := domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			Price:     p.UnitPrice(),
		}
		total += item.Subtotal()
		items = append(items, item)
	}
	// zero means the client left the total out
	if req.Total != 0 && req.Total != total {
		return nil, domain.Validationf("total", "submitted total %d does not match current prices (%d)", req.Total, total)
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = domain.DefaultPaymentMethod
	}
	now := s.now()
	order := &domain.Order{
		ID:             claim.OrderID,
		UserID:         req.UserID,
		Customer:       req.Customer,
		Email:          req.Email,
		Phone:          req.Phone,
		Address:        req.Address,
		City:           req.City,
		PostalCode:     req.PostalCode,
		PaymentMethod:  paymentMethod,
		Items:          items,
		Total:          total,
		Status:         domain.OrderStatusPending,
		IdempotencyKey: claim.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// a crash or an ambiguous write before commit leaves stock untouched
	lines := domain.StockLines(items)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.reserve(ctx, lines); err != nil {
			return err
		}
		if err := s.orders.Create(ctx, order); err != nil {
			if restoreErr := s.catalog.RestoreStock(context.WithoutCancel(ctx), lines); restoreErr != nil {
				s.logger.ErrorContext(ctx, "failed to restore stock after order insert failure",
					"order_id", order.ID, "error", restoreErr)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) reserve(ctx context.Context, lines []domain.StockLine) error {
	err := s.catalog.ReserveStock(ctx, lines)
	if err == nil {
		return nil
	}
	var stockErr *catalog.StockError
	if errors.As(err, &stockErr) {
		return &domain.Error{
			Kind: domain.KindConflict,
			Message: fmt.Sprintf("insufficient stock for %s: required %d, available %d",
				stockErr.Name, stockErr.Required, stockErr.Available),
			Err: stockErr,
		}
	}
	if errors.Is(err, catalog.ErrProductNotFound) {
		return domain.Wrap(domain.KindNotFound, err, "a product in the order no longer exists")
	}
	return fmt.Errorf("failed to reserve stock: %w", err)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, domain.NotFoundf("order %s not found", id)
	}
	return o, err
}

func (s *Service) List(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.List(ctx)
}

// UpdateStatus moves an order along the status workflow. Cancelling an order
// does not return its items to stock.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.Validationf("status", "unknown status %q", status)
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, domain.Conflictf("order %s cannot move from %s to %s", id, o.Status, status)
	}
	if o.Status == status {
		return o, nil
	}

	err = s.orders.UpdateStatus(ctx, id, o.Status, status)
	if errors.Is(err, ErrStatusChanged) {
		return nil, domain.Wrap(domain.KindConflict, err, fmt.Sprintf("order %s was updated concurrently", id))
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order status updated", "order_id", id, "from", o.Status, "to", status)
	o.Status = status
	o.UpdatedAt = s.now()
	return o, nil
}
