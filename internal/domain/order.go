package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusDelivered, OrderStatusCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order may move from s to next.
// Setting the current status again is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const DefaultPaymentMethod = "COD"

// OrderItem is a line snapshot taken at placement. It never changes afterwards.
type OrderItem struct {
	ProductID string `bson:"product_id" json:"productId"`
	Name      string `bson:"name" json:"name"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	Price     int64  `bson:"price" json:"price"`
}

func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

type Order struct {
	ID             string      `bson:"_id" json:"id"`
	UserID         string      `bson:"user_id,omitempty" json:"userId,omitempty"`
	Customer       string      `bson:"customer" json:"customer"`
	Email          string      `bson:"email" json:"email"`
	Phone          string      `bson:"phone" json:"phone"`
	Address        string      `bson:"address" json:"address"`
	City           string      `bson:"city" json:"city"`
	PostalCode     string      `bson:"postal_code" json:"postalCode"`
	PaymentMethod  string      `bson:"payment_method" json:"paymentMethod"`
	Items          []OrderItem `bson:"items" json:"items"`
	Total          int64       `bson:"total" json:"total"`
	Status         OrderStatus `bson:"status" json:"status"`
	IdempotencyKey string      `bson:"idempotency_key" json:"-"`
	CreatedAt      time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updatedAt"`
}

// MarshalJSON adds the derived date and itemsCount fields.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		Date       string `json:"date"`
		ItemsCount int    `json:"itemsCount"`
	}{
		plain:      plain(o),
		Date:       o.CreatedAt.UTC().Format(time.DateOnly),
		ItemsCount: len(o.Items),
	})
}

// OrderLine is a requested line before prices are captured.
type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Contact holds the customer and shipping fields of an order.
type Contact struct {
	Customer      string `json:"customer"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	PostalCode    string `json:"postalCode"`
	PaymentMethod string `json:"paymentMethod"`
}

type PlaceOrderRequest struct {
	Contact
	Items          []OrderLine
	Total          int64
	UserID         string
	IdempotencyKey string
}

func (r *PlaceOrderRequest) Validate() error {
	required := []struct{ field, value string }{
		{"customer", r.Customer},
		{"email", r.Email},
		{"phone", r.Phone},
		{"address", r.Address},
		{"city", r.City},
		{"postalCode", r.PostalCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return Validationf(f.field, "is required")
		}
	}
	if len(r.Items) == 0 {
		return Validationf("items", "must not be empty")
	}
	seen := make(map[string]struct{}, len(r.Items))
	for _, item := range r.Items {
		if item.ProductID == "" {
			return Validationf("items.productId", "is required")
		}
		if item.Quantity < 1 {
			return Validationf("items.quantity", "must be at least 1 for product %s", item.ProductID)
		}
		if _, dup := seen[item.ProductID]; dup {
			return Validationf("items", "product %s listed more than once", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	if r.Total < 0 {
		return Validationf("total", "must not be negative")
	}
	return nil
}

// StockLine is one product quantity to take from or return to stock.
type StockLine struct {
	ProductID string
	Quantity  int
}

func StockLines(items []OrderItem) []StockLine {
	lines := make([]StockLine, len(items))
	for i, item := range items {
		lines[i] = StockLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lines
}
