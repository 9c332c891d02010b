package domain

import "time"

const EventOrderPlaced = "order.placed"

// OrderPlacedEvent is published once an order has been persisted.
type OrderPlacedEvent struct {
	EventType string    `json:"event_type"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id,omitempty"`
	Customer  string    `json:"customer"`
	Phone     string    `json:"phone"`
	Total     int64     `json:"total"`
	ItemCount int       `json:"item_count"`
	PlacedAt  time.Time `json:"placed_at"`
}

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return OrderPlacedEvent{
		EventType: EventOrderPlaced,
		OrderID:   o.ID,
		UserID:    o.UserID,
		Customer:  o.Customer,
		Phone:     o.Phone,
		Total:     o.Total,
		ItemCount: count,
		PlacedAt:  o.CreatedAt,
	}
}
