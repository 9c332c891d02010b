package cart

import (
	"context"
	"errors"

	"github.com/fjod/vapealley/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// Repository stores one cart document per user. Writes create the document
// when the user has none.
type Repository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// AddItem adds item.Quantity to the line for item.ProductID, appending
	// the line if the cart has none.
	AddItem(ctx context.Context, userID string, item domain.CartItem) error
	// SetItemQuantity sets the absolute quantity of a line, appending it if
	// missing.
	SetItemQuantity(ctx context.Context, userID string, item domain.CartItem) error
	// RemoveItem is a no-op when the line or the cart does not exist.
	RemoveItem(ctx context.Context, userID string, productID string) error
	DeleteCart(ctx context.Context, userID string) error
}
