// Package reconciler keeps a client-held cart in step with the server cart
// of a signed-in user.
package reconciler

import "github.com/fjod/vapealley/internal/domain"

// Line is one product in the local cart. Name, Price and Image are the
// values shown to the shopper when the line was added or last fetched.
type Line struct {
	ProductID     string `json:"productId"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	Image         string `json:"image,omitempty"`
	Quantity      int    `json:"quantity"`
	SelectedColor string `json:"selectedColor,omitempty"`
}

func (l Line) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

func lineFromProduct(p *domain.Product, quantity int, color string) Line {
	return Line{
		ProductID:     p.ID,
		Name:          p.Name,
		Price:         p.UnitPrice(),
		Image:         p.MainImage(),
		Quantity:      quantity,
		SelectedColor: color,
	}
}

func lineFromServer(l domain.CartLine) Line {
	price := l.Price
	if l.SalePrice != nil {
		price = *l.SalePrice
	}
	return Line{
		ProductID:     l.ProductID,
		Name:          l.Name,
		Price:         price,
		Image:         l.Image,
		Quantity:      l.Quantity,
		SelectedColor: l.SelectedColor,
	}
}

// Session identifies the signed-in shopper. It exists from Login until
// Logout.
type Session struct {
	UserID string
	Token  string
}

// ResolveLogin picks the working cart after sign-in. A non-empty server cart
// replaces the local one; otherwise the local cart is kept. Quantities are
// never merged.
func ResolveLogin(local, server []Line) []Line {
	if len(server) > 0 {
		return cloneLines(server)
	}
	return cloneLines(local)
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

func indexOf(lines []Line, productID string) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
