package domain

import "time"

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string     `bson:"user_id" json:"userId"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

type CartItem struct {
	ProductID     string    `bson:"product_id" json:"productId"`
	Quantity      int       `bson:"quantity" json:"quantity"`
	SelectedColor string    `bson:"selected_color,omitempty" json:"selectedColor,omitempty"`
	AddedAt       time.Time `bson:"added_at" json:"addedAt"`
}

// CartLine is a cart item expanded with the live product fields.
type CartLine struct {
	ProductID     string `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	SalePrice     *int64 `json:"salePrice,omitempty"`
	Image         string `json:"image,omitempty"`
	Quantity      int    `json:"quantity"`
	SelectedColor string `json:"selectedColor,omitempty"`
}

// ProductIDs returns the ids of the items in cart order.
func (c *Cart) ProductIDs() []string {
	ids := make([]string, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ProductID
	}
	return ids
}

// Expand joins the cart with products. Items whose product no longer exists
// are left out.
func (c *Cart) Expand(products map[string]*Product) []CartLine {
	lines := make([]CartLine, 0, len(c.Items))
	for _, item := range c.Items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, CartLine{
			ProductID:     p.ID,
			Name:          p.Name,
			Price:         p.Price,
			SalePrice:     p.SalePrice,
			Image:         p.MainImage(),
			Quantity:      item.Quantity,
			SelectedColor: item.SelectedColor,
		})
	}
	return lines
}
