package domain

import "time"

type Specification struct {
	Name  string `bson:"name" json:"name"`
	Value string `bson:"value" json:"value"`
}

// Product is a catalog entry. Prices are whole rupees.
type Product struct {
	ID                 string          `bson:"_id" json:"id"`
	Name               string          `bson:"name" json:"name"`
	Category           string          `bson:"category" json:"category"`
	Brand              *string         `bson:"brand,omitempty" json:"brand,omitempty"`
	Description        string          `bson:"description,omitempty" json:"description,omitempty"`
	Price              int64           `bson:"price" json:"price"`
	SalePrice          *int64          `bson:"sale_price,omitempty" json:"salePrice,omitempty"`
	DiscountPercentage int             `bson:"discount_percentage" json:"discountPercentage"`
	Stock              int             `bson:"stock" json:"stock"`
	Image              string          `bson:"image,omitempty" json:"image,omitempty"`
	Images             []string        `bson:"images,omitempty" json:"images,omitempty"`
	Colors             []string        `bson:"colors,omitempty" json:"colors,omitempty"`
	Specifications     []Specification `bson:"specifications,omitempty" json:"specifications,omitempty"`
	CreatedAt          time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `bson:"updated_at" json:"updatedAt"`
}

// UnitPrice is the price a buyer pays right now.
func (p *Product) UnitPrice() int64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// MainImage falls back to the first gallery image.
func (p *Product) MainImage() string {
	if p.Image != "" {
		return p.Image
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return Validationf("name", "is required")
	}
	if p.Category == "" {
		return Validationf("category", "is required")
	}
	if p.Price <= 0 {
		return Validationf("price", "must be positive")
	}
	if p.Stock < 0 {
		return Validationf("stock", "must not be negative")
	}
	if p.DiscountPercentage < 0 || p.DiscountPercentage > 100 {
		return Validationf("discountPercentage", "must be between 0 and 100")
	}
	return nil
}
