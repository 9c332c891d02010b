package domain

import "github.com/shopspring/decimal"

// PriceUpdate is the outcome of repricing one product. SalePrice nil means the
// field is removed.
type PriceUpdate struct {
	ProductID          string
	BasePrice          int64
	DiscountPercentage int
	SalePrice          *int64
}

// SalePrice returns price reduced by percentage, rounded half up.
func SalePrice(price int64, percentage int) int64 {
	return decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(int64(100 - percentage))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// Reprice computes the discount fields for p from its base price. Applying the
// same percentage twice yields the same result.
func Reprice(p *Product, percentage int) PriceUpdate {
	u := PriceUpdate{
		ProductID:          p.ID,
		BasePrice:          p.Price,
		DiscountPercentage: percentage,
	}
	if percentage > 0 {
		sale := SalePrice(p.Price, percentage)
		u.SalePrice = &sale
	}
	return u
}

// Apply writes u onto p.
func (u PriceUpdate) Apply(p *Product) {
	p.DiscountPercentage = u.DiscountPercentage
	if u.SalePrice == nil {
		p.SalePrice = nil
		return
	}
	sale := *u.SalePrice
	p.SalePrice = &sale
}

func ValidatePercentage(percentage int) error {
	if percentage < 0 || percentage > 100 {
		return Validationf("percentage", "must be between 0 and 100")
	}
	return nil
}
