package domain

import (
	"strings"
	"time"
)

// Category groups products. Value is the slug products refer to and is
// unique across categories.
type Category struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Value     string    `bson:"value" json:"value"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func (c *Category) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Value = strings.TrimSpace(c.Value)
	if c.Name == "" {
		return Validationf("name", "is required")
	}
	if c.Value == "" {
		return Validationf("value", "is required")
	}
	return nil
}

// Brand lists the categories it makes products for by category id.
type Brand struct {
	ID         string    `bson:"_id" json:"id"`
	Name       string    `bson:"name" json:"name"`
	Image      string    `bson:"image,omitempty" json:"image,omitempty"`
	Categories []string  `bson:"categories" json:"categories"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updatedAt"`
}

func (b *Brand) Validate() error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return Validationf("name", "is required")
	}
	if b.Categories == nil {
		b.Categories = []string{}
	}
	return nil
}

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        string    `bson:"_id" json:"id"`
	ProductID string    `bson:"product_id" json:"productId"`
	User      string    `bson:"user" json:"user"`
	Rating    int       `bson:"rating" json:"rating"`
	Comment   string    `bson:"comment" json:"comment"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func (r *Review) Validate() error {
	r.User = strings.TrimSpace(r.User)
	r.Comment = strings.TrimSpace(r.Comment)
	if r.ProductID == "" {
		return Validationf("productId", "is required")
	}
	if r.User == "" {
		return Validationf("user", "is required")
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return Validationf("rating", "must be between %d and %d", MinRating, MaxRating)
	}
	if r.Comment == "" {
		return Validationf("comment", "is required")
	}
	return nil
}
