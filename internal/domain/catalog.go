package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products on the storefront menu.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Product is a sellable juice. Price is a rupee amount with paise precision.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	CategoryID  string
	Category    *Category
	CreatedAt   time.Time
}

// HasImage reports whether the product references an uploaded image.
func (p Product) HasImage() bool {
	return p.ImageURL != ""
}
