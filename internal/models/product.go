package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DefaultBrand is used when a product is created without a brand.
const DefaultBrand = "PRODUCT NAME UNDEFINED"

// Product represents a catalog item sold in one or more sizes.
type Product struct {
	ID            string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title         string                      `json:"title" gorm:"uniqueIndex;type:varchar(255);not null"`
	Brand         string                      `json:"brand" gorm:"type:varchar(255);not null"`
	Image         string                      `json:"image" gorm:"not null"`
	Thumbnails    datatypes.JSONSlice[string] `json:"thumbnails"`
	Description   datatypes.JSONSlice[string] `json:"description"`
	OriginalPrice decimal.Decimal             `json:"originalPrice" gorm:"type:decimal(12,2)"`
	SalePrice     decimal.Decimal             `json:"salePrice" gorm:"type:decimal(12,2)"`
	OnSale        bool                        `json:"onSale"`
	IsOutOfStock  bool                        `json:"isOutOfStock"`
	IsFeatured    bool                        `json:"isFeatured"`
	Sizes         []SizeEntry                 `json:"sizes" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

// SizeEntry is one (name, quantity, disabled) tuple of a product's size list.
// Disabled is true exactly when Quantity is zero.
type SizeEntry struct {
	ID        uint   `json:"-" gorm:"primaryKey"`
	ProductID string `json:"-" gorm:"type:varchar(36);uniqueIndex:idx_product_size_name;not null"`
	Position  int    `json:"-"`
	Name      string `json:"name" gorm:"type:varchar(64);uniqueIndex:idx_product_size_name;not null"`
	Quantity  int    `json:"quantity"`
	Disabled  bool   `json:"disabled"`
}

// TableName keeps the size table name stable regardless of the struct name.
func (SizeEntry) TableName() string {
	return "product_sizes"
}

// DefaultSizes returns the size list given to products created without one.
func DefaultSizes() []SizeEntry {
	return []SizeEntry{
		{Name: "S", Quantity: 10},
		{Name: "M", Quantity: 10},
		{Name: "L", Quantity: 10},
		{Name: "XL", Quantity: 10},
	}
}

// TotalQuantity sums the quantity of every size.
func (p *Product) TotalQuantity() int {
	total := 0
	for _, s := range p.Sizes {
		total += s.Quantity
	}
	return total
}

// RefreshStockFlags recomputes each size's Disabled flag and list position
// and the product's IsOutOfStock.
func (p *Product) RefreshStockFlags() {
	for i := range p.Sizes {
		p.Sizes[i].Disabled = p.Sizes[i].Quantity == 0
		p.Sizes[i].Position = i
	}
	p.IsOutOfStock = p.TotalQuantity() == 0
}

// FindSize returns the index of the size with the given name, or -1.
// Names are matched exactly.
func (p *Product) FindSize(name string) int {
	for i, s := range p.Sizes {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the product.
func (p *Product) Clone() *Product {
	cp := *p
	cp.Sizes = append([]SizeEntry(nil), p.Sizes...)
	cp.Thumbnails = append(datatypes.JSONSlice[string](nil), p.Thumbnails...)
	cp.Description = append(datatypes.JSONSlice[string](nil), p.Description...)
	return &cp
}
