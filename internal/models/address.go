package models

import "time"

// Address is an entry of a user's address book. At most one address per
// user has IsDefault set; a partial unique index enforces it in the database.
type Address struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user" gorm:"type:varchar(36);index;uniqueIndex:idx_addresses_one_default,where:is_default = true;not null"`
	Phone     string    `json:"phone" gorm:"type:varchar(10);not null"`
	Street    string    `json:"address" gorm:"column:address;not null"`
	City      string    `json:"city" gorm:"not null"`
	State     string    `json:"state" gorm:"not null"`
	Pincode   string    `json:"pincode" gorm:"type:varchar(6);not null"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
