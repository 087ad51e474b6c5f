package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType is a category of inventory (laptop, printer, furniture).
type ItemType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Item is an individually tracked piece of inventory.
type Item struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	ItemTypeID      int64               `json:"item_type_id"`
	SerialNumber    string              `json:"serial_number,omitempty"`
	InventoryNumber string              `json:"inventory_number,omitempty"`
	Description     string              `json:"description,omitempty"`
	PurchaseDate    string              `json:"purchase_date,omitempty"`
	Cost            decimal.NullDecimal `json:"cost"`
	IsActive        bool                `json:"is_active"`
	PhotoMime       string              `json:"photo_mime,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`

	// Joined fields (not always populated).
	ItemTypeName string `json:"item_type,omitempty"`
}

// ItemInput carries the writable attributes of an item.
type ItemInput struct {
	Name            string              `json:"name" validate:"required,max=255"`
	ItemTypeID      int64               `json:"item_type_id" validate:"required,gt=0"`
	SerialNumber    string              `json:"serial_number" validate:"max=255"`
	InventoryNumber string              `json:"inventory_number" validate:"max=255"`
	Description     string              `json:"description"`
	PurchaseDate    string              `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	Cost            decimal.NullDecimal `json:"cost"`
	IsActive        *bool               `json:"is_active"`
}

// Active reports the effective active flag; items are active unless told otherwise.
func (in ItemInput) Active() bool {
	return in.IsActive == nil || *in.IsActive
}

// Association links a parent item to a child item (a computer and its monitor).
type Association struct {
	ID           int64 `json:"id"`
	ParentItemID int64 `json:"parent_item_id"`
	ChildItemID  int64 `json:"child_item_id"`

	// Joined fields (not always populated).
	ParentName string `json:"parent_name,omitempty"`
	ChildName  string `json:"child_name,omitempty"`
}
