package models

import "github.com/shopspring/decimal"

// Addon represents a priced extra attached to a cart line
type Addon struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price"`
}

// CartLinePayload represents a line item as returned by the cart service
type CartLinePayload struct {
	MenuItem   Ref                 `json:"menuItem"`
	Restaurant *Ref                `json:"restaurant,omitempty"`
	Quantity   int                 `json:"quantity"`
	Price      decimal.NullDecimal `json:"price"`
	Addons     []Addon             `json:"addons,omitempty"`
	IsVeg      *bool               `json:"isVeg,omitempty"`
	TempID     string              `json:"tempId,omitempty"`
}

// CartPayload is the full cart representation returned by every cart endpoint.
// TotalPrice is the item-level figure (lines plus addons, before fees, tax and
// discount). GrandTotal is only set when the server prices the whole bill.
type CartPayload struct {
	Items      []CartLinePayload   `json:"items"`
	Restaurant *Ref                `json:"restaurant,omitempty"`
	TotalPrice decimal.NullDecimal `json:"totalPrice"`
	TotalItems *int                `json:"totalItems,omitempty"`
	GrandTotal decimal.NullDecimal `json:"grandTotal"`
}

// AddItemRequest represents the request to add a line to the cart
type AddItemRequest struct {
	RestaurantID string  `json:"restaurantId" binding:"required"`
	MenuItemID   string  `json:"menuItemId" binding:"required"`
	Quantity     int     `json:"quantity" binding:"required,gt=0"`
	Addons       []Addon `json:"addons" binding:"dive"`
}

// UpdateQuantityRequest represents the request to change a line quantity
type UpdateQuantityRequest struct {
	MenuItemID string `json:"menuItemId" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
}

// ErrorResponse is the error body shared by the cart and coupon services
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
