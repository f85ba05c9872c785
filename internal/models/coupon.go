package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon discount types
const (
	DiscountPercentage = "percentage"
	DiscountFlat       = "flat"
)

// Coupon represents an offer returned by the coupon service
type Coupon struct {
	Code          string              `json:"code"`
	Description   string              `json:"description"`
	IsActive      bool                `json:"isActive"`
	ExpiresAt     *time.Time          `json:"expiresAt,omitempty"`
	DiscountType  string              `json:"discountType,omitempty"`
	DiscountValue decimal.Decimal     `json:"discountValue"`
	MinOrder      decimal.Decimal     `json:"minOrderValue"`
	MaxDiscount   decimal.NullDecimal `json:"maxDiscount"`
	RestaurantID  string              `json:"restaurantId,omitempty"`
}

// Expired reports whether the coupon expired at or before now. A coupon
// without an expiry never expires.
func (c Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Usable reports whether the coupon can be offered at now.
func (c Coupon) Usable(now time.Time) bool {
	return c.IsActive && !c.Expired(now)
}

// ValidateCouponRequest represents a coupon validation request
type ValidateCouponRequest struct {
	Code      string          `json:"code" binding:"required"`
	CartTotal decimal.Decimal `json:"cartTotal"`

	// RestaurantID scopes the check to the cart's restaurant when set.
	RestaurantID string `json:"restaurantId,omitempty"`
}

// ValidateCouponResponse represents the coupon service verdict. Discount is
// authoritative and must never be recomputed by the caller.
type ValidateCouponResponse struct {
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message,omitempty"`
}
