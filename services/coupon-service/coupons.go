package main

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/money"
)

// CouponBook holds the offers and prices discounts. Discounts are computed
// here only; clients must use the returned figure as is.
type CouponBook struct {
	mu      sync.RWMutex
	coupons map[string]models.Coupon
	now     func() time.Time
}

func NewCouponBook(now func() time.Time, coupons ...models.Coupon) *CouponBook {
	b := &CouponBook{coupons: make(map[string]models.Coupon), now: now}
	for _, c := range coupons {
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		b.coupons[c.Code] = c
	}
	return b
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func seedCoupons(now time.Time) []models.Coupon {
	nextMonth := now.AddDate(0, 1, 0)
	yesterday := now.AddDate(0, 0, -1)
	return []models.Coupon{
		{Code: "SAVE50", Description: "Flat ₹50 off on orders above ₹200", IsActive: true,
			DiscountType: models.DiscountFlat, DiscountValue: amount(50), MinOrder: amount(200)},
		{Code: "WELCOME20", Description: "20% off up to ₹100", IsActive: true, ExpiresAt: &nextMonth,
			DiscountType: models.DiscountPercentage, DiscountValue: amount(20), MaxDiscount: decimal.NewNullDecimal(amount(100))},
		{Code: "SPICY100", Description: "₹100 off at Spice Hub on orders above ₹600", IsActive: true,
			DiscountType: models.DiscountFlat, DiscountValue: amount(100), MinOrder: amount(600), RestaurantID: "spice-hub"},
		{Code: "MONSOON15", Description: "15% off, monsoon special", IsActive: true, ExpiresAt: &yesterday,
			DiscountType: models.DiscountPercentage, DiscountValue: amount(15)},
		{Code: "RETIRED", Description: "Retired offer", IsActive: false,
			DiscountType: models.DiscountFlat, DiscountValue: amount(75)},
	}
}

// Applicable returns every coupon offered for restaurantID, including
// inactive and expired ones, in code order.
func (b *CouponBook) Applicable(restaurantID string) []models.Coupon {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Coupon, 0, len(b.coupons))
	for _, c := range b.coupons {
		if c.RestaurantID == "" || c.RestaurantID == restaurantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (b *CouponBook) Lookup(code string) (models.Coupon, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.coupons[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Price returns the discount code earns on cartTotal at restaurantID, or a
// rejection reason. An empty restaurantID skips the restaurant scope check.
func (b *CouponBook) Price(c models.Coupon, cartTotal decimal.Decimal, restaurantID string) (decimal.Decimal, string, bool) {
	switch {
	case c.RestaurantID != "" && restaurantID != "" && c.RestaurantID != restaurantID:
		return decimal.Zero, "This coupon is not valid for this restaurant", false
	case !c.IsActive:
		return decimal.Zero, "This coupon is no longer active", false
	case c.Expired(b.now()):
		return decimal.Zero, "This coupon has expired", false
	case cartTotal.LessThan(c.MinOrder):
		short := c.MinOrder.Sub(cartTotal)
		return decimal.Zero, "Add items worth " + money.Format(short) + " more to use this coupon", false
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountPercentage:
		discount = money.Percent(cartTotal, c.DiscountValue)
		if c.MaxDiscount.Valid && discount.GreaterThan(c.MaxDiscount.Decimal) {
			discount = c.MaxDiscount.Decimal
		}
	default:
		discount = decimal.Min(c.DiscountValue, cartTotal)
	}
	discount = money.NonNegative(discount).Round(2)
	return discount, "You saved " + money.Format(discount), true
}
