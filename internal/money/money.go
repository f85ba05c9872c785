// Package money holds the price arithmetic and formatting shared by the cart
// store, the price summary and the reference services.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
)

// Symbol is prefixed to every formatted amount.
const Symbol = "₹"

var hundred = decimal.NewFromInt(100)

// Format renders d as "₹1,234.50".
func Format(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + Symbol + group(whole) + "." + frac
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// AddonsTotal sums the unit prices of addons.
func AddonsTotal(addons []models.Addon) decimal.Decimal {
	total := decimal.Zero
	for _, a := range addons {
		total = total.Add(a.Price)
	}
	return total
}

// UnitTotal is the price of one unit including its addons.
func UnitTotal(base decimal.Decimal, addons []models.Addon) decimal.Decimal {
	return base.Add(AddonsTotal(addons))
}

// LineTotal is (base + Σaddons) × qty.
func LineTotal(base decimal.Decimal, addons []models.Addon, qty int) decimal.Decimal {
	return UnitTotal(base, addons).Mul(decimal.NewFromInt(int64(qty)))
}

// Percent returns pct percent of d.
func Percent(d, pct decimal.Decimal) decimal.Decimal {
	return d.Mul(pct).Div(hundred)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
