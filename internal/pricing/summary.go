// Package pricing derives the bill shown to the user from a cart snapshot.
// It is pure: the same snapshot always yields the same Summary.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/money"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/store"
)

// Policy holds the fee rules.
type Policy struct {
	// FreeDeliveryAbove waives the delivery fee when the raw item total is
	// strictly greater than it.
	FreeDeliveryAbove decimal.Decimal
	DeliveryFee       decimal.Decimal
	PlatformFee       decimal.Decimal
	GSTPercent        decimal.Decimal
}

// DefaultPolicy is the storefront's fee schedule.
var DefaultPolicy = Policy{
	FreeDeliveryAbove: decimal.NewFromInt(500),
	DeliveryFee:       decimal.NewFromInt(40),
	PlatformFee:       decimal.NewFromInt(5),
	GSTPercent:        decimal.NewFromInt(5),
}

// AddonLine is the summed price of one addon name across the cart.
type AddonLine struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// Summary is the bill breakdown.
type Summary struct {
	RawItemTotal         decimal.Decimal `json:"rawItemTotal"`
	ItemTotal            decimal.Decimal `json:"itemTotal"`
	AddonsTotal          decimal.Decimal `json:"addonsTotal"`
	Addons               []AddonLine     `json:"addons"`
	DeliveryFee          decimal.Decimal `json:"deliveryFee"`
	PlatformFee          decimal.Decimal `json:"platformFee"`
	GST                  decimal.Decimal `json:"gst"`
	GSTPercent           decimal.Decimal `json:"gstPercent"`
	Discount             decimal.Decimal `json:"discount"`
	CouponCode           string          `json:"couponCode,omitempty"`
	GrandTotal           decimal.Decimal `json:"grandTotal"`
	GrandTotalFromServer bool            `json:"grandTotalFromServer"`
}

// Summarize applies DefaultPolicy.
func Summarize(s store.Snapshot) Summary {
	return SummarizeWith(DefaultPolicy, s)
}

// SummarizeWith builds the bill for s. Fees and GST are computed on the raw
// item total (base plus addons). A server grand total, when present, wins
// over the computed one. An empty cart has an all-zero bill.
func SummarizeWith(p Policy, s store.Snapshot) Summary {
	if s.IsEmpty() {
		return Summary{
			RawItemTotal: decimal.Zero,
			ItemTotal:    decimal.Zero,
			AddonsTotal:  decimal.Zero,
			Addons:       []AddonLine{},
			DeliveryFee:  decimal.Zero,
			PlatformFee:  decimal.Zero,
			GST:          decimal.Zero,
			GSTPercent:   p.GSTPercent,
			Discount:     decimal.Zero,
			GrandTotal:   decimal.Zero,
		}
	}
	raw := s.ItemTotal
	addons, addonsTotal := addonBreakdown(s.Items)

	delivery := p.DeliveryFee
	if raw.GreaterThan(p.FreeDeliveryAbove) {
		delivery = decimal.Zero
	}
	gst := money.Percent(raw, p.GSTPercent)
	discount := s.Discount()

	sum := Summary{
		RawItemTotal: raw,
		ItemTotal:    raw.Sub(addonsTotal),
		AddonsTotal:  addonsTotal,
		Addons:       addons,
		DeliveryFee:  delivery,
		PlatformFee:  p.PlatformFee,
		GST:          gst,
		GSTPercent:   p.GSTPercent,
		Discount:     discount,
	}
	if s.AppliedCoupon != nil {
		sum.CouponCode = s.AppliedCoupon.Code
	}

	if s.ServerGrandTotal.Valid {
		sum.GrandTotal = s.ServerGrandTotal.Decimal
		sum.GrandTotalFromServer = true
		return sum
	}
	sum.GrandTotal = raw.Add(delivery).Add(p.PlatformFee).Add(gst).Sub(discount)
	return sum
}

// addonBreakdown groups addon spend by name in first-appearance order.
func addonBreakdown(items []store.LineItem) ([]AddonLine, decimal.Decimal) {
	lines := []AddonLine{}
	index := map[string]int{}
	total := decimal.Zero
	for _, it := range items {
		qty := decimal.NewFromInt(int64(it.Quantity))
		for _, a := range it.Addons {
			spend := a.Price.Mul(qty)
			total = total.Add(spend)
			i, ok := index[a.Name]
			if !ok {
				index[a.Name] = len(lines)
				lines = append(lines, AddonLine{Name: a.Name, Total: spend})
				continue
			}
			lines[i].Total = lines[i].Total.Add(spend)
		}
	}
	return lines, total
}

// Line is a formatted row of the bill.
type Line struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// Lines renders the summary in display order. Zero-valued optional rows
// (addons, discount) are omitted.
func (s Summary) Lines() []Line {
	out := []Line{{Label: "Item Total", Amount: money.Format(s.ItemTotal)}}
	for _, a := range s.Addons {
		out = append(out, Line{Label: "Add-on: " + a.Name, Amount: money.Format(a.Total)})
	}
	delivery := money.Format(s.DeliveryFee)
	if s.DeliveryFee.IsZero() {
		delivery = "FREE"
	}
	out = append(out,
		Line{Label: "Delivery Fee", Amount: delivery},
		Line{Label: "Platform Fee", Amount: money.Format(s.PlatformFee)},
		Line{Label: "GST (" + s.GSTPercent.String() + "%)", Amount: money.Format(s.GST)},
	)
	if s.Discount.IsPositive() {
		label := "Coupon Discount"
		if s.CouponCode != "" {
			label += " (" + s.CouponCode + ")"
		}
		out = append(out, Line{Label: label, Amount: money.Format(s.Discount.Neg())})
	}
	return append(out, Line{Label: "To Pay", Amount: money.Format(s.GrandTotal)})
}
