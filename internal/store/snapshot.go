package store

import (
	"github.com/shopspring/decimal"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/money"
)

// State is the coarse cart state used by display components.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StatePopulated:
		return "populated"
	default:
		return "unknown"
	}
}

// LineItem is a normalized cart line. ItemID is the canonical key used for
// mutation calls and list keys; Item keeps whatever the server sent for
// display.
type LineItem struct {
	ItemID       string          `json:"itemId"`
	Item         models.Ref      `json:"item"`
	RestaurantID string          `json:"restaurantId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Addons       []models.Addon  `json:"addons"`
	Quantity     int             `json:"quantity"`
	IsVeg        bool            `json:"isVeg"`
	TempID       string          `json:"tempId,omitempty"`
}

// Total is (unit price + addons) × quantity.
func (l LineItem) Total() decimal.Decimal {
	return money.LineTotal(l.UnitPrice, l.Addons, l.Quantity)
}

// CouponSelection is a coupon whose discount was confirmed by the coupon service.
type CouponSelection struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// Snapshot is the store's full state. Readers get deep copies.
type Snapshot struct {
	Items        []LineItem `json:"items"`
	RestaurantID string     `json:"restaurantId,omitempty"`
	Restaurant   models.Ref `json:"restaurant"`
	// ItemTotal is the server's item-level total, or the line sum when the
	// server sent none.
	ItemTotal           decimal.Decimal     `json:"itemTotal"`
	ItemTotalFromServer bool                `json:"itemTotalFromServer"`
	TotalItems          int                 `json:"totalItems"`
	ServerGrandTotal    decimal.NullDecimal `json:"serverGrandTotal"`
	AppliedCoupon       *CouponSelection    `json:"appliedCoupon,omitempty"`
	Loading             bool                `json:"loading"`
}

// State derives the coarse state.
func (s Snapshot) State() State {
	switch {
	case s.Loading:
		return StateLoading
	case len(s.Items) == 0:
		return StateEmpty
	default:
		return StatePopulated
	}
}

// IsEmpty reports whether the cart holds no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the line keyed by itemID.
func (s Snapshot) Find(itemID string) (LineItem, bool) {
	for _, it := range s.Items {
		if it.ItemID == itemID {
			return it, true
		}
	}
	return LineItem{}, false
}

// Discount is the applied coupon discount, or zero.
func (s Snapshot) Discount() decimal.Decimal {
	if s.AppliedCoupon == nil {
		return decimal.Zero
	}
	return s.AppliedCoupon.Discount
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.Items != nil {
		out.Items = make([]LineItem, len(s.Items))
		for i, it := range s.Items {
			if it.Addons != nil {
				it.Addons = append([]models.Addon(nil), it.Addons...)
			}
			out.Items[i] = it
		}
	}
	if s.AppliedCoupon != nil {
		c := *s.AppliedCoupon
		out.AppliedCoupon = &c
	}
	return out
}

func emptySnapshot() Snapshot {
	return Snapshot{Items: []LineItem{}, ItemTotal: decimal.Zero}
}
