package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
)

// CouponClient calls the remote coupon service.
type CouponClient struct {
	t *transport
}

// NewCouponClient creates a coupon client for the service at opts.BaseURL.
func NewCouponClient(opts Options) *CouponClient {
	return &CouponClient{t: newTransport("Coupon", opts)}
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// couponList accepts both a bare array and {"coupons": [...]}.
type couponList struct {
	coupons []models.Coupon
}

func (l *couponList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &l.coupons)
	}
	var wrapped struct {
		Coupons []models.Coupon `json:"coupons"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	l.coupons = wrapped.Coupons
	return nil
}

// ListApplicable returns the coupons the service offers for a restaurant,
// unfiltered.
func (c *CouponClient) ListApplicable(ctx context.Context, restaurantID string) ([]models.Coupon, error) {
	const op = "coupon.list"
	if err := CheckCanonicalID(op, "restaurantId", restaurantID); err != nil {
		return nil, err
	}

	var out couponList
	err := c.t.do(ctx, op, http.MethodGet, "/coupons/applicable", func(r *resty.Request) {
		r.SetQueryParam("restaurantId", restaurantID)
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.coupons, nil
}

// Validate asks the service whether code applies to a cart of cartTotal at
// restaurantID. A rejected code is a normal response with Valid false, not an
// error.
func (c *CouponClient) Validate(ctx context.Context, code string, cartTotal decimal.Decimal, restaurantID string) (*models.ValidateCouponResponse, error) {
	const op = "coupon.validate"
	code = NormalizeCode(code)
	if code == "" {
		return nil, NewValidationError(op, "coupon code is required")
	}
	if cartTotal.IsNegative() {
		return nil, NewValidationError(op, "cart total cannot be negative")
	}

	body := models.ValidateCouponRequest{Code: code, CartTotal: cartTotal, RestaurantID: restaurantID}
	var out models.ValidateCouponResponse
	err := c.t.do(ctx, op, http.MethodPost, "/coupons/validate", func(r *resty.Request) { r.SetBody(body) }, &out)
	if err != nil {
		if verdict, ok := rejectedVerdict(err); ok {
			return verdict, nil
		}
		return nil, err
	}
	return &out, nil
}

// rejectedVerdict recovers a {valid:false} body sent with a 4xx status.
func rejectedVerdict(err error) (*models.ValidateCouponResponse, bool) {
	ce, ok := AsError(err)
	if !ok || ce.Kind != KindValidation || len(ce.body) == 0 {
		return nil, false
	}
	var verdict struct {
		Valid   *bool  `json:"valid"`
		Message string `json:"message"`
	}
	if json.Unmarshal(ce.body, &verdict) != nil || verdict.Valid == nil || *verdict.Valid {
		return nil, false
	}
	return &models.ValidateCouponResponse{Valid: false, Discount: decimal.Zero, Message: verdict.Message}, true
}

// CircuitState returns the breaker state guarding the coupon service.
func (c *CouponClient) CircuitState() string {
	return c.t.breaker.GetState()
}
