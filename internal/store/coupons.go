package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/clients"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/metrics"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/money"
)

const couponRejectedMessage = "This coupon cannot be applied to your cart"

// CouponOutcome is the user-facing result of redeeming a code.
type CouponOutcome struct {
	Valid    bool            `json:"valid"`
	Code     string          `json:"code,omitempty"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message,omitempty"`
}

// ApplyCoupon records a coupon whose discount has already been confirmed.
// Applying the same selection twice is a no-op.
func (s *Store) ApplyCoupon(code string, discount decimal.Decimal) error {
	code = clients.NormalizeCode(code)
	if code == "" {
		return ErrCodeRequired
	}
	if discount.IsNegative() {
		return clients.NewValidationError("coupon", "discount cannot be negative")
	}

	s.mu.Lock()
	if s.snap.IsEmpty() {
		s.mu.Unlock()
		return ErrEmptyCart
	}
	if c := s.snap.AppliedCoupon; c != nil && c.Code == code && c.Discount.Equal(discount) {
		s.mu.Unlock()
		return nil
	}
	s.snap.AppliedCoupon = &CouponSelection{Code: code, Discount: discount}
	out := s.snap.clone()
	s.mu.Unlock()

	s.publish(out)
	return nil
}

// RemoveCoupon clears the applied coupon.
func (s *Store) RemoveCoupon() {
	s.mu.Lock()
	if s.snap.AppliedCoupon == nil {
		s.mu.Unlock()
		return
	}
	s.snap.AppliedCoupon = nil
	out := s.snap.clone()
	s.mu.Unlock()

	s.publish(out)
}

// RedeemCoupon validates code against the current item total and applies it
// when the coupon service accepts it. It runs in the mutation queue so the
// total cannot change between validation and apply. A rejected code is not an
// error; its message is returned in the outcome.
func (s *Store) RedeemCoupon(ctx context.Context, code string) (CouponOutcome, error) {
	const op = "coupon.redeem"
	code = clients.NormalizeCode(code)
	if code == "" {
		return CouponOutcome{Message: ErrCodeRequired.Message}, ErrCodeRequired
	}

	var outcome CouponOutcome
	err := s.serialize(ctx, op, func() error {
		cur := s.Snapshot()
		if cur.IsEmpty() {
			outcome = CouponOutcome{Message: "Add items to your cart before applying a coupon"}
			return ErrEmptyCart
		}

		verdict, err := s.coupons.Validate(ctx, code, cur.ItemTotal, cur.RestaurantID)
		if err != nil {
			metrics.CouponValidationsTotal.WithLabelValues("error").Inc()
			s.fail(op, err)
			outcome = CouponOutcome{Code: code, Message: clients.Message(err, couponRejectedMessage)}
			return err
		}
		if !verdict.Valid {
			metrics.CouponValidationsTotal.WithLabelValues("rejected").Inc()
			msg := verdict.Message
			if msg == "" {
				msg = couponRejectedMessage
			}
			s.logger.WithFields(log.Fields{"coupon": code, "reason": msg}).Info("Coupon rejected")
			outcome = CouponOutcome{Code: code, Message: msg}
			return nil
		}

		discount := money.NonNegative(verdict.Discount)
		if err := s.ApplyCoupon(code, discount); err != nil {
			outcome = CouponOutcome{Code: code, Message: clients.Message(err, couponRejectedMessage)}
			return err
		}
		metrics.CouponValidationsTotal.WithLabelValues("applied").Inc()
		outcome = CouponOutcome{Valid: true, Code: code, Discount: discount, Message: verdict.Message}
		return nil
	})
	if err != nil && outcome.Message == "" {
		outcome = CouponOutcome{Code: code, Message: couponRejectedMessage}
	}
	return outcome, err
}

// AvailableCoupons lists the usable coupons for the cart's restaurant. It
// degrades to an empty list when the cart is empty or the service fails.
func (s *Store) AvailableCoupons(ctx context.Context) []models.Coupon {
	restaurantID := s.Snapshot().RestaurantID
	if restaurantID == "" {
		return []models.Coupon{}
	}
	list, err := s.coupons.ListApplicable(ctx, restaurantID)
	if err != nil {
		s.fail("coupon.list", err)
		return []models.Coupon{}
	}
	return FilterUsable(list, s.now())
}

// FilterUsable keeps active coupons that have not expired at now.
func FilterUsable(coupons []models.Coupon, now time.Time) []models.Coupon {
	out := make([]models.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if c.Usable(now) {
			out = append(out, c)
		}
	}
	return out
}
