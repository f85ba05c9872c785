// Package store holds the cart state for one signed-in user. The remote cart
// service is the ground truth; every mutation replaces the local snapshot
// with the normalized server response.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/clients"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/metrics"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/patterns"
)

// CartService is the remote cart the store reconciles against.
type CartService interface {
	FetchCart(ctx context.Context) (*models.CartPayload, error)
	AddItem(ctx context.Context, restaurantID, menuItemID string, quantity int, addons []models.Addon) (*models.CartPayload, error)
	UpdateQuantity(ctx context.Context, menuItemID string, quantity int) (*models.CartPayload, error)
	RemoveItem(ctx context.Context, menuItemID string) (*models.CartPayload, error)
	ClearCart(ctx context.Context) (*models.CartPayload, error)
}

// CouponService validates and lists coupons.
type CouponService interface {
	ListApplicable(ctx context.Context, restaurantID string) ([]models.Coupon, error)
	Validate(ctx context.Context, code string, cartTotal decimal.Decimal, restaurantID string) (*models.ValidateCouponResponse, error)
}

var (
	ErrItemNotInCart   = clients.NewValidationError("cart", "item is not in the cart")
	ErrEmptyCart       = clients.NewValidationError("cart", "cart is empty")
	ErrInvalidQuantity = clients.NewValidationError("cart", "quantity cannot be negative")
	ErrUnresolvedRef   = clients.NewValidationError("cart", "restaurant and item must have identifiers")
	ErrCodeRequired    = clients.NewValidationError("coupon", "coupon code is required")
)

// Notice describes a failure the user should hear about without it blocking
// the current screen.
type Notice struct {
	Operation string
	Kind      clients.Kind
	Message   string
	Err       error
}

// Notifier receives notices. It is called synchronously and must not block.
type Notifier func(Notice)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Store) { s.logger = l }
}

// WithNotifier registers the non-blocking error channel.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notify = n }
}

// WithClock overrides the clock used for coupon expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMutationWait bounds how long a mutation queues behind another one.
func WithMutationWait(d time.Duration) Option {
	return func(s *Store) { s.wait = d }
}

// Store is safe for concurrent use. Mutations are applied one at a time in
// arrival order.
type Store struct {
	cart    CartService
	coupons CouponService
	logger  log.FieldLogger
	notify  Notifier
	now     func() time.Time
	wait    time.Duration

	mutations *patterns.Bulkhead

	mu    sync.RWMutex
	snap  Snapshot
	epoch uint64

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates an empty store.
func New(cart CartService, coupons CouponService, opts ...Option) *Store {
	s := &Store{
		cart:    cart,
		coupons: coupons,
		logger:  log.StandardLogger(),
		notify:  func(Notice) {},
		now:     time.Now,
		wait:    patterns.DefaultMutationWait,
		snap:    emptySnapshot(),
		subs:    make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mutations = patterns.NewBulkhead(1, s.wait, "cart-mutations", "cart-store")
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// Subscribe registers fn to receive every new snapshot. The returned func
// unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap.clone())
	}
}

func (s *Store) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// reset discards all state and starts a new session epoch.
func (s *Store) reset() {
	s.mu.Lock()
	s.epoch++
	s.snap = emptySnapshot()
	out := s.snap.clone()
	s.mu.Unlock()
	s.publish(out)
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	if s.snap.Loading == v {
		s.mu.Unlock()
		return
	}
	s.snap.Loading = v
	out := s.snap.clone()
	s.mu.Unlock()
	s.publish(out)
}

// install replaces the snapshot with next unless the session was reset since
// epoch. The applied coupon was validated against the previous lines, so it
// survives only when the lines and the item total are unchanged.
func (s *Store) install(epoch uint64, next Snapshot) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	prev := s.snap
	if prev.AppliedCoupon != nil && sameLines(prev, next) {
		c := *prev.AppliedCoupon
		next.AppliedCoupon = &c
	}
	next.Loading = false
	s.snap = next
	out := s.snap.clone()
	s.mu.Unlock()

	if prev.AppliedCoupon != nil && next.AppliedCoupon == nil {
		s.logger.WithField("coupon", prev.AppliedCoupon.Code).Info("Dropped applied coupon after cart change")
	}
	if !next.IsEmpty() {
		metrics.CartItemTotal.Observe(next.ItemTotal.InexactFloat64())
	}
	s.publish(out)
	return true
}

// sameLines reports whether next prices the same cart as prev.
func sameLines(prev, next Snapshot) bool {
	if next.IsEmpty() || next.RestaurantID != prev.RestaurantID || len(next.Items) != len(prev.Items) {
		return false
	}
	if !next.ItemTotal.Equal(prev.ItemTotal) {
		return false
	}
	qty := make(map[string]int, len(prev.Items))
	for _, it := range prev.Items {
		qty[it.ItemID] = it.Quantity
	}
	for _, it := range next.Items {
		if q, ok := qty[it.ItemID]; !ok || q != it.Quantity {
			return false
		}
	}
	return true
}

// fail records err. Auth failures end the session.
func (s *Store) fail(op string, err error) {
	kind := clients.KindOf(err)
	metrics.CartStoreErrors.WithLabelValues(op, kind.String()).Inc()
	s.logger.WithFields(log.Fields{
		"operation": op,
		"kind":      kind.String(),
	}).WithError(err).Warn("Cart operation failed")

	if kind == clients.KindAuth {
		s.reset()
	}
	if kind != clients.KindValidation {
		s.notify(Notice{Operation: op, Kind: kind, Message: noticeMessage(kind), Err: err})
	}
}

func noticeMessage(kind clients.Kind) string {
	if kind == clients.KindAuth {
		return "Your session has ended. Please sign in again."
	}
	return "We could not reach the cart service. Please try again."
}

// apply runs a server mutation and installs its response.
func (s *Store) apply(ctx context.Context, epoch uint64, op string, call func(context.Context) (*models.CartPayload, error)) error {
	s.setLoading(true)
	payload, err := call(ctx)
	if err != nil {
		s.setLoading(false)
		metrics.CartMutationsTotal.WithLabelValues(op, "error").Inc()
		s.fail(op, err)
		return err
	}
	if !s.install(epoch, normalize(payload, s.logger)) {
		s.logger.WithField("operation", op).Debug("Discarding cart response from an ended session")
	}
	metrics.CartMutationsTotal.WithLabelValues(op, "ok").Inc()
	return nil
}

func (s *Store) serialize(ctx context.Context, op string, fn func() error) error {
	err := s.mutations.Execute(ctx, fn)
	if err != nil && !isClientError(err) {
		s.logger.WithFields(log.Fields{
			"operation": op,
			"bulkhead":  s.mutations.GetName(),
			"in_flight": s.mutations.InFlight(),
		}).WithError(err).Warn("Cart mutation not started")
		return fmt.Errorf("cart %s: %w", op, err)
	}
	return err
}

func isClientError(err error) bool {
	_, ok := clients.AsError(err)
	return ok
}

// Login loads the cart for a newly signed-in user. A failed load leaves the
// store Empty; the failure is logged and reported to the notifier.
func (s *Store) Login(ctx context.Context) error {
	return s.serialize(ctx, "login", func() error {
		s.reset()
		epoch := s.currentEpoch()
		s.setLoading(true)
		payload, err := s.cart.FetchCart(ctx)
		if err != nil {
			s.fail("login", err)
			s.setLoading(false)
			return nil
		}
		s.install(epoch, normalize(payload, s.logger))
		return nil
	})
}

// Refresh reloads the cart from the server. A failed reload keeps the prior
// snapshot.
func (s *Store) Refresh(ctx context.Context) error {
	return s.serialize(ctx, "refresh", func() error {
		epoch := s.currentEpoch()
		s.setLoading(true)
		payload, err := s.cart.FetchCart(ctx)
		if err != nil {
			s.setLoading(false)
			s.fail("refresh", err)
			return nil
		}
		s.install(epoch, normalize(payload, s.logger))
		return nil
	})
}

// Logout discards all cart state. Responses still in flight are dropped.
func (s *Store) Logout() {
	s.reset()
}

// AddStatus is the outcome of AddItem.
type AddStatus int

const (
	AddApplied AddStatus = iota
	// AddNeedsConfirmation means the cart holds items from another
	// restaurant; repeat the call with Confirmed set to replace them.
	AddNeedsConfirmation
)

// AddItemInput describes an item to add. Restaurant and Item may be bare or
// populated references.
type AddItemInput struct {
	Restaurant models.Ref
	Item       models.Ref
	Quantity   int
	Addons     []models.Addon
	Confirmed  bool
}

// AddResult is returned by AddItem.
type AddResult struct {
	Status              AddStatus
	CurrentRestaurantID string
}

// AddItem adds an item. When the cart holds items from a different
// restaurant and the caller has not confirmed, nothing is sent and the
// result asks for confirmation. A confirmed add clears the remote cart first.
func (s *Store) AddItem(ctx context.Context, in AddItemInput) (AddResult, error) {
	const op = "add"
	restaurantID := models.CanonicalID(in.Restaurant)
	itemID := models.CanonicalID(in.Item)
	if restaurantID == "" || itemID == "" {
		return AddResult{}, ErrUnresolvedRef
	}
	if in.Quantity < 1 {
		return AddResult{}, clients.NewValidationError(op, "quantity must be at least 1")
	}

	result := AddResult{Status: AddApplied}
	err := s.serialize(ctx, op, func() error {
		epoch := s.currentEpoch()
		cur := s.Snapshot()
		// A populated cart with no known restaurant counts as a mismatch.
		if !cur.IsEmpty() && cur.RestaurantID != restaurantID {
			if !in.Confirmed {
				result = AddResult{Status: AddNeedsConfirmation, CurrentRestaurantID: cur.RestaurantID}
				metrics.CartMutationsTotal.WithLabelValues(op, "needs_confirmation").Inc()
				return nil
			}
			s.logger.WithFields(log.Fields{
				"from_restaurant": cur.RestaurantID,
				"to_restaurant":   restaurantID,
			}).Info("Replacing cart contents for a different restaurant")
			if err := s.apply(ctx, epoch, "clear", func(ctx context.Context) (*models.CartPayload, error) {
				return s.cart.ClearCart(ctx)
			}); err != nil {
				return err
			}
		}
		return s.apply(ctx, epoch, op, func(ctx context.Context) (*models.CartPayload, error) {
			return s.cart.AddItem(ctx, restaurantID, itemID, in.Quantity, in.Addons)
		})
	})
	if err != nil {
		return AddResult{}, err
	}
	return result, nil
}

// UpdateQuantity sets a line's quantity. Zero removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	const op = "update"
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	itemID = strings.TrimSpace(itemID)
	return s.serialize(ctx, op, func() error {
		if _, ok := s.Snapshot().Find(itemID); !ok {
			return ErrItemNotInCart
		}
		epoch := s.currentEpoch()
		if quantity == 0 {
			return s.apply(ctx, epoch, "remove", func(ctx context.Context) (*models.CartPayload, error) {
				return s.cart.RemoveItem(ctx, itemID)
			})
		}
		return s.apply(ctx, epoch, op, func(ctx context.Context) (*models.CartPayload, error) {
			return s.cart.UpdateQuantity(ctx, itemID, quantity)
		})
	})
}

// RemoveItem deletes a line.
func (s *Store) RemoveItem(ctx context.Context, itemID string) error {
	const op = "remove"
	itemID = strings.TrimSpace(itemID)
	return s.serialize(ctx, op, func() error {
		if _, ok := s.Snapshot().Find(itemID); !ok {
			return ErrItemNotInCart
		}
		return s.apply(ctx, s.currentEpoch(), op, func(ctx context.Context) (*models.CartPayload, error) {
			return s.cart.RemoveItem(ctx, itemID)
		})
	})
}

// ClearCart empties the cart. The local state is always Empty afterwards,
// even when the remote call fails.
func (s *Store) ClearCart(ctx context.Context) {
	const op = "clear"
	err := s.serialize(ctx, op, func() error {
		s.setLoading(true)
		if _, err := s.cart.ClearCart(ctx); err != nil {
			metrics.CartMutationsTotal.WithLabelValues(op, "error").Inc()
			s.fail(op, err)
		} else {
			metrics.CartMutationsTotal.WithLabelValues(op, "ok").Inc()
		}
		s.reset()
		return nil
	})
	if err != nil {
		s.reset()
	}
}
