package store

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/clients"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
)

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type menuItem struct {
	restaurant string
	name       string
	price      int64
}

// stubCart is an in-memory cart service keyed by menu item id.
type stubCart struct {
	mu      sync.Mutex
	menu    map[string]menuItem
	lines   []models.CartLinePayload
	rest    string
	calls   []string
	failOn  map[string]error
	release chan struct{}
}

func newStubCart() *stubCart {
	return &stubCart{
		menu: map[string]menuItem{
			"m1": {"r1", "Paneer Tikka", 200},
			"m2": {"r1", "Dal Makhani", 150},
			"m9": {"r2", "Veg Burger", 120},
		},
		failOn: map[string]error{},
	}
}

func (c *stubCart) fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failOn[op] = err
}

func (c *stubCart) record(op string) error {
	c.mu.Lock()
	c.calls = append(c.calls, op)
	err := c.failOn[op]
	release := c.release
	c.mu.Unlock()
	if release != nil {
		<-release
	}
	return err
}

func (c *stubCart) callCount(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == op {
			n++
		}
	}
	return n
}

func (c *stubCart) payload() *models.CartPayload {
	p := &models.CartPayload{Items: append([]models.CartLinePayload(nil), c.lines...)}
	if c.rest != "" {
		r := models.Bare(c.rest)
		p.Restaurant = &r
	}
	return p
}

func (c *stubCart) FetchCart(ctx context.Context) (*models.CartPayload, error) {
	if err := c.record("fetch"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payload(), nil
}

func (c *stubCart) AddItem(ctx context.Context, restaurantID, menuItemID string, quantity int, addons []models.Addon) (*models.CartPayload, error) {
	if err := c.record("add"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.menu[menuItemID]
	if !ok {
		return nil, clients.NewValidationError("cart.add", "Menu item not found")
	}
	c.rest = restaurantID
	for i, l := range c.lines {
		if models.CanonicalID(l.MenuItem) == menuItemID {
			c.lines[i].Quantity += quantity
			return c.payload(), nil
		}
	}
	c.lines = append(c.lines, models.CartLinePayload{
		MenuItem: models.Populated(menuItemID, item.name, dec(item.price), true),
		Quantity: quantity,
		Addons:   addons,
	})
	return c.payload(), nil
}

func (c *stubCart) UpdateQuantity(ctx context.Context, menuItemID string, quantity int) (*models.CartPayload, error) {
	if err := c.record("update"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, l := range c.lines {
		if models.CanonicalID(l.MenuItem) == menuItemID {
			c.lines[i].Quantity = quantity
		}
	}
	return c.payload(), nil
}

func (c *stubCart) RemoveItem(ctx context.Context, menuItemID string) (*models.CartPayload, error) {
	if err := c.record("remove"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.lines[:0]
	for _, l := range c.lines {
		if models.CanonicalID(l.MenuItem) != menuItemID {
			kept = append(kept, l)
		}
	}
	c.lines = kept
	if len(c.lines) == 0 {
		c.rest = ""
	}
	return c.payload(), nil
}

func (c *stubCart) ClearCart(ctx context.Context) (*models.CartPayload, error) {
	if err := c.record("clear"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.rest = ""
	return c.payload(), nil
}

type stubCoupons struct {
	verdict *models.ValidateCouponResponse
	err     error
	list    []models.Coupon
	listErr error
	totals  []decimal.Decimal
}

func (s *stubCoupons) ListApplicable(ctx context.Context, restaurantID string) ([]models.Coupon, error) {
	return s.list, s.listErr
}

func (s *stubCoupons) Validate(ctx context.Context, code string, cartTotal decimal.Decimal, restaurantID string) (*models.ValidateCouponResponse, error) {
	s.totals = append(s.totals, cartTotal)
	return s.verdict, s.err
}

func newStore(t *testing.T, cart *stubCart, coupons *stubCoupons, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(cart, coupons, opts...)
}

func add(t *testing.T, s *Store, restaurant, item string, qty int) {
	t.Helper()
	res, err := s.AddItem(context.Background(), AddItemInput{
		Restaurant: models.Bare(restaurant),
		Item:       models.Bare(item),
		Quantity:   qty,
	})
	if err != nil {
		t.Fatalf("AddItem(%s, %s): %v", restaurant, item, err)
	}
	if res.Status != AddApplied {
		t.Fatalf("AddItem(%s, %s): expected applied, got %v", restaurant, item, res.Status)
	}
}

func TestNewStoreIsEmpty(t *testing.T) {
	s := newStore(t, newStubCart(), &stubCoupons{})
	snap := s.Snapshot()
	if snap.State() != StateEmpty || snap.TotalItems != 0 || !snap.ItemTotal.IsZero() {
		t.Fatalf("unexpected initial snapshot: %+v", snap)
	}
}

func TestAddItemInstallsServerState(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})

	add(t, s, "r1", "m1", 2)
	snap := s.Snapshot()
	if snap.State() != StatePopulated {
		t.Fatalf("expected populated, got %s", snap.State())
	}
	if snap.RestaurantID != "r1" || snap.TotalItems != 2 || !snap.ItemTotal.Equal(dec(400)) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	line, ok := snap.Find("m1")
	if !ok || line.Name != "Paneer Tikka" || line.RestaurantID != "r1" {
		t.Fatalf("unexpected line: %+v", line)
	}
}

func TestAddItemAcceptsPopulatedRefs(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})

	restaurant := models.Populated("r1", "Spice Hub", decimal.Zero, false)
	item := models.Populated("m1", "Paneer Tikka", dec(200), true)
	if _, err := s.AddItem(context.Background(), AddItemInput{Restaurant: restaurant, Item: item, Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Snapshot().Find("m1"); !ok {
		t.Fatal("expected line keyed by canonical id")
	}
}

func TestAddItemRejectsInvalidInputLocally(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})

	_, err := s.AddItem(context.Background(), AddItemInput{Restaurant: models.Bare("r1"), Item: models.Ref{}, Quantity: 1})
	if !errors.Is(err, ErrUnresolvedRef) {
		t.Fatalf("expected unresolved ref error, got %v", err)
	}
	_, err = s.AddItem(context.Background(), AddItemInput{Restaurant: models.Bare("r1"), Item: models.Bare("m1"), Quantity: 0})
	if !clients.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if cart.callCount("add") != 0 {
		t.Fatal("expected no remote call")
	}
}

func TestAddFromOtherRestaurantNeedsConfirmation(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	add(t, s, "r1", "m1", 1)
	before := s.Snapshot()

	res, err := s.AddItem(context.Background(), AddItemInput{Restaurant: models.Bare("r2"), Item: models.Bare("m9"), Quantity: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != AddNeedsConfirmation || res.CurrentRestaurantID != "r1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	after := s.Snapshot()
	if after.RestaurantID != before.RestaurantID || len(after.Items) != len(before.Items) {
		t.Fatalf("declined switch changed state: %+v", after)
	}
	if cart.callCount("clear") != 0 || cart.callCount("add") != 1 {
		t.Fatalf("unexpected remote calls: %v", cart.calls)
	}
}

func TestConfirmedSwitchReplacesCart(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	add(t, s, "r1", "m1", 1)
	if err := s.ApplyCoupon("SAVE50", dec(50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := s.AddItem(context.Background(), AddItemInput{Restaurant: models.Bare("r2"), Item: models.Bare("m9"), Quantity: 1, Confirmed: true})
	if err != nil || res.Status != AddApplied {
		t.Fatalf("unexpected result: %+v, %v", res, err)
	}
	snap := s.Snapshot()
	if snap.RestaurantID != "r2" || len(snap.Items) != 1 || snap.Items[0].ItemID != "m9" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.AppliedCoupon != nil {
		t.Fatal("expected coupon dropped on restaurant switch")
	}
	if cart.callCount("clear") != 1 {
		t.Fatalf("expected one clear, got %v", cart.calls)
	}
}

func TestConfirmedSwitchStopsWhenClearFails(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	add(t, s, "r1", "m1", 1)
	cart.fail("clear", clients.NewNetworkError("cart.clear", errors.New("boom")))

	_, err := s.AddItem(context.Background(), AddItemInput{Restaurant: models.Bare("r2"), Item: models.Bare("m9"), Quantity: 1, Confirmed: true})
	if !clients.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if cart.callCount("add") != 1 {
		t.Fatal("expected add not to be sent after failed clear")
	}
	if s.Snapshot().RestaurantID != "r1" {
		t.Fatal("expected prior cart to remain")
	}
}

func TestUpdateQuantityToZeroRemovesLine(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	add(t, s, "r1", "m1", 1)
	if err := s.ApplyCoupon("SAVE50", dec(50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.UpdateQuantity(context.Background(), "m1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := s.Snapshot()
	if snap.State() != StateEmpty || snap.RestaurantID != "" || snap.TotalItems != 0 {
		t.Fatalf("expected empty cart, got %+v", snap)
	}
	if snap.AppliedCoupon != nil {
		t.Fatal("expected coupon cleared with empty cart")
	}
	if cart.callCount("remove") != 1 || cart.callCount("update") != 0 {
		t.Fatalf("unexpected remote calls: %v", cart.calls)
	}
}

func TestUpdateQuantity(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	add(t, s, "r1", "m1", 1)

	if err := s.UpdateQuantity(context.Background(), "m1", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := s.Snapshot()
	if snap.TotalItems != 3 || !snap.ItemTotal.Equal(dec(600)) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if err := s.UpdateQuantity(context.Background(), "m1", -1); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if err := s.UpdateQuantity(context.Background(), "nope", 2); !errors.Is(err, ErrItemNotInCart) {
		t.Fatalf("expected item not in cart, got %v", err)
	}
}

func TestFailedMutationKeepsState(t *testing.T) {
	cart := newStubCart()
	var notices []Notice
	s := newStore(t, cart, &stubCoupons{}, WithNotifier(func(n Notice) { notices = append(notices, n) }))
	add(t, s, "r1", "m1", 2)
	before := s.Snapshot()

	cart.fail("update", clients.NewNetworkError("cart.update", errors.New("timeout")))
	err := s.UpdateQuantity(context.Background(), "m1", 5)
	if !clients.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	after := s.Snapshot()
	if after.TotalItems != before.TotalItems || !after.ItemTotal.Equal(before.ItemTotal) || after.Loading {
		t.Fatalf("state changed on failure: %+v", after)
	}
	if len(notices) != 1 || notices[0].Kind != clients.KindNetwork {
		t.Fatalf("expected one network notice, got %+v", notices)
	}
}

func TestRemoveItem(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	add(t, s, "r1", "m1", 1)
	add(t, s, "r1", "m2", 1)

	if err := s.RemoveItem(context.Background(), "m1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := s.Snapshot()
	if _, ok := snap.Find("m1"); ok || len(snap.Items) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if err := s.RemoveItem(context.Background(), "m1"); !errors.Is(err, ErrItemNotInCart) {
		t.Fatalf("expected item not in cart, got %v", err)
	}
}

func TestClearCartIsEmptyEvenWhenRemoteFails(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	add(t, s, "r1", "m1", 1)
	cart.fail("clear", clients.NewNetworkError("cart.clear", errors.New("down")))

	s.ClearCart(context.Background())
	snap := s.Snapshot()
	if snap.State() != StateEmpty || snap.RestaurantID != "" || snap.AppliedCoupon != nil {
		t.Fatalf("expected empty state, got %+v", snap)
	}
}

func TestLoginFailureLeavesEmpty(t *testing.T) {
	cart := newStubCart()
	cart.lines = []models.CartLinePayload{{MenuItem: models.Populated("m1", "Paneer Tikka", dec(200), true), Quantity: 1}}
	cart.rest = "r1"
	cart.fail("fetch", clients.NewAuthError("cart.fetch", "no credential"))
	s := newStore(t, cart, &stubCoupons{})

	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Snapshot().State() != StateEmpty {
		t.Fatal("expected empty state after failed login")
	}
}

func TestLoginLoadsCart(t *testing.T) {
	cart := newStubCart()
	cart.lines = []models.CartLinePayload{{MenuItem: models.Populated("m1", "Paneer Tikka", dec(200), true), Quantity: 2}}
	cart.rest = "r1"
	s := newStore(t, cart, &stubCoupons{})

	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := s.Snapshot()
	if snap.State() != StatePopulated || snap.TotalItems != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	add(t, s, "r1", "m1", 1)
	cart.fail("fetch", clients.NewNetworkError("cart.fetch", errors.New("down")))

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap := s.Snapshot(); snap.State() != StatePopulated || snap.TotalItems != 1 {
		t.Fatalf("expected prior snapshot, got %+v", snap)
	}
}

func TestAuthErrorResetsStore(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	add(t, s, "r1", "m1", 1)
	cart.fail("update", clients.NewAuthError("cart.update", "expired"))

	if err := s.UpdateQuantity(context.Background(), "m1", 2); !clients.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if s.Snapshot().State() != StateEmpty {
		t.Fatal("expected empty state after auth failure")
	}
}

func TestLogoutDropsInFlightResponse(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	cart.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.AddItem(context.Background(), AddItemInput{Restaurant: models.Bare("r1"), Item: models.Bare("m1"), Quantity: 1})
		done <- err
	}()
	waitFor(t, func() bool { return cart.callCount("add") == 1 })
	s.Logout()
	close(cart.release)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Snapshot().State() != StateEmpty {
		t.Fatal("expected response from ended session to be dropped")
	}
}

func TestMutationsAreSerialized(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	cart.release = make(chan struct{})

	var wg sync.WaitGroup
	for _, id := range []string{"m1", "m2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = s.AddItem(context.Background(), AddItemInput{Restaurant: models.Bare("r1"), Item: models.Bare(id), Quantity: 1})
		}(id)
	}

	waitFor(t, func() bool { return cart.callCount("add") == 1 })
	time.Sleep(20 * time.Millisecond)
	if n := cart.callCount("add"); n != 1 {
		t.Fatalf("expected one add in flight, got %d", n)
	}
	close(cart.release)
	wg.Wait()

	if snap := s.Snapshot(); len(snap.Items) != 2 || snap.TotalItems != 2 {
		t.Fatalf("expected both adds applied, got %+v", snap)
	}
}

func TestSubscribersSeeLoadingThenResult(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})

	var mu sync.Mutex
	var states []State
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		states = append(states, snap.State())
		mu.Unlock()
	})
	add(t, s, "r1", "m1", 1)
	unsubscribe()
	add(t, s, "r1", "m2", 1)

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] != StateLoading || states[1] != StatePopulated {
		t.Fatalf("unexpected states: %v", states)
	}
}

func TestApplyCouponIsIdempotent(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})

	if err := s.ApplyCoupon("SAVE50", dec(50)); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
	add(t, s, "r1", "m1", 1)

	published := 0
	unsubscribe := s.Subscribe(func(Snapshot) { published++ })
	defer unsubscribe()

	for i := 0; i < 2; i++ {
		if err := s.ApplyCoupon(" save50", dec(50)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	snap := s.Snapshot()
	if snap.AppliedCoupon == nil || snap.AppliedCoupon.Code != "SAVE50" || !snap.Discount().Equal(dec(50)) {
		t.Fatalf("unexpected coupon: %+v", snap.AppliedCoupon)
	}
	if published != 1 {
		t.Fatalf("expected one publish, got %d", published)
	}

	s.RemoveCoupon()
	if s.Snapshot().AppliedCoupon != nil {
		t.Fatal("expected coupon removed")
	}
}

func TestCouponKeptWhenCartUnchanged(t *testing.T) {
	cart := newStubCart()
	s := newStore(t, cart, &stubCoupons{})
	add(t, s, "r1", "m1", 1)
	if err := s.ApplyCoupon("SAVE50", dec(50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Snapshot().AppliedCoupon == nil {
		t.Fatal("expected coupon kept across an unchanged refresh")
	}
}

func TestCouponDroppedWhenLinesChange(t *testing.T) {
	cart := newStubCart()
	coupons := &stubCoupons{verdict: &models.ValidateCouponResponse{Valid: true, Discount: dec(50)}}
	s := newStore(t, cart, coupons)
	add(t, s, "r1", "m2", 2)
	if _, err := s.RedeemCoupon(context.Background(), "SAVE50"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.UpdateQuantity(context.Background(), "m2", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := s.Snapshot()
	if !snap.ItemTotal.Equal(dec(150)) || snap.AppliedCoupon != nil {
		t.Fatalf("expected coupon dropped at total 150, got %s / %+v", snap.ItemTotal, snap.AppliedCoupon)
	}

	if _, err := s.RedeemCoupon(context.Background(), "SAVE50"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	add(t, s, "r1", "m1", 1)
	if s.Snapshot().AppliedCoupon != nil {
		t.Fatal("expected coupon dropped after adding a line")
	}
	if len(coupons.totals) != 2 || !coupons.totals[1].Equal(dec(150)) {
		t.Fatalf("expected revalidation against 150, got %v", coupons.totals)
	}
}

func TestRedeemCouponWaitsForInFlightMutation(t *testing.T) {
	cart := newStubCart()
	coupons := &stubCoupons{verdict: &models.ValidateCouponResponse{Valid: true, Discount: dec(50)}}
	s := newStore(t, cart, coupons)
	add(t, s, "r1", "m1", 1)

	cart.mu.Lock()
	cart.release = make(chan struct{})
	cart.mu.Unlock()
	added := make(chan error, 1)
	go func() {
		_, err := s.AddItem(context.Background(), AddItemInput{Restaurant: models.Bare("r1"), Item: models.Bare("m2"), Quantity: 1})
		added <- err
	}()
	waitFor(t, func() bool { return cart.callCount("add") == 2 })

	redeemed := make(chan error, 1)
	go func() {
		_, err := s.RedeemCoupon(context.Background(), "SAVE50")
		redeemed <- err
	}()
	time.Sleep(20 * time.Millisecond)
	select {
	case err := <-redeemed:
		t.Fatalf("redeem finished before the add landed: %v", err)
	default:
	}

	close(cart.release)
	if err := <-added; err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := <-redeemed; err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if len(coupons.totals) != 1 || !coupons.totals[0].Equal(dec(350)) {
		t.Fatalf("expected validation against 350, got %v", coupons.totals)
	}
	if s.Snapshot().AppliedCoupon == nil {
		t.Fatal("expected coupon applied")
	}
}

func TestAddToCartWithUnknownRestaurantNeedsConfirmation(t *testing.T) {
	cart := newStubCart()
	cart.lines = []models.CartLinePayload{{
		MenuItem: models.Bare("m1"),
		Quantity: 1,
		Price:    decimal.NewNullDecimal(dec(200)),
	}}
	s := newStore(t, cart, &stubCoupons{})
	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap := s.Snapshot(); len(snap.Items) != 1 || snap.RestaurantID != "" {
		t.Fatalf("expected one line without a restaurant, got %+v", snap)
	}

	res, err := s.AddItem(context.Background(), AddItemInput{Restaurant: models.Bare("r2"), Item: models.Bare("m9"), Quantity: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != AddNeedsConfirmation || res.CurrentRestaurantID != "" {
		t.Fatalf("expected confirmation, got %+v", res)
	}
	if n := cart.callCount("add"); n != 0 {
		t.Fatalf("expected no add call, got %d", n)
	}
}

func TestRedeemCoupon(t *testing.T) {
	cart := newStubCart()
	coupons := &stubCoupons{verdict: &models.ValidateCouponResponse{Valid: true, Discount: dec(50), Message: "Saved ₹50"}}
	s := newStore(t, cart, coupons)
	add(t, s, "r1", "m1", 2)

	out, err := s.RedeemCoupon(context.Background(), "save50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Valid || out.Code != "SAVE50" || !out.Discount.Equal(dec(50)) {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(coupons.totals) != 1 || !coupons.totals[0].Equal(dec(400)) {
		t.Fatalf("expected validation against item total, got %v", coupons.totals)
	}
	if c := s.Snapshot().AppliedCoupon; c == nil || c.Code != "SAVE50" {
		t.Fatalf("expected coupon applied, got %+v", c)
	}
}

func TestRedeemRejectedCoupon(t *testing.T) {
	cart := newStubCart()
	coupons := &stubCoupons{verdict: &models.ValidateCouponResponse{Valid: false}}
	s := newStore(t, cart, coupons)
	add(t, s, "r1", "m1", 1)

	out, err := s.RedeemCoupon(context.Background(), "OLD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Valid || out.Message != couponRejectedMessage {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if s.Snapshot().AppliedCoupon != nil {
		t.Fatal("rejected coupon must not be applied")
	}
}

func TestRedeemCouponSurfacesServerMessage(t *testing.T) {
	cart := newStubCart()
	coupons := &stubCoupons{err: clients.NewValidationError("coupon.validate", "Coupon not found")}
	s := newStore(t, cart, coupons)
	add(t, s, "r1", "m1", 1)

	out, err := s.RedeemCoupon(context.Background(), "NOPE")
	if !clients.IsValidation(err) || out.Message != "Coupon not found" {
		t.Fatalf("unexpected outcome: %+v, %v", out, err)
	}
}

func TestAvailableCoupons(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	coupons := &stubCoupons{list: []models.Coupon{
		{Code: "LIVE", IsActive: true, ExpiresAt: &future},
		{Code: "FOREVER", IsActive: true},
		{Code: "EXPIRED", IsActive: true, ExpiresAt: &past},
		{Code: "EXACT", IsActive: true, ExpiresAt: &now},
		{Code: "OFF", IsActive: false},
	}}
	cart := newStubCart()
	s := newStore(t, cart, coupons, WithClock(func() time.Time { return now }))

	if got := s.AvailableCoupons(context.Background()); len(got) != 0 {
		t.Fatalf("expected no coupons for empty cart, got %+v", got)
	}
	add(t, s, "r1", "m1", 1)

	got := s.AvailableCoupons(context.Background())
	if len(got) != 2 || got[0].Code != "LIVE" || got[1].Code != "FOREVER" {
		t.Fatalf("unexpected coupons: %+v", got)
	}

	coupons.listErr = clients.NewNetworkError("coupon.list", errors.New("down"))
	if got := s.AvailableCoupons(context.Background()); got == nil || len(got) != 0 {
		t.Fatalf("expected empty list on failure, got %+v", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met")
}
