package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
)

// CartClient calls the remote cart service. The server is the ground truth:
// every mutating call returns the full updated cart.
type CartClient struct {
	t *transport
}

// NewCartClient creates a cart client for the service at opts.BaseURL.
func NewCartClient(opts Options) *CartClient {
	return &CartClient{t: newTransport("Cart", opts)}
}

// cartEnvelope accepts both a bare cart and {"cart": {...}}.
type cartEnvelope struct {
	payload models.CartPayload
}

func (e *cartEnvelope) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Cart json.RawMessage `json:"cart"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Cart) > 0 && string(wrapped.Cart) != "null" {
		data = wrapped.Cart
	}
	return json.Unmarshal(data, &e.payload)
}

// FetchCart returns the current cart.
func (c *CartClient) FetchCart(ctx context.Context) (*models.CartPayload, error) {
	var out cartEnvelope
	if err := c.t.do(ctx, "cart.fetch", http.MethodGet, "/cart", nil, &out); err != nil {
		return nil, err
	}
	return &out.payload, nil
}

// AddItem adds quantity units of menuItemID from restaurantID. Both ids must
// already be canonical strings.
func (c *CartClient) AddItem(ctx context.Context, restaurantID, menuItemID string, quantity int, addons []models.Addon) (*models.CartPayload, error) {
	const op = "cart.add"
	if err := CheckCanonicalID(op, "restaurantId", restaurantID); err != nil {
		return nil, err
	}
	if err := CheckCanonicalID(op, "menuItemId", menuItemID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, NewValidationError(op, "quantity must be at least 1")
	}
	for _, a := range addons {
		if a.Name == "" || a.Price.IsNegative() {
			return nil, NewValidationError(op, "addons need a name and a non-negative price")
		}
	}
	if addons == nil {
		addons = []models.Addon{}
	}

	body := models.AddItemRequest{
		RestaurantID: restaurantID,
		MenuItemID:   menuItemID,
		Quantity:     quantity,
		Addons:       addons,
	}
	var out cartEnvelope
	err := c.t.do(ctx, op, http.MethodPost, "/cart/add", func(r *resty.Request) { r.SetBody(body) }, &out)
	if err != nil {
		return nil, err
	}
	return &out.payload, nil
}

// UpdateQuantity sets the quantity of a line. Zero is not accepted; remove the
// line instead.
func (c *CartClient) UpdateQuantity(ctx context.Context, menuItemID string, quantity int) (*models.CartPayload, error) {
	const op = "cart.update"
	if err := CheckCanonicalID(op, "menuItemId", menuItemID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, NewValidationError(op, "quantity must be at least 1")
	}

	body := models.UpdateQuantityRequest{MenuItemID: menuItemID, Quantity: quantity}
	var out cartEnvelope
	err := c.t.do(ctx, op, http.MethodPatch, "/cart/update", func(r *resty.Request) { r.SetBody(body) }, &out)
	if err != nil {
		return nil, err
	}
	return &out.payload, nil
}

// RemoveItem deletes a line.
func (c *CartClient) RemoveItem(ctx context.Context, menuItemID string) (*models.CartPayload, error) {
	const op = "cart.remove"
	if err := CheckCanonicalID(op, "menuItemId", menuItemID); err != nil {
		return nil, err
	}

	var out cartEnvelope
	if err := c.t.do(ctx, op, http.MethodDelete, "/cart/remove/"+url.PathEscape(menuItemID), nil, &out); err != nil {
		return nil, err
	}
	return &out.payload, nil
}

// ClearCart empties the remote cart.
func (c *CartClient) ClearCart(ctx context.Context) (*models.CartPayload, error) {
	var out cartEnvelope
	if err := c.t.do(ctx, "cart.clear", http.MethodDelete, "/cart/clear", nil, &out); err != nil {
		return nil, err
	}
	return &out.payload, nil
}

// CircuitState returns the breaker state guarding the cart service.
func (c *CartClient) CircuitState() string {
	return c.t.breaker.GetState()
}
