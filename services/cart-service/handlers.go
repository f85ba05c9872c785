package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/cartdb"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/httpserver"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/money"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/patterns"
)

// CartAPI serves the cart endpoints. The caller's bearer token is the user id.
type CartAPI struct {
	db   *cartdb.DB
	menu *catalog
}

func (a *CartAPI) routes(r gin.IRouter) {
	r.GET("", a.getCart)
	r.POST("/add", a.addItem)
	r.PATCH("/update", a.updateItem)
	r.DELETE("/remove/:menuItemId", a.removeItem)
	r.DELETE("/clear", a.clearCart)
}

func (a *CartAPI) getCart(c *gin.Context) {
	cart, err := a.db.Get(c.Request.Context(), httpserver.BearerToken(c))
	if err != nil {
		a.fail(c, "get", err)
		return
	}
	a.respond(c, cart)
}

func (a *CartAPI) addItem(c *gin.Context) {
	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpserver.Abort(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	it, ok := a.menu.item(req.MenuItemID)
	if !ok {
		httpserver.Abort(c, http.StatusNotFound, "Menu item not found")
		return
	}
	if it.RestaurantID != req.RestaurantID {
		httpserver.Abort(c, http.StatusBadRequest, "Menu item does not belong to this restaurant")
		return
	}
	addons, err := a.menu.resolveAddons(it, req.Addons)
	if err != nil {
		httpserver.Abort(c, http.StatusBadRequest, err.Error())
		return
	}

	userID := httpserver.BearerToken(c)
	cart, err := a.db.Add(c.Request.Context(), userID, req.RestaurantID, req.MenuItemID, req.Quantity, addons)
	if err != nil {
		a.fail(c, "add", err)
		return
	}

	log.WithFields(log.Fields{
		"user_id":      userID,
		"menu_item_id": req.MenuItemID,
		"quantity":     req.Quantity,
	}).Info("Item added to cart")
	a.respond(c, cart)
}

func (a *CartAPI) updateItem(c *gin.Context) {
	var req models.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpserver.Abort(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	cart, err := a.db.SetQuantity(c.Request.Context(), httpserver.BearerToken(c), req.MenuItemID, req.Quantity)
	if err != nil {
		a.fail(c, "update", err)
		return
	}
	a.respond(c, cart)
}

func (a *CartAPI) removeItem(c *gin.Context) {
	cart, err := a.db.Remove(c.Request.Context(), httpserver.BearerToken(c), c.Param("menuItemId"))
	if err != nil {
		a.fail(c, "remove", err)
		return
	}
	a.respond(c, cart)
}

func (a *CartAPI) clearCart(c *gin.Context) {
	userID := httpserver.BearerToken(c)
	cart, err := a.db.Clear(c.Request.Context(), userID)
	if err != nil {
		a.fail(c, "clear", err)
		return
	}
	log.WithField("user_id", userID).Info("Cart cleared")
	a.respond(c, cart)
}

// ready reports whether the cart database answers.
func (a *CartAPI) ready(c *gin.Context) {
	ctx, cancel := patterns.WithTimeout(c.Request.Context(), patterns.DefaultTimeout)
	defer cancel()
	if err := a.db.Ping(ctx); err != nil {
		log.WithError(err).Warn("Cart database not ready")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": serviceName})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "service": serviceName})
}

func (a *CartAPI) listMenu(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": a.menu.menu(c.Query("restaurantId"))})
}

func (a *CartAPI) respond(c *gin.Context, cart *cartdb.Cart) {
	c.JSON(http.StatusOK, gin.H{"cart": a.payload(cart)})
}

// payload renders a stored cart with populated menu items and item-level
// totals.
func (a *CartAPI) payload(cart *cartdb.Cart) models.CartPayload {
	out := models.CartPayload{Items: []models.CartLinePayload{}}
	total := decimal.Zero
	count := 0
	for _, line := range cart.Lines {
		it, ok := a.menu.item(line.MenuItemID)
		if !ok {
			log.WithField("menu_item_id", line.MenuItemID).Warn("Stored line references an unknown menu item")
			continue
		}
		isVeg := it.IsVeg
		out.Items = append(out.Items, models.CartLinePayload{
			MenuItem: a.menu.itemRef(it),
			Quantity: line.Quantity,
			Price:    decimal.NewNullDecimal(it.Price),
			Addons:   line.Addons,
			IsVeg:    &isVeg,
			TempID:   line.TempID,
		})
		total = total.Add(money.LineTotal(it.Price, line.Addons, line.Quantity))
		count += line.Quantity
	}
	if cart.RestaurantID != "" && len(out.Items) > 0 {
		r := a.menu.restaurantRef(cart.RestaurantID)
		out.Restaurant = &r
	}
	out.TotalPrice = decimal.NewNullDecimal(total)
	out.TotalItems = &count
	return out
}

func (a *CartAPI) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, cartdb.ErrRestaurantMismatch):
		httpserver.Abort(c, http.StatusConflict, "Your cart contains items from another restaurant")
	case errors.Is(err, cartdb.ErrNotFound):
		httpserver.Abort(c, http.StatusNotFound, "Item is not in the cart")
	case errors.Is(err, cartdb.ErrInvalidQuantity):
		httpserver.Abort(c, http.StatusBadRequest, err.Error())
	default:
		log.WithField("operation", op).WithError(err).Error("Cart store failure")
		httpserver.Abort(c, http.StatusInternalServerError, "Failed to update cart")
	}
}
