package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/clients"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/httpserver"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/patterns"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/pricing"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/store"
)

const sessionKey = "session"

// circuit reports a downstream breaker state.
type circuit interface {
	CircuitState() string
}

// Storefront renders the cart store as JSON for the web client.
type Storefront struct {
	sessions *Sessions
	circuits map[string]circuit
	policy   pricing.Policy
	timeout  time.Duration
}

type cartView struct {
	State   string          `json:"state"`
	Cart    store.Snapshot  `json:"cart"`
	Summary pricing.Summary `json:"summary"`
	Lines   []pricing.Line  `json:"lines"`
	Notices []noticeView    `json:"notices,omitempty"`
}

type addItemRequest struct {
	Restaurant models.Ref     `json:"restaurant"`
	Item       models.Ref     `json:"item"`
	Quantity   int            `json:"quantity"`
	Addons     []models.Addon `json:"addons"`
	Confirmed  bool           `json:"confirmed"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type couponRequest struct {
	Code string `json:"code"`
}

func (f *Storefront) routes(router *gin.Engine) {
	router.GET("/circuit-status", f.circuitStatus)

	authed := router.Group("", httpserver.RequireBearer(), f.withSession)
	authed.POST("/session/logout", f.logout)

	cart := authed.Group("/cart")
	cart.GET("", f.getCart)
	cart.DELETE("", f.clearCart)
	cart.GET("/summary", f.summary)
	cart.POST("/items", f.addItem)
	cart.PATCH("/items/:itemId", f.updateItem)
	cart.DELETE("/items/:itemId", f.removeItem)
	cart.GET("/coupons", f.listCoupons)
	cart.POST("/coupon", f.applyCoupon)
	cart.DELETE("/coupon", f.removeCoupon)
}

// withSession carries the credential into the request context and attaches
// the caller's session.
func (f *Storefront) withSession(c *gin.Context) {
	ctx := clients.WithToken(c.Request.Context(), httpserver.BearerToken(c))
	ctx, cancel := patterns.WithTimeout(ctx, f.timeout)
	defer cancel()
	c.Request = c.Request.WithContext(ctx)

	sess, err := f.sessions.Get(ctx, httpserver.BearerToken(c))
	if err != nil {
		f.fail(c, err)
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func sessionOf(c *gin.Context) *session {
	return c.MustGet(sessionKey).(*session)
}

func (f *Storefront) view(sess *session) cartView {
	snap := sess.store.Snapshot()
	summary := pricing.SummarizeWith(f.policy, snap)
	return cartView{
		State:   snap.State().String(),
		Cart:    snap,
		Summary: summary,
		Lines:   summary.Lines(),
		Notices: sess.drain(),
	}
}

func (f *Storefront) getCart(c *gin.Context) {
	sess := sessionOf(c)
	if c.Query("refresh") == "true" {
		if err := sess.store.Refresh(c.Request.Context()); err != nil {
			f.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, f.view(sess))
}

func (f *Storefront) summary(c *gin.Context) {
	summary := pricing.SummarizeWith(f.policy, sessionOf(c).store.Snapshot())
	c.JSON(http.StatusOK, gin.H{"summary": summary, "lines": summary.Lines()})
}

func (f *Storefront) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpserver.Abort(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	sess := sessionOf(c)
	res, err := sess.store.AddItem(c.Request.Context(), store.AddItemInput{
		Restaurant: req.Restaurant,
		Item:       req.Item,
		Quantity:   req.Quantity,
		Addons:     req.Addons,
		Confirmed:  req.Confirmed,
	})
	if err != nil {
		f.fail(c, err)
		return
	}
	if res.Status == store.AddNeedsConfirmation {
		c.JSON(http.StatusConflict, gin.H{
			"confirmationRequired": true,
			"currentRestaurantId":  res.CurrentRestaurantID,
			"message":              "Your cart contains items from another restaurant. Replace them?",
		})
		return
	}
	c.JSON(http.StatusOK, f.view(sess))
}

func (f *Storefront) updateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpserver.Abort(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	sess := sessionOf(c)
	if err := sess.store.UpdateQuantity(c.Request.Context(), c.Param("itemId"), *req.Quantity); err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f.view(sess))
}

func (f *Storefront) removeItem(c *gin.Context) {
	sess := sessionOf(c)
	if err := sess.store.RemoveItem(c.Request.Context(), c.Param("itemId")); err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f.view(sess))
}

func (f *Storefront) clearCart(c *gin.Context) {
	sess := sessionOf(c)
	sess.store.ClearCart(c.Request.Context())
	c.JSON(http.StatusOK, f.view(sess))
}

func (f *Storefront) listCoupons(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"coupons": sessionOf(c).store.AvailableCoupons(c.Request.Context())})
}

func (f *Storefront) applyCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpserver.Abort(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	sess := sessionOf(c)
	outcome, err := sess.store.RedeemCoupon(c.Request.Context(), req.Code)
	switch {
	case clients.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"coupon": outcome, "error": outcome.Message})
	case err != nil:
		f.fail(c, err)
	case !outcome.Valid:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"coupon": outcome, "cart": f.view(sess)})
	default:
		c.JSON(http.StatusOK, gin.H{"coupon": outcome, "cart": f.view(sess)})
	}
}

func (f *Storefront) removeCoupon(c *gin.Context) {
	sess := sessionOf(c)
	sess.store.RemoveCoupon()
	c.JSON(http.StatusOK, f.view(sess))
}

func (f *Storefront) logout(c *gin.Context) {
	f.sessions.End(httpserver.BearerToken(c))
	c.Status(http.StatusNoContent)
}

func (f *Storefront) circuitStatus(c *gin.Context) {
	out := gin.H{}
	for name, cb := range f.circuits {
		out[name+"_circuit"] = cb.CircuitState()
	}
	c.JSON(http.StatusOK, out)
}

// fail maps store and client errors onto HTTP statuses. An auth failure ends
// the session.
func (f *Storefront) fail(c *gin.Context, err error) {
	entry := log.WithError(err).WithField("path", c.FullPath())
	switch {
	case errors.Is(err, store.ErrItemNotInCart):
		httpserver.Abort(c, http.StatusNotFound, clients.Message(err, "Item is not in the cart"))
	case clients.IsValidation(err):
		httpserver.Abort(c, http.StatusBadRequest, clients.Message(err, "Invalid request"))
	case clients.IsAuth(err):
		f.sessions.End(httpserver.BearerToken(c))
		httpserver.Abort(c, http.StatusUnauthorized, "Please sign in again")
	case errors.Is(err, patterns.ErrBulkheadFull), errors.Is(err, context.DeadlineExceeded):
		entry.Warn("Cart request did not start in time")
		httpserver.Abort(c, http.StatusServiceUnavailable, "The cart is busy, please retry")
	default:
		entry.Warn("Cart request failed")
		httpserver.Abort(c, http.StatusServiceUnavailable, "We could not reach the cart, please retry")
	}
}
