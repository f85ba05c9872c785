package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/clients"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/config"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/httpserver"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
)

const serviceName = "coupon-service"

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	cfg, err := config.Load(":8082")
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	cfg.ConfigureLogging()

	book := NewCouponBook(time.Now, seedCoupons(time.Now())...)
	chaos := httpserver.NewChaos(serviceName, 0.4, 5*time.Second, 10*time.Second)

	if err := httpserver.Run(cfg.HTTPAddr, serviceName, newRouter(book, chaos)); err != nil {
		log.Fatal("Server stopped: ", err)
	}
}

func newRouter(book *CouponBook, chaos *httpserver.Chaos) *gin.Engine {
	router := httpserver.NewRouter(serviceName)
	chaos.Register(router.Group("/chaos/coupon"))

	coupons := router.Group("/coupons", httpserver.RequireBearer(), chaos.Middleware())
	coupons.GET("/applicable", listApplicable(book))
	coupons.POST("/validate", validateCoupon(book))
	return router
}

func listApplicable(book *CouponBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		restaurantID := c.Query("restaurantId")
		if restaurantID == "" {
			httpserver.Abort(c, http.StatusBadRequest, "restaurantId is required")
			return
		}
		c.JSON(http.StatusOK, gin.H{"coupons": book.Applicable(restaurantID)})
	}
}

func validateCoupon(book *CouponBook) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ValidateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ValidateCouponResponse{
				Discount: decimal.Zero,
				Message:  "Invalid request: " + err.Error(),
			})
			return
		}
		code := clients.NormalizeCode(req.Code)

		coupon, ok := book.Lookup(code)
		if !ok {
			c.JSON(http.StatusNotFound, models.ValidateCouponResponse{Discount: decimal.Zero, Message: "Coupon not found"})
			return
		}

		discount, msg, valid := book.Price(coupon, req.CartTotal, req.RestaurantID)
		entry := log.WithFields(log.Fields{
			"code":       code,
			"restaurant": req.RestaurantID,
			"cart_total": req.CartTotal.String(),
			"discount":   discount.String(),
		})
		if !valid {
			entry.WithField("reason", msg).Info("Coupon rejected")
			c.JSON(http.StatusBadRequest, models.ValidateCouponResponse{Discount: decimal.Zero, Message: msg})
			return
		}

		entry.Info("Coupon validated")
		c.JSON(http.StatusOK, models.ValidateCouponResponse{Valid: true, Discount: discount, Message: msg})
	}
}
