package main

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/clients"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/config"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/httpserver"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/pricing"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/store"
)

const serviceName = "storefront-service"

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	cfg, err := config.Load(":8080")
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	cfg.ConfigureLogging()

	opts := clients.Options{
		Timeout:      cfg.RequestTimeout,
		BulkheadSize: cfg.BulkheadSize,
		BulkheadWait: cfg.BulkheadWait,
		Service:      serviceName,
	}
	cartOpts, couponOpts := opts, opts
	cartOpts.BaseURL = cfg.CartServiceURL
	couponOpts.BaseURL = cfg.CouponServiceURL
	cartClient := clients.NewCartClient(cartOpts)
	couponClient := clients.NewCouponClient(couponOpts)

	logger := log.WithField("service", serviceName)
	sessions, err := NewSessions(cfg.SessionCacheSize, func(notify store.Notifier) *store.Store {
		return store.New(cartClient, couponClient,
			store.WithLogger(logger),
			store.WithNotifier(notify),
			store.WithMutationWait(cfg.MutationWait),
		)
	})
	if err != nil {
		log.Fatal("Failed to create session cache: ", err)
	}
	defer sessions.Purge()

	front := &Storefront{
		sessions: sessions,
		circuits: map[string]circuit{"cart": cartClient, "coupon": couponClient},
		policy:   pricing.DefaultPolicy,
		timeout:  cfg.MutationWait + cfg.RequestTimeout,
	}

	log.WithFields(log.Fields{
		"cart_service":   cfg.CartServiceURL,
		"coupon_service": cfg.CouponServiceURL,
	}).Info("Downstream services configured")
	if err := httpserver.Run(cfg.HTTPAddr, serviceName, newRouter(front, cfg.CORSOrigins)); err != nil {
		log.Fatal("Server stopped: ", err)
	}
}

func newRouter(front *Storefront, origins []string) *gin.Engine {
	router := httpserver.NewRouter(serviceName)
	router.Use(cors.New(corsConfig(origins)))
	front.routes(router)
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	cfg.ExposeHeaders = []string{"X-Request-ID"}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
