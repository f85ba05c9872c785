package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/cartdb"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/config"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/httpserver"
)

const serviceName = "cart-service"

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	cfg, err := config.Load(":8081")
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	cfg.ConfigureLogging()

	db, err := cartdb.Open(cfg.CartDBPath)
	if err != nil {
		log.Fatal("Failed to open cart database: ", err)
	}
	defer db.Close()
	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal("Failed to migrate cart database: ", err)
	}

	chaos := httpserver.NewChaos(serviceName, 0.3, 2*time.Second, 5*time.Second)
	router := newRouter(&CartAPI{db: db, menu: seedCatalog()}, chaos)

	log.WithField("db", cfg.CartDBPath).Info("Cart database ready")
	if err := httpserver.Run(cfg.HTTPAddr, serviceName, router); err != nil {
		log.Fatal("Server stopped: ", err)
	}
}

func newRouter(api *CartAPI, chaos *httpserver.Chaos) *gin.Engine {
	router := httpserver.NewRouter(serviceName)
	chaos.Register(router.Group("/chaos/cart"))
	router.GET("/ready", api.ready)
	router.GET("/menu", api.listMenu)

	cart := router.Group("/cart", httpserver.RequireBearer(), chaos.Middleware())
	api.routes(cart)
	return router
}
