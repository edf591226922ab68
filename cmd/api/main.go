package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/safar/go-checkout-core/internal/api"
	"github.com/safar/go-checkout-core/internal/checkout"
	"github.com/safar/go-checkout-core/internal/config"
	"github.com/safar/go-checkout-core/internal/database"
	"github.com/safar/go-checkout-core/internal/gateway"
	"github.com/safar/go-checkout-core/internal/middlewares"
	"github.com/safar/go-checkout-core/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	var notifier checkout.Notifier
	publisher, err := notify.NewPublisher(&cfg.AMQP)
	if err != nil {
		// Notifications are best-effort; the pipeline runs without them.
		log.Printf("AMQP unavailable, notifications disabled: %v", err)
	} else {
		defer publisher.Close()
		notifier = publisher
	}

	svc := &checkout.Service{
		DB:       db,
		Gateway:  gateway.NewHTTPClient(&cfg.Gateway),
		Notifier: notifier,
		Config:   cfg,
	}

	handler := &api.Handler{
		Service: svc,
		Limiter: checkout.NewRateLimiter(cfg.Checkout.RateLimitWindow, cfg.Checkout.RateLimitMax),
		Guard:   checkout.NewCSRFGuard(cfg.Checkout.CSRFSecret),
	}

	r := gin.Default()
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/checkout/session", handler.CreateCheckoutSession)
	r.POST("/api/checkout/finalize", handler.FinalizeOrder)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
