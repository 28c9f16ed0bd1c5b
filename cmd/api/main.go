package main

//go:generate swag init -g main.go -d ./,../../internal/handler,../../internal/service,../../pkg/response -o ../../api/swagger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"workshop/internal/config"
	"workshop/internal/database"
	"workshop/internal/events"
	"workshop/internal/gateway"
	"workshop/internal/gateway/leanx"
	"workshop/internal/handler"
	"workshop/internal/logger"
	"workshop/internal/middleware"
	"workshop/internal/repository"
	"workshop/internal/service"
	"workshop/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Workshop Billing API
// @version         1.0
// @description     Repair invoices, payment links and gateway reconciliation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.New("configs/.env")
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	appLog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer func() { _ = appLog.Sync() }()

	if err := run(cfg, appLog); err != nil {
		appLog.Fatalw("server stopped with error", "error", err)
	}
}

func run(cfg config.Config, appLog *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.Postgres.DSN(), appLog)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	appLog.Infow("connected to PostgreSQL", "host", cfg.Postgres.Host, "db", cfg.Postgres.Name)

	feed, err := events.New(cfg.Events, appLog)
	if err != nil {
		return fmt.Errorf("invoice feed: %w", err)
	}
	defer func() { _ = feed.Close() }()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(appLog.With("component", "websocket"))
	go wsHub.Run(ctx)
	if err := wsHub.Forward(ctx, feed); err != nil {
		return err
	}

	gw := gateway.NewCachedStatus(leanx.NewClient(cfg.Gateway), cfg.Gateway.StatusCacheTTL)
	if cfg.Gateway.AuthToken == "" {
		appLog.Warnw("LEANX_AUTH_TOKEN is empty, payment links will fall back to demo links")
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	invoiceService := service.NewInvoiceService(invoiceRepo, auditRepo, txManager, feed, appLog.With("component", "invoices"))
	paymentService := service.NewPaymentService(invoiceRepo, auditRepo, txManager, gw, feed, cfg.HTTP.PublicBaseURL, appLog.With("component", "payments"))
	receiptService := service.NewReceiptService(invoiceRepo, auditRepo, txManager, gw, feed, cfg.HTTP.PublicBaseURL, cfg.Receipt.RedirectDelay, appLog.With("component", "receipt"))
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(invoiceRepo)

	auth := middleware.NewAuth(cfg.JWT.Secret)

	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewInvoiceHandler(invoiceService, auth),
		handler.NewPaymentHandler(paymentService, auth),
		handler.NewReceiptHandler(receiptService),
		handler.NewWebhookHandler(receiptService, cfg.Gateway.WebhookSecret),
		handler.NewAuditHandler(auditService, auth),
		handler.NewStatisticsHandler(statisticsService, auth),
	}

	gin.SetMode(cfg.HTTP.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(appLog.With("component", "http")))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth)
	})

	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Infow("server listening", "addr", srv.Addr, "mode", cfg.HTTP.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLog.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
