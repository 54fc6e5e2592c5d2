package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	addressapp "github.com/storefront/checkout/internal/application/address"
	cartapp "github.com/storefront/checkout/internal/application/cart"
	catalogapp "github.com/storefront/checkout/internal/application/catalog"
	"github.com/storefront/checkout/internal/application/checkout"
	"github.com/storefront/checkout/internal/domain/pricing"
	"github.com/storefront/checkout/internal/infrastructure/auth"
	"github.com/storefront/checkout/internal/infrastructure/cache"
	"github.com/storefront/checkout/internal/infrastructure/config"
	"github.com/storefront/checkout/internal/infrastructure/logger"
	"github.com/storefront/checkout/internal/infrastructure/remote"
	"github.com/storefront/checkout/internal/infrastructure/telemetry"
	"github.com/storefront/checkout/internal/interfaces/http/handler"
	"github.com/storefront/checkout/internal/interfaces/http/middleware"
	"github.com/storefront/checkout/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront checkout",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)
	if cfg.Remote.BaseURL == "" {
		log.Warn("remote.base_url is not set; every backend call will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	metrics := telemetry.NewMetrics()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracerConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Remote collaborators
	clientOpts := []remote.Option{
		remote.WithMetrics(metrics),
		remote.WithTracer(tracerProvider.Tracer("storefront/remote")),
		remote.WithLogger(log.Named("remote")),
	}
	remoteCfg := remote.Config{
		BaseURL:        cfg.Remote.BaseURL,
		Timeout:        cfg.Remote.Timeout,
		MaxRetries:     cfg.Remote.MaxRetries,
		RetryDelay:     cfg.Remote.RetryDelay,
		MaxDelay:       cfg.Remote.MaxDelay,
		RateLimitQPS:   cfg.Remote.RateLimitQPS,
		RateLimitBurst: cfg.Remote.RateLimitBurst,
		UserAgent:      cfg.Remote.UserAgent,
	}
	storefront := remote.NewStorefront(remote.NewClient(remoteCfg, clientOpts...))
	regionCfg := remoteCfg
	regionCfg.BaseURL = cfg.Remote.RegionBaseURL
	regions := remote.NewRegions(remote.NewClient(regionCfg, clientOpts...))

	// Payment handoff store
	handoffs, err := cache.NewHandoffStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create handoff store", zap.Error(err))
	}
	defer func() {
		if err := handoffs.Close(); err != nil {
			log.Error("Error closing handoff store", zap.Error(err))
		}
	}()

	// Application services
	engine := pricing.NewEngine(pricing.Adjustments{
		Discount: cfg.Pricing.Discount,
		Shipping: cfg.Pricing.Shipping,
		Tax:      cfg.Pricing.Tax,
	})
	sessionLog := log.Named("checkout")
	registry := checkout.NewRegistry(func() *checkout.Workspace {
		return &checkout.Workspace{
			Session: checkout.NewSession(
				cartapp.NewStore(storefront, sessionLog),
				addressapp.NewBook(storefront, regions, sessionLog),
				engine,
				handoffs,
				checkout.Options{HandoffTTL: cfg.Checkout.HandoffTTL},
				sessionLog,
			),
			MiniCart: cartapp.NewStore(cartapp.SourceFunc(storefront.FetchMiniCart), sessionLog),
		}
	}, sessionLog,
		checkout.WithIdleTTL(cfg.Checkout.SessionIdleTTL),
		checkout.WithSizeObserver(metrics.SetSessions),
	)
	go registry.Run(ctx, time.Minute)

	catalogService := catalogapp.NewService(storefront, log.Named("catalog"))
	inspector := auth.NewInspector(cfg.Auth.Secret, cfg.Auth.Issuer)
	if !inspector.Verifies() {
		log.Warn("auth.secret is not set; bearer tokens are not signature-checked and shoppers are keyed by token")
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	httpEngine := gin.New()
	httpEngine.Use(logger.Recovery(log))
	httpEngine.Use(logger.GinMiddleware(log))
	httpEngine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, tracerProvider.IsEnabled()))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	httpEngine.Use(middleware.CORS(corsConfig))
	httpEngine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	routes := router.Mount(httpEngine, router.Handlers{
		Cart:     handler.NewCartHandler(registry, cfg.Checkout.PreviewLimit),
		Checkout: handler.NewCheckoutHandler(registry, handoffs, cfg.Checkout.HandoffTTL, metrics),
		Session:  handler.NewSessionHandler(registry),
		Catalog:  handler.NewCatalogHandler(catalogService),
		Health:   handler.NewHealthHandler(version),
		Metrics:  metrics.Handler(),
	},
		middleware.Auth(inspector, log),
		middleware.TraceUser(),
	)
	log.Info("Shopper API mounted", zap.Int("routes", len(routes)))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        httpEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}
