package main

// @title RestoPlan Billing API
// @version 1.0
// @description Subscriptions, entitlements and feature gating for RestoPlan.

// @contact.name API Support
// @contact.email support@restoplan.app

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a Firebase ID token.

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	"github.com/jordanlanch/restoplan/config"
	"github.com/jordanlanch/restoplan/pkg/api/handlers"
	custommw "github.com/jordanlanch/restoplan/pkg/api/middleware"
	"github.com/jordanlanch/restoplan/pkg/auth"
	"github.com/jordanlanch/restoplan/pkg/billing"
	"github.com/jordanlanch/restoplan/pkg/cache"
	"github.com/jordanlanch/restoplan/pkg/email"
	"github.com/jordanlanch/restoplan/pkg/entitlement"
	"github.com/jordanlanch/restoplan/pkg/gate"
	"github.com/jordanlanch/restoplan/pkg/jobs"
	"github.com/jordanlanch/restoplan/pkg/logger"
	"github.com/jordanlanch/restoplan/pkg/metrics"
	custommiddleware "github.com/jordanlanch/restoplan/pkg/middleware"
	"github.com/jordanlanch/restoplan/pkg/plans"
	"github.com/jordanlanch/restoplan/pkg/store"
	firestorestore "github.com/jordanlanch/restoplan/pkg/store/firestore"
	"github.com/jordanlanch/restoplan/pkg/store/memstore"
	"github.com/jordanlanch/restoplan/pkg/usage"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	appLogger := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	ctx := context.Background()

	// Initialize Firebase (auth and Firestore share one app)
	var app *firebase.App
	if cfg.StoreBackend != "memory" || cfg.AuthMode != "jwt" {
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		var err error
		app, err = firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Firebase: %v", err)
		}
		log.Printf("✅ Firebase initialized (project: %s)", cfg.FirebaseProjectID)
	}

	// User store
	var users store.UserStore
	var firestoreClient *gcfirestore.Client
	var firestoreStore *firestorestore.Store
	switch cfg.StoreBackend {
	case "memory":
		users = memstore.New()
		log.Printf("⚠️  Using in-memory user store (data is lost on restart)")
	default:
		var err error
		firestoreClient, err = app.Firestore(ctx)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Firestore: %v", err)
		}
		defer firestoreClient.Close()
		firestoreStore = firestorestore.New(firestoreClient)
		users = firestoreStore
		log.Printf("✅ Firestore user store initialized")
	}

	// Token verification
	var verifier auth.TokenVerifier
	switch cfg.AuthMode {
	case "jwt":
		verifier = auth.NewJWTVerifier(cfg.JWTSecret)
		log.Printf("⚠️  Using shared-secret JWT verification (AUTH_MODE=jwt)")
	default:
		authClient, err := app.Auth(ctx)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Firebase Auth: %v", err)
		}
		verifier = auth.NewFirebaseVerifier(authClient)
		log.Printf("✅ Firebase ID token verification enabled")
	}

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Initialize email service
	emailService := email.NewService(cfg.EmailFrom, cfg.EmailFromName, cfg.SendGridAPIKey, appLogger)
	notifier := billing.NewEmailNotifier(billing.NewEmailServiceAdapter(emailService), cfg.FrontendURL, appLogger)

	// Billing core
	catalog := plans.NewCatalog(map[plans.ID]string{
		plans.Pro:      cfg.StripePricePro,
		plans.Business: cfg.StripePriceBusiness,
	})
	stripeProvider := billing.NewStripeProvider(cfg.StripeSecretKey)
	if cfg.StripeSecretKey == "" {
		log.Printf("⚠️  STRIPE_SECRET_KEY not set, checkout and portal sessions will fail")
	}
	if cfg.StripeWebhookSecret == "" {
		log.Printf("⚠️  STRIPE_WEBHOOK_SECRET not set, webhook deliveries will be rejected")
	}

	projector := billing.NewProjector(users, notifier, appLogger)
	webhookService := billing.NewWebhookService(
		billing.NewVerifier(cfg.StripeWebhookSecret, 0),
		billing.NewDispatcher(projector, appLogger),
		cache.NewEventLog(redisClient),
		prometheusMetrics,
		appLogger,
	)
	sessionIssuer := billing.NewSessionIssuer(billing.IssuerConfig{
		Provider:  stripeProvider,
		Users:     users,
		Catalog:   catalog,
		Redirects: billing.NewRedirectPolicy(cfg.FrontendURL, cfg.AllowedRedirectHosts),
		Timeout:   cfg.StripeTimeout,
		Metrics:   prometheusMetrics,
		Logger:    appLogger,
	})

	tracker := usage.NewTracker(redisClient)
	entitlementService := entitlement.NewService(users, tracker, catalog, appLogger)
	featureGate := gate.New(cfg.FrontendURL)

	// Initialize handlers
	billingHandler := handlers.NewBillingHandler(webhookService, sessionIssuer, catalog)
	entitlementHandler := handlers.NewEntitlementHandler(entitlementService, featureGate, tracker, prometheusMetrics)
	checks := map[string]handlers.Checker{
		"redis": func(ctx context.Context) error { return redisClient.Redis.Ping(ctx).Err() },
	}
	if firestoreStore != nil {
		checks["firestore"] = firestoreStore.Ping
	}
	healthHandler := handlers.NewHealthHandler(checks)

	// Reconciliation job
	var cronManager *jobs.CronManager
	if cfg.ReconcileEnabled && cfg.StripeSecretKey != "" {
		reconciler := jobs.NewReconciler(users, stripeProvider, projector, prometheusMetrics, appLogger)
		cronManager = jobs.NewCronManager(reconciler, log.Default())
		if err := cronManager.SetupJobs(cfg.ReconcileSchedule); err != nil {
			log.Fatalf("❌ Failed to setup cron jobs: %v", err)
		}
		cronManager.Start()
		log.Printf("✅ Subscription reconciliation scheduled (%s)", cfg.ReconcileSchedule)
	} else {
		log.Printf("ℹ️  Subscription reconciliation disabled")
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Initialize rate limiters
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	webhookRateLimiter := custommiddleware.NewRateLimiter(cfg.WebhookRateLimitPerMinute, 20)
	defer globalRateLimiter.Stop()
	defer webhookRateLimiter.Stop()

	// Global middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(custommiddleware.RequestLogger(appLogger))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogError:     true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			appLogger.Info("request",
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
				"request_id", v.RequestID,
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Sentry error tracking middleware (if configured)
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.FrontendURL)))
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.DefaultSecurityHeadersConfig()))

	// Public endpoints
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "RestoPlan Billing API",
			"version":     "1.0.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})
	e.GET("/health", healthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	// Stripe webhook: raw body, own rate limit, no auth
	v1.POST("/webhook/stripe", billingHandler.HandleWebhook, webhookRateLimiter.RateLimitMiddleware())

	api := v1.Group("", globalRateLimiter.RateLimitMiddleware())
	api.GET("/billing/pricing", billingHandler.GetPricing)

	// RPC endpoints report auth failures in the callable envelope
	rpc := api.Group("/rpc", custommw.Authenticate(verifier, appLogger))
	rpc.POST("/createCheckoutSession", billingHandler.CreateCheckoutSession)
	rpc.POST("/createCustomerPortalSession", billingHandler.CreateCustomerPortalSession)

	protected := api.Group("", custommw.RequireAuth(verifier))
	protected.GET("/billing/entitlements", entitlementHandler.GetEntitlements)
	protected.POST("/gate/check", entitlementHandler.CheckGate)
	protected.POST("/usage/:counter/consume", entitlementHandler.ConsumeUsage,
		featureGate.RequireFeatureParam(entitlementService, "counter", usage.IsMetered))

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	go func() {
		log.Printf("🚀 Server starting on %s", address)
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	if cronManager != nil {
		cronManager.Stop()
		log.Println("✅ Cron jobs stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
