package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/jordanlanch/restoplan/pkg/api/middleware"
	"github.com/jordanlanch/restoplan/pkg/auth"
	"github.com/jordanlanch/restoplan/pkg/billing"
	"github.com/jordanlanch/restoplan/pkg/cache"
	"github.com/jordanlanch/restoplan/pkg/entitlement"
	"github.com/jordanlanch/restoplan/pkg/gate"
	"github.com/jordanlanch/restoplan/pkg/logger"
	"github.com/jordanlanch/restoplan/pkg/plans"
	"github.com/jordanlanch/restoplan/pkg/store"
	"github.com/jordanlanch/restoplan/pkg/store/memstore"
	"github.com/jordanlanch/restoplan/pkg/subscription"
	"github.com/jordanlanch/restoplan/pkg/usage"
)

const (
	testJWTSecret     = "handlers-test-secret"
	testWebhookSecret = "whsec_handlers"
	testFrontendURL   = "https://app.restoplan.io"
)

type stubProvider struct {
	checkouts int
	portals   int
}

func (p *stubProvider) NewCheckoutSession(context.Context, billing.CheckoutParams) (*billing.CheckoutSession, error) {
	p.checkouts++
	return &billing.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (p *stubProvider) NewPortalSession(context.Context, string, string) (string, error) {
	p.portals++
	return "https://billing.stripe.com/p/session/test_1", nil
}

func (p *stubProvider) GetSubscription(context.Context, string) (*stripe.Subscription, error) {
	return nil, fmt.Errorf("not used")
}

// brokenStore fails every billing write.
type brokenStore struct {
	store.UserStore
}

func (brokenStore) UpdateBilling(context.Context, string, store.MutateFunc) (*subscription.User, error) {
	return nil, fmt.Errorf("firestore: deadline exceeded")
}

type testServer struct {
	e        *echo.Echo
	users    *memstore.Store
	provider *stubProvider
	redis    *miniredis.Miniredis
}

type serverOptions struct {
	webhookSecret string
	userStore     store.UserStore
}

func newTestServer(t *testing.T, opts serverOptions, users ...*subscription.User) *testServer {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	redisClient := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() {
		redisClient.Close()
		mr.Close()
	})

	mem := memstore.New()
	for _, u := range users {
		mem.Put(u)
	}
	var userStore store.UserStore = mem
	if opts.userStore != nil {
		userStore = opts.userStore
	}

	log := logger.Nop()
	catalog := plans.NewCatalog(map[plans.ID]string{plans.Pro: "price_pro", plans.Business: "price_business"})
	provider := &stubProvider{}
	tracker := usage.NewTracker(redisClient)

	projector := billing.NewProjector(userStore, nil, log)
	webhooks := billing.NewWebhookService(
		billing.NewVerifier(opts.webhookSecret, 0),
		billing.NewDispatcher(projector, log),
		cache.NewEventLog(redisClient),
		nil,
		log,
	)
	sessions := billing.NewSessionIssuer(billing.IssuerConfig{
		Provider:  provider,
		Users:     mem,
		Catalog:   catalog,
		Redirects: billing.NewRedirectPolicy(testFrontendURL, nil),
		Logger:    log,
	})
	ents := entitlement.NewService(mem, tracker, catalog, log)

	billingHandler := NewBillingHandler(webhooks, sessions, catalog)
	featureGate := gate.New(testFrontendURL)
	entHandler := NewEntitlementHandler(ents, featureGate, tracker, nil)
	healthHandler := NewHealthHandler(map[string]Checker{
		"redis": func(ctx context.Context) error { return redisClient.Redis.Ping(ctx).Err() },
	})

	verifier := auth.NewJWTVerifier(testJWTSecret)
	e := echo.New()
	e.GET("/health", healthHandler.Health)

	v1 := e.Group("/api/v1")
	v1.POST("/webhook/stripe", billingHandler.HandleWebhook)
	v1.GET("/billing/pricing", billingHandler.GetPricing)

	rpc := v1.Group("/rpc", middleware.Authenticate(verifier, log))
	rpc.POST("/createCheckoutSession", billingHandler.CreateCheckoutSession)
	rpc.POST("/createCustomerPortalSession", billingHandler.CreateCustomerPortalSession)

	protected := v1.Group("", middleware.RequireAuth(verifier))
	protected.GET("/billing/entitlements", entHandler.GetEntitlements)
	protected.POST("/gate/check", entHandler.CheckGate)
	protected.POST("/usage/:counter/consume", entHandler.ConsumeUsage,
		featureGate.RequireFeatureParam(ents, "counter", usage.IsMetered))

	return &testServer{e: e, users: mem, provider: provider, redis: mr}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, uid string) map[string]string {
	t.Helper()
	token, err := auth.GenerateJWT(uid, uid+"@bistro.example", testJWTSecret, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func stripeSignature(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts.Unix())))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func proUser(id string) *subscription.User {
	end := time.Now().Add(10 * 24 * time.Hour)
	return &subscription.User{
		ID:               id,
		Email:            id + "@bistro.example",
		StripeCustomerID: "cus_" + id,
		Subscription: &subscription.Record{
			Status:               subscription.StatusActive,
			Plan:                 "price_pro",
			CurrentPeriodEnd:     &end,
			StripeCustomerID:     "cus_" + id,
			StripeSubscriptionID: "sub_" + id,
		},
	}
}

