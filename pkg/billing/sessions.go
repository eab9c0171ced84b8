package billing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jordanlanch/restoplan/pkg/auth"
	"github.com/jordanlanch/restoplan/pkg/domain"
	"github.com/jordanlanch/restoplan/pkg/logger"
	"github.com/jordanlanch/restoplan/pkg/models"
	"github.com/jordanlanch/restoplan/pkg/plans"
	"github.com/jordanlanch/restoplan/pkg/store"
	"github.com/jordanlanch/restoplan/pkg/subscription"
)

// DefaultProviderTimeout bounds each call to the billing provider.
const DefaultProviderTimeout = 10 * time.Second

// Frontend paths used when the caller does not supply redirect URLs.
const (
	checkoutSuccessPath = "/dashboard?checkout=success"
	checkoutCancelPath  = "/pricing?checkout=canceled"
	portalReturnPath    = "/dashboard/billing"
)

// UserReader loads user documents.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (*subscription.User, error)
}

// SessionIssuer mints checkout and portal sessions for the authenticated caller.
type SessionIssuer struct {
	provider  BillingProvider
	users     UserReader
	catalog   *plans.Catalog
	redirects *RedirectPolicy
	timeout   time.Duration
	validate  *validator.Validate
	metrics   Recorder
	logger    logger.Logger
}

// IssuerConfig holds the SessionIssuer dependencies.
type IssuerConfig struct {
	Provider  BillingProvider
	Users     UserReader
	Catalog   *plans.Catalog
	Redirects *RedirectPolicy
	Timeout   time.Duration
	Metrics   Recorder
	Logger    logger.Logger
}

// NewSessionIssuer creates a session issuer.
func NewSessionIssuer(cfg IssuerConfig) *SessionIssuer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProviderTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopRecorder{}
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &SessionIssuer{
		provider:  cfg.Provider,
		users:     cfg.Users,
		catalog:   cfg.Catalog,
		redirects: cfg.Redirects,
		timeout:   cfg.Timeout,
		validate:  v,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

func (s *SessionIssuer) invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewInvalidArgumentError("Invalid request data")
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return domain.NewInvalidArgumentError(fmt.Sprintf("Missing or invalid fields: %s", strings.Join(fields, ", ")))
}

// providerError classifies a failed provider call. Timeouts are retryable.
func (s *SessionIssuer) providerError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewDeadlineExceededError(err)
	}
	return domain.NewInternalError(err)
}

// CreateCheckoutSession starts a subscription checkout for the caller's own account.
func (s *SessionIssuer) CreateCheckoutSession(ctx context.Context, caller *auth.Caller, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if caller == nil {
		return nil, domain.NewUnauthenticatedError()
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, s.invalid(err)
	}
	if req.UserID != caller.UID {
		return nil, domain.NewPermissionDeniedError("You can only start a checkout for your own account")
	}

	plan, ok := s.catalog.ByPriceID(req.PriceID)
	if !ok || !plan.IsPaid() {
		return nil, domain.NewInvalidArgumentError("Unknown plan price")
	}

	var customerID string
	u, err := s.users.GetUser(ctx, req.UserID)
	switch {
	case err == nil:
		customerID = u.CustomerID()
	case errors.Is(err, store.ErrUserNotFound):
		// First purchase before the profile document exists; Stripe creates the customer.
	default:
		return nil, domain.NewInternalError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := logger.FromContext(ctx, s.logger)
	sess, err := s.provider.NewCheckoutSession(ctx, CheckoutParams{
		PriceID:       plan.PriceID,
		UserID:        req.UserID,
		CustomerID:    customerID,
		CustomerEmail: req.UserEmail,
		SuccessURL:    s.redirects.Sanitize(req.SuccessURL, s.redirects.Default(checkoutSuccessPath)),
		CancelURL:     s.redirects.Sanitize(req.CancelURL, s.redirects.Default(checkoutCancelPath)),
	})
	if err != nil {
		log.Error("checkout session failed", "user_id", req.UserID, "plan", plan.ID, "error", err)
		s.metrics.RecordSession("checkout", "error")
		return nil, s.providerError(ctx, err)
	}

	log.Info("checkout session created", "user_id", req.UserID, "plan", plan.ID, "session_id", sess.ID)
	s.metrics.RecordSession("checkout", "created")
	return &models.CheckoutResponse{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreateCustomerPortalSession opens the self-service billing portal for the
// caller's stored Stripe customer.
func (s *SessionIssuer) CreateCustomerPortalSession(ctx context.Context, caller *auth.Caller, req models.PortalRequest) (*models.CustomerPortalResponse, error) {
	if caller == nil {
		return nil, domain.NewUnauthenticatedError()
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, s.invalid(err)
	}
	if req.UserID != caller.UID {
		return nil, domain.NewPermissionDeniedError("You can only manage billing for your own account")
	}

	u, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domain.NewNotFoundError("User")
		}
		return nil, domain.NewInternalError(err)
	}

	customerID := u.CustomerID()
	if customerID == "" {
		return nil, domain.NewNotFoundError("Billing account")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url, err := s.provider.NewPortalSession(ctx, customerID, s.redirects.Sanitize(req.ReturnURL, s.redirects.Default(portalReturnPath)))
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("portal session failed", "user_id", req.UserID, "error", err)
		s.metrics.RecordSession("portal", "error")
		return nil, s.providerError(ctx, err)
	}

	s.metrics.RecordSession("portal", "created")
	return &models.CustomerPortalResponse{URL: url}, nil
}
