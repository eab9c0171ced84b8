package billingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jordanlanch/restoplan/pkg/domain"
	"github.com/jordanlanch/restoplan/pkg/models"
)

const defaultTimeout = 15 * time.Second

// ErrServiceUnavailable is returned when the billing backend cannot be reached.
var ErrServiceUnavailable = errors.New("billing is temporarily unavailable, please try again in a few minutes")

// RPCError is a genuine rejection returned by the billing backend.
type RPCError struct {
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	return friendlyMessage(e.Code, e.Message)
}

// Client calls the billing RPC endpoints on behalf of a signed-in user.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the API at baseURL, authenticating with the given ID token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// CreateCheckoutSession starts a hosted checkout and returns its session.
func (c *Client) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	var out models.CheckoutResponse
	if err := c.call(ctx, "createCheckoutSession", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCustomerPortalSession returns the URL of the hosted billing portal.
func (c *Client) CreateCustomerPortalSession(ctx context.Context, req models.PortalRequest) (*models.CustomerPortalResponse, error) {
	var out models.CustomerPortalResponse
	if err := c.call(ctx, "createCustomerPortalSession", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsServiceUnavailable reports whether err means the backend was unreachable
// rather than a denial.
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

type envelope struct {
	Result json.RawMessage       `json:"result"`
	Error  *models.CallableError `json:"error"`
}

func (c *Client) call(ctx context.Context, name string, data, out interface{}) error {
	payload, err := json.Marshal(models.CallableRequest[interface{}]{Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/rpc/"+name, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// A proxy error page or similar; the backend function never answered.
		return fmt.Errorf("%w: unexpected response (status %d)", ErrServiceUnavailable, resp.StatusCode)
	}

	if env.Error != nil {
		if env.Error.Code == domain.ErrCodeUnavailable {
			return fmt.Errorf("%w: %s", ErrServiceUnavailable, env.Error.Message)
		}
		return &RPCError{Code: env.Error.Code, Message: env.Error.Message}
	}
	if resp.StatusCode >= http.StatusBadRequest || len(env.Result) == 0 {
		return &RPCError{Code: domain.ErrCodeInternal}
	}

	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

func friendlyMessage(code, message string) string {
	switch code {
	case domain.ErrCodeUnauthenticated:
		return "Please sign in again to manage your subscription."
	case domain.ErrCodePermissionDenied:
		return "You can only manage billing for your own account."
	case domain.ErrCodeNotFound:
		return "No billing account was found. Subscribe to a plan first."
	case domain.ErrCodeDeadlineExceeded:
		return "The payment provider took too long to respond. Please try again."
	case domain.ErrCodeInvalidArgument, domain.ErrCodeFailedPrecondition:
		if message != "" {
			return message
		}
		return "The request could not be processed."
	default:
		return "Something went wrong with billing. Please try again later."
	}
}
