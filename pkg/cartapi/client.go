package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/ikkim/storefront/pkg/credential"
	"github.com/ikkim/storefront/pkg/logger"
)

const (
	pathCart     = "/api/cart"
	pathAdd      = "/api/cart/add"
	pathRemove   = "/api/cart/remove"
	pathLogin    = "/api/auth/login"
	pathLogout   = "/api/auth/logout"
	pathProducts = "/api/products"

	// RequestIDHeader correlates a client operation with server logs
	RequestIDHeader = "X-Request-ID"
)

type requestIDKey struct{}

// WithRequestID makes the next request carry id in X-Request-ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client represents a cart service API client
type Client struct {
	config      Config
	httpClient  *http.Client
	credentials credential.Provider
	log         *logger.Logger
}

// NewClient creates a new cart service client. credentials is consulted on
// every authenticated call.
func NewClient(config Config, credentials credential.Provider) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if credentials == nil {
		return nil, fmt.Errorf("%w: credential provider is required", ErrInvalidConfig)
	}

	config = config.normalized()
	return &Client{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		credentials: credentials,
		log:         logger.WithContext(logger.Fields{"component": "cart_api"}),
	}, nil
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// FetchCart returns the caller's current cart
func (c *Client) FetchCart(ctx context.Context) (*CartResponse, error) {
	body, err := c.doRequest(ctx, http.MethodGet, pathCart, nil, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}
	return decodeCart(body)
}

// AddItem adds req.Quantity of a product and returns the full updated cart
func (c *Client) AddItem(ctx context.Context, req AddItemRequest) (*CartResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, pathAdd, req, true)
	if err != nil {
		return nil, fmt.Errorf("failed to add item %s: %w", req.ProductID, err)
	}
	return decodeCart(body)
}

// RemoveItem removes a product line and returns the full updated cart
func (c *Client) RemoveItem(ctx context.Context, req RemoveItemRequest) (*CartResponse, error) {
	body, err := c.doRequest(ctx, http.MethodDelete, pathRemove, req, true)
	if err != nil {
		return nil, fmt.Errorf("failed to remove item %s: %w", req.ProductID, err)
	}
	return decodeCart(body)
}

// ListProducts returns the public catalog
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	body, err := c.doRequest(ctx, http.MethodGet, pathProducts, nil, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var resp productListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return resp.Products, nil
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, pathLogin, req, false)
	if err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	var resp LoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedResponse)
	}
	return &resp, nil
}

// Logout revokes the current bearer token on the service
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodPost, pathLogout, nil, true); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request against the cart service
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}, authenticated bool) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Content-Type", "application/json")

	if authenticated {
		token, err := c.credentials.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug("Sending cart service request", logger.Fields{
		"method":     method,
		"url":        url,
		"request_id": requestID,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrNetworkError, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil {
			apiErr.Code = errResp.Error
			apiErr.Message = errResp.Message
		}

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			apiErr.kind = ErrUnauthorized
		case http.StatusNotFound:
			apiErr.kind = ErrNotFound
		default:
			apiErr.kind = ErrRejected
		}

		c.log.Warn("Cart service returned non-success status", logger.Fields{
			"method":      method,
			"url":         url,
			"request_id":  requestID,
			"status_code": resp.StatusCode,
			"code":        apiErr.Code,
		})
		return nil, apiErr
	}

	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
