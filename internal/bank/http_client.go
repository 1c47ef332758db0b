package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 15 * time.Second

// HTTPClient talks to the bank's REST API using fiber's fasthttp-backed agent.
type HTTPClient struct {
	baseURL   string
	timeout   time.Duration
	adminUser string
	adminPass string
}

// HTTPOption customises an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithAdminCredentials sets the basic-auth pair used for card product creation.
func WithAdminCredentials(username, password string) HTTPOption {
	return func(c *HTTPClient) {
		c.adminUser = username
		c.adminPass = password
	}
}

// NewHTTPClient builds a client rooted at baseURL. A non-positive timeout falls back to 15s.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitApplication posts a credit-card application.
func (c *HTTPClient) SubmitApplication(ctx context.Context, input ApplicationInput) (Application, error) {
	var out Application
	err := c.do(ctx, fiber.MethodPost, "/api/customers", input, &out, false)
	return out, err
}

// RegisterUser creates credentials for an approved application.
func (c *HTTPClient) RegisterUser(ctx context.Context, input RegisterInput) (Registration, error) {
	var out Registration
	err := c.do(ctx, fiber.MethodPost, "/api/users/register", input, &out, false)
	return out, err
}

// LoginUser signs in with username and password.
func (c *HTTPClient) LoginUser(ctx context.Context, input LoginInput) (Session, error) {
	var out Session
	err := c.do(ctx, fiber.MethodPost, "/api/users/login", input, &out, false)
	return out, err
}

// VerifyCode checks a one-time code.
func (c *HTTPClient) VerifyCode(ctx context.Context, input VerifyInput) (Verification, error) {
	var out Verification
	err := c.do(ctx, fiber.MethodPost, "/api/users/verify-mfa", input, &out, false)
	return out, err
}

// GetAccount fetches the customer's deposit account.
func (c *HTTPClient) GetAccount(ctx context.Context, customerID string) (Account, error) {
	var out Account
	err := c.do(ctx, fiber.MethodGet, "/api/accounts/"+url.PathEscape(customerID), nil, &out, false)
	return out, err
}

// GetTransactions fetches the customer's transactions, newest first.
func (c *HTTPClient) GetTransactions(ctx context.Context, customerID string) ([]Transaction, error) {
	var out []Transaction
	err := c.do(ctx, fiber.MethodGet, "/api/accounts/"+url.PathEscape(customerID)+"/transactions", nil, &out, false)
	return out, err
}

// ListCardProducts fetches the card catalog.
func (c *HTTPClient) ListCardProducts(ctx context.Context) ([]CardProduct, error) {
	var out []CardProduct
	err := c.do(ctx, fiber.MethodGet, "/api/credit-cards", nil, &out, false)
	return out, err
}

// CreateCardProduct publishes a new card product using the admin credentials.
func (c *HTTPClient) CreateCardProduct(ctx context.Context, input CardProductInput) (CardProduct, error) {
	var out CardProduct
	err := c.do(ctx, fiber.MethodPost, "/api/credit-cards", input, &out, true)
	return out, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, admin bool) error {
	op := method + " " + path
	if err := ctx.Err(); err != nil {
		return transportError(op, err)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return transportError(op, err)
	}
	agent.Timeout(timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if admin {
		agent.BasicAuth(c.adminUser, c.adminPass)
	}
	if body != nil {
		agent.JSON(body)
	}

	// Bytes releases the agent.
	status, payload, errs := agent.Bytes()
	if len(errs) > 0 {
		return transportError(op, errors.Join(errs...))
	}
	if status >= http.StatusBadRequest {
		return decodeRemoteError(status, payload)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return transportError(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func decodeRemoteError(status int, payload []byte) error {
	remote := &RemoteError{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, remote); err != nil {
			remote = &RemoteError{}
		}
	}
	remote.Status = status
	if remote.Title == "" {
		remote.Title = http.StatusText(status)
	}
	return remote
}
