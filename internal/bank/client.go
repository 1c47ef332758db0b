package bank

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Client is the remote service facade the orchestrator depends on. Every call is
// a single request/response; implementations never retry.
type Client interface {
	SubmitApplication(ctx context.Context, input ApplicationInput) (Application, error)
	RegisterUser(ctx context.Context, input RegisterInput) (Registration, error)
	LoginUser(ctx context.Context, input LoginInput) (Session, error)
	VerifyCode(ctx context.Context, input VerifyInput) (Verification, error)
	GetAccount(ctx context.Context, customerID string) (Account, error)
	GetTransactions(ctx context.Context, customerID string) ([]Transaction, error)
	ListCardProducts(ctx context.Context) ([]CardProduct, error)
	CreateCardProduct(ctx context.Context, input CardProductInput) (CardProduct, error)
}

// ErrTransport marks calls that could not complete (network, timeout, undecodable response).
var ErrTransport = errors.New("bank transport failure")

// RemoteError is a completed call that reported a domain failure.
type RemoteError struct {
	Status      int               `json:"status"`
	Title       string            `json:"error,omitempty"`
	Message     string            `json:"message,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("bank rejected request (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("bank rejected request (%d)", e.Status)
}

func newRemoteError(status int, message string) *RemoteError {
	return &RemoteError{Status: status, Title: http.StatusText(status), Message: message}
}

// IsNotFound reports whether err is a 404 remote rejection.
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == http.StatusNotFound
}

func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MemoryBank)(nil)
)
