package domain

import (
	"context"
	"net/http"
	"time"
)

//go:generate mockgen -destination=../mocks/gateway_mock.go -package=mocks github.com/smallbiznis/nannyhub/internal/payment/domain Gateway

type GatewayAuthorizeRequest struct {
	Reference         string
	Email             string
	AuthorizationCode string
	Amount            int64
	Currency          string
	Metadata          map[string]string
}

type AuthorizeResult struct {
	ProviderAuthorizationID string
	Approved                bool
	Message                 string
}

type VerifyResult struct {
	Reference string
	Paid      bool
	Amount    int64
	Currency  string
	Message   string
}

// Gateway is the provider side of authorization and capture. Transport
// failures come back as apperror external errors so callers can retry
// them. A declined charge is a result, not an error.
type Gateway interface {
	Authorize(ctx context.Context, req GatewayAuthorizeRequest) (AuthorizeResult, error)
	Verify(ctx context.Context, reference string) (VerifyResult, error)
}

type AdapterConfig struct {
	SecretKey  string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type AdapterFactory interface {
	Provider() string
	NewGateway(cfg AdapterConfig) (Gateway, error)
}
