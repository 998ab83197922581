package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/nannyhub/internal/apperror"
	paymentdomain "github.com/smallbiznis/nannyhub/internal/payment/domain"
)

const (
	providerName   = "paystack"
	defaultBaseURL = "https://api.paystack.co"
	defaultTimeout = 12 * time.Second
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewGateway(cfg paymentdomain.AdapterConfig) (paymentdomain.Gateway, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Adapter{secretKey: secret, baseURL: baseURL, client: client}, nil
}

type Adapter struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type transaction struct {
	ID              int64  `json:"id"`
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	GatewayResponse string `json:"gateway_response"`
}

type chargeAuthorizationBody struct {
	Email             string            `json:"email"`
	Amount            int64             `json:"amount"`
	AuthorizationCode string            `json:"authorization_code"`
	Reference         string            `json:"reference"`
	Currency          string            `json:"currency,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// Authorize charges a saved card authorization. Paystack answers a
// declined card with a 200 and a failed transaction status, and an
// unusable authorization code with a 400. Both are declines.
func (a *Adapter) Authorize(ctx context.Context, req paymentdomain.GatewayAuthorizeRequest) (paymentdomain.AuthorizeResult, error) {
	body, err := json.Marshal(chargeAuthorizationBody{
		Email:             req.Email,
		Amount:            req.Amount,
		AuthorizationCode: req.AuthorizationCode,
		Reference:         req.Reference,
		Currency:          req.Currency,
		Metadata:          req.Metadata,
	})
	if err != nil {
		return paymentdomain.AuthorizeResult{}, err
	}

	status, env, err := a.do(ctx, http.MethodPost, "/transaction/charge_authorization", body)
	if err != nil {
		return paymentdomain.AuthorizeResult{}, err
	}
	if status >= 400 {
		return paymentdomain.AuthorizeResult{Approved: false, Message: env.Message}, nil
	}

	var tx transaction
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &tx); err != nil {
			return paymentdomain.AuthorizeResult{}, apperror.External(providerName, fmt.Errorf("decode charge: %w", err))
		}
	}
	result := paymentdomain.AuthorizeResult{
		Approved: env.Status && tx.Status == "success",
		Message:  firstNonEmpty(tx.GatewayResponse, env.Message),
	}
	if tx.ID != 0 {
		result.ProviderAuthorizationID = fmt.Sprintf("%d", tx.ID)
	}
	return result, nil
}

func (a *Adapter) Verify(ctx context.Context, reference string) (paymentdomain.VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return paymentdomain.VerifyResult{}, paymentdomain.ErrInvalidConfig
	}

	status, env, err := a.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return paymentdomain.VerifyResult{}, err
	}
	if status >= 400 {
		return paymentdomain.VerifyResult{Reference: reference, Message: env.Message}, nil
	}

	var tx transaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return paymentdomain.VerifyResult{}, apperror.External(providerName, fmt.Errorf("decode verify: %w", err))
	}
	return paymentdomain.VerifyResult{
		Reference: firstNonEmpty(tx.Reference, reference),
		Paid:      env.Status && tx.Status == "success",
		Amount:    tx.Amount,
		Currency:  strings.ToUpper(tx.Currency),
		Message:   firstNonEmpty(tx.GatewayResponse, env.Message),
	}, nil
}

// do returns external errors for transport failures and 5xx answers.
// 4xx answers are returned with their decoded envelope.
func (a *Adapter) do(ctx context.Context, method, path string, body []byte) (int, envelope, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return 0, envelope{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, envelope{}, apperror.External(providerName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, envelope{}, apperror.External(providerName, err)
	}
	if resp.StatusCode >= 500 {
		return resp.StatusCode, envelope{}, apperror.External(providerName, fmt.Errorf("status %d", resp.StatusCode))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, envelope{}, apperror.External(providerName, errors.New("invalid response body"))
	}
	return resp.StatusCode, env, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
