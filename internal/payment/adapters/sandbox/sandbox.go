// Package sandbox is a deterministic gateway for local development.
// Authorization codes starting with "decline" are declined; everything
// else is approved and verifies as paid.
package sandbox

import (
	"context"
	"strings"
	"sync"

	paymentdomain "github.com/smallbiznis/nannyhub/internal/payment/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "sandbox"
}

func (f *Factory) NewGateway(paymentdomain.AdapterConfig) (paymentdomain.Gateway, error) {
	return NewGateway(), nil
}

type Gateway struct {
	mu      sync.Mutex
	charges map[string]paymentdomain.GatewayAuthorizeRequest
}

func NewGateway() *Gateway {
	return &Gateway{charges: map[string]paymentdomain.GatewayAuthorizeRequest{}}
}

func (g *Gateway) Authorize(ctx context.Context, req paymentdomain.GatewayAuthorizeRequest) (paymentdomain.AuthorizeResult, error) {
	if strings.HasPrefix(strings.ToLower(req.AuthorizationCode), "decline") {
		return paymentdomain.AuthorizeResult{Approved: false, Message: "Declined"}, nil
	}
	g.mu.Lock()
	g.charges[req.Reference] = req
	g.mu.Unlock()
	return paymentdomain.AuthorizeResult{
		ProviderAuthorizationID: "sbx_" + req.Reference,
		Approved:                true,
		Message:                 "Approved",
	}, nil
}

func (g *Gateway) Verify(ctx context.Context, reference string) (paymentdomain.VerifyResult, error) {
	g.mu.Lock()
	charge, ok := g.charges[reference]
	g.mu.Unlock()
	if !ok {
		// Unknown references verify as paid so a restarted process can
		// still capture holds placed before the restart.
		return paymentdomain.VerifyResult{Reference: reference, Paid: true, Message: "Approved"}, nil
	}
	return paymentdomain.VerifyResult{
		Reference: reference,
		Paid:      true,
		Amount:    charge.Amount,
		Currency:  charge.Currency,
		Message:   "Approved",
	}, nil
}
