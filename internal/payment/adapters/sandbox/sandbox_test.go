package sandbox

import (
	"context"
	"testing"

	paymentdomain "github.com/smallbiznis/nannyhub/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxDeclinesByCode(t *testing.T) {
	gw := NewGateway()

	res, err := gw.Authorize(context.Background(), paymentdomain.GatewayAuthorizeRequest{Reference: "r1", AuthorizationCode: "decline_card"})
	require.NoError(t, err)
	assert.False(t, res.Approved)

	res, err = gw.Authorize(context.Background(), paymentdomain.GatewayAuthorizeRequest{Reference: "r2", AuthorizationCode: "AUTH_ok", Amount: 500, Currency: "ZAR"})
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Equal(t, "sbx_r2", res.ProviderAuthorizationID)

	verified, err := gw.Verify(context.Background(), "r2")
	require.NoError(t, err)
	assert.True(t, verified.Paid)
	assert.Equal(t, int64(500), verified.Amount)
}
