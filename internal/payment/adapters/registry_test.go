package adapters

import (
	"testing"

	"github.com/smallbiznis/nannyhub/internal/payment/adapters/paystack"
	"github.com/smallbiznis/nannyhub/internal/payment/adapters/sandbox"
	"github.com/smallbiznis/nannyhub/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesProviders(t *testing.T) {
	registry := NewRegistry(paystack.NewFactory(), sandbox.NewFactory(), nil)

	assert.Equal(t, []string{"paystack", "sandbox"}, registry.Providers())

	gw, err := registry.NewGateway(" Sandbox ", domain.AdapterConfig{})
	require.NoError(t, err)
	assert.NotNil(t, gw)

	_, err = registry.NewGateway("stripe", domain.AdapterConfig{})
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
	assert.Contains(t, err.Error(), "paystack, sandbox")

	var nilRegistry *Registry
	_, err = nilRegistry.NewGateway("sandbox", domain.AdapterConfig{})
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}
