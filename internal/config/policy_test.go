package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestPolicyFileOverridesDefaults(t *testing.T) {
	path := writePolicy(t, `
policy:
  placementFee:
    grand_estate: flat
  reassignment:
    responseWindow: 24h
  payment:
    minCaptureDelay: 168h
`)

	holder, err := NewPolicyHolderFromFile(path, zap.NewNop())
	require.NoError(t, err)

	policy := holder.Get()
	assert.Equal(t, 24*time.Hour, policy.Reassignment.ResponseWindow)
	assert.Equal(t, 5, policy.Reassignment.AlternativesLimit)
	assert.Equal(t, 25, policy.Payment.AuthorizeDay)
	assert.Equal(t, 1, policy.Payment.CaptureDay)
	assert.Equal(t, 3, policy.Payment.GatewayMaxAttempts)

	assert.Equal(t, revenuesplit.FeeTierFlat, holder.FeeTable()[revenuesplit.HomeSizeGrandEstate])
	assert.Equal(t, revenuesplit.FeeTierPremium, holder.FeeTable()[revenuesplit.HomeSizeMonumentalManor])
}

func TestPolicyRejectsUnknownFeeTier(t *testing.T) {
	path := writePolicy(t, `
policy:
  placementFee:
    grand_estate: half
`)

	_, err := NewPolicyHolderFromFile(path, zap.NewNop())
	assert.ErrorIs(t, err, revenuesplit.ErrInvalidFeeTier)
}

func TestPolicyRejectsOutOfRangeDays(t *testing.T) {
	path := writePolicy(t, `
policy:
  payment:
    authorizeDay: 31
`)

	_, err := NewPolicyHolderFromFile(path, zap.NewNop())
	assert.Error(t, err)
}

func TestStaticPolicyHolderUsesDefaultTable(t *testing.T) {
	holder, err := NewStaticPolicyHolder(DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, revenuesplit.DefaultFeeTable(), holder.FeeTable())
}
