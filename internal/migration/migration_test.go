package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpStatementsCoverSchema(t *testing.T) {
	statements, err := UpStatements()
	require.NoError(t, err)
	require.NotEmpty(t, statements)

	joined := strings.Join(statements, "\n")
	for _, table := range []string{
		"bookings",
		"booking_financials",
		"payment_authorizations",
		"booking_reassignments",
		"payment_advices",
		"invoices",
		"ledger_entries",
		"escalations",
		"notifications",
	} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, joined, "WHERE status <> 'failed'")
}
