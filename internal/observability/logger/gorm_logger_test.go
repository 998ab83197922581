package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM bookings":                          "SELECT",
		"  insert into ledger_entries (id) values (1)":    "INSERT",
		"WITH due AS (SELECT id FROM bookings) UPDATE x":  "SELECT",
		"(UPDATE bookings SET status = 'active')":         "UPDATE",
		"":                                                "UNKNOWN",
		"VACUUM":                                          "UNKNOWN",
	}
	for sql, want := range cases {
		assert.Equal(t, want, operationFromSQL(sql), sql)
	}
}

func TestNormalizeFormat(t *testing.T) {
	assert.Equal(t, "console", normalizeFormat(" Console "))
	assert.Equal(t, "json", normalizeFormat("logfmt"))
	assert.Equal(t, "json", normalizeFormat(""))
}
