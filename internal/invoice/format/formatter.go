package format

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultInvoiceNumberTemplate numbers invoices per issue day, e.g.
// NH-20260401-00042.
const DefaultInvoiceNumberTemplate = "NH-{YYYY}{MM}{DD}-{SEQ5}"

var (
	ErrEmptyTemplate   = errors.New("invoice_number_template_empty")
	ErrInvalidSequence = errors.New("invoice_number_sequence_invalid")
	ErrUnknownToken    = errors.New("invoice_number_token_unknown")
)

// InvoiceNumber expands the tokens in template. Dates use UTC. Supported
// tokens: {YYYY} {YY} {MM} {DD} {SEQ}, and {SEQn} for a sequence padded
// to n digits.
func InvoiceNumber(template string, issuedAt time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", ErrEmptyTemplate
	}
	if seq <= 0 {
		return "", ErrInvalidSequence
	}
	issuedAt = issuedAt.UTC()

	var b strings.Builder
	rest := template
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return "", ErrUnknownToken
			}
			b.WriteString(rest)
			break
		}
		if strings.IndexByte(rest[:open], '}') >= 0 {
			return "", ErrUnknownToken
		}
		b.WriteString(rest[:open])
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", ErrUnknownToken
		}
		value, ok := expand(rest[open+1:open+end], issuedAt, seq)
		if !ok {
			return "", ErrUnknownToken
		}
		b.WriteString(value)
		rest = rest[open+end+1:]
	}
	return b.String(), nil
}

func expand(token string, issuedAt time.Time, seq int64) (string, bool) {
	switch token {
	case "YYYY":
		return issuedAt.Format("2006"), true
	case "YY":
		return issuedAt.Format("06"), true
	case "MM":
		return issuedAt.Format("01"), true
	case "DD":
		return issuedAt.Format("02"), true
	case "SEQ":
		return strconv.FormatInt(seq, 10), true
	}
	width, err := strconv.Atoi(strings.TrimPrefix(token, "SEQ"))
	if !strings.HasPrefix(token, "SEQ") || err != nil || width <= 0 || width > 12 {
		return "", false
	}
	digits := strconv.FormatInt(seq, 10)
	if pad := width - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return digits, true
}
