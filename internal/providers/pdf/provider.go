package pdf

import (
	"context"
	"errors"
	"strings"

	"github.com/gosimple/slug"
)

var ErrNoLineItems = errors.New("pdf_no_line_items")

// Provider renders the documents attached to capture emails and served
// from the download endpoints.
type Provider interface {
	RenderPaymentAdvice(ctx context.Context, data PaymentAdviceData) ([]byte, error)
	RenderInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}

type NoOpProvider struct{}

func (NoOpProvider) RenderPaymentAdvice(ctx context.Context, data PaymentAdviceData) ([]byte, error) {
	return nil, nil
}

func (NoOpProvider) RenderInvoice(ctx context.Context, data InvoiceData) ([]byte, error) {
	return nil, nil
}

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

// FileName builds an attachment name such as
// "payment-advice-1849-2026-03-01.pdf".
func FileName(parts ...string) string {
	name := slug.Make(strings.Join(parts, " "))
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}
