package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/nannyhub/pkg/money"
)

// PaymentAdviceData is the payee-facing statement for one captured period.
// Amounts are minor units.
type PaymentAdviceData struct {
	AdviceID           string
	BookingID          string
	NannyName          string
	ClientName         string
	IssueDate          string
	PeriodStart        string
	PeriodEnd          string
	GrossAmount        int64
	CommissionDeducted int64
	NetAmount          int64
	Currency           string
}

func (p *MarotoProvider) RenderPaymentAdvice(ctx context.Context, data PaymentAdviceData) ([]byte, error) {
	m := maroto.New(documentConfig())

	m.AddRow(20,
		text.NewCol(12, "Payment Advice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Advice: "+data.AdviceID, props.Text{Top: 0}),
			text.New("Booking: "+data.BookingID, props.Text{Top: 4}),
			text.New("Issued: "+data.IssueDate, props.Text{Top: 8}),
			text.New("Period: "+data.PeriodStart+" to "+data.PeriodEnd, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New("Paid to", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(data.NannyName, props.Text{Top: 5, Align: align.Right}),
			text.New("Family: "+data.ClientName, props.Text{Top: 10, Align: align.Right}),
		),
	)

	m.AddRow(8,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Align: align.Right}),
	)
	addAmountRow(m, "Gross care fee", money.Format(data.GrossAmount, data.Currency), false)
	addAmountRow(m, "Platform commission", "-"+money.Format(data.CommissionDeducted, data.Currency), false)
	addAmountRow(m, "Net payable", money.Format(data.NetAmount, data.Currency), true)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
