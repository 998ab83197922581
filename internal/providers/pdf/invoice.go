package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/nannyhub/pkg/money"
)

type InvoiceData struct {
	InvoiceNumber string
	BookingID     string
	IssueDate     string
	PeriodStart   string
	PeriodEnd     string
	BillToName    string
	BillToEmail   string
	NannyName     string
	Currency      string
	Items         []InvoiceItem
	Total         int64
}

type InvoiceItem struct {
	Description string
	Amount      int64
}

func (p *MarotoProvider) RenderInvoice(ctx context.Context, data InvoiceData) ([]byte, error) {
	if len(data.Items) == 0 {
		return nil, ErrNoLineItems
	}

	m := maroto.New(documentConfig())

	m.AddRow(20,
		text.NewCol(12, "Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Invoice number: "+data.InvoiceNumber, props.Text{Top: 0}),
			text.New("Booking: "+data.BookingID, props.Text{Top: 4}),
			text.New("Date of issue: "+data.IssueDate, props.Text{Top: 8}),
			text.New("Service period: "+data.PeriodStart+" to "+data.PeriodEnd, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(data.BillToName, props.Text{Top: 5, Align: align.Right}),
			text.New(data.BillToEmail, props.Text{Top: 10, Align: align.Right}),
			text.New("Caregiver: "+data.NannyName, props.Text{Top: 15, Align: align.Right}),
		),
	)

	m.AddRow(8,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Align: align.Right}),
	)
	for _, item := range data.Items {
		addAmountRow(m, item.Description, money.Format(item.Amount, data.Currency), false)
	}
	addAmountRow(m, "Total charged", money.Format(data.Total, data.Currency), true)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func documentConfig() *entity.Config {
	return config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
}

func addAmountRow(m core.Maroto, label, amount string, bold bool) {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	m.AddRow(7,
		text.NewCol(8, label, props.Text{Style: style}),
		text.NewCol(4, amount, props.Text{Style: style, Align: align.Right}),
	)
}
