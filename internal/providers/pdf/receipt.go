package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReceiptDocument acknowledges a single payment against an invoice.
type ReceiptDocument struct {
	Reference     string
	InvoiceNumero string
	DatePaid      string
	Method        string
	Amount        string
	InvoiceTotal  string
	TotalSettled  string
	BalanceDue    string

	Seller Party
	Client Party
}

func (p *marotoProvider) RenderReceipt(ctx context.Context, doc ReceiptDocument) ([]byte, error) {
	m := maroto.New(pageConfig())

	m.AddRow(12,
		text.NewCol(6, "REÇU DE PAIEMENT", props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(6, doc.Reference, props.Text{Size: 10, Align: align.Right}),
	)

	m.AddRow(14,
		col.New(12).Add(
			text.New("Facture : "+doc.InvoiceNumero, props.Text{Size: 9}),
			text.New("Date de paiement : "+doc.DatePaid, props.Text{Size: 9, Top: 4}),
			text.New("Mode de règlement : "+doc.Method, props.Text{Size: 9, Top: 8}),
		),
	)

	m.AddRow(32,
		partyCol(6, "", doc.Seller),
		partyCol(6, "Reçu de", doc.Client),
	)

	m.AddRow(14,
		text.NewCol(12, doc.Amount+" reçu le "+doc.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   4,
		}),
	)

	totalRow(m, "Total facture TTC", doc.InvoiceTotal, false)
	totalRow(m, "Total réglé", doc.TotalSettled, false)
	totalRow(m, "Reste à payer", doc.BalanceDue, true)

	generated, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return generated.GetBytes(), nil
}
