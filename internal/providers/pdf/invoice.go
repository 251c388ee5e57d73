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
)

// InvoiceDocument is the print model of an invoice or credit note. Amounts
// are preformatted.
type InvoiceDocument struct {
	Title       string
	Numero      string
	InvoiceDate string
	IssueDate   string
	DueDate     string
	OrderRefs   string

	Seller Party
	Client Party

	Lines []InvoiceLine
	VAT   []VATLine

	TotalHT  string
	TotalTVA string
	TotalTTC string

	// AlreadyPaid and BalanceDue are printed only when a payment exists.
	AlreadyPaid string
	BalanceDue  string

	PaymentTerms string
	BankDetails  string
	Notes        string
}

type InvoiceLine struct {
	Reference   string
	Designation string
	Quantity    string
	UnitPriceHT string
	Discount    string
	AmountHT    string
}

type VATLine struct {
	Rate   string
	Base   string
	Amount string
}

var (
	small     = props.Text{Size: 9}
	smallBold = props.Text{Size: 9, Style: fontstyle.Bold}
	right     = props.Text{Size: 9, Align: align.Right}
	rightBold = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
)

func (p *marotoProvider) RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error) {
	m := maroto.New(pageConfig())

	m.AddRow(12,
		text.NewCol(6, doc.Title, props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(6, doc.Numero, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right}),
	)

	meta := []core.Component{
		text.New("Date : "+doc.InvoiceDate, props.Text{Size: 9}),
	}
	if doc.IssueDate != "" {
		meta = append(meta, text.New("Émise le : "+doc.IssueDate, props.Text{Size: 9, Top: 4}))
	}
	if doc.DueDate != "" {
		meta = append(meta, text.New("Échéance : "+doc.DueDate, props.Text{Size: 9, Top: 8}))
	}
	if doc.OrderRefs != "" {
		meta = append(meta, text.New("Commandes : "+doc.OrderRefs, props.Text{Size: 9, Top: 12}))
	}
	m.AddRow(18, col.New(12).Add(meta...))

	m.AddRow(32,
		partyCol(6, "", doc.Seller),
		partyCol(6, "Facturé à", doc.Client),
	)

	m.AddRow(8,
		text.NewCol(2, "Réf.", smallBold),
		text.NewCol(4, "Désignation", smallBold),
		text.NewCol(1, "Qté", rightBold),
		text.NewCol(2, "PU HT", rightBold),
		text.NewCol(1, "Rem. %", rightBold),
		text.NewCol(2, "Montant HT", rightBold),
	)
	for _, line := range doc.Lines {
		m.AddRow(7,
			text.NewCol(2, line.Reference, small),
			text.NewCol(4, line.Designation, small),
			text.NewCol(1, line.Quantity, right),
			text.NewCol(2, line.UnitPriceHT, right),
			text.NewCol(1, line.Discount, right),
			text.NewCol(2, line.AmountHT, right),
		)
	}

	m.AddRow(6)
	m.AddRow(7,
		text.NewCol(2, "Taux TVA", smallBold),
		text.NewCol(2, "Base HT", rightBold),
		text.NewCol(2, "Montant TVA", rightBold),
		col.New(6),
	)
	for _, vat := range doc.VAT {
		m.AddRow(6,
			text.NewCol(2, vat.Rate, small),
			text.NewCol(2, vat.Base, right),
			text.NewCol(2, vat.Amount, right),
			col.New(6),
		)
	}

	m.AddRow(4)
	totalRow(m, "Total HT", doc.TotalHT, false)
	totalRow(m, "Total TVA", doc.TotalTVA, false)
	totalRow(m, "Total TTC", doc.TotalTTC, true)
	if doc.AlreadyPaid != "" {
		totalRow(m, "Déjà réglé", doc.AlreadyPaid, false)
		totalRow(m, "Reste à payer", doc.BalanceDue, true)
	}

	footer := make([]core.Component, 0, 3)
	top := 0.0
	for _, value := range []string{doc.PaymentTerms, doc.BankDetails, doc.Notes} {
		if value == "" {
			continue
		}
		footer = append(footer, text.New(value, props.Text{Size: 8, Top: top}))
		top += 5
	}
	if len(footer) > 0 {
		m.AddRow(6)
		m.AddRow(18, col.New(12).Add(footer...))
	}

	generated, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return generated.GetBytes(), nil
}

func pageConfig() *entity.Config {
	return config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} / {total}",
			Place:   props.RightBottom,
		}).
		Build()
}

func partyCol(size int, heading string, party Party) core.Col {
	components := make([]core.Component, 0, len(party.Lines)+2)
	top := 0.0
	if heading != "" {
		components = append(components, text.New(heading, props.Text{Size: 8, Style: fontstyle.Italic}))
		top = 4
	}
	components = append(components, text.New(party.Name, props.Text{Size: 10, Style: fontstyle.Bold, Top: top}))
	top += 5
	for _, line := range party.Lines {
		if line == "" {
			continue
		}
		components = append(components, text.New(line, props.Text{Size: 9, Top: top}))
		top += 4
	}
	return col.New(size).Add(components...)
}

func totalRow(m core.Maroto, label, value string, bold bool) {
	labelProps, valueProps := small, right
	if bold {
		labelProps, valueProps = smallBold, rightBold
	}
	m.AddRow(6,
		col.New(7),
		text.NewCol(3, label, labelProps),
		text.NewCol(2, value, valueProps),
	)
}
