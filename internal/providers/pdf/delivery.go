package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// DeliveryDocument is a bon de livraison. It carries quantities only, never
// prices.
type DeliveryDocument struct {
	Numero      string
	OrderNumero string
	ShippedDate string
	Carrier     string
	Packages    string
	Notes       string

	Seller Party
	Client Party
	Lines  []DeliveryLine
}

type DeliveryLine struct {
	Reference   string
	Designation string
	Quantity    string
}

func (p *marotoProvider) RenderDeliveryNote(ctx context.Context, doc DeliveryDocument) ([]byte, error) {
	m := maroto.New(pageConfig())

	m.AddRow(12,
		text.NewCol(6, "BON DE LIVRAISON", props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(6, doc.Numero, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right}),
	)

	meta := []core.Component{
		text.New("Commande : "+doc.OrderNumero, props.Text{Size: 9}),
		text.New("Expédiée le : "+doc.ShippedDate, props.Text{Size: 9, Top: 4}),
	}
	top := 8.0
	for _, value := range []string{prefixed("Transporteur : ", doc.Carrier), prefixed("Colis : ", doc.Packages)} {
		if value == "" {
			continue
		}
		meta = append(meta, text.New(value, props.Text{Size: 9, Top: top}))
		top += 4
	}
	m.AddRow(18, col.New(12).Add(meta...))

	m.AddRow(32,
		partyCol(6, "", doc.Seller),
		partyCol(6, "Livré à", doc.Client),
	)

	m.AddRow(8,
		text.NewCol(3, "Réf.", smallBold),
		text.NewCol(7, "Désignation", smallBold),
		text.NewCol(2, "Qté", rightBold),
	)
	for _, line := range doc.Lines {
		m.AddRow(7,
			text.NewCol(3, line.Reference, small),
			text.NewCol(7, line.Designation, small),
			text.NewCol(2, line.Quantity, right),
		)
	}

	if doc.Notes != "" {
		m.AddRow(6)
		m.AddRow(10, text.NewCol(12, doc.Notes, props.Text{Size: 8}))
	}
	m.AddRow(10)
	m.AddRow(16,
		text.NewCol(6, "Signature du client :", small),
		text.NewCol(6, "Date de réception :", small),
	)

	generated, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return generated.GetBytes(), nil
}

func prefixed(label, value string) string {
	if value == "" {
		return ""
	}
	return label + value
}
