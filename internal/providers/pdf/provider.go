package pdf

import (
	"context"

	"go.uber.org/fx"
)

// Provider renders business documents to PDF bytes.
type Provider interface {
	RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error)
	RenderReceipt(ctx context.Context, doc ReceiptDocument) ([]byte, error)
	RenderDeliveryNote(ctx context.Context, doc DeliveryDocument) ([]byte, error)
}

var Module = fx.Module("pdf",
	fx.Provide(New),
)

// Party is a printed address block.
type Party struct {
	Name  string
	Lines []string
}

type marotoProvider struct{}

func New() Provider {
	return &marotoProvider{}
}
