package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const TemplateInvoiceSent = "invoice_sent"

// InvoiceSentData fills the invoice_sent template.
type InvoiceSentData struct {
	SellerName string
	ClientName string
	Numero     string
	CreditNote bool
	TotalTTC   string
	DueDate    string
	BankIBAN   string
}

// Render executes the named template.
func Render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name+".html", data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return body.String(), nil
}
