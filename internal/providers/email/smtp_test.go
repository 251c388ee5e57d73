package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"

	"github.com/smallbiznis/gescom/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildMessageCarriesBodyAndAttachment(t *testing.T) {
	raw, err := buildMessage("factures@atelier.example", Message{
		To:       []string{"compta@dupont.example"},
		Subject:  "Facture FAC-000001 échéance",
		HTMLBody: "<p>Bonjour</p>",
		Attachments: []Attachment{{
			Filename:    "FAC-000001.pdf",
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.3 fake"),
		}},
	})
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Facture FAC-000001 échéance", subject)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])

	htmlPart, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "<p>Bonjour</p>", decodePart(t, htmlPart))

	pdfPart, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "FAC-000001.pdf", pdfPart.FileName())
	assert.Equal(t, "%PDF-1.3 fake", decodePart(t, pdfPart))

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func decodePart(t *testing.T, part *multipart.Part) string {
	t.Helper()
	encoded, err := io.ReadAll(part)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	return string(decoded)
}

func TestWriteBase64WrapsLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBase64(&buf, bytes.Repeat([]byte("a"), 200)))
	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}
}

func TestSMTPProviderSend(t *testing.T) {
	var gotAddr string
	var gotTo []string
	provider := NewSMTP(Config{Host: "smtp.example", Port: 2525, From: "factures@atelier.example"})
	provider.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		assert.Nil(t, a)
		return nil
	}

	require.NoError(t, provider.Send(context.Background(), Message{To: []string{"a@b.example"}, Subject: "x"}))
	assert.Equal(t, "smtp.example:2525", gotAddr)
	assert.Equal(t, []string{"a@b.example"}, gotTo)

	assert.ErrorIs(t, provider.Send(context.Background(), Message{}), ErrNoRecipient)
}

func TestNewFromConfigFallsBackToNoOp(t *testing.T) {
	provider := NewFromConfig(config.Config{}, zap.NewNop())
	_, ok := provider.(*NoOpProvider)
	assert.True(t, ok)

	provider = NewFromConfig(config.Config{Email: config.EmailConfig{SMTPHost: "smtp.example", SMTPPort: 25}}, zap.NewNop())
	_, ok = provider.(*SMTPProvider)
	assert.True(t, ok)
}

func TestRenderInvoiceSent(t *testing.T) {
	body, err := Render(TemplateInvoiceSent, InvoiceSentData{
		SellerName: "Atelier",
		ClientName: "Dupont & Fils",
		Numero:     "FAC-000001",
		TotalTTC:   "120,00 €",
		DueDate:    "01/04/2026",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "la facture <strong>FAC-000001</strong>")
	assert.Contains(t, body, "Dupont &amp; Fils")
	assert.Contains(t, body, "01/04/2026")
	assert.NotContains(t, body, "IBAN")

	body, err = Render(TemplateInvoiceSent, InvoiceSentData{CreditNote: true, Numero: "FAC-000002"})
	require.NoError(t, err)
	assert.Contains(t, body, "l'avoir")
}
