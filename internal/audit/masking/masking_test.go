package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****6789", MaskSecret("FR76 3000 6000 0112 3456 789"))
}

func TestRedactMasksSensitiveKeysOnly(t *testing.T) {
	out := Redact(map[string]any{
		"code":  "DUPONT",
		"Email": "compta@dupont.example",
		"bank": map[string]any{
			"iban": "FR7630006000011234567890189",
		},
		"terms": 45,
	}, "email", "iban")

	assert.Equal(t, "DUPONT", out["code"])
	assert.Equal(t, "****mple", out["Email"])
	assert.Equal(t, "****0189", out["bank"].(map[string]any)["iban"])
	assert.Equal(t, 45, out["terms"])
	assert.Nil(t, Redact(nil, "email"))
}
