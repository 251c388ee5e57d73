package providers

import (
	"github.com/smallbiznis/gescom/internal/providers/email"
	"github.com/smallbiznis/gescom/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
