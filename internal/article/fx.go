package article

import (
	"github.com/smallbiznis/gescom/internal/article/repository"
	"github.com/smallbiznis/gescom/internal/article/service"
	"go.uber.org/fx"
)

var Module = fx.Module("article.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
