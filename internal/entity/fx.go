package entity

import (
	"github.com/stayops/revaudit/internal/entity/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("entity",
	fx.Provide(repository.Provide),
)
