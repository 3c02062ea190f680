package auditrecord

import (
	"github.com/stayops/revaudit/internal/auditrecord/repository"
	"github.com/stayops/revaudit/internal/auditrecord/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auditrecord",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
