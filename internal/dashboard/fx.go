package dashboard

import (
	"github.com/stayops/revaudit/internal/dashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dashboard",
	fx.Provide(service.NewMetricsCache),
	fx.Provide(service.NewService),
)
