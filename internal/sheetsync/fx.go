package sheetsync

import (
	"time"

	"github.com/stayops/revaudit/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("sheetsync",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(holder *config.SheetConfigHolder, log *zap.Logger) RowRemover {
	if holder.Get().WebhookURL == "" {
		log.Named("sheetsync").Warn("no sheet webhook configured, row removals will not be compensated")
		return NoOpRemover{}
	}
	return NewWebhookRemover(func() WebhookConfig {
		cfg := holder.Get()
		return WebhookConfig{
			URL:     cfg.WebhookURL,
			Token:   cfg.WebhookToken,
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		}
	}, log)
}
