package domain

import (
	"context"
	"time"

	"github.com/stayops/revaudit/internal/rolecontext"
)

// MetricsRequest narrows the dashboard aggregation. Both date bounds must be
// supplied together; EntityID narrows by one entity honoring the caller's
// role level.
type MetricsRequest struct {
	StartDate *time.Time
	EndDate   *time.Time
	EntityID  string
}

// ChannelAmounts is one money figure split per OTA channel. Values are
// rounded to two decimals at this boundary only.
type ChannelAmounts struct {
	Expedia float64 `json:"expedia"`
	Booking float64 `json:"booking"`
	Agoda   float64 `json:"agoda"`
	Total   float64 `json:"total"`
}

// ChannelCounts counts participating properties per channel. Total sums the
// three channel counts, so a property active on two channels is counted
// twice. That mirrors the reference dashboard and is kept deliberately.
type ChannelCounts struct {
	Expedia int64 `json:"expedia"`
	Booking int64 `json:"booking"`
	Agoda   int64 `json:"agoda"`
	Total   int64 `json:"total"`
}

// MetricsCore is the role-independent part of the dashboard payload.
type MetricsCore struct {
	Collectable   ChannelAmounts `json:"collectableAmounts"`
	Confirmed     ChannelAmounts `json:"confirmedAmounts"`
	TotalAudits   int64          `json:"totalAudits"`
	TotalProperty ChannelCounts  `json:"totalProperty"`
}

// AggregateMetrics is the dashboard shape for admin, portfolio and
// sub-portfolio callers.
type AggregateMetrics struct {
	MetricsCore
	NextAuditDateCount int64    `json:"nextAuditDateCount"`
	NextAuditDateIDs   []string `json:"nextAuditDateIds"`
}

// PropertyMetrics is the dashboard shape for property callers: instead of
// due counts it carries the earliest upcoming audit date, or nil when none
// is scheduled.
type PropertyMetrics struct {
	MetricsCore
	NextAuditDate *time.Time `json:"nextAuditDate"`
}

// MetricsResult is the role-discriminated dashboard payload.
type MetricsResult interface {
	isMetricsResult()
}

func (AggregateMetrics) isMetricsResult() {}
func (PropertyMetrics) isMetricsResult()  {}

// Service computes the dashboard aggregation.
type Service interface {
	Metrics(ctx context.Context, rc rolecontext.RoleContext, req MetricsRequest) (MetricsResult, error)
}
