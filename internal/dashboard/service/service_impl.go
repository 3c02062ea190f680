package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	recorddomain "github.com/stayops/revaudit/internal/auditrecord/domain"
	"github.com/stayops/revaudit/internal/clock"
	"github.com/stayops/revaudit/internal/dashboard/domain"
	"github.com/stayops/revaudit/internal/money"
	"github.com/stayops/revaudit/internal/rolecontext"
	"github.com/stayops/revaudit/internal/scope"
	"github.com/stayops/revaudit/pkg/filter"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Cache MetricsCache
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	cache MetricsCache
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		clock: p.Clock,
		cache: p.Cache,
	}
}

// totals accumulates the six money sums and per-channel property counts in
// the order of recorddomain.Channels().
type totals struct {
	Collectable [3]float64
	Confirmed   [3]float64
	Props       [3]int64
	TotalAudits int64
}

type dueRow struct {
	ID            string    `gorm:"column:id"`
	NextAuditDate time.Time `gorm:"column:next_audit_date"`
}

func (s *Service) Metrics(ctx context.Context, rc rolecontext.RoleContext, req domain.MetricsRequest) (domain.MetricsResult, error) {
	if (req.StartDate == nil) != (req.EndDate == nil) {
		return nil, recorddomain.ErrInvalidDateRange
	}
	entityID := strings.TrimSpace(req.EntityID)
	if entityID != "" && !digitsOnly(entityID) {
		return nil, recorddomain.ErrInvalidFilter
	}

	scopeExpr, err := scope.Resolve(rc, entityID)
	if err != nil {
		if errors.Is(err, scope.ErrNoConnectedEntities) {
			return nil, recorddomain.ErrForbidden
		}
		return nil, err
	}

	exprs := []filter.Expr{scopeExpr}
	if req.StartDate != nil && req.EndDate != nil {
		exprs = append(exprs, filter.RangeOverlap{
			StartField: recorddomain.ColFromDate,
			EndField:   recorddomain.ColToDate,
			From:       *req.StartDate,
			To:         *req.EndDate,
		})
	}
	expr := filter.NewAnd(exprs...)

	key := cacheKey(rc, req)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, nil
	}

	now := s.clock.Now()
	cond, args := filter.ToSQL(expr)

	var sums totals
	var due []dueRow
	switch dialect := money.Dialect(s.db.Dialector.Name()); dialect {
	case money.DialectPostgres, money.DialectMySQL:
		sums, due, err = s.aggregateInStore(ctx, dialect, cond, args, now)
	default:
		sums, due, err = s.aggregateInProcess(ctx, cond, args, now)
	}
	if err != nil {
		return nil, fmt.Errorf("dashboard aggregation: %w", err)
	}

	result := shapeResult(rc, sums, due)
	s.cache.Set(ctx, key, result)
	return result, nil
}

// aggregateInStore runs the whole aggregation as one statement, normalizing
// the raw amount strings with the store-side rendering of the shared rule.
func (s *Service) aggregateInStore(ctx context.Context, dialect money.Dialect, cond string, args []any, now time.Time) (totals, []dueRow, error) {
	var sums totals

	selects := make([]string, 0, 10)
	channels := recorddomain.Channels()
	for i, channel := range channels {
		collectable, ok := money.SQLExpr(dialect, channel.CollectableCol)
		if !ok {
			return sums, nil, fmt.Errorf("no amount expression for dialect %s", dialect)
		}
		confirmed, _ := money.SQLExpr(dialect, channel.ConfirmedCol)
		selects = append(selects,
			fmt.Sprintf("COALESCE(SUM(%s), 0) AS c%d_collectable", collectable, i),
			fmt.Sprintf("COALESCE(SUM(%s), 0) AS c%d_confirmed", confirmed, i),
			fmt.Sprintf("COALESCE(SUM(CASE WHEN %s > 0 THEN 1 ELSE 0 END), 0) AS c%d_props", collectable, i),
		)
	}
	selects = append(selects, "COUNT(*) AS total_audits")

	if cond == "" {
		cond = "1 = 1"
	}
	query := fmt.Sprintf("SELECT %s FROM audit_records WHERE %s", strings.Join(selects, ", "), cond)

	var row struct {
		C0Collectable float64 `gorm:"column:c0_collectable"`
		C0Confirmed   float64 `gorm:"column:c0_confirmed"`
		C0Props       int64   `gorm:"column:c0_props"`
		C1Collectable float64 `gorm:"column:c1_collectable"`
		C1Confirmed   float64 `gorm:"column:c1_confirmed"`
		C1Props       int64   `gorm:"column:c1_props"`
		C2Collectable float64 `gorm:"column:c2_collectable"`
		C2Confirmed   float64 `gorm:"column:c2_confirmed"`
		C2Props       int64   `gorm:"column:c2_props"`
		TotalAudits   int64   `gorm:"column:total_audits"`
	}
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
		return sums, nil, err
	}

	sums = totals{
		Collectable: [3]float64{row.C0Collectable, row.C1Collectable, row.C2Collectable},
		Confirmed:   [3]float64{row.C0Confirmed, row.C1Confirmed, row.C2Confirmed},
		Props:       [3]int64{row.C0Props, row.C1Props, row.C2Props},
		TotalAudits: row.TotalAudits,
	}

	dueQuery := fmt.Sprintf(
		"SELECT id, next_audit_date FROM audit_records WHERE (%s) AND next_audit_date > ? ORDER BY next_audit_date ASC",
		cond,
	)
	var due []dueRow
	if err := s.db.WithContext(ctx).Raw(dueQuery, append(append([]any{}, args...), now)...).Scan(&due).Error; err != nil {
		return sums, nil, err
	}
	return sums, due, nil
}

// aggregateInProcess is the fallback for stores without regexp support. It
// applies the identical normalization rule per row.
func (s *Service) aggregateInProcess(ctx context.Context, cond string, args []any, now time.Time) (totals, []dueRow, error) {
	var sums totals

	stmt := s.db.WithContext(ctx).Model(&recorddomain.AuditRecord{})
	if cond != "" {
		stmt = stmt.Where(cond, args...)
	}
	var records []recorddomain.AuditRecord
	if err := stmt.Find(&records).Error; err != nil {
		return sums, nil, err
	}

	var due []dueRow
	channels := recorddomain.Channels()
	for _, record := range records {
		sums.TotalAudits++
		for i, channel := range channels {
			block := record.ChannelByName(channel.Name)
			collectable := money.Normalize(block.AmountCollectable)
			sums.Collectable[i] += collectable
			sums.Confirmed[i] += money.Normalize(block.AmountConfirmed)
			if collectable > 0 {
				sums.Props[i]++
			}
		}
		if record.NextAuditDate != nil && record.NextAuditDate.After(now) {
			due = append(due, dueRow{ID: record.ID, NextAuditDate: *record.NextAuditDate})
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAuditDate.Before(due[j].NextAuditDate) })
	return sums, due, nil
}

func shapeResult(rc rolecontext.RoleContext, sums totals, due []dueRow) domain.MetricsResult {
	core := domain.MetricsCore{
		Collectable: roundAmounts(sums.Collectable),
		Confirmed:   roundAmounts(sums.Confirmed),
		TotalAudits: sums.TotalAudits,
		TotalProperty: domain.ChannelCounts{
			Expedia: sums.Props[0],
			Booking: sums.Props[1],
			Agoda:   sums.Props[2],
			// A property active on several channels counts once per
			// channel, so Total can exceed the distinct property count.
			Total: sums.Props[0] + sums.Props[1] + sums.Props[2],
		},
	}

	if rc.Role == rolecontext.RoleProperty {
		result := domain.PropertyMetrics{MetricsCore: core}
		if len(due) > 0 {
			earliest := due[0].NextAuditDate
			result.NextAuditDate = &earliest
		}
		return result
	}

	ids := make([]string, 0, len(due))
	for _, row := range due {
		ids = append(ids, row.ID)
	}
	return domain.AggregateMetrics{
		MetricsCore:        core,
		NextAuditDateCount: int64(len(ids)),
		NextAuditDateIDs:   ids,
	}
}

func roundAmounts(values [3]float64) domain.ChannelAmounts {
	return domain.ChannelAmounts{
		Expedia: money.Round2(values[0]),
		Booking: money.Round2(values[1]),
		Agoda:   money.Round2(values[2]),
		Total:   money.Round2(values[0] + values[1] + values[2]),
	}
}

func cacheKey(rc rolecontext.RoleContext, req domain.MetricsRequest) string {
	ids := append([]string{}, rc.ConnectedEntityIDs...)
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(string(rc.Role))
	b.WriteString("|")
	b.WriteString(strings.Join(ids, ","))
	b.WriteString("|")
	if rc.MultiplePropertyOwner {
		b.WriteString("mpo")
	}
	b.WriteString("|")
	if req.StartDate != nil {
		b.WriteString(req.StartDate.UTC().Format(time.RFC3339))
	}
	b.WriteString("|")
	if req.EndDate != nil {
		b.WriteString(req.EndDate.UTC().Format(time.RFC3339))
	}
	b.WriteString("|")
	b.WriteString(strings.TrimSpace(req.EntityID))
	return b.String()
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
