package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	recorddomain "github.com/stayops/revaudit/internal/auditrecord/domain"
	"github.com/stayops/revaudit/internal/clock"
	"github.com/stayops/revaudit/internal/dashboard/domain"
	"github.com/stayops/revaudit/internal/rolecontext"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func setupDashboard(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbConn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&recorddomain.AuditRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := NewService(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(testNow),
		Cache: noopCache{},
	})
	return svc, dbConn
}

func seedDashboard(t *testing.T, dbConn *gorm.DB) {
	t.Helper()

	past := testNow.AddDate(0, -1, 0)
	soon := testNow.AddDate(0, 0, 7)
	later := testNow.AddDate(0, 0, 30)

	records := []recorddomain.AuditRecord{
		{
			ID:            "d-1",
			PortfolioID:   "100",
			PropertyID:    "200",
			NextAuditDate: &soon,
			Expedia:       recorddomain.ChannelRecord{AmountCollectable: "$1,234.56", AmountConfirmed: "1000"},
			Booking:       recorddomain.ChannelRecord{AmountCollectable: "500.50"},
		},
		{
			ID:            "d-2",
			PortfolioID:   "100",
			PropertyID:    "201",
			NextAuditDate: &later,
			Expedia:       recorddomain.ChannelRecord{AmountCollectable: "765.44"},
			Agoda:         recorddomain.ChannelRecord{AmountCollectable: "not a number", AmountConfirmed: "N/A"},
		},
		{
			ID:            "d-3",
			PortfolioID:   "101",
			PropertyID:    "202",
			NextAuditDate: &past,
			Agoda:         recorddomain.ChannelRecord{AmountCollectable: "42", AmountConfirmed: "42"},
		},
	}
	for i := range records {
		if err := dbConn.Create(&records[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestMetricsAggregateForAdmin(t *testing.T) {
	svc, dbConn := setupDashboard(t)
	seedDashboard(t, dbConn)

	result, err := svc.Metrics(context.Background(), rolecontext.RoleContext{Role: rolecontext.RoleAdmin}, domain.MetricsRequest{})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	agg, ok := result.(domain.AggregateMetrics)
	if !ok {
		t.Fatalf("expected aggregate metrics, got %T", result)
	}

	if agg.TotalAudits != 3 {
		t.Fatalf("total audits = %d, want 3", agg.TotalAudits)
	}
	if agg.Collectable.Expedia != 2000.00 {
		t.Fatalf("expedia collectable = %v, want 2000.00", agg.Collectable.Expedia)
	}
	if agg.Collectable.Booking != 500.50 {
		t.Fatalf("booking collectable = %v, want 500.50", agg.Collectable.Booking)
	}
	// Unparseable amounts contribute zero, they never fail the aggregation.
	if agg.Collectable.Agoda != 42 {
		t.Fatalf("agoda collectable = %v, want 42", agg.Collectable.Agoda)
	}
	if agg.Collectable.Total != 2542.50 {
		t.Fatalf("total collectable = %v, want 2542.50", agg.Collectable.Total)
	}
	if agg.Confirmed.Expedia != 1000 || agg.Confirmed.Agoda != 42 {
		t.Fatalf("confirmed sums wrong: %+v", agg.Confirmed)
	}

	// Per-channel counts, summed across channels. d-1 and d-2 both sell on
	// expedia, d-3 on agoda, d-2 has a zero-value agoda block.
	if agg.TotalProperty.Expedia != 2 || agg.TotalProperty.Booking != 1 || agg.TotalProperty.Agoda != 1 {
		t.Fatalf("property counts wrong: %+v", agg.TotalProperty)
	}
	if agg.TotalProperty.Total != 4 {
		t.Fatalf("property total = %d, want cross-channel sum 4", agg.TotalProperty.Total)
	}

	// Due records: strictly future dates, earliest first.
	if agg.NextAuditDateCount != 2 {
		t.Fatalf("due count = %d, want 2", agg.NextAuditDateCount)
	}
	if len(agg.NextAuditDateIDs) != 2 || agg.NextAuditDateIDs[0] != "d-1" || agg.NextAuditDateIDs[1] != "d-2" {
		t.Fatalf("due ids = %v, want [d-1 d-2]", agg.NextAuditDateIDs)
	}
}

func TestMetricsScopedToPortfolio(t *testing.T) {
	svc, dbConn := setupDashboard(t)
	seedDashboard(t, dbConn)

	result, err := svc.Metrics(context.Background(), rolecontext.RoleContext{
		Role:               rolecontext.RolePortfolio,
		ConnectedEntityIDs: []string{"101"},
	}, domain.MetricsRequest{})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	agg := result.(domain.AggregateMetrics)

	if agg.TotalAudits != 1 {
		t.Fatalf("total audits = %d, want 1", agg.TotalAudits)
	}
	if agg.Collectable.Agoda != 42 || agg.Collectable.Expedia != 0 {
		t.Fatalf("scoped sums wrong: %+v", agg.Collectable)
	}
	// d-3's audit date is in the past, nothing is due.
	if agg.NextAuditDateCount != 0 {
		t.Fatalf("due count = %d, want 0", agg.NextAuditDateCount)
	}
}

func TestMetricsPropertyShape(t *testing.T) {
	svc, dbConn := setupDashboard(t)
	seedDashboard(t, dbConn)

	result, err := svc.Metrics(context.Background(), rolecontext.RoleContext{
		Role:               rolecontext.RoleProperty,
		ConnectedEntityIDs: []string{"200", "201"},
	}, domain.MetricsRequest{})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	prop, ok := result.(domain.PropertyMetrics)
	if !ok {
		t.Fatalf("expected property metrics, got %T", result)
	}

	want := testNow.AddDate(0, 0, 7)
	if prop.NextAuditDate == nil || !prop.NextAuditDate.Equal(want) {
		t.Fatalf("next audit date = %v, want %v", prop.NextAuditDate, want)
	}
	if prop.TotalAudits != 2 {
		t.Fatalf("total audits = %d, want 2", prop.TotalAudits)
	}
}

func TestMetricsPropertyNoUpcomingDate(t *testing.T) {
	svc, dbConn := setupDashboard(t)
	seedDashboard(t, dbConn)

	result, err := svc.Metrics(context.Background(), rolecontext.RoleContext{
		Role:               rolecontext.RoleProperty,
		ConnectedEntityIDs: []string{"202"},
	}, domain.MetricsRequest{})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	prop := result.(domain.PropertyMetrics)
	if prop.NextAuditDate != nil {
		t.Fatalf("expected no upcoming date, got %v", prop.NextAuditDate)
	}
}

func TestMetricsDateRangeValidation(t *testing.T) {
	svc, dbConn := setupDashboard(t)
	seedDashboard(t, dbConn)
	ctx := context.Background()
	admin := rolecontext.RoleContext{Role: rolecontext.RoleAdmin}

	start := testNow.AddDate(0, -2, 0)
	if _, err := svc.Metrics(ctx, admin, domain.MetricsRequest{StartDate: &start}); !errors.Is(err, recorddomain.ErrInvalidDateRange) {
		t.Fatalf("expected invalid date range, got %v", err)
	}

	if _, err := svc.Metrics(ctx, admin, domain.MetricsRequest{EntityID: "abc"}); !errors.Is(err, recorddomain.ErrInvalidFilter) {
		t.Fatalf("expected invalid filter for entity id, got %v", err)
	}
}

func TestMetricsForbiddenWithoutEntities(t *testing.T) {
	svc, dbConn := setupDashboard(t)
	seedDashboard(t, dbConn)

	_, err := svc.Metrics(context.Background(), rolecontext.RoleContext{Role: rolecontext.RoleSubPortfolio}, domain.MetricsRequest{})
	if !errors.Is(err, recorddomain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestMetricsIdempotent(t *testing.T) {
	svc, dbConn := setupDashboard(t)
	seedDashboard(t, dbConn)
	ctx := context.Background()
	admin := rolecontext.RoleContext{Role: rolecontext.RoleAdmin}

	first, err := svc.Metrics(ctx, admin, domain.MetricsRequest{})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.Metrics(ctx, admin, domain.MetricsRequest{})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if fmt.Sprintf("%+v", first) != fmt.Sprintf("%+v", second) {
		t.Fatalf("metrics not stable across reads:\n%+v\n%+v", first, second)
	}
}
