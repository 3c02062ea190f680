package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stayops/revaudit/internal/auditrecord/domain"
	"github.com/stayops/revaudit/internal/auditrecord/repository"
	"github.com/stayops/revaudit/internal/config"
	entitydomain "github.com/stayops/revaudit/internal/entity/domain"
	entityrepo "github.com/stayops/revaudit/internal/entity/repository"
	"github.com/stayops/revaudit/internal/rolecontext"
	"github.com/stayops/revaudit/internal/sheetsync"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingRemover struct {
	removed []string
	err     error
}

func (r *recordingRemover) RemoveRow(_ context.Context, recordID string) error {
	if r.err != nil {
		return r.err
	}
	r.removed = append(r.removed, recordID)
	return nil
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	entities entitydomain.Repository

	portfolioA string
	portfolioB string
	propertyA  string
	propertyB  string
}

func setupRecordService(t *testing.T, remover sheetsync.RowRemover) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbConn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.AuditRecord{}, &entitydomain.Entity{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	entities := entityrepo.Provide(entityrepo.Params{DB: dbConn, GenID: node})
	repo := repository.Provide(repository.Params{DB: dbConn})

	sheetCfg, err := config.NewSheetConfigHolder()
	if err != nil {
		t.Fatalf("sheet config: %v", err)
	}

	svc := NewService(Params{
		Log:      zap.NewNop(),
		Repo:     repo,
		Entities: entities,
		Remover:  remover,
		SheetCfg: sheetCfg,
	})

	f := &fixture{svc: svc, db: dbConn, entities: entities}
	f.seed(t)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	portfolioA, err := f.entities.GetOrCreate(ctx, entitydomain.KindPortfolio, "Coastal Holdings")
	if err != nil {
		t.Fatalf("seed portfolio: %v", err)
	}
	portfolioB, err := f.entities.GetOrCreate(ctx, entitydomain.KindPortfolio, "Mountain Group")
	if err != nil {
		t.Fatalf("seed portfolio: %v", err)
	}
	propertyA, err := f.entities.GetOrCreate(ctx, entitydomain.KindProperty, "Seaside Inn")
	if err != nil {
		t.Fatalf("seed property: %v", err)
	}
	propertyB, err := f.entities.GetOrCreate(ctx, entitydomain.KindProperty, "Summit Lodge")
	if err != nil {
		t.Fatalf("seed property: %v", err)
	}

	f.portfolioA = portfolioA.ID.String()
	f.portfolioB = portfolioB.ID.String()
	f.propertyA = propertyA.ID.String()
	f.propertyB = propertyB.ID.String()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	records := []domain.AuditRecord{
		{
			ID:          "row-1",
			PostingType: "monthly",
			PortfolioID: f.portfolioA,
			PropertyID:  f.propertyA,
			FromDate:    &from,
			ToDate:      &to,
			Expedia:     domain.ChannelRecord{ChannelID: "EXP-1001", AmountCollectable: "$1,234.56"},
			CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          "row-2",
			PostingType: "weekly",
			PortfolioID: f.portfolioA,
			PropertyID:  f.propertyA,
			Booking:     domain.ChannelRecord{ChannelID: "BK-2002"},
			CreatedAt:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          "row-3",
			PostingType: "monthly",
			PortfolioID: f.portfolioB,
			PropertyID:  f.propertyB,
			Agoda:       domain.ChannelRecord{ChannelID: "AG-3003"},
			CreatedAt:   time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC),
		},
	}
	for i := range records {
		if err := f.db.Create(&records[i]).Error; err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}
}

func portfolioCaller(ids ...string) rolecontext.RoleContext {
	return rolecontext.RoleContext{Role: rolecontext.RolePortfolio, ConnectedEntityIDs: ids}
}

func adminCaller() rolecontext.RoleContext {
	return rolecontext.RoleContext{Role: rolecontext.RoleAdmin}
}

func TestListScopesToConnectedEntities(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})
	ctx := context.Background()

	resp, err := f.svc.List(ctx, portfolioCaller(f.portfolioA), domain.ListRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 scoped records, got %d", resp.Total)
	}
	for _, view := range resp.Data {
		if view.PortfolioID != f.portfolioA {
			t.Fatalf("record %s leaked from portfolio %s", view.ID, view.PortfolioID)
		}
		if view.Portfolio.Name != "Coastal Holdings" {
			t.Fatalf("portfolio name not resolved, got %q", view.Portfolio.Name)
		}
	}

	all, err := f.svc.List(ctx, adminCaller(), domain.ListRequest{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if all.Total != 3 {
		t.Fatalf("expected admin to see 3 records, got %d", all.Total)
	}
}

func TestListRejectsEmptyConnectedEntities(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})

	_, err := f.svc.List(context.Background(), rolecontext.RoleContext{Role: rolecontext.RolePortfolio}, domain.ListRequest{})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSearchByChannelIdentifier(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})
	ctx := context.Background()

	resp, err := f.svc.List(ctx, adminCaller(), domain.ListRequest{Search: "AG-3003"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Total != 1 || resp.Data[0].ID != "row-3" {
		t.Fatalf("expected row-3 only, got total=%d", resp.Total)
	}

	// The same term from a caller scoped elsewhere must not widen visibility.
	scoped, err := f.svc.List(ctx, portfolioCaller(f.portfolioA), domain.ListRequest{Search: "AG-3003"})
	if err != nil {
		t.Fatalf("scoped search: %v", err)
	}
	if scoped.Total != 0 {
		t.Fatalf("scoped search leaked %d records", scoped.Total)
	}
}

func TestSearchByEntityName(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})

	resp, err := f.svc.List(context.Background(), adminCaller(), domain.ListRequest{Search: "coastal hold"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 records for name search, got %d", resp.Total)
	}
}

func TestListDateRangeOverlap(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})
	ctx := context.Background()

	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	resp, err := f.svc.List(ctx, adminCaller(), domain.ListRequest{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Only row-1 carries dates; rows with NULL bounds never match a range.
	if resp.Total != 1 || resp.Data[0].ID != "row-1" {
		t.Fatalf("expected row-1 only, got total=%d", resp.Total)
	}

	if _, err := f.svc.List(ctx, adminCaller(), domain.ListRequest{StartDate: &start}); !errors.Is(err, domain.ErrInvalidDateRange) {
		t.Fatalf("expected invalid date range for one-sided filter, got %v", err)
	}
}

func TestUpdateRejectsOwnershipReferences(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})

	for _, key := range []string{"portfolioId", "subPortfolioRef", "property_id"} {
		_, err := f.svc.Update(context.Background(), adminCaller(), "row-1", map[string]any{key: "999"})
		if !errors.Is(err, domain.ErrRestrictedField) {
			t.Fatalf("key %s: expected restricted field error, got %v", key, err)
		}
	}
}

func TestUpdatePersistsScalarDateAndChannelFields(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})
	ctx := context.Background()

	view, err := f.svc.Update(ctx, adminCaller(), "row-2", map[string]any{
		"postingType":   "quarterly",
		"nextAuditDate": "2026-06-01",
		"booking":       map[string]any{"reviewStatus": "done", "unknownField": "ignored"},
		"unknownTop":    "ignored",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if view.PostingType != "quarterly" {
		t.Fatalf("posting type not updated, got %q", view.PostingType)
	}
	if view.NextAuditDate == nil || !view.NextAuditDate.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("next audit date not updated, got %v", view.NextAuditDate)
	}
	if view.Booking.ReviewStatus != "done" {
		t.Fatalf("channel review status not updated, got %q", view.Booking.ReviewStatus)
	}
}

func TestUpdateForbiddenOutsideScope(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})

	_, err := f.svc.Update(context.Background(), portfolioCaller(f.portfolioA), "row-3", map[string]any{"postingType": "x"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDeleteAbortsWhenSheetRejects(t *testing.T) {
	remover := &recordingRemover{err: errors.New("sheet said no")}
	f := setupRecordService(t, remover)
	ctx := context.Background()

	err := f.svc.Delete(ctx, adminCaller(), "row-1")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	// The local row must survive an upstream refusal.
	if _, err := f.svc.Get(ctx, adminCaller(), "row-1"); err != nil {
		t.Fatalf("record should still exist: %v", err)
	}
}

func TestDeleteRemovesSheetRowFirst(t *testing.T) {
	remover := &recordingRemover{}
	f := setupRecordService(t, remover)
	ctx := context.Background()

	if err := f.svc.Delete(ctx, adminCaller(), "row-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(remover.removed) != 1 || remover.removed[0] != "row-1" {
		t.Fatalf("sheet removal not called, got %v", remover.removed)
	}
	if _, err := f.svc.Get(ctx, adminCaller(), "row-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestUpdateFilesReportsPerItem(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})

	results, err := f.svc.UpdateFiles(context.Background(), adminCaller(), []domain.FileUpdate{
		{RecordID: "row-1", FileURL: "https://files.example.com/a.pdf"},
		{RecordID: "missing", FileURL: "https://files.example.com/b.pdf"},
		{RecordID: "", FileURL: "https://files.example.com/c.pdf"},
	})
	if err != nil {
		t.Fatalf("update files: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].OK || results[0].Error != "" {
		t.Fatalf("first item should succeed: %+v", results[0])
	}
	if results[1].OK || results[1].Error == "" {
		t.Fatalf("second item should fail: %+v", results[1])
	}
	if results[2].OK {
		t.Fatalf("blank id should fail: %+v", results[2])
	}

	view, err := f.svc.Get(context.Background(), adminCaller(), "row-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.FileURL != "https://files.example.com/a.pdf" {
		t.Fatalf("file url not persisted, got %q", view.FileURL)
	}
}

func TestListPagination(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})
	ctx := context.Background()

	page1, err := f.svc.List(ctx, adminCaller(), domain.ListRequest{Page: 1, Limit: 2, SortBy: "id", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if page1.Total != 3 || len(page1.Data) != 2 {
		t.Fatalf("expected total 3 with 2 rows, got total=%d rows=%d", page1.Total, len(page1.Data))
	}

	page2, err := f.svc.List(ctx, adminCaller(), domain.ListRequest{Page: 2, Limit: 2, SortBy: "id", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if page2.Total != 3 || len(page2.Data) != 1 {
		t.Fatalf("expected total 3 with 1 row, got total=%d rows=%d", page2.Total, len(page2.Data))
	}
	if page2.Data[0].ID != "row-3" {
		t.Fatalf("unexpected row on page 2: %s", page2.Data[0].ID)
	}
}

func TestExplicitEntityFilterValidation(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})

	_, err := f.svc.List(context.Background(), adminCaller(), domain.ListRequest{PortfolioID: "not-digits"})
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected invalid filter, got %v", err)
	}
}

func TestExportBuildsWorkbook(t *testing.T) {
	f := setupRecordService(t, &recordingRemover{})

	payload, err := f.svc.Export(context.Background(), portfolioCaller(f.portfolioA), domain.ListRequest{SortBy: "id", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	workbook, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer workbook.Close()

	rows, err := workbook.GetRows("Audit Records")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	// Header plus the two scoped records.
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[1][0] != "row-1" {
		t.Fatalf("unexpected workbook layout: %v", rows[0])
	}
	if rows[1][2] != "Coastal Holdings" {
		t.Fatalf("portfolio name missing from export, got %q", rows[1][2])
	}
}
