package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stayops/revaudit/internal/auditrecord/domain"
	"github.com/stayops/revaudit/internal/config"
	entitydomain "github.com/stayops/revaudit/internal/entity/domain"
	"github.com/stayops/revaudit/internal/rolecontext"
	"github.com/stayops/revaudit/internal/scope"
	"github.com/stayops/revaudit/internal/sheetsync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	Entities entitydomain.Repository
	Remover  sheetsync.RowRemover
	SheetCfg *config.SheetConfigHolder
}

type Service struct {
	log      *zap.Logger
	repo     domain.Repository
	entities entitydomain.Repository
	remover  sheetsync.RowRemover
	sheetCfg *config.SheetConfigHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("auditrecord.service"),
		repo:     p.Repo,
		entities: p.Entities,
		remover:  p.Remover,
		sheetCfg: p.SheetCfg,
	}
}

func (s *Service) List(ctx context.Context, rc rolecontext.RoleContext, req domain.ListRequest) (domain.ListResponse, error) {
	expr, err := s.buildListFilter(ctx, rc, req)
	if err != nil {
		return domain.ListResponse{}, translateScopeErr(err)
	}

	offset, limit := normalizePaging(req.Page, req.Limit)
	records, total, err := s.repo.FindPage(ctx, expr, normalizeSort(req.SortBy, req.SortOrder), offset, limit)
	if err != nil {
		return domain.ListResponse{}, err
	}

	views, err := s.resolveViews(ctx, records)
	if err != nil {
		return domain.ListResponse{}, err
	}
	return domain.ListResponse{Data: views, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, rc rolecontext.RoleContext, id string) (domain.RecordView, error) {
	record, err := s.authorizedRecord(ctx, rc, id)
	if err != nil {
		return domain.RecordView{}, err
	}
	views, err := s.resolveViews(ctx, []domain.AuditRecord{*record})
	if err != nil {
		return domain.RecordView{}, err
	}
	return views[0], nil
}

func (s *Service) Update(ctx context.Context, rc rolecontext.RoleContext, id string, patch map[string]any) (domain.RecordView, error) {
	if _, err := s.authorizedRecord(ctx, rc, id); err != nil {
		return domain.RecordView{}, err
	}

	values, err := translatePatch(patch)
	if err != nil {
		return domain.RecordView{}, err
	}
	if err := s.repo.UpdateFields(ctx, id, values); err != nil {
		return domain.RecordView{}, err
	}
	return s.Get(ctx, rc, id)
}

func (s *Service) Delete(ctx context.Context, rc rolecontext.RoleContext, id string) error {
	if _, err := s.authorizedRecord(ctx, rc, id); err != nil {
		return err
	}

	// The sheet row goes first. If the collaborator refuses, nothing is
	// deleted locally; a sheet row without a record would be re-imported,
	// a record without a sheet row would drift.
	if err := s.remover.RemoveRow(ctx, id); err != nil {
		s.log.Warn("sheet row removal failed, aborting delete",
			zap.String("record_id", id), zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) UpdateFiles(ctx context.Context, rc rolecontext.RoleContext, updates []domain.FileUpdate) ([]domain.FileUpdateResult, error) {
	results := make([]domain.FileUpdateResult, 0, len(updates))
	for _, update := range updates {
		id := strings.TrimSpace(update.RecordID)
		result := domain.FileUpdateResult{RecordID: id}

		if id == "" {
			result.Error = domain.ErrInvalidFilter.Error()
			results = append(results, result)
			continue
		}
		if _, err := s.authorizedRecord(ctx, rc, id); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		if err := s.repo.UpdateFields(ctx, id, map[string]any{"file_url": update.FileURL}); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		result.OK = true
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) Export(ctx context.Context, rc rolecontext.RoleContext, req domain.ListRequest) ([]byte, error) {
	expr, err := s.buildListFilter(ctx, rc, req)
	if err != nil {
		return nil, translateScopeErr(err)
	}

	maxRows := s.sheetCfg.Get().ExportMaxRows
	if maxRows <= 0 {
		maxRows = 10_000
	}
	records, _, err := s.repo.FindPage(ctx, expr, normalizeSort(req.SortBy, req.SortOrder), 0, maxRows)
	if err != nil {
		return nil, err
	}
	views, err := s.resolveViews(ctx, records)
	if err != nil {
		return nil, err
	}
	return sheetsync.BuildWorkbook(views)
}

// authorizedRecord loads a record and re-derives the ownership check: admin
// unconditional, non-admin callers must have the record's role-matching
// reference among their connected entities.
func (s *Service) authorizedRecord(ctx context.Context, rc rolecontext.RoleContext, id string) (*domain.AuditRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	if rc.Admin() {
		return record, nil
	}

	var refID string
	switch rc.Role {
	case rolecontext.RolePortfolio:
		refID = record.PortfolioID
	case rolecontext.RoleSubPortfolio:
		if record.SubPortfolioID != nil {
			refID = *record.SubPortfolioID
		}
	case rolecontext.RoleProperty:
		refID = record.PropertyID
	default:
		return nil, domain.ErrForbidden
	}
	if refID == "" || !rc.HasEntity(refID) {
		return nil, domain.ErrForbidden
	}
	return record, nil
}

func (s *Service) resolveViews(ctx context.Context, records []domain.AuditRecord) ([]domain.RecordView, error) {
	ids := make([]string, 0, len(records)*3)
	for _, record := range records {
		ids = append(ids, record.PortfolioID, record.PropertyID)
		if record.SubPortfolioID != nil {
			ids = append(ids, *record.SubPortfolioID)
		}
	}
	names, err := s.entities.ResolveNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]domain.RecordView, 0, len(records))
	for _, record := range records {
		view := domain.RecordView{
			AuditRecord: record,
			Portfolio:   domain.EntityRef{ID: record.PortfolioID, Name: names[record.PortfolioID]},
			Property:    domain.EntityRef{ID: record.PropertyID, Name: names[record.PropertyID]},
		}
		if record.SubPortfolioID != nil {
			view.SubPortfolio = &domain.EntityRef{ID: *record.SubPortfolioID, Name: names[*record.SubPortfolioID]}
		}
		views = append(views, view)
	}
	return views, nil
}

func translateScopeErr(err error) error {
	if errors.Is(err, scope.ErrNoConnectedEntities) {
		return domain.ErrForbidden
	}
	return err
}
