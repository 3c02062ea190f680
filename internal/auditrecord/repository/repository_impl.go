package repository

import (
	"context"
	"errors"

	"github.com/stayops/revaudit/internal/auditrecord/domain"
	"github.com/stayops/revaudit/pkg/filter"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB *gorm.DB
}

type repo struct {
	db *gorm.DB
}

func Provide(p Params) domain.Repository {
	return &repo{db: p.DB}
}

func (r *repo) FindPage(ctx context.Context, expr filter.Expr, orderBy string, offset, limit int) ([]domain.AuditRecord, int64, error) {
	base := r.db.WithContext(ctx).Model(&domain.AuditRecord{})
	if cond, args := filter.ToSQL(expr); cond != "" {
		base = base.Where(cond, args...)
	}

	// Separate sessions so the count does not contaminate the page query.
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []domain.AuditRecord
	err := base.Session(&gorm.Session{}).
		Order(orderBy).
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *repo) FindByID(ctx context.Context, id string) (*domain.AuditRecord, error) {
	var record domain.AuditRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) UpdateFields(ctx context.Context, id string, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.AuditRecord{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.AuditRecord{}).Error
}
