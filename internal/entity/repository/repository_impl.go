package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/stayops/revaudit/internal/entity/domain"
	pkgdb "github.com/stayops/revaudit/pkg/db"
	"github.com/stayops/revaudit/pkg/filter"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	GenID *snowflake.Node
}

type repo struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func Provide(p Params) domain.Repository {
	return &repo{db: p.DB, genID: p.GenID}
}

func (r *repo) GetOrCreate(ctx context.Context, kind domain.Kind, name string) (*domain.Entity, error) {
	trimmed := strings.TrimSpace(name)
	candidate := &domain.Entity{
		ID:      r.genID.Generate(),
		Kind:    kind,
		Name:    trimmed,
		NameKey: strings.ToLower(trimmed),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "name_key"}},
			DoNothing: true,
		}).
		Create(candidate).Error
	// A concurrent insert may surface as a duplicate key instead of a
	// no-op conflict depending on the driver; both resolve to the lookup.
	if err != nil && !pkgdb.IsDuplicateKeyErr(err) {
		return nil, err
	}

	var entity domain.Entity
	err = r.db.WithContext(ctx).
		Where("kind = ? AND name_key = ?", kind, candidate.NameKey).
		First(&entity).Error
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *repo) SearchIDs(ctx context.Context, kinds []domain.Kind, term string) ([]string, error) {
	kindValues := make([]any, 0, len(kinds))
	for _, kind := range kinds {
		kindValues = append(kindValues, string(kind))
	}
	cond, args := filter.ToSQL(filter.NewAnd(
		filter.In{Field: "kind", Values: kindValues},
		filter.Contains{Field: "name", Term: term},
	))

	var ids []snowflake.ID
	err := r.db.WithContext(ctx).
		Model(&domain.Entity{}).
		Where(cond, args...).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(ids))
	for _, id := range ids {
		result = append(result, id.String())
	}
	return result, nil
}

func (r *repo) ResolveNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	parsed := make([]snowflake.ID, 0, len(ids))
	for _, raw := range ids {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		parsed = append(parsed, id)
	}
	if len(parsed) == 0 {
		return names, nil
	}

	var entities []domain.Entity
	err := r.db.WithContext(ctx).
		Where("id IN ?", parsed).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	for _, entity := range entities {
		names[entity.ID.String()] = entity.Name
	}
	return names, nil
}

func (r *repo) List(ctx context.Context, kind domain.Kind) ([]domain.Entity, error) {
	var entities []domain.Entity
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("name asc").
		Find(&entities).Error
	return entities, err
}
