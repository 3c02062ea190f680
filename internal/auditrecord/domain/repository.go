package domain

import (
	"context"

	"github.com/stayops/revaudit/pkg/filter"
)

// Repository is the record store. Expressions come from the query builder;
// the repository only translates and executes them.
type Repository interface {
	// FindPage returns one sorted page plus the total match count, computed
	// independently of offset/limit.
	FindPage(ctx context.Context, expr filter.Expr, orderBy string, offset, limit int) ([]AuditRecord, int64, error)
	// FindByID returns nil when the id is absent.
	FindByID(ctx context.Context, id string) (*AuditRecord, error)
	// UpdateFields applies a column patch to one record.
	UpdateFields(ctx context.Context, id string, values map[string]any) error
	Delete(ctx context.Context, id string) error
}
