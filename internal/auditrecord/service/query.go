package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/stayops/revaudit/internal/auditrecord/domain"
	entitydomain "github.com/stayops/revaudit/internal/entity/domain"
	"github.com/stayops/revaudit/internal/rolecontext"
	"github.com/stayops/revaudit/internal/scope"
	"github.com/stayops/revaudit/pkg/filter"
)

var (
	// identifierPattern decides whether a search term is treated as a
	// channel id lookup instead of an entity name search.
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// entityIDPattern validates explicit entity-id filters; entity ids are
	// generated as digit strings.
	entityIDPattern = regexp.MustCompile(`^[0-9]+$`)
)

var sortColumns = map[string]string{
	"createdAt":     domain.ColCreatedAt,
	"postingType":   domain.ColPostingType,
	"from":          domain.ColFromDate,
	"to":            domain.ColToDate,
	"nextAuditDate": domain.ColNextAuditDate,
	"id":            domain.ColID,
}

const (
	defaultPage  = 1
	defaultLimit = 10
)

// buildListFilter composes search, explicit filters and role scope into one
// expression. Search intersects with role scope for non-admin callers, so it
// can narrow visibility but never widen it.
func (s *Service) buildListFilter(ctx context.Context, rc rolecontext.RoleContext, req domain.ListRequest) (filter.Expr, error) {
	roleExpr, err := scope.Resolve(rc, "")
	if err != nil {
		return nil, err
	}

	base := roleExpr
	if term := strings.TrimSpace(req.Search); term != "" {
		searchExpr, err := s.buildSearch(ctx, term)
		if err != nil {
			return nil, err
		}
		if rc.Admin() {
			base = searchExpr
		} else {
			base = filter.NewAnd(searchExpr, roleExpr)
		}
	}

	extra, err := buildExplicitFilters(req)
	if err != nil {
		return nil, err
	}

	return filter.NewAnd(append([]filter.Expr{base}, extra...)...), nil
}

// buildSearch resolves a free-text term. Identifier-shaped terms match the
// three OTA channel ids exactly; anything else is a case-insensitive name
// search against the portfolio and property registries.
func (s *Service) buildSearch(ctx context.Context, term string) (filter.Expr, error) {
	if identifierPattern.MatchString(term) {
		alternatives := make([]filter.Expr, 0, 3)
		for _, channel := range domain.Channels() {
			alternatives = append(alternatives, filter.Equals{Field: channel.IDCol, Value: term})
		}
		return filter.NewOr(alternatives...), nil
	}

	portfolioIDs, err := s.entities.SearchIDs(ctx, []entitydomain.Kind{entitydomain.KindPortfolio}, term)
	if err != nil {
		return nil, err
	}
	propertyIDs, err := s.entities.SearchIDs(ctx, []entitydomain.Kind{entitydomain.KindProperty}, term)
	if err != nil {
		return nil, err
	}

	return filter.Or{Exprs: []filter.Expr{
		filter.In{Field: domain.ColPortfolioID, Values: toAny(portfolioIDs)},
		filter.In{Field: domain.ColPropertyID, Values: toAny(propertyIDs)},
	}}, nil
}

func buildExplicitFilters(req domain.ListRequest) ([]filter.Expr, error) {
	var exprs []filter.Expr

	entityFilters := []struct {
		value  string
		column string
	}{
		{req.PortfolioID, domain.ColPortfolioID},
		{req.SubPortfolioID, domain.ColSubPortfolio},
		{req.PropertyID, domain.ColPropertyID},
	}
	for _, f := range entityFilters {
		value := strings.TrimSpace(f.value)
		if value == "" {
			continue
		}
		if !entityIDPattern.MatchString(value) {
			return nil, domain.ErrInvalidFilter
		}
		exprs = append(exprs, filter.Equals{Field: f.column, Value: value})
	}

	if postingType := strings.TrimSpace(req.PostingType); postingType != "" {
		exprs = append(exprs, filter.Equals{Field: domain.ColPostingType, Value: postingType})
	}

	switch {
	case req.StartDate != nil && req.EndDate != nil:
		exprs = append(exprs, filter.RangeOverlap{
			StartField: domain.ColFromDate,
			EndField:   domain.ColToDate,
			From:       *req.StartDate,
			To:         *req.EndDate,
		})
	case req.StartDate != nil || req.EndDate != nil:
		return nil, domain.ErrInvalidDateRange
	}

	return exprs, nil
}

func normalizeSort(sortBy, sortOrder string) string {
	column, ok := sortColumns[strings.TrimSpace(sortBy)]
	if !ok {
		column = domain.ColCreatedAt
		sortOrder = "desc"
	}
	direction := "desc"
	switch strings.ToLower(strings.TrimSpace(sortOrder)) {
	case "asc", "ascending", "1":
		direction = "asc"
	}
	return column + " " + direction
}

func normalizePaging(page, limit int) (offset, pageSize int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return (page - 1) * limit, limit
}

func toAny(values []string) []any {
	result := make([]any, 0, len(values))
	for _, v := range values {
		result = append(result, v)
	}
	return result
}
