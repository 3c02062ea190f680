// Package scope derives the row-level visibility filter for a caller.
package scope

import (
	"errors"

	"github.com/stayops/revaudit/internal/auditrecord/domain"
	"github.com/stayops/revaudit/internal/rolecontext"
	"github.com/stayops/revaudit/pkg/filter"
)

// ErrNoConnectedEntities rejects non-admin callers without any connected
// entity; their scope would otherwise be empty rather than restricted.
var ErrNoConnectedEntities = errors.New("no_connected_entities")

// Resolve builds the base filter restricting visible records to the caller's
// authorized entities.
//
// Admin callers are unrestricted; an explicit entity id narrows them across
// all three reference columns since an admin may target any level. Non-admin
// callers are restricted on the reference column matching their role. An
// explicit entity id is trusted as already permitted on read paths; ownership
// enforcement for mutations happens at the repository.
func Resolve(rc rolecontext.RoleContext, explicitEntityID string) (filter.Expr, error) {
	if rc.Admin() {
		if explicitEntityID == "" {
			return nil, nil
		}
		return filter.NewOr(
			filter.Equals{Field: domain.ColPortfolioID, Value: explicitEntityID},
			filter.Equals{Field: domain.ColSubPortfolio, Value: explicitEntityID},
			filter.Equals{Field: domain.ColPropertyID, Value: explicitEntityID},
		), nil
	}

	column, ok := domain.RefColumnForRole(rc.Role)
	if !ok {
		return nil, domain.ErrForbidden
	}
	if len(rc.ConnectedEntityIDs) == 0 {
		return nil, ErrNoConnectedEntities
	}

	if explicitEntityID != "" {
		return filter.Equals{Field: column, Value: explicitEntityID}, nil
	}

	// A multiple-property owner gets the same any-of restriction as the
	// default; the flag is carried for future per-owner narrowing.
	values := make([]any, 0, len(rc.ConnectedEntityIDs))
	for _, id := range rc.ConnectedEntityIDs {
		values = append(values, id)
	}
	return filter.In{Field: column, Values: values}, nil
}
