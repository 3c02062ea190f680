// Package rolecontext carries the caller's role identity through the request
// context. The auth provider supplies role and connected entity ids per
// request; the core trusts them unconditionally.
package rolecontext

import (
	"context"
	"strings"
)

// Role is the access level granted by the auth provider.
type Role string

const (
	RoleAdmin        Role = "admin"
	RolePortfolio    Role = "portfolio"
	RoleSubPortfolio Role = "sub-portfolio"
	RoleProperty     Role = "property"
)

// ParseRole normalizes and validates a role string.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RolePortfolio:
		return RolePortfolio, true
	case RoleSubPortfolio:
		return RoleSubPortfolio, true
	case RoleProperty:
		return RoleProperty, true
	default:
		return "", false
	}
}

// RoleContext is the per-request access identity.
type RoleContext struct {
	Role                  Role
	ConnectedEntityIDs    []string
	MultiplePropertyOwner bool
}

// Admin reports whether the caller is unrestricted.
func (rc RoleContext) Admin() bool {
	return rc.Role == RoleAdmin
}

// HasEntity reports whether the given entity id is among the caller's
// connected entities.
func (rc RoleContext) HasEntity(id string) bool {
	for _, connected := range rc.ConnectedEntityIDs {
		if connected == id {
			return true
		}
	}
	return false
}

// RoleContextKey is the request context key for the caller identity.
type RoleContextKey struct{}

// WithRoleContext stores the caller identity in the context.
func WithRoleContext(ctx context.Context, rc RoleContext) context.Context {
	return context.WithValue(ctx, RoleContextKey{}, rc)
}

// FromContext returns the caller identity from context, if set.
func FromContext(ctx context.Context) (RoleContext, bool) {
	if ctx == nil {
		return RoleContext{}, false
	}
	rc, ok := ctx.Value(RoleContextKey{}).(RoleContext)
	return rc, ok
}
