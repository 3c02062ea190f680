package domain

import "errors"

var (
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("record_not_found")
	ErrInvalidFilter    = errors.New("invalid_filter")
	ErrInvalidDateRange = errors.New("invalid_date_range")
	// ErrRestrictedField rejects updates touching ownership references,
	// regardless of role.
	ErrRestrictedField = errors.New("restricted_fields")
	// ErrUpstream means the spreadsheet compensation call failed; the local
	// mutation is aborted.
	ErrUpstream = errors.New("upstream_failure")
)
