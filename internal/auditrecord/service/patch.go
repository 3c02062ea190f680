package service

import (
	"strings"
	"time"

	"github.com/stayops/revaudit/internal/auditrecord/domain"
)

// Ownership references are written exclusively by the sheet import;
// API updates touching them are rejected regardless of role.
var restrictedPatchKeys = map[string]struct{}{
	"portfolioRef":     {},
	"subPortfolioRef":  {},
	"propertyRef":      {},
	"portfolioId":      {},
	"subPortfolioId":   {},
	"propertyId":       {},
	"portfolio_id":     {},
	"sub_portfolio_id": {},
	"property_id":      {},
}

var scalarPatchColumns = map[string]string{
	"postingType": domain.ColPostingType,
	"fileUrl":     "file_url",
}

var datePatchColumns = map[string]string{
	"from":          domain.ColFromDate,
	"to":            domain.ColToDate,
	"nextAuditDate": domain.ColNextAuditDate,
}

var channelPatchColumns = map[string]string{
	"channelId":         "channel_id",
	"reviewStatus":      "review_status",
	"billingStatus":     "billing_status",
	"amountCollectable": "amount_collectable",
	"amountConfirmed":   "amount_confirmed",
}

// translatePatch converts an API patch into a column update map. Unknown
// keys are ignored, matching the tolerant import-side handling of sheet
// columns.
func translatePatch(patch map[string]any) (map[string]any, error) {
	for key := range patch {
		if _, restricted := restrictedPatchKeys[key]; restricted {
			return nil, domain.ErrRestrictedField
		}
	}

	values := make(map[string]any, len(patch))
	for key, raw := range patch {
		if column, ok := scalarPatchColumns[key]; ok {
			text, ok := stringOrNil(raw)
			if !ok {
				return nil, domain.ErrInvalidFilter
			}
			values[column] = text
			continue
		}
		if column, ok := datePatchColumns[key]; ok {
			parsed, err := parsePatchDate(raw)
			if err != nil {
				return nil, err
			}
			values[column] = parsed
			continue
		}
		if block, ok := raw.(map[string]any); ok {
			prefix, known := channelPrefix(key)
			if !known {
				continue
			}
			for field, value := range block {
				column, ok := channelPatchColumns[field]
				if !ok {
					continue
				}
				text, ok := stringOrNil(value)
				if !ok {
					return nil, domain.ErrInvalidFilter
				}
				values[prefix+column] = text
			}
		}
	}
	return values, nil
}

func channelPrefix(key string) (string, bool) {
	switch key {
	case "expedia", "booking", "agoda":
		return key + "_", true
	default:
		return "", false
	}
}

func stringOrNil(raw any) (string, bool) {
	if raw == nil {
		return "", true
	}
	text, ok := raw.(string)
	return text, ok
}

func parsePatchDate(raw any) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	text, ok := raw.(string)
	if !ok {
		return nil, domain.ErrInvalidDateRange
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, text); err == nil {
			parsed = parsed.UTC()
			return &parsed, nil
		}
	}
	return nil, domain.ErrInvalidDateRange
}
