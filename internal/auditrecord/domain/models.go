package domain

import (
	"context"
	"time"

	"github.com/stayops/revaudit/internal/rolecontext"
	"gorm.io/datatypes"
)

// Column names used by the query builder, the scope resolver and the metrics
// aggregator. They must stay in sync with the gorm tags below.
const (
	ColID            = "id"
	ColPostingType   = "posting_type"
	ColPortfolioID   = "portfolio_id"
	ColSubPortfolio  = "sub_portfolio_id"
	ColPropertyID    = "property_id"
	ColFromDate      = "from_date"
	ColToDate        = "to_date"
	ColNextAuditDate = "next_audit_date"
	ColCreatedAt     = "created_at"
)

// RefColumnForRole maps a non-admin role to the reference column it is scoped
// on.
func RefColumnForRole(role rolecontext.Role) (string, bool) {
	switch role {
	case rolecontext.RolePortfolio:
		return ColPortfolioID, true
	case rolecontext.RoleSubPortfolio:
		return ColSubPortfolio, true
	case rolecontext.RoleProperty:
		return ColPropertyID, true
	default:
		return "", false
	}
}

// ChannelRecord is the per-OTA block embedded three times on a record.
// The two amount fields hold the raw spreadsheet strings; the source data is
// too inconsistently formatted to type them at rest.
type ChannelRecord struct {
	ChannelID         string `gorm:"column:channel_id;index" json:"channelId"`
	ReviewStatus      string `gorm:"column:review_status" json:"reviewStatus"`
	BillingStatus     string `gorm:"column:billing_status" json:"billingStatus"`
	AmountCollectable string `gorm:"column:amount_collectable" json:"amountCollectable"`
	AmountConfirmed   string `gorm:"column:amount_confirmed" json:"amountConfirmed"`
}

// AuditRecord is one OTA-tracked audit entry. Rows are created and refreshed
// by the spreadsheet sync job; the id is the external sheet row id.
type AuditRecord struct {
	ID             string            `gorm:"primaryKey;column:id"`
	PostingType    string            `gorm:"column:posting_type"`
	PortfolioID    string            `gorm:"column:portfolio_id;index"`
	SubPortfolioID *string           `gorm:"column:sub_portfolio_id;index"`
	PropertyID     string            `gorm:"column:property_id;index"`
	FromDate       *time.Time        `gorm:"column:from_date"`
	ToDate         *time.Time        `gorm:"column:to_date"`
	NextAuditDate  *time.Time        `gorm:"column:next_audit_date"`
	FileURL        string            `gorm:"column:file_url"`
	SourceMeta     datatypes.JSONMap `gorm:"column:source_meta"`
	Expedia        ChannelRecord     `gorm:"embedded;embeddedPrefix:expedia_"`
	Booking        ChannelRecord     `gorm:"embedded;embeddedPrefix:booking_"`
	Agoda          ChannelRecord     `gorm:"embedded;embeddedPrefix:agoda_"`
	CreatedAt      time.Time         `gorm:"column:created_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at"`
}

func (AuditRecord) TableName() string { return "audit_records" }

// Channel enumerates the three OTA channels with their column prefixes.
type Channel struct {
	Name  string
	IDCol string
	// Raw amount columns, normalized on read.
	CollectableCol string
	ConfirmedCol   string
}

// Channels returns the OTA channels in presentation order.
func Channels() []Channel {
	return []Channel{
		{Name: "expedia", IDCol: "expedia_channel_id", CollectableCol: "expedia_amount_collectable", ConfirmedCol: "expedia_amount_confirmed"},
		{Name: "booking", IDCol: "booking_channel_id", CollectableCol: "booking_amount_collectable", ConfirmedCol: "booking_amount_confirmed"},
		{Name: "agoda", IDCol: "agoda_channel_id", CollectableCol: "agoda_amount_collectable", ConfirmedCol: "agoda_amount_confirmed"},
	}
}

// ChannelByName returns the channel record block for a channel name.
func (r *AuditRecord) ChannelByName(name string) *ChannelRecord {
	switch name {
	case "expedia":
		return &r.Expedia
	case "booking":
		return &r.Booking
	case "agoda":
		return &r.Agoda
	default:
		return nil
	}
}

// EntityRef is a resolved ownership reference.
type EntityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RecordView is a record with its ownership references resolved to names.
type RecordView struct {
	AuditRecord
	Portfolio    EntityRef  `json:"portfolio"`
	SubPortfolio *EntityRef `json:"subPortfolio,omitempty"`
	Property     EntityRef  `json:"property"`
}

// ListRequest are the listing parameters after HTTP binding.
type ListRequest struct {
	Page           int
	Limit          int
	Search         string
	SortBy         string
	SortOrder      string
	PortfolioID    string
	SubPortfolioID string
	PropertyID     string
	PostingType    string
	StartDate      *time.Time
	EndDate        *time.Time
}

// ListResponse is one page of records plus the total match count, computed
// independently of pagination.
type ListResponse struct {
	Data  []RecordView `json:"data"`
	Total int64        `json:"total"`
}

// FileUpdate is one item of a bulk file-URL update.
type FileUpdate struct {
	RecordID string `json:"recordId"`
	FileURL  string `json:"fileUrl"`
}

// FileUpdateResult reports the outcome for a single bulk item. Bulk updates
// are reported per item, never collapsed into one pass/fail.
type FileUpdateResult struct {
	RecordID string `json:"recordId"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// Service is the role-scoped record engine.
type Service interface {
	List(ctx context.Context, rc rolecontext.RoleContext, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, rc rolecontext.RoleContext, id string) (RecordView, error)
	Update(ctx context.Context, rc rolecontext.RoleContext, id string, patch map[string]any) (RecordView, error)
	Delete(ctx context.Context, rc rolecontext.RoleContext, id string) error
	UpdateFiles(ctx context.Context, rc rolecontext.RoleContext, updates []FileUpdate) ([]FileUpdateResult, error)
	Export(ctx context.Context, rc rolecontext.RoleContext, req ListRequest) ([]byte, error)
}
