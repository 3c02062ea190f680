package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Kind discriminates the three ownership registries stored in one table.
type Kind string

const (
	KindPortfolio    Kind = "portfolio"
	KindSubPortfolio Kind = "sub_portfolio"
	KindProperty     Kind = "property"
)

// Entity is a named ownership reference (portfolio, sub-portfolio or
// property). Entities are created on first sighting of a name by the sheet
// import and are never merged or renamed here. NameKey holds the lowercased
// trimmed name; uniqueness is per kind on that key.
type Entity struct {
	ID        snowflake.ID `gorm:"primaryKey;column:id"`
	Kind      Kind         `gorm:"column:kind;uniqueIndex:idx_entities_kind_name_key"`
	Name      string       `gorm:"column:name"`
	NameKey   string       `gorm:"column:name_key;uniqueIndex:idx_entities_kind_name_key"`
	CreatedAt time.Time    `gorm:"column:created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at"`
}

func (Entity) TableName() string { return "entities" }

// Repository is the registry store.
type Repository interface {
	// GetOrCreate upserts an entity by case-insensitive name. The upsert is
	// atomic so concurrent imports of the same name cannot race into
	// duplicates.
	GetOrCreate(ctx context.Context, kind Kind, name string) (*Entity, error)
	// SearchIDs returns ids of entities of the given kinds whose name
	// contains the term, case-insensitively.
	SearchIDs(ctx context.Context, kinds []Kind, term string) ([]string, error)
	// ResolveNames maps entity ids to display names. Unknown ids are absent
	// from the result.
	ResolveNames(ctx context.Context, ids []string) (map[string]string, error)
	// List returns all entities of one kind ordered by name.
	List(ctx context.Context, kind Kind) ([]Entity, error)
}
