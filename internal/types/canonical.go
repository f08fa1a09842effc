package types

import (
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
)

// EntityKind partitions the canonical catalog: entities of different kinds are
// never matched against each other.
type EntityKind string

const (
	EntityKindSkill    EntityKind = "skill"
	EntityKindInterest EntityKind = "interest"
	EntityKindCompany  EntityKind = "company"
	EntityKindJobRole  EntityKind = "job_role"
	EntityKindLocation EntityKind = "location"
)

func (k EntityKind) Valid() bool {
	switch k {
	case EntityKindSkill, EntityKindInterest, EntityKindCompany, EntityKindJobRole, EntityKindLocation:
		return true
	default:
		return false
	}
}

// CanonicalEntity is the resolved view of one deduplicated catalog entry.
// Name keeps the first-seen raw text; the row is immutable after creation.
type CanonicalEntity struct {
	ID   uuid.UUID  `json:"id"`
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`
}

// CatalogForever is the open end of the bitemporal validity window.
var CatalogForever = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// Skills and interests share one table, partitioned by the category column;
// companies, job roles and locations each get their own table, mirroring the
// per-kind catalog layout.

type SkillInterest struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_skills_interests_category_name" json:"name"`
	Category  string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_skills_interests_category_name" json:"category"`
	Embedding pgvector.Vector `gorm:"type:vector(384)" json:"-"`
	ValidFrom time.Time       `gorm:"not null;default:now()" json:"valid_from"`
	ValidTo   time.Time       `gorm:"not null" json:"valid_to"`
}

func (SkillInterest) TableName() string {
	return "skills_interests"
}

type Company struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Embedding pgvector.Vector `gorm:"type:vector(384)" json:"-"`
	ValidFrom time.Time       `gorm:"not null;default:now()" json:"valid_from"`
	ValidTo   time.Time       `gorm:"not null" json:"valid_to"`
}

func (Company) TableName() string {
	return "companies"
}

type JobRole struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Embedding pgvector.Vector `gorm:"type:vector(384)" json:"-"`
	ValidFrom time.Time       `gorm:"not null;default:now()" json:"valid_from"`
	ValidTo   time.Time       `gorm:"not null" json:"valid_to"`
}

func (JobRole) TableName() string {
	return "job_roles"
}

type Location struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Embedding pgvector.Vector `gorm:"type:vector(384)" json:"-"`
	ValidFrom time.Time       `gorm:"not null;default:now()" json:"valid_from"`
	ValidTo   time.Time       `gorm:"not null" json:"valid_to"`
}

func (Location) TableName() string {
	return "locations"
}
