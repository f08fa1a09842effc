package types

import "github.com/google/uuid"

// SimilarityCategory names one of the three independent similarity signals
// produced by the graph similarity source.
type SimilarityCategory string

const (
	CategoryDemographics SimilarityCategory = "demographics"
	CategoryInterests    SimilarityCategory = "interests"
	CategorySkills       SimilarityCategory = "skills"
)

func AllCategories() []SimilarityCategory {
	return []SimilarityCategory{CategoryDemographics, CategoryInterests, CategorySkills}
}

func (c SimilarityCategory) Valid() bool {
	switch c {
	case CategoryDemographics, CategoryInterests, CategorySkills:
		return true
	default:
		return false
	}
}

// Evidence field names used across categories. Per-field lists are
// deduplicated when categories are fused.
const (
	EvidenceSharedCompanies    = "shared_companies"
	EvidenceSharedLocations    = "shared_locations"
	EvidenceSharedUniversities = "shared_universities"
	EvidenceCommonInterests    = "common_interests"
	EvidenceCommonSkills       = "common_skills"
)

// SimilarityCandidate is one row emitted by the graph similarity source for
// one category. Score is category-local and raw (range [0, inf), never
// normalized); cross-category comparison only happens after weighting.
type SimilarityCandidate struct {
	UserID   uuid.UUID           `json:"user_id"`
	FullName string              `json:"full_name"`
	Role     string              `json:"role,omitempty"`
	Company  string              `json:"company,omitempty"`
	Score    float64             `json:"score"`
	Evidence map[string][]string `json:"evidence,omitempty"`
}

// AggregatedRecommendation is the request-scoped fusion of the three category
// signals for one candidate. It is derived per call and never persisted.
type AggregatedRecommendation struct {
	UserID            uuid.UUID           `json:"user_id"`
	FullName          string              `json:"full_name"`
	Role              string              `json:"role,omitempty"`
	Company           string              `json:"company,omitempty"`
	PerCategoryScores map[string]float64  `json:"per_category_scores"`
	CompositeScore    float64             `json:"composite_score"`
	Evidence          map[string][]string `json:"evidence"`
}
