package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/platform/neo4jdb"
	"github.com/confabhq/confab-backend/internal/types"
)

// Relationship types written by the similarity refresh job and read back by
// the per-category candidate queries.
const (
	RelSimilarDemo     = "SIMILAR_DEMO"
	RelSimilarInterest = "SIMILAR_INTEREST"
	RelSimilarSkill    = "SIMILAR_SKILL"
)

func similarityRel(category types.SimilarityCategory) (string, error) {
	switch category {
	case types.CategoryDemographics:
		return RelSimilarDemo, nil
	case types.CategoryInterests:
		return RelSimilarInterest, nil
	case types.CategorySkills:
		return RelSimilarSkill, nil
	default:
		return "", fmt.Errorf("unknown similarity category %q", category)
	}
}

// SimilarityReader serves ranked similarity candidates out of the
// precomputed SIMILAR_* relationships.
type SimilarityReader struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewSimilarityReader(client *neo4jdb.Client, baseLog *logger.Logger) *SimilarityReader {
	return &SimilarityReader{client: client, log: baseLog.With("component", "SimilarityReader")}
}

const demographicsCandidateQuery = `
MATCH (u:User {id: $user_id})-[s:` + RelSimilarDemo + `]->(cand:User)
OPTIONAL MATCH (cand)-[:HAS_CURRENT_ROLE]->(role:JobRole)
OPTIONAL MATCH (cand)-[:WORKS_AT {is_current: true}]->(curco:Company)
OPTIONAL MATCH (u)-[:WORKS_AT]->(co:Company)<-[:WORKS_AT]-(cand)
OPTIONAL MATCH (u)-[:LIVES_IN]->(loc:Location)<-[:LIVES_IN]-(cand)
OPTIONAL MATCH (u)-[:STUDIED_AT]->(uni:University)<-[:STUDIED_AT]-(cand)
RETURN cand.id AS user_id,
       cand.full_name AS full_name,
       role.name AS role,
       curco.name AS company,
       s.score AS score,
       [x IN collect(DISTINCT co.name) WHERE x IS NOT NULL] AS shared_companies,
       [x IN collect(DISTINCT loc.name) WHERE x IS NOT NULL] AS shared_locations,
       [x IN collect(DISTINCT uni.name) WHERE x IS NOT NULL] AS shared_universities
ORDER BY s.score DESC
LIMIT $limit`

const interestsCandidateQuery = `
MATCH (u:User {id: $user_id})-[s:` + RelSimilarInterest + `]->(cand:User)
OPTIONAL MATCH (cand)-[:HAS_CURRENT_ROLE]->(role:JobRole)
OPTIONAL MATCH (cand)-[:WORKS_AT {is_current: true}]->(curco:Company)
OPTIONAL MATCH (u)-[:HAS_INTEREST]->(i:Interest)<-[:HAS_INTEREST]-(cand)
RETURN cand.id AS user_id,
       cand.full_name AS full_name,
       role.name AS role,
       curco.name AS company,
       s.score AS score,
       [x IN collect(DISTINCT i.name) WHERE x IS NOT NULL] AS common_interests
ORDER BY s.score DESC
LIMIT $limit`

const skillsCandidateQuery = `
MATCH (u:User {id: $user_id})-[s:` + RelSimilarSkill + `]->(cand:User)
OPTIONAL MATCH (cand)-[:HAS_CURRENT_ROLE]->(role:JobRole)
OPTIONAL MATCH (cand)-[:WORKS_AT {is_current: true}]->(curco:Company)
OPTIONAL MATCH (u)-[:HAS_SKILL]->(sk:Skill)<-[:HAS_SKILL]-(cand)
RETURN cand.id AS user_id,
       cand.full_name AS full_name,
       role.name AS role,
       curco.name AS company,
       s.score AS score,
       [x IN collect(DISTINCT sk.name) WHERE x IS NOT NULL] AS common_skills
ORDER BY s.score DESC
LIMIT $limit`

func candidateQueryFor(category types.SimilarityCategory) (query string, evidenceFields []string, err error) {
	switch category {
	case types.CategoryDemographics:
		return demographicsCandidateQuery, []string{
			types.EvidenceSharedCompanies,
			types.EvidenceSharedLocations,
			types.EvidenceSharedUniversities,
		}, nil
	case types.CategoryInterests:
		return interestsCandidateQuery, []string{types.EvidenceCommonInterests}, nil
	case types.CategorySkills:
		return skillsCandidateQuery, []string{types.EvidenceCommonSkills}, nil
	default:
		return "", nil, fmt.Errorf("unknown similarity category %q", category)
	}
}

// TopSimilar returns up to limit candidates for one category, highest score
// first, with per-category evidence attached.
func (sr *SimilarityReader) TopSimilar(ctx context.Context, userID uuid.UUID, category types.SimilarityCategory, limit int) ([]*types.SimilarityCandidate, error) {
	if sr.client == nil || sr.client.Driver == nil {
		return nil, fmt.Errorf("similarity graph is not configured")
	}
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query, evidenceFields, err := candidateQueryFor(category)
	if err != nil {
		return nil, err
	}

	session := sr.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: sr.client.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{
			"user_id": userID.String(),
			"limit":   int64(limit),
		})
		if err != nil {
			return nil, err
		}

		var candidates []*types.SimilarityCandidate
		for res.Next(ctx) {
			cand, err := candidateFromRecord(res.Record(), evidenceFields)
			if err != nil {
				sr.log.Warn("Skipping malformed similarity record", "category", category, "error", err)
				continue
			}
			candidates = append(candidates, cand)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return candidates, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]*types.SimilarityCandidate), nil
}

func candidateFromRecord(record *neo4j.Record, evidenceFields []string) (*types.SimilarityCandidate, error) {
	values := map[string]any{}
	for i, key := range record.Keys {
		values[key] = record.Values[i]
	}

	rawID := asString(values["user_id"])
	candID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("candidate id %q: %w", rawID, err)
	}

	cand := &types.SimilarityCandidate{
		UserID:   candID,
		FullName: asString(values["full_name"]),
		Role:     asString(values["role"]),
		Company:  asString(values["company"]),
		Score:    asFloat(values["score"]),
		Evidence: map[string][]string{},
	}
	for _, field := range evidenceFields {
		if names := asStringList(values[field]); len(names) > 0 {
			cand.Evidence[field] = names
		}
	}
	return cand, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func asStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
