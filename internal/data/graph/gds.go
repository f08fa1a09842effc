package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/platform/neo4jdb"
)

// Similarity refresh parameters. topK bounds the fan-out per user; the zero
// cutoff keeps even weak overlaps so the aggregator can weigh them.
const (
	similarityTopK   = 50
	similarityCutoff = 0.0
)

type similarityProjection struct {
	graphName  string
	nodeLabels []string
	relTypes   []string
	writeRel   string
}

var similarityProjections = []similarityProjection{
	{
		graphName:  "user_demographics_graph",
		nodeLabels: []string{"User", "Company", "Location", "University"},
		relTypes:   []string{"WORKS_AT", "LIVES_IN", "STUDIED_AT"},
		writeRel:   RelSimilarDemo,
	},
	{
		graphName:  "user_interest_graph",
		nodeLabels: []string{"User", "Interest"},
		relTypes:   []string{"HAS_INTEREST"},
		writeRel:   RelSimilarInterest,
	},
	{
		graphName:  "user_skill_graph",
		nodeLabels: []string{"User", "Skill"},
		relTypes:   []string{"HAS_SKILL"},
		writeRel:   RelSimilarSkill,
	},
}

func run(ctx context.Context, session neo4j.SessionWithContext, query string, params map[string]any) error {
	res, err := session.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

// RefreshSimilarities recomputes all three SIMILAR_* relationship sets with
// GDS node similarity. Each category drops its previous in-memory projection
// and its previous relationships before writing fresh scores, so readers only
// ever see complete generations per category.
func RefreshSimilarities(ctx context.Context, client *neo4jdb.Client, log *logger.Logger) error {
	if client == nil || client.Driver == nil {
		return fmt.Errorf("similarity graph is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	for _, proj := range similarityProjections {
		if err := refreshProjection(ctx, session, log, proj); err != nil {
			return fmt.Errorf("refresh %s: %w", proj.graphName, err)
		}
	}
	return nil
}

func refreshProjection(ctx context.Context, session neo4j.SessionWithContext, log *logger.Logger, proj similarityProjection) error {
	// failIfMissing=false makes the drop a no-op on first run.
	if err := run(ctx, session, `CALL gds.graph.drop($name, false)`, map[string]any{
		"name": proj.graphName,
	}); err != nil {
		return err
	}

	relProjection := map[string]any{}
	for _, relType := range proj.relTypes {
		relProjection[relType] = map[string]any{
			"type":        relType,
			"orientation": "UNDIRECTED",
		}
	}
	if err := run(ctx, session, `CALL gds.graph.project($name, $nodes, $rels)`, map[string]any{
		"name":  proj.graphName,
		"nodes": proj.nodeLabels,
		"rels":  relProjection,
	}); err != nil {
		return err
	}

	if err := run(ctx, session, fmt.Sprintf(`MATCH ()-[s:%s]->() DELETE s`, proj.writeRel), nil); err != nil {
		return err
	}

	if err := run(ctx, session, `
CALL gds.nodeSimilarity.write($name, {
  topK: $top_k,
  similarityCutoff: $cutoff,
  writeProperty: 'score',
  writeRelationshipType: $write_rel
})`, map[string]any{
		"name":      proj.graphName,
		"top_k":     int64(similarityTopK),
		"cutoff":    similarityCutoff,
		"write_rel": proj.writeRel,
	}); err != nil {
		return err
	}

	if log != nil {
		log.Info("Refreshed similarity projection", "graph", proj.graphName, "write_rel", proj.writeRel)
	}
	return nil
}
