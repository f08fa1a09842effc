package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/platform/neo4jdb"
	"github.com/confabhq/confab-backend/internal/types"
)

var profileConstraints = []string{
	`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
	`CREATE CONSTRAINT skill_id_unique IF NOT EXISTS FOR (s:Skill) REQUIRE s.id IS UNIQUE`,
	`CREATE CONSTRAINT interest_id_unique IF NOT EXISTS FOR (i:Interest) REQUIRE i.id IS UNIQUE`,
	`CREATE CONSTRAINT company_id_unique IF NOT EXISTS FOR (c:Company) REQUIRE c.id IS UNIQUE`,
	`CREATE CONSTRAINT job_role_id_unique IF NOT EXISTS FOR (r:JobRole) REQUIRE r.id IS UNIQUE`,
	`CREATE CONSTRAINT location_id_unique IF NOT EXISTS FOR (l:Location) REQUIRE l.id IS UNIQUE`,
}

// EnsureProfileSchema creates the uniqueness constraints the profile graph
// relies on. Failures are logged and swallowed so startup continues against
// Neo4j editions that reject some constraint syntax.
func EnsureProfileSchema(ctx context.Context, client *neo4jdb.Client, log *logger.Logger) {
	if client == nil || client.Driver == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	for _, stmt := range profileConstraints {
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			if log != nil {
				log.Warn("neo4j schema init failed (continuing)", "error", err)
			}
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func UpsertUserNode(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, user *types.User) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if user == nil || user.ID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (u:User {id: $user_id})
SET u.full_name = $full_name,
    u.registration_category = $registration_category,
    u.synced_at = $synced_at
`, map[string]any{
			"user_id":               user.ID.String(),
			"full_name":             user.FullName(),
			"registration_category": user.RegistrationCategory,
			"synced_at":             time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func DeleteUserNode(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, userID uuid.UUID) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if userID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (u:User {id: $user_id})
DETACH DELETE u
`, map[string]any{"user_id": userID.String()})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func attributeEdge(kind types.EntityKind) (label, relType string, err error) {
	switch kind {
	case types.EntityKindSkill:
		return "Skill", "HAS_SKILL", nil
	case types.EntityKindInterest:
		return "Interest", "HAS_INTEREST", nil
	case types.EntityKindCompany:
		return "Company", "WORKS_AT", nil
	case types.EntityKindJobRole:
		return "JobRole", "HAS_CURRENT_ROLE", nil
	case types.EntityKindLocation:
		return "Location", "LIVES_IN", nil
	default:
		return "", "", fmt.Errorf("unknown entity kind %q", kind)
	}
}

// MergeAttributeEdge connects a user to a canonical entity node, creating the
// entity node on first reference. Company edges carry an is_current flag.
func MergeAttributeEdge(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, userID uuid.UUID, entity *types.CanonicalEntity, isCurrent bool) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if userID == uuid.Nil || entity == nil || entity.ID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	label, relType, err := attributeEdge(entity.Kind)
	if err != nil {
		return err
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	query := fmt.Sprintf(`
MERGE (u:User {id: $user_id})
MERGE (e:%s {id: $entity_id})
SET e.name = $entity_name
MERGE (u)-[rel:%s]->(e)
SET rel.synced_at = $synced_at
`, label, relType)
	params := map[string]any{
		"user_id":     userID.String(),
		"entity_id":   entity.ID.String(),
		"entity_name": entity.Name,
		"synced_at":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if entity.Kind == types.EntityKindCompany {
		query += `SET rel.is_current = $is_current
`
		params["is_current"] = isCurrent
	}

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// SetCurrentLocation replaces the user's LIVES_IN edge. A user lives in one
// place at a time, so any previous edge is removed first.
func SetCurrentLocation(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, userID uuid.UUID, location *types.CanonicalEntity) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if userID == uuid.Nil || location == nil || location.ID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if res, err := tx.Run(ctx, `
MATCH (u:User {id: $user_id})-[rel:LIVES_IN]->(:Location)
DELETE rel
`, map[string]any{"user_id": userID.String()}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		res, err := tx.Run(ctx, `
MERGE (u:User {id: $user_id})
MERGE (l:Location {id: $location_id})
SET l.name = $location_name
MERGE (u)-[rel:LIVES_IN]->(l)
SET rel.synced_at = $synced_at
`, map[string]any{
			"user_id":       userID.String(),
			"location_id":   location.ID.String(),
			"location_name": location.Name,
			"synced_at":     time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}
