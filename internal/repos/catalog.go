package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/confabhq/confab-backend/internal/platform/apierr"
	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/types"
)

// CatalogRepo is the canonical entity store. Vectors are compared with the
// pgvector L2 operator; since all stored embeddings are unit length this
// ranks identically to cosine similarity.
type CatalogRepo interface {
	// NearestByEmbedding returns up to limit currently-valid entities of the
	// given kind, closest first.
	NearestByEmbedding(ctx context.Context, kind types.EntityKind, embedding []float32, limit int) ([]*types.CanonicalEntity, error)
	// BestLexicalMatch runs full-text relevance ranking of rawText restricted
	// to the given candidate ids and returns the top match, or nil when no
	// candidate satisfies the query.
	BestLexicalMatch(ctx context.Context, kind types.EntityKind, rawText string, ids []uuid.UUID) (*types.CanonicalEntity, error)
	// GetByName returns the entity with exactly this name, or nil.
	GetByName(ctx context.Context, kind types.EntityKind, name string) (*types.CanonicalEntity, error)
	// Insert creates a new entity. A unique-constraint violation on
	// (kind, name) is reported as apierr.CodeDuplicateEntity so the caller
	// can re-resolve instead of surfacing the conflict.
	Insert(ctx context.Context, entity *types.CanonicalEntity, embedding []float32) error
}

type catalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) CatalogRepo {
	return &catalogRepo{db: db, log: baseLog.With("repo", "CatalogRepo")}
}

type catalogTable struct {
	name string
	// set for skills_interests, which partitions two kinds in one table
	categoryColumn string
}

func tableFor(kind types.EntityKind) (catalogTable, error) {
	switch kind {
	case types.EntityKindSkill, types.EntityKindInterest:
		return catalogTable{name: "skills_interests", categoryColumn: "category"}, nil
	case types.EntityKindCompany:
		return catalogTable{name: "companies"}, nil
	case types.EntityKindJobRole:
		return catalogTable{name: "job_roles"}, nil
	case types.EntityKindLocation:
		return catalogTable{name: "locations"}, nil
	default:
		return catalogTable{}, fmt.Errorf("unknown entity kind %q", kind)
	}
}

func (t catalogTable) kindPredicate(kind types.EntityKind) (string, []any) {
	if t.categoryColumn == "" {
		return "", nil
	}
	return fmt.Sprintf("%s = ? AND ", t.categoryColumn), []any{string(kind)}
}

type catalogRow struct {
	ID   uuid.UUID
	Name string
}

func rowsToEntities(kind types.EntityKind, rows []catalogRow) []*types.CanonicalEntity {
	out := make([]*types.CanonicalEntity, 0, len(rows))
	for _, r := range rows {
		out = append(out, &types.CanonicalEntity{ID: r.ID, Kind: kind, Name: r.Name})
	}
	return out
}

func (cr *catalogRepo) NearestByEmbedding(ctx context.Context, kind types.EntityKind, embedding []float32, limit int) ([]*types.CanonicalEntity, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	pred, args := table.kindPredicate(kind)
	query := fmt.Sprintf(
		`SELECT id, name FROM %s WHERE %svalid_to > now() ORDER BY embedding <-> ? LIMIT ?`,
		table.name, pred,
	)
	args = append(args, pgvector.NewVector(embedding), limit)

	var rows []catalogRow
	if err := cr.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rowsToEntities(kind, rows), nil
}

func (cr *catalogRepo) BestLexicalMatch(ctx context.Context, kind types.EntityKind, rawText string, ids []uuid.UUID) (*types.CanonicalEntity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	pred, args := table.kindPredicate(kind)
	query := fmt.Sprintf(`
SELECT id, name FROM %s
WHERE %sid IN ?
  AND to_tsvector('english', name) @@ plainto_tsquery('english', ?)
ORDER BY ts_rank(to_tsvector('english', name), plainto_tsquery('english', ?)) DESC
LIMIT 1`, table.name, pred)
	args = append(args, ids, rawText, rawText)

	var rows []catalogRow
	if err := cr.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	entity := rowsToEntities(kind, rows)[0]
	return entity, nil
}

func (cr *catalogRepo) GetByName(ctx context.Context, kind types.EntityKind, name string) (*types.CanonicalEntity, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	pred, args := table.kindPredicate(kind)
	query := fmt.Sprintf(
		`SELECT id, name FROM %s WHERE %sname = ? AND valid_to > now() LIMIT 1`,
		table.name, pred,
	)
	args = append(args, name)

	var rows []catalogRow
	if err := cr.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowsToEntities(kind, rows)[0], nil
}

func (cr *catalogRepo) Insert(ctx context.Context, entity *types.CanonicalEntity, embedding []float32) error {
	table, err := tableFor(entity.Kind)
	if err != nil {
		return err
	}

	var stmt string
	var args []any
	vec := pgvector.NewVector(embedding)
	if table.categoryColumn != "" {
		stmt = fmt.Sprintf(
			`INSERT INTO %s (id, name, %s, embedding, valid_from, valid_to) VALUES (?, ?, ?, ?, now(), ?)`,
			table.name, table.categoryColumn,
		)
		args = []any{entity.ID, entity.Name, string(entity.Kind), vec, types.CatalogForever}
	} else {
		stmt = fmt.Sprintf(
			`INSERT INTO %s (id, name, embedding, valid_from, valid_to) VALUES (?, ?, ?, now(), ?)`,
			table.name,
		)
		args = []any{entity.ID, entity.Name, vec, types.CatalogForever}
	}

	if err := cr.db.WithContext(ctx).Exec(stmt, args...).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apierr.DuplicateEntity(err)
		}
		return err
	}
	cr.log.Debug("Created canonical entity", "kind", entity.Kind, "name", entity.Name)
	return nil
}
