package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/confabhq/confab-backend/internal/platform/apierr"
	"github.com/confabhq/confab-backend/internal/platform/envutil"
	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/platform/redisdb"
	"github.com/confabhq/confab-backend/internal/repos"
	"github.com/confabhq/confab-backend/internal/types"
)

// nearestLimit is how many vector neighbors feed the lexical re-rank.
const nearestLimit = 5

// Canonicalizer maps free-form profile text onto canonical catalog entities,
// creating a new entity only when no same-kind candidate exists.
type Canonicalizer interface {
	// Resolve runs the hybrid pipeline: embed the text, take the closest
	// same-kind entities, prefer a full-text match among them, otherwise the
	// vector-closest one, otherwise create a new entity.
	Resolve(ctx context.Context, rawText string, kind types.EntityKind) (*types.CanonicalEntity, error)
	// ResolveExact tries an exact name lookup (cache, then store) before
	// falling back to Resolve. Used for kinds like locations where input is
	// usually already canonical.
	ResolveExact(ctx context.Context, rawText string, kind types.EntityKind) (*types.CanonicalEntity, error)
}

type canonicalizerService struct {
	catalog  repos.CatalogRepo
	embedder Embedder
	cache    *redisdb.Client
	log      *logger.Logger
	cacheTTL time.Duration

	// serializes creation per (kind, name) so racing resolvers of the same
	// unseen text produce one insert instead of a pile of 23505 retries
	createGroup singleflight.Group
}

func NewCanonicalizerService(catalog repos.CatalogRepo, embedder Embedder, cache *redisdb.Client, baseLog *logger.Logger) (Canonicalizer, error) {
	if catalog == nil {
		return nil, fmt.Errorf("canonicalizer requires a catalog repo")
	}
	if embedder == nil {
		return nil, fmt.Errorf("canonicalizer requires an embedder")
	}
	return &canonicalizerService{
		catalog:  catalog,
		embedder: embedder,
		cache:    cache,
		log:      baseLog.With("service", "CanonicalizerService"),
		cacheTTL: envutil.Seconds("RESOLVE_CACHE_TTL_SECONDS", 10*time.Minute),
	}, nil
}

func (cs *canonicalizerService) Resolve(ctx context.Context, rawText string, kind types.EntityKind) (*types.CanonicalEntity, error) {
	raw := strings.TrimSpace(rawText)
	if raw == "" {
		return nil, apierr.InvalidArgument(fmt.Errorf("entity text is required"))
	}
	if !kind.Valid() {
		return nil, apierr.InvalidArgument(fmt.Errorf("unknown entity kind %q", kind))
	}

	embedding, err := cs.embedder.EmbedText(ctx, raw)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("embed %q: %w", kind, err))
	}

	entity, err := cs.match(ctx, kind, raw, embedding)
	if err != nil {
		return nil, err
	}
	if entity != nil {
		return entity, nil
	}
	return cs.create(ctx, kind, raw, embedding)
}

// match applies the hybrid ranking over existing entities. A nil entity with a
// nil error means the catalog holds no same-kind candidate at all.
func (cs *canonicalizerService) match(ctx context.Context, kind types.EntityKind, raw string, embedding []float32) (*types.CanonicalEntity, error) {
	candidates, err := cs.catalog.NearestByEmbedding(ctx, kind, embedding, nearestLimit)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("vector search %q: %w", kind, err))
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, cand := range candidates {
		ids = append(ids, cand.ID)
	}
	best, err := cs.catalog.BestLexicalMatch(ctx, kind, raw, ids)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("lexical rerank %q: %w", kind, err))
	}
	if best != nil {
		return best, nil
	}
	return candidates[0], nil
}

func (cs *canonicalizerService) create(ctx context.Context, kind types.EntityKind, raw string, embedding []float32) (*types.CanonicalEntity, error) {
	key := string(kind) + "\x00" + strings.ToLower(raw)
	v, err, _ := cs.createGroup.Do(key, func() (any, error) {
		entity := &types.CanonicalEntity{ID: uuid.New(), Kind: kind, Name: raw}
		insertErr := cs.catalog.Insert(ctx, entity, embedding)
		if insertErr == nil {
			cs.log.Info("Created canonical entity", "kind", kind, "entity_id", entity.ID)
			return entity, nil
		}
		if !apierr.IsCode(insertErr, apierr.CodeDuplicateEntity) {
			return nil, apierr.Unavailable(fmt.Errorf("insert %q: %w", kind, insertErr))
		}

		// Another writer created the same (kind, name) first. Re-resolve
		// against what is there now.
		existing, getErr := cs.catalog.GetByName(ctx, kind, raw)
		if getErr != nil {
			return nil, apierr.Unavailable(fmt.Errorf("re-resolve %q after conflict: %w", kind, getErr))
		}
		if existing != nil {
			return existing, nil
		}
		rematch, matchErr := cs.match(ctx, kind, raw, embedding)
		if matchErr != nil {
			return nil, matchErr
		}
		if rematch != nil {
			return rematch, nil
		}
		return nil, apierr.Unavailable(fmt.Errorf("entity %q/%q vanished after insert conflict", kind, raw))
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.CanonicalEntity), nil
}

func (cs *canonicalizerService) ResolveExact(ctx context.Context, rawText string, kind types.EntityKind) (*types.CanonicalEntity, error) {
	raw := strings.TrimSpace(rawText)
	if raw == "" {
		return nil, apierr.InvalidArgument(fmt.Errorf("entity text is required"))
	}
	if !kind.Valid() {
		return nil, apierr.InvalidArgument(fmt.Errorf("unknown entity kind %q", kind))
	}

	cacheKey := fmt.Sprintf("canonical:%s:%s", kind, strings.ToLower(raw))
	if cached, ok := cs.cache.Get(ctx, cacheKey); ok {
		if entity := decodeCachedEntity(kind, cached); entity != nil {
			return entity, nil
		}
	}

	existing, err := cs.catalog.GetByName(ctx, kind, raw)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("exact lookup %q: %w", kind, err))
	}
	if existing != nil {
		cs.cache.Set(ctx, cacheKey, encodeCachedEntity(existing), cs.cacheTTL)
		return existing, nil
	}

	resolved, err := cs.Resolve(ctx, raw, kind)
	if err != nil {
		return nil, err
	}
	cs.cache.Set(ctx, cacheKey, encodeCachedEntity(resolved), cs.cacheTTL)
	return resolved, nil
}

func encodeCachedEntity(entity *types.CanonicalEntity) string {
	return entity.ID.String() + "\x1f" + entity.Name
}

func decodeCachedEntity(kind types.EntityKind, cached string) *types.CanonicalEntity {
	parts := strings.SplitN(cached, "\x1f", 2)
	if len(parts) != 2 {
		return nil
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return nil
	}
	return &types.CanonicalEntity{ID: id, Kind: kind, Name: parts[1]}
}
