package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/confabhq/confab-backend/internal/platform/apierr"
	"github.com/confabhq/confab-backend/internal/platform/envutil"
	"github.com/confabhq/confab-backend/internal/platform/logger"
	"github.com/confabhq/confab-backend/internal/types"
)

const defaultFinalLimit = 10

// fetchMultiplier oversamples each category so candidates that rank mid-pack
// in several categories can still beat single-category leaders after fusion.
const fetchMultiplier = 3

// SimilaritySource serves ranked candidates for one category.
// *graph.SimilarityReader is the production implementation.
type SimilaritySource interface {
	TopSimilar(ctx context.Context, userID uuid.UUID, category types.SimilarityCategory, limit int) ([]*types.SimilarityCandidate, error)
}

// RecommendationService fuses the three category signals into one ranked
// list. Results are computed per request and never persisted.
type RecommendationService interface {
	Aggregate(ctx context.Context, userID uuid.UUID, finalLimit int) ([]*types.AggregatedRecommendation, error)
	ForCategory(ctx context.Context, userID uuid.UUID, category types.SimilarityCategory, limit int) ([]*types.SimilarityCandidate, error)
}

type recommendationService struct {
	source       SimilaritySource
	weights      Weights
	log          *logger.Logger
	fetchTimeout time.Duration
}

func NewRecommendationService(source SimilaritySource, weights Weights, baseLog *logger.Logger) (RecommendationService, error) {
	if source == nil {
		return nil, fmt.Errorf("recommendation service requires a similarity source")
	}
	return &recommendationService{
		source:       source,
		weights:      weights,
		log:          baseLog.With("service", "RecommendationService"),
		fetchTimeout: envutil.Seconds("CATEGORY_FETCH_TIMEOUT_SECONDS", 5*time.Second),
	}, nil
}

type categoryFetch struct {
	candidates []*types.SimilarityCandidate
	err        error
}

func (rs *recommendationService) Aggregate(ctx context.Context, userID uuid.UUID, finalLimit int) ([]*types.AggregatedRecommendation, error) {
	if userID == uuid.Nil {
		return nil, apierr.InvalidArgument(fmt.Errorf("user id is required"))
	}
	if finalLimit <= 0 {
		finalLimit = defaultFinalLimit
	}
	fetchLimit := fetchMultiplier * finalLimit

	categories := types.AllCategories()
	fetches := make([]categoryFetch, len(categories))

	// Each fetch stands alone: one category timing out or erroring must not
	// cancel the others, so no shared errgroup context.
	var g errgroup.Group
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, rs.fetchTimeout)
			defer cancel()
			candidates, err := rs.source.TopSimilar(fetchCtx, userID, category, fetchLimit)
			fetches[i] = categoryFetch{candidates: candidates, err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, category := range categories {
		if fetches[i].err != nil {
			failed++
			rs.log.Warn("Similarity category fetch failed, treating as empty",
				"user_id", userID, "category", category, "error", fetches[i].err)
			fetches[i].candidates = nil
		}
	}
	if failed == len(categories) {
		return nil, apierr.Unavailable(fmt.Errorf("all %d similarity categories failed for user %s", len(categories), userID))
	}

	byID := map[uuid.UUID]*types.AggregatedRecommendation{}
	evidenceSets := map[uuid.UUID]map[string]map[string]bool{}
	for i, category := range categories {
		for _, cand := range fetches[i].candidates {
			rec, ok := byID[cand.UserID]
			if !ok {
				scores := make(map[string]float64, len(categories))
				for _, c := range categories {
					scores[string(c)] = 0
				}
				rec = &types.AggregatedRecommendation{
					UserID:            cand.UserID,
					FullName:          cand.FullName,
					Role:              cand.Role,
					Company:           cand.Company,
					PerCategoryScores: scores,
					Evidence:          map[string][]string{},
				}
				byID[cand.UserID] = rec
				evidenceSets[cand.UserID] = map[string]map[string]bool{}
			}
			if rec.FullName == "" {
				rec.FullName = cand.FullName
			}
			if rec.Role == "" {
				rec.Role = cand.Role
			}
			if rec.Company == "" {
				rec.Company = cand.Company
			}
			// A candidate appears at most once per category, so this is an
			// assignment, never an accumulation.
			rec.PerCategoryScores[string(category)] = cand.Score

			for field, names := range cand.Evidence {
				set := evidenceSets[cand.UserID][field]
				if set == nil {
					set = map[string]bool{}
					evidenceSets[cand.UserID][field] = set
				}
				for _, name := range names {
					set[name] = true
				}
			}
		}
	}

	out := make([]*types.AggregatedRecommendation, 0, len(byID))
	for id, rec := range byID {
		var composite float64
		for _, category := range categories {
			composite += rs.weights.For(category) * rec.PerCategoryScores[string(category)]
		}
		rec.CompositeScore = composite

		for field, set := range evidenceSets[id] {
			names := make([]string, 0, len(set))
			for name := range set {
				names = append(names, name)
			}
			sort.Strings(names)
			rec.Evidence[field] = names
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CompositeScore != out[j].CompositeScore {
			return out[i].CompositeScore > out[j].CompositeScore
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	if len(out) > finalLimit {
		out = out[:finalLimit]
	}
	return out, nil
}

func (rs *recommendationService) ForCategory(ctx context.Context, userID uuid.UUID, category types.SimilarityCategory, limit int) ([]*types.SimilarityCandidate, error) {
	if userID == uuid.Nil {
		return nil, apierr.InvalidArgument(fmt.Errorf("user id is required"))
	}
	if !category.Valid() {
		return nil, apierr.InvalidArgument(fmt.Errorf("unknown similarity category %q", category))
	}
	if limit <= 0 {
		limit = defaultFinalLimit
	}

	fetchCtx, cancel := context.WithTimeout(ctx, rs.fetchTimeout)
	defer cancel()
	candidates, err := rs.source.TopSimilar(fetchCtx, userID, category, limit)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("category %q fetch: %w", category, err))
	}
	return candidates, nil
}
