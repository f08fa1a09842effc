package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/confabhq/confab-backend/internal/platform/apierr"
	"github.com/confabhq/confab-backend/internal/types"
)

var (
	viewer = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	candA  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	candB  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	candC  = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

type fakeSimilaritySource struct {
	byCategory map[types.SimilarityCategory][]*types.SimilarityCandidate
	errs       map[types.SimilarityCategory]error
}

func (fs *fakeSimilaritySource) TopSimilar(ctx context.Context, userID uuid.UUID, category types.SimilarityCategory, limit int) ([]*types.SimilarityCandidate, error) {
	if err := fs.errs[category]; err != nil {
		return nil, err
	}
	rows := fs.byCategory[category]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func cand(id uuid.UUID, name string, score float64, evidence map[string][]string) *types.SimilarityCandidate {
	return &types.SimilarityCandidate{UserID: id, FullName: name, Score: score, Evidence: evidence}
}

func newTestRecommender(t *testing.T, source SimilaritySource) RecommendationService {
	t.Helper()
	rs, err := NewRecommendationService(source, DefaultWeights(), testLogger(t))
	if err != nil {
		t.Fatalf("NewRecommendationService: %v", err)
	}
	return rs
}

func TestAggregateCompositeScoring(t *testing.T) {
	source := &fakeSimilaritySource{byCategory: map[types.SimilarityCategory][]*types.SimilarityCandidate{
		types.CategoryDemographics: {cand(candA, "Avery", 0.5, nil)},
		types.CategoryInterests:    {cand(candB, "Blake", 0.3, nil)},
		types.CategorySkills:       {cand(candB, "Blake", 0.4, nil)},
	}}
	rs := newTestRecommender(t, source)

	recs, err := rs.Aggregate(context.Background(), viewer, 10)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("recs: want=2 got=%d", len(recs))
	}

	// Blake: 0.60*0.3 + 0.10*0.4 = 0.22 beats Avery: 0.20*0.5 = 0.10.
	if recs[0].UserID != candB {
		t.Fatalf("rank 0: want=%s got=%s", candB, recs[0].UserID)
	}
	if math.Abs(recs[0].CompositeScore-0.22) > 1e-9 {
		t.Fatalf("Blake composite: want=0.22 got=%v", recs[0].CompositeScore)
	}
	if math.Abs(recs[1].CompositeScore-0.10) > 1e-9 {
		t.Fatalf("Avery composite: want=0.10 got=%v", recs[1].CompositeScore)
	}

	wantScores := map[string]float64{"demographics": 0, "interests": 0.3, "skills": 0.4}
	if !reflect.DeepEqual(recs[0].PerCategoryScores, wantScores) {
		t.Fatalf("per-category scores: want=%v got=%v", wantScores, recs[0].PerCategoryScores)
	}
}

func TestAggregateEvidenceUnionDedups(t *testing.T) {
	source := &fakeSimilaritySource{byCategory: map[types.SimilarityCategory][]*types.SimilarityCandidate{
		types.CategoryDemographics: {cand(candA, "Avery", 0.5, map[string][]string{
			types.EvidenceSharedCompanies: {"Acme Corp", "Globex"},
		})},
		types.CategoryInterests: {cand(candA, "Avery", 0.2, map[string][]string{
			types.EvidenceSharedCompanies: {"Acme Corp"},
			types.EvidenceCommonInterests: {"Chess"},
		})},
	}}
	rs := newTestRecommender(t, source)

	recs, err := rs.Aggregate(context.Background(), viewer, 10)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("recs: want=1 got=%d", len(recs))
	}

	want := map[string][]string{
		types.EvidenceSharedCompanies: {"Acme Corp", "Globex"},
		types.EvidenceCommonInterests: {"Chess"},
	}
	if !reflect.DeepEqual(recs[0].Evidence, want) {
		t.Fatalf("evidence: want=%v got=%v", want, recs[0].Evidence)
	}
}

func TestAggregateTruncatesToFinalLimit(t *testing.T) {
	var rows []*types.SimilarityCandidate
	for i := 0; i < 5; i++ {
		id := uuid.MustParse(fmt.Sprintf("44444444-4444-4444-4444-44444444444%d", i))
		rows = append(rows, cand(id, fmt.Sprintf("User %d", i), float64(5-i), nil))
	}
	source := &fakeSimilaritySource{byCategory: map[types.SimilarityCategory][]*types.SimilarityCandidate{
		types.CategoryInterests: rows,
	}}
	rs := newTestRecommender(t, source)

	recs, err := rs.Aggregate(context.Background(), viewer, 2)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("recs: want=2 got=%d", len(recs))
	}
	if recs[0].UserID != rows[0].UserID || recs[1].UserID != rows[1].UserID {
		t.Fatalf("kept wrong candidates: got=[%s %s]", recs[0].UserID, recs[1].UserID)
	}
}

func TestAggregateTieBreaksByAscendingID(t *testing.T) {
	source := &fakeSimilaritySource{byCategory: map[types.SimilarityCategory][]*types.SimilarityCandidate{
		types.CategoryInterests: {
			cand(candC, "Casey", 0.5, nil),
			cand(candA, "Avery", 0.5, nil),
			cand(candB, "Blake", 0.5, nil),
		},
	}}
	rs := newTestRecommender(t, source)

	recs, err := rs.Aggregate(context.Background(), viewer, 10)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	got := []uuid.UUID{recs[0].UserID, recs[1].UserID, recs[2].UserID}
	want := []uuid.UUID{candA, candB, candC}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tie order: want=%v got=%v", want, got)
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	source := &fakeSimilaritySource{byCategory: map[types.SimilarityCategory][]*types.SimilarityCandidate{
		types.CategoryDemographics: {cand(candA, "Avery", 0.4, nil), cand(candB, "Blake", 0.4, nil)},
		types.CategorySkills:       {cand(candC, "Casey", 0.9, nil)},
	}}
	rs := newTestRecommender(t, source)

	first, err := rs.Aggregate(context.Background(), viewer, 10)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := rs.Aggregate(context.Background(), viewer, 10)
		if err != nil {
			t.Fatalf("Aggregate run %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: want=%v got=%v", i, first, again)
		}
	}
}

func TestAggregateToleratesPartialFailure(t *testing.T) {
	source := &fakeSimilaritySource{
		byCategory: map[types.SimilarityCategory][]*types.SimilarityCandidate{
			types.CategoryInterests: {cand(candA, "Avery", 0.5, nil)},
		},
		errs: map[types.SimilarityCategory]error{
			types.CategoryDemographics: fmt.Errorf("neo4j timeout"),
		},
	}
	rs := newTestRecommender(t, source)

	recs, err := rs.Aggregate(context.Background(), viewer, 10)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(recs) != 1 || recs[0].UserID != candA {
		t.Fatalf("want Avery only, got=%v", recs)
	}
	if recs[0].PerCategoryScores["demographics"] != 0 {
		t.Fatalf("failed category must contribute zero, got=%v", recs[0].PerCategoryScores)
	}
}

func TestAggregateAllCategoriesFailedIsUnavailable(t *testing.T) {
	source := &fakeSimilaritySource{errs: map[types.SimilarityCategory]error{
		types.CategoryDemographics: fmt.Errorf("down"),
		types.CategoryInterests:    fmt.Errorf("down"),
		types.CategorySkills:       fmt.Errorf("down"),
	}}
	rs := newTestRecommender(t, source)

	_, err := rs.Aggregate(context.Background(), viewer, 10)
	if !apierr.IsCode(err, apierr.CodeUnavailable) {
		t.Fatalf("want %s, got %v", apierr.CodeUnavailable, err)
	}
}

func TestForCategoryValidatesInput(t *testing.T) {
	rs := newTestRecommender(t, &fakeSimilaritySource{})

	if _, err := rs.ForCategory(context.Background(), uuid.Nil, types.CategorySkills, 5); !apierr.IsCode(err, apierr.CodeInvalidArgument) {
		t.Fatalf("nil user: want %s, got %v", apierr.CodeInvalidArgument, err)
	}
	if _, err := rs.ForCategory(context.Background(), viewer, types.SimilarityCategory("astrology"), 5); !apierr.IsCode(err, apierr.CodeInvalidArgument) {
		t.Fatalf("bad category: want %s, got %v", apierr.CodeInvalidArgument, err)
	}
}

func TestDefaultWeightsValues(t *testing.T) {
	w := DefaultWeights()
	if w.Demographics != 0.20 || w.Interests != 0.60 || w.Skills != 0.10 {
		t.Fatalf("defaults: got=%+v", w)
	}
}

func TestLoadWeightsFromFile(t *testing.T) {
	path := t.TempDir() + "/weights.yaml"
	if err := os.WriteFile(path, []byte("demographics: 0.3\ninterests: 0.5\nskills: 0.2\n"), 0o644); err != nil {
		t.Fatalf("write weights file: %v", err)
	}
	t.Setenv("RECOMMENDATION_WEIGHTS_FILE", path)

	w := LoadWeights(testLogger(t))
	if w.Demographics != 0.3 || w.Interests != 0.5 || w.Skills != 0.2 {
		t.Fatalf("loaded weights: got=%+v", w)
	}
}

func TestLoadWeightsRejectsNegative(t *testing.T) {
	path := t.TempDir() + "/weights.yaml"
	if err := os.WriteFile(path, []byte("demographics: -1\ninterests: 0.5\nskills: 0.2\n"), 0o644); err != nil {
		t.Fatalf("write weights file: %v", err)
	}
	t.Setenv("RECOMMENDATION_WEIGHTS_FILE", path)

	if w := LoadWeights(testLogger(t)); w != DefaultWeights() {
		t.Fatalf("want defaults, got=%+v", w)
	}
}
