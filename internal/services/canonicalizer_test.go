package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/confabhq/confab-backend/internal/platform/apierr"
	"github.com/confabhq/confab-backend/internal/types"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (fe *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	fe.mu.Lock()
	fe.calls++
	fe.mu.Unlock()
	if fe.err != nil {
		return nil, fe.err
	}
	return []float32{1, 0, 0}, nil
}

func (fe *fakeEmbedder) Dim() int { return 3 }

// fakeCatalog is an in-memory CatalogRepo. Default behavior: nearest returns
// same-kind entities in insertion order, lexical matching is case-insensitive
// name equality within the candidate set.
type fakeCatalog struct {
	mu       sync.Mutex
	ordered  []*types.CanonicalEntity
	inserts  int
	nearest  func(kind types.EntityKind) []*types.CanonicalEntity
	lexical  func(kind types.EntityKind, rawText string, ids []uuid.UUID) *types.CanonicalEntity
	storeErr error
}

func newFakeCatalog() *fakeCatalog { return &fakeCatalog{} }

func (fc *fakeCatalog) seed(kind types.EntityKind, name string) *types.CanonicalEntity {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	entity := &types.CanonicalEntity{ID: uuid.New(), Kind: kind, Name: name}
	fc.ordered = append(fc.ordered, entity)
	return entity
}

func (fc *fakeCatalog) NearestByEmbedding(ctx context.Context, kind types.EntityKind, embedding []float32, limit int) ([]*types.CanonicalEntity, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.storeErr != nil {
		return nil, fc.storeErr
	}
	if fc.nearest != nil {
		return fc.nearest(kind), nil
	}
	var out []*types.CanonicalEntity
	for _, e := range fc.ordered {
		if e.Kind == kind {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (fc *fakeCatalog) BestLexicalMatch(ctx context.Context, kind types.EntityKind, rawText string, ids []uuid.UUID) (*types.CanonicalEntity, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.storeErr != nil {
		return nil, fc.storeErr
	}
	if fc.lexical != nil {
		return fc.lexical(kind, rawText, ids), nil
	}
	allowed := map[uuid.UUID]bool{}
	for _, id := range ids {
		allowed[id] = true
	}
	for _, e := range fc.ordered {
		if e.Kind == kind && allowed[e.ID] && strings.EqualFold(e.Name, rawText) {
			return e, nil
		}
	}
	return nil, nil
}

func (fc *fakeCatalog) GetByName(ctx context.Context, kind types.EntityKind, name string) (*types.CanonicalEntity, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.storeErr != nil {
		return nil, fc.storeErr
	}
	for _, e := range fc.ordered {
		if e.Kind == kind && e.Name == name {
			return e, nil
		}
	}
	return nil, nil
}

func (fc *fakeCatalog) Insert(ctx context.Context, entity *types.CanonicalEntity, embedding []float32) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.storeErr != nil {
		return fc.storeErr
	}
	for _, e := range fc.ordered {
		if e.Kind == entity.Kind && e.Name == entity.Name {
			return apierr.DuplicateEntity(fmt.Errorf("duplicate %s/%s", entity.Kind, entity.Name))
		}
	}
	fc.inserts++
	fc.ordered = append(fc.ordered, entity)
	return nil
}

func newTestCanonicalizer(t *testing.T, catalog *fakeCatalog, embedder Embedder) Canonicalizer {
	t.Helper()
	cs, err := NewCanonicalizerService(catalog, embedder, nil, testLogger(t))
	if err != nil {
		t.Fatalf("NewCanonicalizerService: %v", err)
	}
	return cs
}

func TestResolveCreatesThenReusesEntity(t *testing.T) {
	catalog := newFakeCatalog()
	cs := newTestCanonicalizer(t, catalog, &fakeEmbedder{})

	first, err := cs.Resolve(context.Background(), "Golang", types.EntityKindSkill)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := cs.Resolve(context.Background(), "Golang", types.EntityKindSkill)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("resolve not idempotent: %s vs %s", first.ID, second.ID)
	}
	if catalog.inserts != 1 {
		t.Fatalf("inserts: want=1 got=%d", catalog.inserts)
	}
}

func TestResolveKindsAreIsolated(t *testing.T) {
	catalog := newFakeCatalog()
	location := catalog.seed(types.EntityKindLocation, "Berlin")
	cs := newTestCanonicalizer(t, catalog, &fakeEmbedder{})

	company, err := cs.Resolve(context.Background(), "Berlin", types.EntityKindCompany)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if company.ID == location.ID {
		t.Fatalf("company resolve reused a location entity")
	}
	if company.Kind != types.EntityKindCompany {
		t.Fatalf("kind: want=%q got=%q", types.EntityKindCompany, company.Kind)
	}
}

func TestResolveLexicalWinnerBeatsVectorOrder(t *testing.T) {
	catalog := newFakeCatalog()
	typo := catalog.seed(types.EntityKindSkill, "Pyhton")
	proper := catalog.seed(types.EntityKindSkill, "Python")
	catalog.nearest = func(kind types.EntityKind) []*types.CanonicalEntity {
		return []*types.CanonicalEntity{typo, proper}
	}
	cs := newTestCanonicalizer(t, catalog, &fakeEmbedder{})

	got, err := cs.Resolve(context.Background(), "Python", types.EntityKindSkill)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != proper.ID {
		t.Fatalf("want lexical winner %q, got %q", proper.Name, got.Name)
	}
}

func TestResolveFallsBackToClosestVector(t *testing.T) {
	catalog := newFakeCatalog()
	closest := catalog.seed(types.EntityKindInterest, "Distributed Systems")
	catalog.seed(types.EntityKindInterest, "Databases")
	catalog.lexical = func(types.EntityKind, string, []uuid.UUID) *types.CanonicalEntity { return nil }
	cs := newTestCanonicalizer(t, catalog, &fakeEmbedder{})

	got, err := cs.Resolve(context.Background(), "distsys", types.EntityKindInterest)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != closest.ID {
		t.Fatalf("want vector rank-0 %q, got %q", closest.Name, got.Name)
	}
	if catalog.inserts != 0 {
		t.Fatalf("no insert expected, got %d", catalog.inserts)
	}
}

func TestResolveStoreFailureIsUnavailable(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.storeErr = fmt.Errorf("connection refused")
	cs := newTestCanonicalizer(t, catalog, &fakeEmbedder{})

	_, err := cs.Resolve(context.Background(), "Golang", types.EntityKindSkill)
	if !apierr.IsCode(err, apierr.CodeUnavailable) {
		t.Fatalf("want %s, got %v", apierr.CodeUnavailable, err)
	}
}

func TestResolveEmbedderFailureIsUnavailable(t *testing.T) {
	cs := newTestCanonicalizer(t, newFakeCatalog(), &fakeEmbedder{err: fmt.Errorf("timeout")})
	_, err := cs.Resolve(context.Background(), "Golang", types.EntityKindSkill)
	if !apierr.IsCode(err, apierr.CodeUnavailable) {
		t.Fatalf("want %s, got %v", apierr.CodeUnavailable, err)
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	cs := newTestCanonicalizer(t, newFakeCatalog(), &fakeEmbedder{})

	if _, err := cs.Resolve(context.Background(), "   ", types.EntityKindSkill); !apierr.IsCode(err, apierr.CodeInvalidArgument) {
		t.Fatalf("empty text: want %s, got %v", apierr.CodeInvalidArgument, err)
	}
	if _, err := cs.Resolve(context.Background(), "Golang", types.EntityKind("university")); !apierr.IsCode(err, apierr.CodeInvalidArgument) {
		t.Fatalf("bad kind: want %s, got %v", apierr.CodeInvalidArgument, err)
	}
}

func TestConcurrentResolveCreatesSingleEntity(t *testing.T) {
	catalog := newFakeCatalog()
	cs := newTestCanonicalizer(t, catalog, &fakeEmbedder{})

	const workers = 16
	results := make([]*types.CanonicalEntity, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cs.Resolve(context.Background(), "Rust", types.EntityKindSkill)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i].ID != results[0].ID {
			t.Fatalf("worker %d resolved %s, worker 0 resolved %s", i, results[i].ID, results[0].ID)
		}
	}
	if catalog.inserts != 1 {
		t.Fatalf("inserts: want=1 got=%d", catalog.inserts)
	}
}

func TestResolveRecoversFromInsertConflict(t *testing.T) {
	catalog := newFakeCatalog()
	winner := catalog.seed(types.EntityKindCompany, "Acme Corp")
	// Vector index lags the committed row, so matching misses but the unique
	// constraint still fires on insert.
	catalog.nearest = func(types.EntityKind) []*types.CanonicalEntity { return nil }
	cs := newTestCanonicalizer(t, catalog, &fakeEmbedder{})

	got, err := cs.Resolve(context.Background(), "Acme Corp", types.EntityKindCompany)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != winner.ID {
		t.Fatalf("conflict retry: want=%s got=%s", winner.ID, got.ID)
	}
	if catalog.inserts != 0 {
		t.Fatalf("inserts: want=0 got=%d", catalog.inserts)
	}
}

func TestResolveExactSkipsEmbedding(t *testing.T) {
	catalog := newFakeCatalog()
	berlin := catalog.seed(types.EntityKindLocation, "Berlin")
	embedder := &fakeEmbedder{}
	cs := newTestCanonicalizer(t, catalog, embedder)

	got, err := cs.ResolveExact(context.Background(), "Berlin", types.EntityKindLocation)
	if err != nil {
		t.Fatalf("ResolveExact: %v", err)
	}
	if got.ID != berlin.ID {
		t.Fatalf("want=%s got=%s", berlin.ID, got.ID)
	}
	if embedder.calls != 0 {
		t.Fatalf("embedder calls: want=0 got=%d", embedder.calls)
	}
}

func TestResolveExactFallsBackToHybrid(t *testing.T) {
	catalog := newFakeCatalog()
	embedder := &fakeEmbedder{}
	cs := newTestCanonicalizer(t, catalog, embedder)

	got, err := cs.ResolveExact(context.Background(), "Springfield", types.EntityKindLocation)
	if err != nil {
		t.Fatalf("ResolveExact: %v", err)
	}
	if got.Name != "Springfield" {
		t.Fatalf("name: want=%q got=%q", "Springfield", got.Name)
	}
	if embedder.calls == 0 {
		t.Fatalf("expected fallback through the embedding pipeline")
	}
	if catalog.inserts != 1 {
		t.Fatalf("inserts: want=1 got=%d", catalog.inserts)
	}
}
