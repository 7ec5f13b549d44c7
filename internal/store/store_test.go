package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagesift/pagesift/internal/identity"
	"github.com/pagesift/pagesift/internal/qdrant"
)

// fakeClient is an in-memory stand-in for the Qdrant client, implementing
// cosine scoring the way the real collection is configured.
type fakeClient struct {
	collections map[string]uint64
	points      map[string]*qdrant.Point

	upsertErr error
	searchErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		collections: make(map[string]uint64),
		points:      make(map[string]*qdrant.Point),
	}
}

func (f *fakeClient) CreateCollection(_ context.Context, name string, vectorSize uint64) error {
	f.collections[name] = vectorSize
	return nil
}

func (f *fakeClient) CollectionExists(_ context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeClient) Upsert(_ context.Context, _ string, points []*qdrant.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, p := range points {
		f.points[p.ID] = p
	}
	return nil
}

func (f *fakeClient) Search(_ context.Context, _ string, vector []float32, limit uint64, _ *qdrant.Filter) ([]*qdrant.ScoredPoint, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	results := make([]*qdrant.ScoredPoint, 0, len(f.points))
	for _, p := range f.points {
		results = append(results, &qdrant.ScoredPoint{
			Point: *p,
			Score: cosine(vector, p.Vector),
		})
	}
	// Deliberately sort by score only; ties come back in whatever order the
	// map iteration produced, as a real store is free to do.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if uint64(len(results)) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeClient) Get(_ context.Context, _ string, ids []string) ([]*qdrant.Point, error) {
	var found []*qdrant.Point
	for _, id := range ids {
		if p, ok := f.points[id]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (f *fakeClient) Delete(_ context.Context, _ string, ids []string) error {
	for _, id := range ids {
		delete(f.points, id)
	}
	return nil
}

func (f *fakeClient) DeleteByFilter(_ context.Context, _ string, filter *qdrant.Filter) error {
	for id, p := range f.points {
		if matches(p, filter) {
			delete(f.points, id)
		}
	}
	return nil
}

func (f *fakeClient) Scroll(_ context.Context, _ string, filter *qdrant.Filter, limit uint32, offset string) ([]*qdrant.Point, error) {
	ids := make([]string, 0, len(f.points))
	for id, p := range f.points {
		if matches(p, filter) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out []*qdrant.Point
	for _, id := range ids {
		if offset != "" && id < offset {
			continue
		}
		out = append(out, f.points[id])
		if uint32(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeClient) Count(_ context.Context, _ string, filter *qdrant.Filter) (uint64, error) {
	var n uint64
	for _, p := range f.points {
		if matches(p, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeClient) Health(context.Context) error { return nil }
func (f *fakeClient) Close() error                 { return nil }

func matches(p *qdrant.Point, filter *qdrant.Filter) bool {
	if filter == nil {
		return true
	}
	for _, cond := range filter.Must {
		if s, _ := p.Payload[cond.Field].(string); s != cond.Match {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

var _ qdrant.Client = (*fakeClient)(nil)

const testDim = 4

func newTestService(t *testing.T) (*Service, *fakeClient) {
	t.Helper()
	client := newFakeClient()
	service, err := NewService(client, Config{
		Collection:     "pages",
		Dimension:      testDim,
		ScrollPageSize: 2, // force pagination in listing tests
	}, nil)
	require.NoError(t, err)
	require.NoError(t, service.EnsureCollection(t.Context()))
	return service, client
}

func record(id, filename string, page int, embedding []float32) *PageRecord {
	return &PageRecord{
		ID:               id,
		DocumentFilename: filename,
		DocumentPath:     "/files/" + filename,
		PageNumber:       page,
		Width:            1240,
		Height:           1754,
		SizeBytes:        2048,
		Caption:          "caption for " + id,
		Keywords:         []string{"product", "photo"},
		RawMetadata:      json.RawMessage(`{"caption":"x"}`),
		Embedding:        embedding,
	}
}

func TestUpsertIdempotent(t *testing.T) {
	service, client := newTestService(t)
	ctx := t.Context()

	rec := record("hash-p1", "sample.pdf", 1, []float32{1, 0, 0, 0})
	require.NoError(t, service.Upsert(ctx, rec))

	firstCreated := rec.CreatedAt
	assert.False(t, firstCreated.IsZero())

	count, err := service.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// Re-ingesting the same page overwrites in place: same row count, new
	// field values, original created_at.
	updated := record("hash-p1", "sample.pdf", 1, []float32{0, 1, 0, 0})
	updated.Caption = "updated caption"
	require.NoError(t, service.Upsert(ctx, updated))

	count, err = service.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count, "upsert must not create duplicate rows")
	assert.Equal(t, firstCreated, updated.CreatedAt, "created_at must survive re-ingestion")

	stored := client.points[identity.PointID("hash-p1")]
	require.NotNil(t, stored)
	assert.Equal(t, "updated caption", stored.Payload["caption"])
	assert.Equal(t, []float32{0, 1, 0, 0}, stored.Vector)
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	service, _ := newTestService(t)

	rec := record("hash-p1", "sample.pdf", 1, []float32{1, 0})
	err := service.Upsert(t.Context(), rec)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestUpsertFailureSurfacesStoreError(t *testing.T) {
	service, client := newTestService(t)
	client.upsertErr = fmt.Errorf("connection reset")

	err := service.Upsert(t.Context(), record("hash-p1", "sample.pdf", 1, []float32{1, 0, 0, 0}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)
}

func TestSimilaritySearchRanking(t *testing.T) {
	service, _ := newTestService(t)
	ctx := t.Context()

	require.NoError(t, service.Upsert(ctx, record("H-p1", "sample.pdf", 1, []float32{1, 0, 0, 0})))
	require.NoError(t, service.Upsert(ctx, record("H-p2", "sample.pdf", 2, []float32{0, 1, 0, 0})))
	require.NoError(t, service.Upsert(ctx, record("H-p3", "sample.pdf", 3, []float32{0.7, 0.7, 0, 0})))

	// Query closest to page 2's embedding.
	results, err := service.SimilaritySearch(ctx, []float32{0.1, 1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "H-p2", results[0].ID)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score,
			"scores must be non-increasing across the ranked sequence")
	}

	// Payload fields round-trip through the search path.
	assert.Equal(t, "sample.pdf", results[0].DocumentFilename)
	assert.Equal(t, 2, results[0].PageNumber)
	assert.Equal(t, []string{"product", "photo"}, results[0].Keywords)
	assert.JSONEq(t, `{"caption":"x"}`, string(results[0].RawMetadata))
}

func TestSimilaritySearchTieBreakByID(t *testing.T) {
	service, _ := newTestService(t)
	ctx := t.Context()

	// Identical vectors: scores tie exactly, so ranking must fall back to
	// id ascending to stay reproducible.
	same := []float32{0, 0, 1, 0}
	require.NoError(t, service.Upsert(ctx, record("H-p3", "a.pdf", 3, same)))
	require.NoError(t, service.Upsert(ctx, record("H-p1", "a.pdf", 1, same)))
	require.NoError(t, service.Upsert(ctx, record("H-p2", "a.pdf", 2, same)))

	for range 5 {
		results, err := service.SimilaritySearch(ctx, same, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "H-p1", results[0].ID)
		assert.Equal(t, "H-p2", results[1].ID)
		assert.Equal(t, "H-p3", results[2].ID)
	}
}

func TestSimilaritySearchPrefixStableAsKGrows(t *testing.T) {
	service, _ := newTestService(t)
	ctx := t.Context()

	vectors := [][]float32{
		{1, 0, 0, 0},
		{0.9, 0.1, 0, 0},
		{0.5, 0.5, 0, 0},
		{0, 1, 0, 0},
	}
	for i, v := range vectors {
		require.NoError(t, service.Upsert(ctx, record(fmt.Sprintf("H-p%d", i+1), "doc.pdf", i+1, v)))
	}

	query := []float32{1, 0.05, 0, 0}
	var previous []string
	for k := 1; k <= len(vectors); k++ {
		results, err := service.SimilaritySearch(ctx, query, k)
		require.NoError(t, err)
		require.Len(t, results, k)

		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		if previous != nil {
			assert.Equal(t, previous, ids[:len(previous)],
				"increasing k must not reorder the earlier prefix")
		}
		previous = ids
	}
}

func TestSimilaritySearchValidation(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.SimilaritySearch(t.Context(), []float32{1, 0, 0, 0}, 0)
	assert.ErrorIs(t, err, ErrStore)

	_, err = service.SimilaritySearch(t.Context(), []float32{1, 0}, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDeleteByFilename(t *testing.T) {
	service, _ := newTestService(t)
	ctx := t.Context()

	require.NoError(t, service.Upsert(ctx, record("A-p1", "keep.pdf", 1, []float32{1, 0, 0, 0})))
	require.NoError(t, service.Upsert(ctx, record("B-p1", "gone.pdf", 1, []float32{0, 1, 0, 0})))
	require.NoError(t, service.Upsert(ctx, record("B-p2", "gone.pdf", 2, []float32{0, 0, 1, 0})))

	require.NoError(t, service.DeleteByFilename(ctx, "gone.pdf"))

	records, err := service.ListExisting(ctx, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A-p1", records[0].ID)
}

func TestListExisting(t *testing.T) {
	service, _ := newTestService(t)
	ctx := t.Context()

	// Five records across three documents; page size 2 forces several
	// scroll batches.
	require.NoError(t, service.Upsert(ctx, record("A-p1", "a.pdf", 1, []float32{1, 0, 0, 0})))
	require.NoError(t, service.Upsert(ctx, record("A-p2", "a.pdf", 2, []float32{1, 0, 0, 0})))
	require.NoError(t, service.Upsert(ctx, record("B-p1", "b.pdf", 1, []float32{0, 1, 0, 0})))
	require.NoError(t, service.Upsert(ctx, record("C-p1", "c.pdf", 1, []float32{0, 0, 1, 0})))
	require.NoError(t, service.Upsert(ctx, record("C-p2", "c.pdf", 2, []float32{0, 0, 1, 0})))

	all, err := service.ListExisting(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	// Records whose backing asset is gone must not appear.
	calls := make(map[string]int)
	existing, err := service.ListExisting(ctx, func(filename, _ string) bool {
		calls[filename]++
		return filename != "b.pdf"
	})
	require.NoError(t, err)

	var ids []string
	for _, r := range existing {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"A-p1", "A-p2", "C-p1", "C-p2"}, ids)

	// Existence is checked once per distinct (filename, path), not per row.
	for filename, n := range calls {
		assert.Equal(t, 1, n, "filesystem check for %s ran %d times", filename, n)
	}
}

func TestCreatedAtRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	rec := &PageRecord{ID: "H-p1", CreatedAt: created, PageNumber: 1}

	back := recordFromPayload(payloadFromRecord(rec))
	assert.True(t, back.CreatedAt.Equal(created))
	assert.Equal(t, "H-p1", back.ID)
	assert.Equal(t, 1, back.PageNumber)
}
