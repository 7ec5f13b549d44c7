package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagesift/pagesift/internal/store"
)

type fakeEmbedder struct {
	calls int
	fail  bool
}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("embedding service down")
	}
	return []float32{0.5, 0.5}, nil
}

type fakeSearcher struct {
	calls   int
	gotK    int
	results []store.ScoredRecord
	err     error
}

func (f *fakeSearcher) SimilaritySearch(_ context.Context, _ []float32, k int) ([]store.ScoredRecord, error) {
	f.calls++
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newTestService(t *testing.T, embedder *fakeEmbedder, searcher *fakeSearcher) *Service {
	t.Helper()
	service, err := NewService(embedder, searcher, Config{}, nil)
	require.NoError(t, err)
	return service
}

func TestSearch(t *testing.T) {
	searcher := &fakeSearcher{
		results: []store.ScoredRecord{
			{
				PageRecord: store.PageRecord{
					ID:               "aa-p3",
					DocumentFilename: "catalog.pdf",
					DocumentPath:     "/files/aa.pdf",
					PageNumber:       3,
					Caption:          "spring lineup",
					Keywords:         []string{"flowers", "pastel"},
				},
				Score: 0.91,
			},
			{
				PageRecord: store.PageRecord{
					ID:               "bb-p1",
					DocumentFilename: "brief.pdf",
					PageNumber:       1,
				},
				Score: 0.72,
			},
		},
	}
	service := newTestService(t, &fakeEmbedder{}, searcher)

	results, err := service.Search(t.Context(), "spring catalog", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, Result{
		ID:         "aa-p3",
		Filename:   "catalog.pdf",
		PageNumber: 3,
		Caption:    "spring lineup",
		Keywords:   []string{"flowers", "pastel"},
		Path:       "/files/aa.pdf",
		Score:      0.91,
	}, results[0])
	assert.Equal(t, "bb-p1", results[1].ID)
}

func TestSearchEmptyQuery(t *testing.T) {
	embedder := &fakeEmbedder{}
	searcher := &fakeSearcher{}
	service := newTestService(t, embedder, searcher)

	for _, query := range []string{"", "   ", "\n\t"} {
		results, err := service.Search(t.Context(), query, 10)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}

	// A vacuous query never reaches the embedding service or the store.
	assert.Zero(t, embedder.calls)
	assert.Zero(t, searcher.calls)
}

func TestSearchKBounds(t *testing.T) {
	tests := []struct {
		name  string
		k     int
		wantK int
	}{
		{name: "zero falls back to default", k: 0, wantK: DefaultK},
		{name: "negative falls back to default", k: -7, wantK: DefaultK},
		{name: "in range passes through", k: 5, wantK: 5},
		{name: "above cap is clamped", k: 5000, wantK: MaxK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{}
			service := newTestService(t, &fakeEmbedder{}, searcher)

			_, err := service.Search(t.Context(), "query", tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.wantK, searcher.gotK)
		})
	}

	t.Run("configured bounds", func(t *testing.T) {
		searcher := &fakeSearcher{}
		service, err := NewService(&fakeEmbedder{}, searcher, Config{DefaultK: 8, MaxK: 16}, nil)
		require.NoError(t, err)

		_, err = service.Search(t.Context(), "query", 0)
		require.NoError(t, err)
		assert.Equal(t, 8, searcher.gotK)

		_, err = service.Search(t.Context(), "query", 99)
		require.NoError(t, err)
		assert.Equal(t, 16, searcher.gotK)
	})

	t.Run("invalid bounds rejected", func(t *testing.T) {
		_, err := NewService(&fakeEmbedder{}, &fakeSearcher{}, Config{DefaultK: 50, MaxK: 10}, nil)
		assert.Error(t, err)
	})
}

func TestSearchErrors(t *testing.T) {
	t.Run("embedder failure", func(t *testing.T) {
		searcher := &fakeSearcher{}
		service := newTestService(t, &fakeEmbedder{fail: true}, searcher)

		_, err := service.Search(t.Context(), "query", 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding query")
		assert.Zero(t, searcher.calls)
	})

	t.Run("store failure", func(t *testing.T) {
		searcher := &fakeSearcher{err: fmt.Errorf("%w: connection reset", store.ErrStore)}
		service := newTestService(t, &fakeEmbedder{}, searcher)

		_, err := service.Search(t.Context(), "query", 3)
		assert.ErrorIs(t, err, store.ErrStore)
	})
}
