// Package store persists page records in Qdrant and answers similarity
// queries over their embeddings.
//
// One point per (document, page): the point id is derived deterministically
// from the content-addressed page id, the embedding is the point vector, and
// every other field travels in the payload. Upserts replace the whole point
// atomically, so a reader never observes a half-written record.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/identity"
	"github.com/pagesift/pagesift/internal/qdrant"
)

var (
	// ErrStore indicates a store write or read failed. Writes roll back
	// fully on the Qdrant side; a failed upsert leaves no partial record.
	ErrStore = errors.New("store error")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// collection's declared dimension. Mixing dimensions breaks the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// PageRecord is one stored page of an ingested document.
type PageRecord struct {
	// ID is the content-addressed page id: "<document-hash>-p<page>".
	ID string

	// DocumentFilename and DocumentPath record provenance: the display name
	// of the source document and the serving path of its stored asset.
	DocumentFilename string
	DocumentPath     string

	// PageNumber is 1-based and matches the rasterizer's page order.
	PageNumber int

	// Width, Height and SizeBytes describe the rendered page image.
	Width     int
	Height    int
	SizeBytes int64

	// Caption and Keywords are the short extracted summary fields.
	Caption  string
	Keywords []string

	// RawMetadata is the complete extractor response, stored verbatim.
	RawMetadata json.RawMessage

	// Embedding is the page's semantic vector.
	Embedding []float32

	// CreatedAt is set once, at first insert, and survives re-ingestion.
	CreatedAt time.Time
}

// ScoredRecord pairs a record with its similarity score (1 - cosine distance,
// higher is more similar).
type ScoredRecord struct {
	PageRecord
	Score float32
}

// Config holds page store configuration.
type Config struct {
	// Collection is the Qdrant collection name.
	Collection string

	// Dimension is the fixed embedding dimension for this deployment.
	Dimension int

	// ScrollPageSize bounds each listing batch. Defaults to 1024.
	ScrollPageSize uint32
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Collection == "" {
		return fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// Service is the page store.
type Service struct {
	client qdrant.Client
	config Config
	logger *zap.Logger
}

// NewService creates a page store over the given Qdrant client.
func NewService(client qdrant.Client, config Config, logger *zap.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("qdrant client is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ScrollPageSize == 0 {
		config.ScrollPageSize = 1024
	}

	return &Service{client: client, config: config, logger: logger}, nil
}

// EnsureCollection creates the collection with the deployment's embedding
// dimension if it does not exist yet.
func (s *Service) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", ErrStore, err)
	}
	if exists {
		return nil
	}

	if err := s.client.CreateCollection(ctx, s.config.Collection, uint64(s.config.Dimension)); err != nil {
		return fmt.Errorf("%w: creating collection: %v", ErrStore, err)
	}

	s.logger.Info("created page collection",
		zap.String("collection", s.config.Collection),
		zap.Int("dimension", s.config.Dimension),
	)
	return nil
}

// Upsert inserts the record, or overwrites every field except id and
// created_at when a record with the same id already exists. The write is one
// atomic point replacement scoped to exactly this page, which keeps
// partial-document failures localized to the page being written.
//
// Concurrent upserts to the same id race last-commit-wins; acceptable because
// re-ingestion of identical content is idempotent.
func (s *Service) Upsert(ctx context.Context, record *PageRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("%w: record id required", ErrStore)
	}
	if len(record.Embedding) != s.config.Dimension {
		return fmt.Errorf("%w: got %d, collection is %d",
			ErrDimensionMismatch, len(record.Embedding), s.config.Dimension)
	}

	pointID := identity.PointID(record.ID)

	record.CreatedAt = time.Now().UTC()
	existing, err := s.client.Get(ctx, s.config.Collection, []string{pointID})
	if err != nil {
		return fmt.Errorf("%w: reading existing record: %v", ErrStore, err)
	}
	if len(existing) > 0 {
		if created, ok := createdAtFromPayload(existing[0].Payload); ok {
			record.CreatedAt = created
		}
	}

	point := &qdrant.Point{
		ID:      pointID,
		Vector:  record.Embedding,
		Payload: payloadFromRecord(record),
	}

	if err := s.client.Upsert(ctx, s.config.Collection, []*qdrant.Point{point}); err != nil {
		return fmt.Errorf("%w: upserting page %s: %v", ErrStore, record.ID, err)
	}

	return nil
}

// SimilaritySearch returns the k records closest to the query vector, ordered
// by descending score. Equal scores order by id ascending so a given store
// state always ranks the same way.
func (s *Service) SimilaritySearch(ctx context.Context, vector []float32, k int) ([]ScoredRecord, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", ErrStore)
	}
	if len(vector) != s.config.Dimension {
		return nil, fmt.Errorf("%w: got %d, collection is %d",
			ErrDimensionMismatch, len(vector), s.config.Dimension)
	}

	points, err := s.client.Search(ctx, s.config.Collection, vector, uint64(k), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", ErrStore, err)
	}

	results := make([]ScoredRecord, 0, len(points))
	for _, p := range points {
		results = append(results, ScoredRecord{
			PageRecord: recordFromPayload(p.Payload),
			Score:      p.Score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	return results, nil
}

// DeleteByFilename removes all page records sharing a document filename.
func (s *Service) DeleteByFilename(ctx context.Context, filename string) error {
	if filename == "" {
		return fmt.Errorf("%w: filename required", ErrStore)
	}

	filter := qdrant.MatchFilter("document_filename", filename)
	if err := s.client.DeleteByFilter(ctx, s.config.Collection, filter); err != nil {
		return fmt.Errorf("%w: deleting pages of %s: %v", ErrStore, filename, err)
	}

	return nil
}

// ExistsFunc reports whether the backing asset for a stored record still
// exists on the serving filesystem.
type ExistsFunc func(filename, path string) bool

// ListExisting returns all records, optionally filtered to those whose
// backing asset still exists. A nil existsFn lists everything. Records order
// by page id for reproducible listings.
func (s *Service) ListExisting(ctx context.Context, existsFn ExistsFunc) ([]PageRecord, error) {
	var (
		records []PageRecord
		offset  string
	)

	// The existence check joins against each distinct (filename, path)
	// once, not per record.
	checked := make(map[string]bool)

	for {
		points, err := s.client.Scroll(ctx, s.config.Collection, nil, s.config.ScrollPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("%w: listing records: %v", ErrStore, err)
		}
		if len(points) == 0 {
			break
		}

		for _, p := range points {
			// The scroll offset is inclusive, so the resume point
			// comes back again on continuation batches.
			if offset != "" && p.ID == offset {
				continue
			}

			record := recordFromPayload(p.Payload)
			if existsFn != nil {
				key := record.DocumentFilename + "\x00" + record.DocumentPath
				exists, ok := checked[key]
				if !ok {
					exists = existsFn(record.DocumentFilename, record.DocumentPath)
					checked[key] = exists
				}
				if !exists {
					continue
				}
			}
			records = append(records, record)
		}

		if uint32(len(points)) < s.config.ScrollPageSize {
			break
		}
		offset = points[len(points)-1].ID
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	return records, nil
}

// Count returns the number of stored page records.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	count, err := s.client.Count(ctx, s.config.Collection, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: counting records: %v", ErrStore, err)
	}
	return count, nil
}
