// Package maintenance reconciles the page index against the asset store.
package maintenance

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/store"
)

// PageStore is the slice of the page store cleanup needs.
type PageStore interface {
	ListExisting(ctx context.Context, existsFn store.ExistsFunc) ([]store.PageRecord, error)
	DeleteByFilename(ctx context.Context, filename string) error
}

// AssetChecker reports whether a serving path still has a file behind it.
type AssetChecker interface {
	Exists(servePath string) bool
}

// Service removes index entries whose source documents are gone.
type Service struct {
	pages  PageStore
	assets AssetChecker
	logger *zap.Logger
}

// NewService creates the maintenance service.
func NewService(pages PageStore, assets AssetChecker, logger *zap.Logger) (*Service, error) {
	if pages == nil || assets == nil {
		return nil, fmt.Errorf("page store and asset checker are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{pages: pages, assets: assets, logger: logger}, nil
}

// CleanOrphans deletes every page record whose backing document asset no
// longer exists on disk, and returns the affected filenames sorted
// ascending. Documents sharing a filename are deleted together: the index
// keys provenance by filename, so a vanished asset orphans the whole group.
func (s *Service) CleanOrphans(ctx context.Context) ([]string, error) {
	records, err := s.pages.ListExisting(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	// One existence check per distinct document, not per page.
	paths := make(map[string]string, len(records))
	for _, r := range records {
		paths[r.DocumentFilename] = r.DocumentPath
	}

	removed := make([]string, 0)
	for filename, path := range paths {
		if s.assets.Exists(path) {
			continue
		}
		if err := s.pages.DeleteByFilename(ctx, filename); err != nil {
			return removed, fmt.Errorf("removing orphaned pages of %s: %w", filename, err)
		}
		removed = append(removed, filename)

		s.logger.Info("removed orphaned document",
			zap.String("document", filename),
			zap.String("path", path),
		)
	}

	sort.Strings(removed)
	return removed, nil
}
