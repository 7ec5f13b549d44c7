package http

import (
	"github.com/pagesift/pagesift/internal/search"
)

// IngestResponse is the response body for POST /api/v1/documents.
type IngestResponse struct {
	DocumentID   string `json:"document_id"`
	PagesIndexed int    `json:"pages_indexed"`
	Path         string `json:"path"`
	Error        string `json:"error,omitempty"`
}

// SearchRequest is the request body for POST /api/v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// SearchResponse is the response body for POST /api/v1/search.
type SearchResponse struct {
	Results []search.Result `json:"results"`
}

// PageSummary is one indexed page in GET /api/v1/pages.
type PageSummary struct {
	ID         string   `json:"id"`
	Filename   string   `json:"filename"`
	PageNumber int      `json:"page_number"`
	Caption    string   `json:"caption"`
	Keywords   []string `json:"keywords"`
	Path       string   `json:"path"`
	CreatedAt  string   `json:"created_at"`
}

// PagesResponse is the response body for GET /api/v1/pages.
type PagesResponse struct {
	Pages []PageSummary `json:"pages"`
	Total int           `json:"total"`
}

// CleanupResponse is the response body for POST /api/v1/maintenance/cleanup.
type CleanupResponse struct {
	Removed []string `json:"removed"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
