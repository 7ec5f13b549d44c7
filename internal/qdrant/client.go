// Package qdrant provides the Qdrant vector database client used by the
// page store.
package qdrant

import (
	"context"
)

// Client is the narrow Qdrant surface the page store needs. Keeping it an
// interface lets tests substitute an in-memory implementation.
type Client interface {
	// Collection operations
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error
	CollectionExists(ctx context.Context, name string) (bool, error)

	// Point operations
	Upsert(ctx context.Context, collection string, points []*Point) error
	Search(ctx context.Context, collection string, vector []float32, limit uint64, filter *Filter) ([]*ScoredPoint, error)
	Get(ctx context.Context, collection string, ids []string) ([]*Point, error)
	Delete(ctx context.Context, collection string, ids []string) error
	DeleteByFilter(ctx context.Context, collection string, filter *Filter) error
	Scroll(ctx context.Context, collection string, filter *Filter, limit uint32, offset string) ([]*Point, error)
	Count(ctx context.Context, collection string, filter *Filter) (uint64, error)

	// Health
	Health(ctx context.Context) error

	// Close closes the client connection
	Close() error
}

// Point represents a vector point in Qdrant.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// ScoredPoint represents a search result with its similarity score.
type ScoredPoint struct {
	Point
	Score float32
}

// Filter restricts point operations to points whose payload matches every
// condition.
type Filter struct {
	Must []Condition
}

// Condition matches one payload field against a keyword value.
type Condition struct {
	Field string
	Match string
}

// MatchFilter builds a single-condition filter on one payload field.
func MatchFilter(field, value string) *Filter {
	return &Filter{Must: []Condition{{Field: field, Match: value}}}
}
