// Package fetch provides the two read operations the explorer consumes:
// entity search and one-hop neighbor expansion.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/lazypower/graphwalk/internal/graph"
)

// ErrNotFound is returned by NeighborsByID when the entity does not exist.
var ErrNotFound = errors.New("entity not found")

// NetworkError reports a failed round trip to a remote backend.
type NetworkError struct {
	Op     string
	Status int // HTTP status, 0 if no response was received
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SearchResult is one page of search hits plus the total match count.
type SearchResult struct {
	Entities []graph.Entity `json:"entities"`
	Total    int            `json:"total"`
}

// Neighbors is the one-hop neighborhood of an entity.
type Neighbors struct {
	Entity        graph.Entity         `json:"entity"`
	Relationships []graph.Relationship `json:"relationships"`
	Neighbors     []graph.Entity       `json:"neighbors"`
}

// Batch converts the neighborhood into an accumulator merge batch.
func (n Neighbors) Batch() graph.Batch {
	return graph.Batch{
		Focal:         n.Entity,
		Related:       n.Neighbors,
		Relationships: n.Relationships,
	}
}

// Fetcher is implemented by every backend the explorer can read from.
type Fetcher interface {
	SearchByQuery(ctx context.Context, text string, limit int, category string) (SearchResult, error)
	NeighborsByID(ctx context.Context, id string) (Neighbors, error)
}
