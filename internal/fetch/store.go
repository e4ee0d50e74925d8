package fetch

import (
	"context"
	"fmt"

	"github.com/lazypower/graphwalk/internal/store"
)

// StoreFetcher reads directly from a local database.
type StoreFetcher struct {
	DB *store.DB
}

// NewStoreFetcher returns a Fetcher backed by db.
func NewStoreFetcher(db *store.DB) *StoreFetcher {
	return &StoreFetcher{DB: db}
}

func (f *StoreFetcher) SearchByQuery(ctx context.Context, text string, limit int, category string) (SearchResult, error) {
	ents, total, err := f.DB.SearchEntities(ctx, text, store.SearchOpts{Limit: limit, Category: category})
	if err != nil {
		return SearchResult{}, fmt.Errorf("search %q: %w", text, err)
	}
	return SearchResult{Entities: ents, Total: total}, nil
}

func (f *StoreFetcher) NeighborsByID(ctx context.Context, id string) (Neighbors, error) {
	nb, err := f.DB.Neighbors(ctx, id)
	if err != nil {
		return Neighbors{}, fmt.Errorf("neighbors of %s: %w", id, err)
	}
	if nb == nil {
		return Neighbors{}, fmt.Errorf("neighbors of %s: %w", id, ErrNotFound)
	}
	return Neighbors{
		Entity:        nb.Entity,
		Relationships: nb.Relationships,
		Neighbors:     nb.Neighbors,
	}, nil
}
