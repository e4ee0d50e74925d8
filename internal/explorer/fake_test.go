package explorer

import (
	"context"
	"fmt"
	"sync"

	"github.com/lazypower/graphwalk/internal/fetch"
	"github.com/lazypower/graphwalk/internal/graph"
)

// fakeFetcher serves canned results. A gate registered for a query or id
// holds that call until the gate is closed or the context ends.
type fakeFetcher struct {
	mu        sync.Mutex
	searches  map[string]fetch.SearchResult
	neighbors map[string]fetch.Neighbors
	fail      map[string]error
	gates     map[string]chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		searches: map[string]fetch.SearchResult{
			"Acme": {Entities: []graph.Entity{{ID: "e1", Category: "organization", Name: "Acme Corp"}}, Total: 1},
			"John": {Entities: []graph.Entity{{ID: "e2", Category: "person", Name: "John Doe"}}, Total: 1},
		},
		neighbors: map[string]fetch.Neighbors{
			"e1": acmeNeighbors(),
			"e2": johnNeighbors(),
		},
		fail:  map[string]error{},
		gates: map[string]chan struct{}{},
	}
}

func (f *fakeFetcher) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeFetcher) wait(ctx context.Context, key string) error {
	f.mu.Lock()
	ch := f.gates[key]
	f.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeFetcher) SearchByQuery(ctx context.Context, text string, limit int, category string) (fetch.SearchResult, error) {
	if err := f.wait(ctx, text); err != nil {
		return fetch.SearchResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[text]; err != nil {
		return fetch.SearchResult{}, err
	}
	return f.searches[text], nil
}

func (f *fakeFetcher) NeighborsByID(ctx context.Context, id string) (fetch.Neighbors, error) {
	if err := f.wait(ctx, id); err != nil {
		return fetch.Neighbors{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[id]; err != nil {
		return fetch.Neighbors{}, err
	}
	nb, ok := f.neighbors[id]
	if !ok {
		return fetch.Neighbors{}, fmt.Errorf("neighbors of %s: %w", id, fetch.ErrNotFound)
	}
	return nb, nil
}

func acmeNeighbors() fetch.Neighbors {
	return fetch.Neighbors{
		Entity:    graph.Entity{ID: "e1", Category: "organization", Name: "Acme Corp"},
		Neighbors: []graph.Entity{{ID: "e2", Category: "person", Name: "John Doe"}},
		Relationships: []graph.Relationship{
			{ID: "r1", SourceEntityID: "e1", TargetEntityID: "e2", Category: "owner_of"},
		},
	}
}

func johnNeighbors() fetch.Neighbors {
	return fetch.Neighbors{
		Entity:    graph.Entity{ID: "e2", Category: "person", Name: "John Doe"},
		Neighbors: []graph.Entity{{ID: "e3", Category: "person", Name: "Jane Roe"}},
		Relationships: []graph.Relationship{
			{ID: "r2", SourceEntityID: "e2", TargetEntityID: "e3", Category: "related_to"},
		},
	}
}
