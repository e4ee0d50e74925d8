package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/lazypower/graphwalk/internal/fetch"
	"github.com/lazypower/graphwalk/internal/store"
)

func TestSearch(t *testing.T) {
	srv := testServer(t)
	seedServer(t, srv)

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantIDs   []string
		wantTotal int
	}{
		{"match", "/api/search?q=Acme&limit=5", http.StatusOK, []string{"e1"}, 1},
		{"category", "/api/search?q=o&category=person", http.StatusOK, []string{"e2", "e3"}, 2},
		{"limited", "/api/search?q=o&limit=1", http.StatusOK, []string{"e1"}, 3},
		{"no match", "/api/search?q=zebra", http.StatusOK, []string{}, 0},
		{"missing q", "/api/search", http.StatusBadRequest, nil, 0},
		{"bad limit", "/api/search?q=a&limit=x", http.StatusBadRequest, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "GET", tt.path, "")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var res fetch.SearchResult
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", res.Total, tt.wantTotal)
			}
			if len(res.Entities) != len(tt.wantIDs) {
				t.Fatalf("got %d entities, want %d", len(res.Entities), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if res.Entities[i].ID != id {
					t.Errorf("entity %d = %s, want %s", i, res.Entities[i].ID, id)
				}
			}
		})
	}
}

func TestGetEntity(t *testing.T) {
	srv := testServer(t)
	seedServer(t, srv)

	w := do(t, srv, "GET", "/api/entities/e2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["name"] != "John Doe" {
		t.Errorf("name = %v, want John Doe", body["name"])
	}

	w = do(t, srv, "GET", "/api/entities/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing entity: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestNeighbors(t *testing.T) {
	srv := testServer(t)
	seedServer(t, srv)

	w := do(t, srv, "GET", "/api/entities/e1/neighbors", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var nb fetch.Neighbors
	if err := json.Unmarshal(w.Body.Bytes(), &nb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if nb.Entity.ID != "e1" {
		t.Errorf("entity = %s, want e1", nb.Entity.ID)
	}
	if len(nb.Neighbors) != 1 || nb.Neighbors[0].ID != "e2" {
		t.Errorf("neighbors = %+v, want [e2]", nb.Neighbors)
	}
	if len(nb.Relationships) != 1 || nb.Relationships[0].SourceEntityID != "e1" {
		t.Errorf("relationships = %+v", nb.Relationships)
	}

	w = do(t, srv, "GET", "/api/entities/nope/neighbors", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing entity: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestImport(t *testing.T) {
	srv := testServer(t)

	body := `{
		"entities": [
			{"id": "a", "category": "vessel", "name": "MV Example", "confidence": 0.6},
			{"id": "b", "category": "organization", "name": "Example Shipping"}
		],
		"relationships": [
			{"id": "ab", "source_entity_id": "b", "target_entity_id": "a", "category": "owner_of"}
		]
	}`
	w := do(t, srv, "POST", "/api/import", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var counts map[string]int
	json.Unmarshal(w.Body.Bytes(), &counts)
	if counts["entities"] != 2 || counts["relationships"] != 1 {
		t.Errorf("counts = %v", counts)
	}

	w = do(t, srv, "GET", "/api/entities/b/neighbors", "")
	if w.Code != http.StatusOK {
		t.Errorf("imported entity not served: status = %d", w.Code)
	}
}

func TestImportRejectsInvalid(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"entities": [`},
		{"missing name", `{"entities": [{"id": "a", "category": "person"}]}`},
		{"confidence out of range", `{"entities": [{"id": "a", "category": "person", "name": "A", "confidence": 2}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "POST", "/api/import", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
			}
		})
	}
}

func TestGraphStats(t *testing.T) {
	srv := testServer(t)

	var empty struct {
		EntityCount int                   `json:"entity_count"`
		Categories  []store.CategoryCount `json:"categories"`
	}
	w := do(t, srv, "GET", "/api/graph/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if empty.EntityCount != 0 || empty.Categories == nil || len(empty.Categories) != 0 {
		t.Errorf("empty stats = %+v, want zero counts and an empty list", empty)
	}

	seedServer(t, srv)
	var stats struct {
		EntityCount       int                   `json:"entity_count"`
		RelationshipCount int                   `json:"relationship_count"`
		Categories        []store.CategoryCount `json:"categories"`
	}
	w = do(t, srv, "GET", "/api/graph/stats", "")
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.EntityCount != 3 || stats.RelationshipCount != 2 {
		t.Errorf("counts = %d, %d, want 3, 2", stats.EntityCount, stats.RelationshipCount)
	}
	want := []store.CategoryCount{{Category: "person", Count: 2}, {Category: "organization", Count: 1}}
	if len(stats.Categories) != len(want) || stats.Categories[0] != want[0] || stats.Categories[1] != want[1] {
		t.Errorf("categories = %+v, want %+v", stats.Categories, want)
	}
}
