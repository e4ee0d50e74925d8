package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lazypower/graphwalk/internal/graph"
	"github.com/lazypower/graphwalk/internal/store"
)

const (
	maxSearchLimit = 100
	maxImportBytes = 10 << 20
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q required")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	ents, total, err := s.db.SearchEntities(r.Context(), q, store.SearchOpts{
		Limit:    limit,
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		s.log.Error("search", zap.String("q", q), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ents == nil {
		ents = []graph.Entity{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": ents,
		"total":    total,
	})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, err := s.db.GetEntity(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	nb, err := s.db.Neighbors(r.Context(), id)
	if err != nil {
		s.log.Error("neighbors", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if nb == nil {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	if nb.Relationships == nil {
		nb.Relationships = []graph.Relationship{}
	}
	if nb.Neighbors == nil {
		nb.Neighbors = []graph.Entity{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity":        nb.Entity,
		"relationships": nb.Relationships,
		"neighbors":     nb.Neighbors,
	})
}

func (s *Server) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entities, err := s.db.CountEntities(ctx)
	if err != nil {
		s.log.Error("count entities", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	relationships, err := s.db.CountRelationships(ctx)
	if err != nil {
		s.log.Error("count relationships", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	categories, err := s.db.CountByCategory(ctx)
	if err != nil {
		s.log.Error("count by category", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if categories == nil {
		categories = []store.CategoryCount{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity_count":       entities,
		"relationship_count": relationships,
		"categories":         categories,
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var set store.ImportSet
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes)).Decode(&set); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	nEnt, nRel, err := s.db.ImportBatch(r.Context(), set)
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Error("import", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Info("imported", zap.Int("entities", nEnt), zap.Int("relationships", nRel))
	writeJSON(w, http.StatusCreated, map[string]int{
		"entities":      nEnt,
		"relationships": nRel,
	})
}
