package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lazypower/graphwalk/internal/graph"
)

// UpsertRelationship inserts or replaces a relationship.
func (db *DB) UpsertRelationship(ctx context.Context, r graph.Relationship) error {
	return upsertRelationship(ctx, db, r)
}

func upsertRelationship(ctx context.Context, x execer, r graph.Relationship) error {
	props, err := json.Marshal(nonNilMap(r.Properties))
	if err != nil {
		return fmt.Errorf("encode properties for %s: %w", r.ID, err)
	}
	cat, _ := graph.ParseEdgeCategory(r.Category)

	now := time.Now().UnixMilli()
	_, err = x.ExecContext(ctx, `
		INSERT INTO relationships (id, source_id, target_id, category, properties, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			target_id = excluded.target_id,
			category = excluded.category,
			properties = excluded.properties,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
	`, r.ID, r.SourceEntityID, r.TargetEntityID, string(cat), string(props), r.Confidence, now, now)
	if err != nil {
		return fmt.Errorf("upsert relationship %s: %w", r.ID, err)
	}
	return nil
}

// RelationshipsOf returns every relationship touching id, ordered by id.
func (db *DB) RelationshipsOf(ctx context.Context, id string) ([]graph.Relationship, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, source_id, target_id, category, properties, confidence
		FROM relationships WHERE source_id = ? OR target_id = ?
		ORDER BY id
	`, id, id)
	if err != nil {
		return nil, fmt.Errorf("relationships of %s: %w", id, err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

// CountRelationships returns the number of stored relationships.
func (db *DB) CountRelationships(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM relationships").Scan(&n)
	return n, err
}

// Neighborhood is an entity with its incident relationships and the
// entities at their other ends.
type Neighborhood struct {
	Entity        graph.Entity
	Relationships []graph.Relationship
	Neighbors     []graph.Entity
}

// Neighbors returns the one-hop neighborhood of id, or nil if id is not
// stored. Relationships whose far end is missing are still returned; it is up
// to the reader to drop them.
func (db *DB) Neighbors(ctx context.Context, id string) (*Neighborhood, error) {
	focal, err := db.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if focal == nil {
		return nil, nil
	}

	rels, err := db.RelationshipsOf(ctx, id)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{id: true}
	var others []string
	for _, r := range rels {
		for _, end := range []string{r.SourceEntityID, r.TargetEntityID} {
			if !seen[end] {
				seen[end] = true
				others = append(others, end)
			}
		}
	}

	neighbors, err := db.GetEntitiesByIDs(ctx, others)
	if err != nil {
		return nil, err
	}
	return &Neighborhood{Entity: *focal, Relationships: rels, Neighbors: neighbors}, nil
}

func scanRelationships(rows *sql.Rows) ([]graph.Relationship, error) {
	var rels []graph.Relationship
	for rows.Next() {
		var r graph.Relationship
		var props string
		if err := rows.Scan(&r.ID, &r.SourceEntityID, &r.TargetEntityID, &r.Category, &props, &r.Confidence); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		if err := json.Unmarshal([]byte(props), &r.Properties); err != nil {
			return nil, fmt.Errorf("decode properties for %s: %w", r.ID, err)
		}
		if len(r.Properties) == 0 {
			r.Properties = nil
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// ImportSet is a batch of records to load in one transaction.
type ImportSet struct {
	Entities      []graph.Entity       `json:"entities" yaml:"entities" validate:"dive"`
	Relationships []graph.Relationship `json:"relationships" yaml:"relationships" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ImportBatch validates every record and upserts them all in a single
// transaction. Nothing is written if any record is invalid.
func (db *DB) ImportBatch(ctx context.Context, set ImportSet) (entities, relationships int, err error) {
	if err := validate.Struct(set); err != nil {
		return 0, 0, fmt.Errorf("validate import: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, e := range set.Entities {
		if err := upsertEntity(ctx, tx, e); err != nil {
			return 0, 0, err
		}
	}
	for _, r := range set.Relationships {
		if err := upsertRelationship(ctx, tx, r); err != nil {
			return 0, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit import: %w", err)
	}
	return len(set.Entities), len(set.Relationships), nil
}
