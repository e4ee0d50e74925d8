package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/graphwalk/internal/graph"
)

const entityColumns = `id, category, name, aliases, properties, source, source_id, confidence, first_seen, last_seen`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertEntity inserts an entity or replaces the descriptive fields of an
// existing one. created_at is preserved on update, and the first_seen /
// last_seen window only ever widens.
func (db *DB) UpsertEntity(ctx context.Context, e graph.Entity) error {
	return upsertEntity(ctx, db, e)
}

func upsertEntity(ctx context.Context, x execer, e graph.Entity) error {
	aliases, err := json.Marshal(nonNilStrings(e.Aliases))
	if err != nil {
		return fmt.Errorf("encode aliases for %s: %w", e.ID, err)
	}
	props, err := json.Marshal(nonNilMap(e.Properties))
	if err != nil {
		return fmt.Errorf("encode properties for %s: %w", e.ID, err)
	}
	cat, _ := graph.ParseNodeCategory(e.Category)

	now := time.Now().UnixMilli()
	firstSeen, lastSeen := seenMillis(e.FirstSeen, now), seenMillis(e.LastSeen, now)
	if lastSeen < firstSeen {
		lastSeen = firstSeen
	}

	_, err = x.ExecContext(ctx, `
		INSERT INTO entities (id, category, name, aliases, properties, source, source_id, confidence,
			first_seen, last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			name = excluded.name,
			aliases = excluded.aliases,
			properties = excluded.properties,
			source = excluded.source,
			source_id = excluded.source_id,
			confidence = excluded.confidence,
			first_seen = MIN(COALESCE(entities.first_seen, excluded.first_seen), excluded.first_seen),
			last_seen = MAX(COALESCE(entities.last_seen, excluded.last_seen), excluded.last_seen),
			updated_at = excluded.updated_at
	`, e.ID, string(cat), e.Name, string(aliases), string(props), e.Source, e.SourceID, e.Confidence,
		firstSeen, lastSeen, now, now)
	if err != nil {
		return fmt.Errorf("upsert entity %s: %w", e.ID, err)
	}
	return nil
}

func seenMillis(t time.Time, fallback int64) int64 {
	if t.IsZero() {
		return fallback
	}
	return t.UnixMilli()
}

// GetEntity returns an entity by id, or nil if not found.
func (db *DB) GetEntity(ctx context.Context, id string) (*graph.Entity, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	defer rows.Close()

	ents, err := scanEntities(rows)
	if err != nil {
		return nil, err
	}
	if len(ents) == 0 {
		return nil, nil
	}
	return &ents[0], nil
}

// GetEntitiesByIDs returns the entities that exist among ids, ordered by id.
// Unknown ids are skipped.
func (db *DB) GetEntitiesByIDs(ctx context.Context, ids []string) ([]graph.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT `+entityColumns+` FROM entities WHERE id IN (%s) ORDER BY id`, placeholders(len(ids)))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get entities by ids: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// SearchOpts controls entity search.
type SearchOpts struct {
	Limit    int    // max results (default 10)
	Category string // filter by category (empty = all)
}

func (o SearchOpts) limit() int {
	if o.Limit <= 0 {
		return 10
	}
	return o.Limit
}

// SearchEntities matches query case-insensitively against names and aliases.
// It returns at most opts.Limit entities, best confidence first, along with
// the total number of matches.
func (db *DB) SearchEntities(ctx context.Context, query string, opts SearchOpts) ([]graph.Entity, int, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	where := `(name LIKE ? ESCAPE '\' OR EXISTS (
		SELECT 1 FROM json_each(entities.aliases) WHERE json_each.value LIKE ? ESCAPE '\'))`
	args := []any{pattern, pattern}
	if opts.Category != "" {
		cat, _ := graph.ParseNodeCategory(opts.Category)
		where += ` AND category = ?`
		args = append(args, string(cat))
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+entityColumns+` FROM entities WHERE `+where+`
		ORDER BY confidence DESC, name COLLATE NOCASE, id
		LIMIT ?
	`, append(args, opts.limit())...)
	if err != nil {
		return nil, 0, fmt.Errorf("search entities: %w", err)
	}
	defer rows.Close()

	ents, err := scanEntities(rows)
	if err != nil {
		return nil, 0, err
	}
	return ents, total, nil
}

// CountEntities returns the number of stored entities.
func (db *DB) CountEntities(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities").Scan(&n)
	return n, err
}

// CategoryCount is the number of entities of one kind.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CountByCategory returns per-kind entity counts, largest first. Kinds with
// no entities are omitted.
func (db *DB) CountByCategory(ctx context.Context) ([]CategoryCount, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS n FROM entities
		GROUP BY category
		ORDER BY n DESC, category
	`)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	defer rows.Close()

	var counts []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func scanEntities(rows *sql.Rows) ([]graph.Entity, error) {
	var ents []graph.Entity
	for rows.Next() {
		var e graph.Entity
		var aliases, props string
		var source, sourceID sql.NullString
		var firstSeen, lastSeen sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Category, &e.Name, &aliases, &props, &source, &sourceID,
			&e.Confidence, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		if err := json.Unmarshal([]byte(aliases), &e.Aliases); err != nil {
			return nil, fmt.Errorf("decode aliases for %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(props), &e.Properties); err != nil {
			return nil, fmt.Errorf("decode properties for %s: %w", e.ID, err)
		}
		if len(e.Aliases) == 0 {
			e.Aliases = nil
		}
		if len(e.Properties) == 0 {
			e.Properties = nil
		}
		e.Source = source.String
		e.SourceID = sourceID.String
		if firstSeen.Valid {
			e.FirstSeen = time.UnixMilli(firstSeen.Int64).UTC()
		}
		if lastSeen.Valid {
			e.LastSeen = time.UnixMilli(lastSeen.Int64).UTC()
		}
		ents = append(ents, e)
	}
	return ents, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
