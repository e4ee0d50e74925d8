package graph

import "time"

// Entity is a graph vertex as returned by a fetch.
type Entity struct {
	ID         string         `json:"id" yaml:"id" validate:"required"`
	Category   string         `json:"category" yaml:"category" validate:"required"`
	Name       string         `json:"name" yaml:"name" validate:"required"`
	Aliases    []string       `json:"aliases,omitempty" yaml:"aliases"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties"`
	Source     string         `json:"source,omitempty" yaml:"source"`
	// SourceID is the record's identifier in its upstream source.
	SourceID   string  `json:"source_id,omitempty" yaml:"source_id"`
	Confidence float64 `json:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`
	// FirstSeen and LastSeen bound when any source reported the entity. The
	// store fills zero values with the import time.
	FirstSeen time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen  time.Time `json:"last_seen" yaml:"last_seen"`
}

// Relationship is a directed, typed connection between two entities as
// returned by a fetch.
type Relationship struct {
	ID             string         `json:"id" yaml:"id" validate:"required"`
	SourceEntityID string         `json:"source_entity_id" yaml:"source" validate:"required"`
	TargetEntityID string         `json:"target_entity_id" yaml:"target" validate:"required"`
	Category       string         `json:"category" yaml:"category" validate:"required"`
	Properties     map[string]any `json:"properties,omitempty" yaml:"properties"`
	Confidence     float64        `json:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`
}

// Batch is one unit of work for Accumulator.Merge: a focal entity, the
// entities related to it, and the relationships connecting them.
type Batch struct {
	Focal         Entity
	Related       []Entity
	Relationships []Relationship
}

// attributes flattens the descriptive fields of an entity into a node
// attribute map. Reserved keys (aliases, source, source_id, first_seen,
// last_seen, confidence) override same-named properties and are only set
// when the entity carries a value.
func (e Entity) attributes() map[string]any {
	attrs := make(map[string]any, len(e.Properties)+3)
	for k, v := range e.Properties {
		attrs[k] = v
	}
	if len(e.Aliases) > 0 {
		aliases := make([]string, len(e.Aliases))
		copy(aliases, e.Aliases)
		attrs["aliases"] = aliases
	}
	if e.Source != "" {
		attrs["source"] = e.Source
	}
	if e.SourceID != "" {
		attrs["source_id"] = e.SourceID
	}
	if !e.FirstSeen.IsZero() {
		attrs["first_seen"] = e.FirstSeen.UTC().Format(time.RFC3339)
	}
	if !e.LastSeen.IsZero() {
		attrs["last_seen"] = e.LastSeen.UTC().Format(time.RFC3339)
	}
	if e.Confidence != 0 {
		attrs["confidence"] = e.Confidence
	}
	return attrs
}

func (r Relationship) attributes() map[string]any {
	attrs := make(map[string]any, len(r.Properties)+1)
	for k, v := range r.Properties {
		attrs[k] = v
	}
	if r.Confidence != 0 {
		attrs["confidence"] = r.Confidence
	}
	return attrs
}
