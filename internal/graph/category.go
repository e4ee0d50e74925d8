package graph

import "strings"

// NodeCategory is the kind of real-world object an entity represents.
type NodeCategory string

const (
	CategoryPerson       NodeCategory = "person"
	CategoryOrganization NodeCategory = "organization"
	CategoryVessel       NodeCategory = "vessel"
	CategoryAircraft     NodeCategory = "aircraft"
	CategoryLocation     NodeCategory = "location"
	CategoryEvent        NodeCategory = "event"
	CategoryDocument     NodeCategory = "document"
	CategoryTransaction  NodeCategory = "transaction"
	CategorySanction     NodeCategory = "sanction"
	// CategoryOther holds entities whose kind is not recognized.
	CategoryOther NodeCategory = "other"
)

// NodeCategories lists every entity kind in display order.
var NodeCategories = []NodeCategory{
	CategoryPerson, CategoryOrganization, CategoryVessel, CategoryAircraft,
	CategoryLocation, CategoryEvent, CategoryDocument, CategoryTransaction,
	CategorySanction, CategoryOther,
}

var nodeCategorySet = func() map[NodeCategory]bool {
	m := make(map[NodeCategory]bool, len(NodeCategories))
	for _, c := range NodeCategories {
		m[c] = true
	}
	return m
}()

// ParseNodeCategory normalizes s to a known entity kind. Unknown kinds map to
// CategoryOther and ok reports false.
func ParseNodeCategory(s string) (c NodeCategory, ok bool) {
	c = NodeCategory(strings.ToLower(strings.TrimSpace(s)))
	if nodeCategorySet[c] {
		return c, true
	}
	return CategoryOther, false
}

// Valid reports whether c is a member of the closed set.
func (c NodeCategory) Valid() bool { return nodeCategorySet[c] }

// EdgeCategory is the kind of relationship between two entities.
type EdgeCategory string

const (
	RelationOwnerOf        EdgeCategory = "owner_of"
	RelationDirectorOf     EdgeCategory = "director_of"
	RelationEmployeeOf     EdgeCategory = "employee_of"
	RelationRelatedTo      EdgeCategory = "related_to"
	RelationLocatedAt      EdgeCategory = "located_at"
	RelationTransactedWith EdgeCategory = "transacted_with"
	RelationSanctionedBy   EdgeCategory = "sanctioned_by"
	RelationRegisteredIn   EdgeCategory = "registered_in"
	RelationFlaggedAs      EdgeCategory = "flagged_as"
	RelationMeetingWith    EdgeCategory = "meeting_with"
	RelationTraveledTo     EdgeCategory = "traveled_to"
	RelationPartOf         EdgeCategory = "part_of"
)

// EdgeCategories lists every relationship kind.
var EdgeCategories = []EdgeCategory{
	RelationOwnerOf, RelationDirectorOf, RelationEmployeeOf, RelationRelatedTo,
	RelationLocatedAt, RelationTransactedWith, RelationSanctionedBy, RelationRegisteredIn,
	RelationFlaggedAs, RelationMeetingWith, RelationTraveledTo, RelationPartOf,
}

var edgeCategorySet = func() map[EdgeCategory]bool {
	m := make(map[EdgeCategory]bool, len(EdgeCategories))
	for _, c := range EdgeCategories {
		m[c] = true
	}
	return m
}()

// ParseEdgeCategory normalizes s to a known relationship kind. Unknown kinds
// map to RelationRelatedTo and ok reports false.
func ParseEdgeCategory(s string) (c EdgeCategory, ok bool) {
	c = EdgeCategory(strings.ToLower(strings.TrimSpace(s)))
	if edgeCategorySet[c] {
		return c, true
	}
	return RelationRelatedTo, false
}

// Valid reports whether c is a member of the closed set.
func (c EdgeCategory) Valid() bool { return edgeCategorySet[c] }
