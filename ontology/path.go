package ontology

// Column names a terminal physical (or view) column a Path can resolve to.
// The set of columns valid for a given RecordKind is enforced by the
// Catalog, not by the Go type system.
type Column string

const (
	ColumnBaseURL           Column = "base_url"
	ColumnVersion           Column = "version"
	ColumnTitle             Column = "title"
	ColumnWebID             Column = "web_id"
	ColumnEditionID         Column = "edition_id"
	ColumnDraftID           Column = "draft_id"
	ColumnUUID              Column = "entity_uuid"
	ColumnProperties        Column = "properties"
	ColumnProvenance        Column = "provenance"
	ColumnRecordCreatedByID Column = "record_created_by_id"
)

// JSONToken is one hop of a JSON sub-selector: either a field-name key or an
// array index.
type JSONToken struct {
	Field string
	Index int
	IsIdx bool
}

// Field builds a field-name JSON token.
func Field(name string) JSONToken { return JSONToken{Field: name} }

// Index builds an array-index JSON token.
func Index(i int) JSONToken { return JSONToken{Index: i, IsIdx: true} }

// JSONPath is an ordered sequence of field/index tokens descending into a
// jsonb column. A nil/empty JSONPath means "the column itself".
type JSONPath []JSONToken

// Direction picks which side of an edge table is the traversal's source.
type Direction int

const (
	// Outgoing is the default: the path's current record is the edge's
	// source side.
	Outgoing Direction = iota
	// Incoming reverses the edge: the path's current record is the edge's
	// target side, so the materialized join swaps source/target and flips
	// LeftOuter<->RightOuter.
	Incoming
)

// EdgeKind enumerates every ontology and knowledge-graph edge the Join
// Planner knows how to traverse.
type EdgeKind int

const (
	// Ontology edges (reachability-closure views, support inheritance depth).
	InheritsFrom EdgeKind = iota
	ConstrainsPropertiesOn
	ConstrainsLinksOn
	ConstrainsLinkDestinationsOn
	ConstrainsValuesOn

	// Knowledge-graph edges (plain edge tables, no inheritance depth).
	HasLeftEntity
	HasRightEntity
	IsOfType
)

// String implements fmt.Stringer.
func (e EdgeKind) String() string {
	switch e {
	case InheritsFrom:
		return "InheritsFrom"
	case ConstrainsPropertiesOn:
		return "ConstrainsPropertiesOn"
	case ConstrainsLinksOn:
		return "ConstrainsLinksOn"
	case ConstrainsLinkDestinationsOn:
		return "ConstrainsLinkDestinationsOn"
	case ConstrainsValuesOn:
		return "ConstrainsValuesOn"
	case HasLeftEntity:
		return "HasLeftEntity"
	case HasRightEntity:
		return "HasRightEntity"
	case IsOfType:
		return "IsOfType"
	default:
		return "EdgeKind(?)"
	}
}

// IsOntologyEdge reports whether e is traversed through an
// inheritance-depth-capable reachability-closure view.
func (e EdgeKind) IsOntologyEdge() bool {
	return e <= ConstrainsValuesOn
}

// Path is the recursive sum type the compiler walks: either a terminal
// column reference (optionally with a JSON sub-selector) or an edge hop that
// continues into a nested Path on the destination record kind.
//
// Exactly one of (Column set) or (Edge set) is populated; Path is built
// through the constructor functions below rather than struct literals so
// that invariant is maintained.
type Path struct {
	column Column
	json   JSONPath
	isLeaf bool

	edge       EdgeKind
	direction  Direction
	depth      *uint32
	next       *Path
}

// Col builds a terminal column-reference path.
func Col(c Column) Path {
	return Path{column: c, isLeaf: true}
}

// JSONCol builds a terminal column reference with a JSON sub-selector, used
// for Path::Properties(Some(path)) / Path::Provenance(Some(path)).
func JSONCol(c Column, path JSONPath) Path {
	return Path{column: c, json: path, isLeaf: true}
}

// Edge builds a recursive edge hop with default (Outgoing) direction and no
// inheritance-depth cap.
func Edge(kind EdgeKind, next Path) Path {
	return Path{edge: kind, direction: Outgoing, next: &next}
}

// EdgeDir builds a recursive edge hop with an explicit direction.
func EdgeDir(kind EdgeKind, dir Direction, next Path) Path {
	return Path{edge: kind, direction: dir, next: &next}
}

// EdgeDepth builds a recursive edge hop capped at the given
// inheritance-depth limit; only meaningful on ontology edges.
func EdgeDepth(kind EdgeKind, dir Direction, depth uint32, next Path) Path {
	return Path{edge: kind, direction: dir, depth: &depth, next: &next}
}

// IsLeaf reports whether p is a terminal column reference.
func (p Path) IsLeaf() bool { return p.isLeaf }

// Column returns the terminal column, valid only when IsLeaf().
func (p Path) Column() Column { return p.column }

// JSON returns the JSON sub-selector, valid only when IsLeaf(); nil means
// "the column itself".
func (p Path) JSON() JSONPath { return p.json }

// Edge returns the edge kind of this hop, valid only when !IsLeaf().
func (p Path) Edge() EdgeKind { return p.edge }

// Direction returns the traversal direction of this hop.
func (p Path) Direction() Direction { return p.direction }

// Depth returns the inheritance-depth cap of this hop, or nil if uncapped.
func (p Path) Depth() *uint32 { return p.depth }

// Next returns the continuation path past this edge hop, valid only when
// !IsLeaf().
func (p Path) Next() *Path { return p.next }

// IsLatestVersionColumn reports whether p is exactly the Version column.
// Whether it is compared against the "latest" sentinel is decided by the
// filter, not the path itself; this helper identifies a bare Version
// terminal so the Join Planner can recognize candidates for the WITH
// rewrite.
func (p Path) IsLatestVersionColumn() bool {
	return p.isLeaf && p.column == ColumnVersion
}
