package ontology

import "fmt"

// RelationKind discriminates the two shapes of join a Relation describes:
// attaching a primary reference table, or attaching an edge table (followed
// by attaching the edge's destination record's root table).
type RelationKind int

const (
	// AttachReference joins the record kind's root table to one of its
	// reference tables on the shared join key (e.g. data_types ->
	// ontology_id_with_metadata).
	AttachReference RelationKind = iota
	// AttachEdge joins the current root table to an edge/reachability
	// table.
	AttachEdge
	// AttachEdgeTarget joins an edge/reachability table to the destination
	// record kind's root table.
	AttachEdgeTarget
)

// Relation is one JOIN the Join Planner must materialize to bring a path's
// terminating column into scope.
type Relation struct {
	Kind RelationKind

	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
	ToKind     RecordKind

	Edge      EdgeKind // meaningful when Kind != AttachReference
	Direction Direction
	Depth     *uint32

	// Bitemporal reports whether ToTable carries the
	// transaction_time/decision_time columns, so the SelectCompiler knows to
	// inject the containment predicates on this JOIN's alias.
	Bitemporal bool
}

// TerminatingColumn resolves path p, started from record kind, to the
// physical column of its deepest hop, consuming edges until a terminal is
// reached.
func (c *Catalog) TerminatingColumn(kind RecordKind, p Path) (Column, JSONPath, RecordKind, error) {
	_, col, json, finalKind, err := c.walk(kind, p)
	return col, json, finalKind, err
}

// Relations yields the ordered sequence of JOINs required to bring path p's
// terminating column into scope, along with the record kind the path lands
// on.
func (c *Catalog) Relations(kind RecordKind, p Path) ([]Relation, RecordKind, error) {
	rels, _, _, finalKind, err := c.walk(kind, p)
	return rels, finalKind, err
}

func (c *Catalog) walk(kind RecordKind, p Path) ([]Relation, Column, JSONPath, RecordKind, error) {
	if p.IsLeaf() {
		rc, ok := c.Record(kind)
		if !ok {
			return nil, "", nil, kind, &InvalidPathError{Kind: kind, Reason: "record kind not in catalog"}
		}
		col := p.Column()
		if _, onRoot := rc.Root.Columns[col]; onRoot {
			return nil, col, p.JSON(), kind, nil
		}
		for _, ref := range rc.References {
			if _, onRef := ref.Columns[col]; onRef {
				rel := Relation{
					Kind:       AttachReference,
					FromTable:  rc.Root.Table,
					FromColumn: rc.Root.JoinKey,
					ToTable:    ref.Table,
					ToColumn:   ref.JoinKey,
					ToKind:     kind,
					Bitemporal: ref.Bitemporal,
				}
				return []Relation{rel}, col, p.JSON(), kind, nil
			}
		}
		return nil, "", nil, kind, &InvalidPathError{
			Kind:   kind,
			Reason: fmt.Sprintf("column %q is not defined on %s or any of its reference tables", col, kind),
		}
	}

	edesc, ok := c.Edge(p.Edge())
	if !ok {
		return nil, "", nil, kind, &InvalidPathError{Kind: kind, Reason: fmt.Sprintf("unknown edge %s", p.Edge())}
	}
	expectedSource, landingKind := edesc.SourceKind, edesc.TargetKind
	fromJoinCol, toJoinCol := edesc.SourceJoinColumn, edesc.TargetJoinColumn
	if p.Direction() == Incoming {
		expectedSource, landingKind = edesc.TargetKind, edesc.SourceKind
		fromJoinCol, toJoinCol = edesc.TargetJoinColumn, edesc.SourceJoinColumn
	}
	if kind != expectedSource {
		return nil, "", nil, kind, &InvalidPathError{
			Kind:   kind,
			Reason: fmt.Sprintf("edge %s cannot be traversed from %s in direction %v", p.Edge(), kind, p.Direction()),
		}
	}
	if p.Depth() != nil && !edesc.SupportsDepth {
		return nil, "", nil, kind, &InvalidPathError{
			Kind:   kind,
			Reason: fmt.Sprintf("edge %s does not support an inheritance-depth cap", p.Edge()),
		}
	}

	rc, ok := c.Record(kind)
	if !ok {
		return nil, "", nil, kind, &InvalidPathError{Kind: kind, Reason: "record kind not in catalog"}
	}
	targetRC, ok := c.Record(landingKind)
	if !ok {
		return nil, "", nil, kind, &InvalidPathError{Kind: landingKind, Reason: "record kind not in catalog"}
	}

	edgeRel := Relation{
		Kind:       AttachEdge,
		FromTable:  rc.Root.Table,
		FromColumn: rc.Root.JoinKey,
		ToTable:    edesc.Table,
		ToColumn:   fromJoinCol,
		ToKind:     kind,
		Edge:       edesc.Kind,
		Direction:  p.Direction(),
		Depth:      p.Depth(),
	}
	targetRel := Relation{
		Kind:       AttachEdgeTarget,
		FromTable:  edesc.Table,
		FromColumn: toJoinCol,
		ToTable:    targetRC.Root.Table,
		ToColumn:   targetRC.Root.JoinKey,
		ToKind:     landingKind,
		Edge:       edesc.Kind,
		Direction:  p.Direction(),
		Depth:      p.Depth(),
		Bitemporal: targetRC.Root.Bitemporal,
	}

	rest, col, json, finalKind, err := c.walk(landingKind, *p.Next())
	if err != nil {
		return nil, "", nil, kind, err
	}
	return append([]Relation{edgeRel, targetRel}, rest...), col, json, finalKind, nil
}
