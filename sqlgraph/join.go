package sqlgraph

import "github.com/hashintel/graphcompiler/ontology"

// JoinKind picks the SQL join operator a JoinExpression renders with.
type JoinKind int

const (
	// InnerJoin is used for every AttachReference hop: a row that cannot
	// resolve a required reference simply does not satisfy the path.
	InnerJoin JoinKind = iota
	// LeftOuterJoin is used for an edge traversal in its default (Outgoing)
	// orientation: the edge/target row may be absent without disqualifying
	// the source row.
	LeftOuterJoin
	// RightOuterJoin is LeftOuterJoin's mirror, used when an edge is
	// traversed Incoming — the source and target sides swap, so the outer
	// side of the join flips too.
	RightOuterJoin
)

func (k JoinKind) sql() string {
	switch k {
	case LeftOuterJoin:
		return "LEFT JOIN"
	case RightOuterJoin:
		return "RIGHT JOIN"
	default:
		return "JOIN"
	}
}

// joinKindFor derives the JoinKind a Relation must render as: AttachReference
// hops are always required (InnerJoin); edge hops default to LeftOuterJoin
// and flip to RightOuterJoin when traversed Incoming, since the edge table's
// source/target sides swap with the direction.
func joinKindFor(rel ontology.Relation) JoinKind {
	if rel.Kind == ontology.AttachReference {
		return InnerJoin
	}
	if rel.Direction == ontology.Incoming {
		return RightOuterJoin
	}
	return LeftOuterJoin
}

// JoinExpression is one materialized JOIN clause.
type JoinExpression struct {
	Kind JoinKind
	From AliasedTable
	To   AliasedTable
	On   []BinOp // ANDed together; almost always a single equality

	Edge       ontology.EdgeKind
	Direction  ontology.Direction
	Depth      *uint32
	Bitemporal bool
}

// Render writes `JOIN "table" AS "_c_d_n" ON "from"."k" = "to"."k"` (or
// LEFT JOIN / RIGHT JOIN, per Kind); several On predicates are rendered as
// one parenthesized AND.
func (j JoinExpression) Render() string {
	w := NewWriter()
	w.raw(j.Kind.sql())
	w.raw(" ")
	w.raw(j.To.FromClause())
	w.raw(" ON ")
	if len(j.On) == 1 {
		j.On[0].write(w)
	} else {
		And{argsOf(j.On)}.write(w)
	}
	return w.String()
}

func argsOf(ops []BinOp) []Expr {
	out := make([]Expr, len(ops))
	for i, o := range ops {
		out[i] = o
	}
	return out
}

// joinSiteKey identifies one position in the alias grammar: a condition's
// chain at a given depth. Every relation materialized at the same site
// shares a counter for fresh alias numbers.
type joinSiteKey struct {
	ConditionIndex int
	ChainDepth     int
}

// joinShape is the structural fingerprint the planner deduplicates on: two
// relations materialized at the same site with the same shape (starting
// from the same source alias) are the same JOIN and must reuse its alias,
// rather than materializing a second redundant copy.
type joinShape struct {
	Kind      ontology.RelationKind
	Edge      ontology.EdgeKind
	Table     string
	Direction ontology.Direction
	Depth     uint32
	HasDepth  bool
	FromAlias string
}

// JoinPlanner allocates and deduplicates table aliases while turning a
// sequence of ontology.Relation hops into JoinExpressions. One JoinPlanner
// is shared by every condition compiled into a single statement. Identical
// join chains planned under the same condition index collapse to the same
// alias; chains planned under different condition indexes get distinct
// aliases, since sites are keyed by condition index.
type JoinPlanner struct {
	bySite map[joinSiteKey]map[joinShape]Alias
	next   map[joinSiteKey]int
}

// NewJoinPlanner returns an empty planner.
func NewJoinPlanner() *JoinPlanner {
	return &JoinPlanner{
		bySite: make(map[joinSiteKey]map[joinShape]Alias),
		next:   make(map[joinSiteKey]int),
	}
}

// RootAlias returns the (deduplicated) FROM-clause alias for kind's root
// table within conditionIndex's chain. Chain depth 0 is always the root.
func (p *JoinPlanner) RootAlias(conditionIndex int, table string) AliasedTable {
	site := joinSiteKey{ConditionIndex: conditionIndex, ChainDepth: 0}
	shape := joinShape{Table: table}
	alias := p.allocate(site, shape)
	return AliasedTable{Table: table, Alias: alias}
}

func (p *JoinPlanner) allocate(site joinSiteKey, shape joinShape) Alias {
	shapes, ok := p.bySite[site]
	if !ok {
		shapes = make(map[joinShape]Alias)
		p.bySite[site] = shapes
	}
	if a, ok := shapes[shape]; ok {
		return a
	}
	n := p.next[site]
	p.next[site] = n + 1
	a := Alias{ConditionIndex: site.ConditionIndex, ChainDepth: site.ChainDepth, Number: n}
	shapes[shape] = a
	return a
}

// Plan materializes rels (as produced by ontology.Catalog.Relations) into a
// deduplicated JoinExpression chain, starting from root. It returns the
// expressions in traversal order and the AliasedTable of the final hop's
// destination table (the table the terminating column lives on).
func (p *JoinPlanner) Plan(conditionIndex int, root AliasedTable, rels []ontology.Relation) ([]JoinExpression, AliasedTable) {
	current := root
	var exprs []JoinExpression

	for depth, rel := range rels {
		chainDepth := depth + 1
		site := joinSiteKey{ConditionIndex: conditionIndex, ChainDepth: chainDepth}
		var hasDepth bool
		var depthVal uint32
		if rel.Depth != nil {
			hasDepth, depthVal = true, *rel.Depth
		}
		shape := joinShape{
			Kind:      rel.Kind,
			Edge:      rel.Edge,
			Table:     rel.ToTable,
			Direction: rel.Direction,
			Depth:     depthVal,
			HasDepth:  hasDepth,
			FromAlias: current.Alias.Name(),
		}
		alias := p.allocate(site, shape)
		to := AliasedTable{Table: rel.ToTable, Alias: alias}

		on := BinOp{
			Left:     ColumnRef{AliasedColumn{Table: current, Column: rel.FromColumn}},
			Operator: "=",
			Right:    ColumnRef{AliasedColumn{Table: to, Column: rel.ToColumn}},
		}
		ons := []BinOp{on}
		if rel.Kind == ontology.AttachEdge && rel.Depth != nil {
			ons = append(ons, BinOp{
				Left:     ColumnRef{AliasedColumn{Table: to, Column: "inheritance_depth"}},
				Operator: "<=",
				Right:    Raw(itoa(int(*rel.Depth))),
			})
		}
		exprs = append(exprs, JoinExpression{
			Kind:       joinKindFor(rel),
			From:       current,
			To:         to,
			On:         ons,
			Edge:       rel.Edge,
			Direction:  rel.Direction,
			Depth:      rel.Depth,
			Bitemporal: rel.Bitemporal,
		})
		current = to
	}

	return exprs, current
}
