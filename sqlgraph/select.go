package sqlgraph

import (
	"fmt"

	"github.com/hashintel/graphcompiler/ontology"
	"github.com/hashintel/graphcompiler/temporal"
)

// SortDirection picks the ORDER BY direction for a cursor pagination column.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

func (d SortDirection) sql() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// OrderTerm is one ORDER BY column, resolved the same way a Filter resolves
// a Path.
type OrderTerm struct {
	Path      ontology.Path
	Direction SortDirection
}

// Cursor carries the keyset-pagination position a query resumes from: the
// last row's ordering-column values, bound as parameters and compared with
// the row-value operator the leading ORDER BY direction implies.
type Cursor struct {
	Values []any
	Kinds  []ParamKind
}

// Statement is a fully compiled, ready-to-execute query.
type Statement struct {
	SQL  string
	Args []any
}

// orderConditionIndex is the fixed alias-site ORDER BY-only joins are
// planned under, distinct from any WHERE condition's index so an ORDER BY
// path never silently reuses a WHERE join meant to scope a different
// multivalued relation.
const orderConditionIndex = -1

// SelectCompiler turns a record kind, a set of top-level filter conditions,
// an ORDER BY spec, and pagination state into one parameterized PostgreSQL
// SELECT.
type SelectCompiler struct {
	Catalog *ontology.Catalog
	Kind    ontology.RecordKind
	Axes    temporal.QueryTemporalAxes
}

// Compile builds the statement. conditions are ANDed together at the top
// level; each gets its own ConditionIndex so two conditions reaching the
// same multivalued relation get independent joins rather than incorrectly
// collapsing onto one joined row.
func (c *SelectCompiler) Compile(conditions []Filter, order []OrderTerm, limit int, cursor *Cursor) (*Statement, error) {
	planner := NewJoinPlanner()
	params := NewParamRegistry()
	withR := NewWithRewriter()

	rc, ok := c.Catalog.Record(c.Kind)
	if !ok {
		return nil, &InvalidFilterError{Reason: fmt.Sprintf("record kind %s not in catalog", c.Kind)}
	}
	root := planner.RootAlias(rootConditionIndex, rc.Root.Table)

	joins := make([]JoinExpression, 0, len(conditions))
	joinSeen := make(map[string]struct{})
	bitemporalSeen := make(map[string]struct{})
	whereExprs := make([]Expr, 0, len(conditions)+2)

	// addBitemporal injects the transaction_time/decision_time containment
	// pair for table, at most once per alias — every entity_temporal_metadata
	// alias reached by any condition, order term, or the FROM-clause root
	// itself carries exactly one such pair.
	addBitemporal := func(table AliasedTable) error {
		key := table.Alias.Name()
		if _, dup := bitemporalSeen[key]; dup {
			return nil
		}
		bitemporalSeen[key] = struct{}{}
		temporalCtx := &CompileContext{Catalog: c.Catalog, Kind: c.Kind, Params: params, Axes: c.Axes, With: withR}
		e, err := TemporalContainment{
			Table:     table,
			PinnedCol: c.pinnedColumn(),
			RangeCol:  c.rangeColumn(),
		}.Compile(temporalCtx)
		if err != nil {
			return err
		}
		whereExprs = append(whereExprs, e)
		return nil
	}

	addJoins := func(exprs []JoinExpression) error {
		for _, e := range exprs {
			key := e.To.Alias.Name()
			if _, dup := joinSeen[key]; !dup {
				joinSeen[key] = struct{}{}
				joins = append(joins, e)
			}
			if e.Bitemporal {
				if err := addBitemporal(e.To); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if rc.Root.Bitemporal {
		if err := addBitemporal(root); err != nil {
			return nil, err
		}
	}

	for i, cond := range conditions {
		ctx := &CompileContext{
			Catalog:        c.Catalog,
			Kind:           c.Kind,
			ConditionIndex: i,
			Planner:        planner,
			Params:         params,
			Axes:           c.Axes,
			With:           withR,
		}
		e, err := cond.Compile(ctx)
		if err != nil {
			return nil, err
		}
		whereExprs = append(whereExprs, e)

		for _, p := range collectPaths(cond) {
			js, err := ctx.JoinsFor(p)
			if err != nil {
				return nil, err
			}
			if err := addJoins(js); err != nil {
				return nil, err
			}
		}
	}

	orderCtx := &CompileContext{Catalog: c.Catalog, Kind: c.Kind, ConditionIndex: orderConditionIndex, Planner: planner, Params: params, Axes: c.Axes, With: withR}
	orderCols := make([]AliasedColumn, 0, len(order))
	for _, t := range order {
		col, _, err := orderCtx.resolve(t.Path)
		if err != nil {
			return nil, err
		}
		js, err := orderCtx.JoinsFor(t.Path)
		if err != nil {
			return nil, err
		}
		if err := addJoins(js); err != nil {
			return nil, err
		}
		orderCols = append(orderCols, col)
	}

	if cursor != nil && len(order) > 0 && len(cursor.Values) > 0 {
		whereExprs = append(whereExprs, cursorPredicate(order, orderCols, params, cursor))
	}

	w := NewWriter()
	if with := withR.Render(); with != "" {
		w.raw(with)
		w.raw(" ")
	}
	if len(order) > 0 {
		w.raw("SELECT DISTINCT ON (")
		for i, col := range orderCols {
			if i > 0 {
				w.raw(", ")
			}
			w.raw(col.SQL())
		}
		w.raw(") ")
	} else {
		w.raw("SELECT ")
	}
	w.raw(quoteIdent(root.Alias.Name()))
	w.raw(".* FROM ")
	w.raw(root.FromClause())
	for _, j := range joins {
		w.raw(" ")
		w.raw(j.Render())
	}
	if len(whereExprs) > 0 {
		w.raw(" WHERE ")
		And{whereExprs}.write(w)
	}
	if len(order) > 0 {
		w.raw(" ORDER BY ")
		for i, col := range orderCols {
			if i > 0 {
				w.raw(", ")
			}
			w.raw(col.SQL())
			w.raw(" ")
			w.raw(order[i].Direction.sql())
		}
	}
	if limit > 0 {
		w.raw(" LIMIT ")
		w.raw(itoa(limit))
	}

	return &Statement{SQL: w.String(), Args: params.Values()}, nil
}

func (c *SelectCompiler) pinnedColumn() string {
	if c.Axes.PinnedAxis == temporal.DecisionTime {
		return "decision_time"
	}
	return "transaction_time"
}

func (c *SelectCompiler) rangeColumn() string {
	if c.Axes.VariableAxis == temporal.DecisionTime {
		return "decision_time"
	}
	return "transaction_time"
}

// cursorPredicate renders the keyset-pagination row comparison
// `(col1, col2, ...) OP ($a, $b, ...)`, where OP follows the leading ORDER
// BY term's direction (`>` ascending resumes after the cursor, `<`
// descending resumes before it).
func cursorPredicate(order []OrderTerm, cols []AliasedColumn, params *ParamRegistry, cursor *Cursor) Expr {
	op := ">"
	if order[0].Direction == Descending {
		op = "<"
	}
	n := len(cursor.Values)
	if len(cols) < n {
		n = len(cols)
	}
	left := make([]Expr, n)
	right := make([]Expr, n)
	for i := 0; i < n; i++ {
		left[i] = ColumnRef{cols[i]}
		right[i] = params.Bind(cursor.Kinds[i], cursor.Values[i])
	}
	return rowCompare{left: left, right: right, op: op}
}

// rowCompare renders `(l1, l2, ...) OP (r1, r2, ...)`.
type rowCompare struct {
	left  []Expr
	right []Expr
	op    string
}

func (r rowCompare) write(w *Writer) {
	w.raw("(")
	for i, e := range r.left {
		if i > 0 {
			w.raw(", ")
		}
		e.write(w)
	}
	w.raw(") ")
	w.raw(r.op)
	w.raw(" (")
	for i, e := range r.right {
		if i > 0 {
			w.raw(", ")
		}
		e.write(w)
	}
	w.raw(")")
}

// collectPaths extracts every Path a Filter (and its children) references,
// used to plan JOINs for conditions whose own Compile call only returns an
// Expr, not the Paths it touched.
func collectPaths(f Filter) []ontology.Path {
	switch v := f.(type) {
	case Equal:
		return []ontology.Path{v.Path}
	case NotEqual:
		return []ontology.Path{v.Path}
	case Compare:
		return []ontology.Path{v.Path}
	case In:
		return []ontology.Path{v.Path}
	case IsNullFilter:
		return []ontology.Path{v.Path}
	case IsNotNullFilter:
		return []ontology.Path{v.Path}
	case All:
		var out []ontology.Path
		for _, c := range v.Filters {
			out = append(out, collectPaths(c)...)
		}
		return out
	case Any:
		var out []ontology.Path
		for _, c := range v.Filters {
			out = append(out, collectPaths(c)...)
		}
		return out
	case Negate:
		return collectPaths(v.Filter)
	default:
		return nil
	}
}
