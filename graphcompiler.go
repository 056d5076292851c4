// Package graphcompiler wires the Table Catalog, bitemporal axes, Policy
// Filter Synthesizer and Filter Compiler into one entry point: Query.Find
// takes a record kind, caller-authored conditions and a set of
// authorization rules and returns a compiled, ready-to-execute statement.
package graphcompiler

import (
	"context"

	"github.com/hashintel/graphcompiler/ontology"
	"github.com/hashintel/graphcompiler/policy"
	"github.com/hashintel/graphcompiler/sqlgraph"
	"github.com/hashintel/graphcompiler/temporal"
)

// Query is the top-level façade a request handler holds: one Catalog, one
// DataTypeLookup and a fixed set of temporal axes, reused across many
// Find calls.
type Query struct {
	Catalog  *ontology.Catalog
	Compiler *sqlgraph.Compiler
	Axes     temporal.QueryTemporalAxes
}

// NewQuery returns a Query backed by catalog and lookup, with the temporal
// axes now returns at construction (e.g. temporal.Default, which pins
// transaction time and ranges decision time from that instant onward).
func NewQuery(catalog *ontology.Catalog, lookup sqlgraph.DataTypeLookup, now func() temporal.QueryTemporalAxes) *Query {
	return &Query{
		Catalog:  catalog,
		Compiler: sqlgraph.NewCompiler(catalog, lookup),
		Axes:     now(),
	}
}

// Find synthesizes the policy filter from rules and opt, resolves any unit
// conversions the caller's conditions carry, and compiles the combined
// WHERE clause into one statement. A blank Forbid in rules, or rules with
// no Permit at all, short-circuit to a *policy.PolicyDeniedError without
// ever building a Statement, since
// the synthesized filter can only ever match zero rows.
func (q *Query) Find(
	ctx context.Context,
	kind ontology.RecordKind,
	conditions []sqlgraph.Filter,
	rules []policy.Rule,
	opt policy.OptimizationData,
	order []sqlgraph.OrderTerm,
	limit int,
	cursor *sqlgraph.Cursor,
) (*sqlgraph.Statement, error) {
	policyFilter := policy.Synthesize(rules, opt)
	if policy.IsDenyAll(policyFilter) {
		return nil, &policy.PolicyDeniedError{}
	}

	for _, cond := range conditions {
		if err := q.Compiler.ResolveConversions(ctx, cond); err != nil {
			return nil, err
		}
	}

	all := make([]sqlgraph.Filter, 0, len(conditions)+1)
	all = append(all, conditions...)
	all = append(all, policyFilter)

	sel := &sqlgraph.SelectCompiler{Catalog: q.Catalog, Kind: kind, Axes: q.Axes}
	return sel.Compile(all, order, limit, cursor)
}
