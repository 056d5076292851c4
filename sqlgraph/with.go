package sqlgraph

import "strings"

// renderedCTE is one materialized common-table-expression.
type renderedCTE struct {
	Name string
	Body string
}

// WithRewriter collects the CTEs a statement needs to resolve "latest
// version" comparisons before the main SELECT runs: a windowed query adding
// a latest_version column computed per partitionBy group, registered under
// table's own name. Postgres resolves unqualified references to table
// outside this CTE's own body against the CTE (table-name shadowing), while
// the CTE's body itself still resolves table to the real underlying table
// (a non-recursive CTE is not visible to itself) — so no other rendering
// code needs to change once the CTE is registered this way. One WithRewriter
// is shared by every condition in a statement so two conditions needing the
// same latest-version view reuse a single CTE.
type WithRewriter struct {
	byTable map[string]string
	ctes    []renderedCTE
}

// NewWithRewriter returns an empty rewriter.
func NewWithRewriter() *WithRewriter {
	return &WithRewriter{byTable: make(map[string]string)}
}

// LatestVersion registers (on first use) and returns the name of the CTE
// exposing table's rows alongside a `latest_version` column holding
// `MAX(versionColumn) OVER (PARTITION BY partitionBy)`. The CTE is named
// identically to table itself.
func (r *WithRewriter) LatestVersion(table string, partitionBy []string, versionColumn string) string {
	if name, ok := r.byTable[table]; ok {
		return name
	}
	name := table
	partition := quoteIdentList(partitionBy)
	body := "SELECT *, MAX(" + quoteIdent(versionColumn) + ") OVER (PARTITION BY " + partition + ") AS latest_version" +
		" FROM " + quoteIdent(table)
	r.ctes = append(r.ctes, renderedCTE{Name: name, Body: body})
	r.byTable[table] = name
	return name
}

// Render returns the full `WITH cte1 AS (...), cte2 AS (...)` clause, or the
// empty string when no CTE was ever requested.
func (r *WithRewriter) Render() string {
	if len(r.ctes) == 0 {
		return ""
	}
	parts := make([]string, len(r.ctes))
	for i, c := range r.ctes {
		parts[i] = quoteIdent(c.Name) + " AS (" + c.Body + ")"
	}
	return "WITH " + strings.Join(parts, ", ")
}

func quoteIdentList(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n)
	}
	return strings.Join(out, ", ")
}
