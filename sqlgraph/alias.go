// Package sqlgraph compiles a typed filter/path AST over the ontology and
// knowledge-graph record kinds into a single parameterized PostgreSQL
// statement: WITH-clauses, a FROM clause, a deduplicated chain of JOINs, a
// WHERE clause, and a DISTINCT ON / ORDER BY tail for cursor pagination.
// It generalizes eager-load graph traversal into bitemporal
// ontology/knowledge-graph query compilation.
package sqlgraph

import "fmt"

// Alias uniquely names one appearance of a table in a compiled statement.
// Equality is structural on the triple.
type Alias struct {
	ConditionIndex int
	ChainDepth     int
	Number         int
}

// Name renders the alias as the SQL identifier used in `AS "..."` clauses
// and in every AliasedColumn reference, e.g. "_0_1_0".
func (a Alias) Name() string {
	return fmt.Sprintf("_%d_%d_%d", a.ConditionIndex, a.ChainDepth, a.Number)
}

// AliasedTable pairs a physical table name with the Alias it was given in
// this statement.
type AliasedTable struct {
	Table string
	Alias Alias
}

// FromClause renders `"table" AS "_c_d_n"`.
func (t AliasedTable) FromClause() string {
	return fmt.Sprintf("%s AS %s", quoteIdent(t.Table), quoteIdent(t.Alias.Name()))
}

// AliasedColumn is a column reference qualified by an AliasedTable.
type AliasedColumn struct {
	Table  AliasedTable
	Column string
}

// SQL renders `"_c_d_n"."column"`.
func (c AliasedColumn) SQL() string {
	return fmt.Sprintf("%s.%s", quoteIdent(c.Table.Alias.Name()), quoteIdent(c.Column))
}

// quoteIdent double-quotes a SQL identifier. It never needs to escape
// embedded quotes because every identifier this compiler emits is either a
// catalog-controlled table/column name or a planner-generated alias, never
// user input.
func quoteIdent(s string) string {
	return `"` + s + `"`
}
