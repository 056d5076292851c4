package sqlgraph

import (
	"fmt"

	"github.com/hashintel/graphcompiler/ontology"
	"github.com/hashintel/graphcompiler/temporal"
)

// CompileContext carries everything a Filter needs to resolve a Path to a
// concrete column and register its own JOINs and parameters. One
// CompileContext is built per top-level filter condition, so ConditionIndex
// is fixed for the lifetime of the context.
type CompileContext struct {
	Catalog        *ontology.Catalog
	Kind           ontology.RecordKind
	ConditionIndex int
	Planner        *JoinPlanner
	Params         *ParamRegistry
	Axes           temporal.QueryTemporalAxes
	With           *WithRewriter
}

// rootConditionIndex is the fixed alias-site the FROM table's own alias is
// allocated under, regardless of which condition resolves a path. Every
// condition selects rows of the same queried record kind, so there is
// exactly one FROM-table row per result and exactly one alias for it; only
// joins *beyond* the root are scoped per-condition so that two conditions
// touching the same multivalued relation (e.g. two different property
// constraints) don't collapse onto a single joined row.
const rootConditionIndex = 0

// resolve walks p from ctx.Kind, planning any JOINs it needs, and returns
// the AliasedColumn (plus JSON sub-selector) the condition should compare
// against.
func (ctx *CompileContext) resolve(p ontology.Path) (AliasedColumn, ontology.JSONPath, error) {
	rels, finalKind, err := ctx.Catalog.Relations(ctx.Kind, p)
	if err != nil {
		return AliasedColumn{}, nil, err
	}
	col, json, _, err := ctx.Catalog.TerminatingColumn(ctx.Kind, p)
	if err != nil {
		return AliasedColumn{}, nil, err
	}

	rc, ok := ctx.Catalog.Record(ctx.Kind)
	if !ok {
		return AliasedColumn{}, nil, &InvalidFilterError{Reason: fmt.Sprintf("record kind %s not in catalog", ctx.Kind)}
	}
	root := ctx.Planner.RootAlias(rootConditionIndex, rc.Root.Table)

	if len(rels) == 0 {
		return AliasedColumn{Table: root, Column: string(col)}, json, nil
	}

	_, last := ctx.Planner.Plan(ctx.ConditionIndex, root, rels)
	_ = finalKind
	return AliasedColumn{Table: last, Column: string(col)}, json, nil
}

// JoinsFor returns the planned JoinExpressions for p without discarding
// them, used by the SelectCompiler to collect every condition's joins into
// the statement's FROM clause.
func (ctx *CompileContext) JoinsFor(p ontology.Path) ([]JoinExpression, error) {
	rels, _, err := ctx.Catalog.Relations(ctx.Kind, p)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, nil
	}
	rc, _ := ctx.Catalog.Record(ctx.Kind)
	root := ctx.Planner.RootAlias(rootConditionIndex, rc.Root.Table)
	exprs, _ := ctx.Planner.Plan(ctx.ConditionIndex, root, rels)
	return exprs, nil
}

func (ctx *CompileContext) columnExpr(p ontology.Path) (Expr, error) {
	col, json, err := ctx.resolve(p)
	if err != nil {
		return nil, err
	}
	base := Expr(ColumnRef{col})
	if len(json) == 0 {
		return base, nil
	}
	// The whole JSON sub-selector is rendered as a single Postgres jsonpath
	// literal the filter compiler binds as a parameter rather than
	// string-concatenating it into the SQL text.
	lit := jsonPathLiteral(json)
	param := ctx.Params.Bind(ParamJSONPath, lit)
	return JSONPathQuery{Column: base, Path: param}, nil
}

// compileLatestVersion resolves p's Version column and rewrites the
// comparison against the "latest" sentinel into `version = latest_version`,
// registering the windowed latest-version CTE on the reference table that
// carries the version column.
func (ctx *CompileContext) compileLatestVersion(p ontology.Path) (Expr, error) {
	col, _, err := ctx.resolve(p)
	if err != nil {
		return nil, err
	}
	ctx.With.LatestVersion(col.Table.Table, []string{"base_url"}, string(ontology.ColumnVersion))
	versionCol := ColumnRef{col}
	latestCol := ColumnRef{AliasedColumn{Table: col.Table, Column: "latest_version"}}
	return BinOp{Left: versionCol, Operator: "=", Right: latestCol}, nil
}

func jsonPathLiteral(path ontology.JSONPath) string {
	out := "$"
	for _, tok := range path {
		if tok.IsIdx {
			out += fmt.Sprintf("[%d]", tok.Index)
			continue
		}
		out += "." + tok.Field
	}
	return out
}

// Filter is the compiled-query condition AST. Every concrete filter knows
// how to turn itself into an Expr given a CompileContext.
type Filter interface {
	Compile(ctx *CompileContext) (Expr, error)
}

// Equal renders `path = value`.
type Equal struct {
	Path  ontology.Path
	Value any
	Kind  ParamKind
}

// Compile implements Filter.
func (f Equal) Compile(ctx *CompileContext) (Expr, error) {
	if f.Path.IsLatestVersionColumn() {
		if s, ok := f.Value.(string); ok && s == "latest" {
			return ctx.compileLatestVersion(f.Path)
		}
	}
	col, err := ctx.columnExpr(f.Path)
	if err != nil {
		return nil, err
	}
	value, err := resolvedValue(f.Value, f.Kind)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return IsNull{col}, nil
	}
	return BinOp{Left: col, Operator: "=", Right: ctx.Params.Bind(f.Kind, value)}, nil
}

// NotEqual renders `path <> value`.
type NotEqual struct {
	Path  ontology.Path
	Value any
	Kind  ParamKind
}

// Compile implements Filter.
func (f NotEqual) Compile(ctx *CompileContext) (Expr, error) {
	col, err := ctx.columnExpr(f.Path)
	if err != nil {
		return nil, err
	}
	value, err := resolvedValue(f.Value, f.Kind)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return Not{IsNull{col}}, nil
	}
	return BinOp{Left: col, Operator: "<>", Right: ctx.Params.Bind(f.Kind, value)}, nil
}

// Compare renders a binary ordering comparison (`<`, `<=`, `>`, `>=`).
type Compare struct {
	Path     ontology.Path
	Operator string
	Value    any
	Kind     ParamKind
}

// Compile implements Filter.
func (f Compare) Compile(ctx *CompileContext) (Expr, error) {
	switch f.Operator {
	case "<", "<=", ">", ">=":
	default:
		return nil, &InvalidFilterError{Reason: fmt.Sprintf("unsupported comparison operator %q", f.Operator)}
	}
	col, err := ctx.columnExpr(f.Path)
	if err != nil {
		return nil, err
	}
	value, err := resolvedValue(f.Value, f.Kind)
	if err != nil {
		return nil, err
	}
	return BinOp{Left: col, Operator: f.Operator, Right: ctx.Params.Bind(f.Kind, value)}, nil
}

// In renders `path = ANY($n)` against a bound array parameter — the Policy
// Synthesizer's UUID-list collapsing produces exactly this filter.
type In struct {
	Path   ontology.Path
	Values []any
	Kind   ParamKind
}

// Compile implements Filter.
func (f In) Compile(ctx *CompileContext) (Expr, error) {
	col, err := ctx.columnExpr(f.Path)
	if err != nil {
		return nil, err
	}
	elemKind := f.Kind
	if elemKind == ParamUUIDArray {
		elemKind = ParamUUID
	}
	values := make([]any, len(f.Values))
	for i, v := range f.Values {
		resolved, err := resolvedValue(v, elemKind)
		if err != nil {
			return nil, err
		}
		values[i] = resolved
	}
	return AnyEq{Left: col, Param: ctx.Params.Bind(f.Kind, values)}, nil
}

// IsNullFilter renders `path IS NULL`.
type IsNullFilter struct{ Path ontology.Path }

// Compile implements Filter.
func (f IsNullFilter) Compile(ctx *CompileContext) (Expr, error) {
	col, err := ctx.columnExpr(f.Path)
	if err != nil {
		return nil, err
	}
	return IsNull{col}, nil
}

// IsNotNullFilter renders `path IS NOT NULL`.
type IsNotNullFilter struct{ Path ontology.Path }

// Compile implements Filter.
func (f IsNotNullFilter) Compile(ctx *CompileContext) (Expr, error) {
	col, err := ctx.columnExpr(f.Path)
	if err != nil {
		return nil, err
	}
	return IsNotNull{col}, nil
}

// All ANDs its children, short-circuiting to TRUE when empty.
type All struct{ Filters []Filter }

// Compile implements Filter.
func (f All) Compile(ctx *CompileContext) (Expr, error) {
	args := make([]Expr, 0, len(f.Filters))
	for _, child := range f.Filters {
		e, err := child.Compile(ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	return And{args}, nil
}

// Any ORs its children, short-circuiting to FALSE when empty.
type Any struct{ Filters []Filter }

// Compile implements Filter.
func (f Any) Compile(ctx *CompileContext) (Expr, error) {
	args := make([]Expr, 0, len(f.Filters))
	for _, child := range f.Filters {
		e, err := child.Compile(ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	return Or{args}, nil
}

// Negate renders `NOT (child)`.
type Negate struct{ Filter Filter }

// Compile implements Filter.
func (f Negate) Compile(ctx *CompileContext) (Expr, error) {
	e, err := f.Filter.Compile(ctx)
	if err != nil {
		return nil, err
	}
	return Not{e}, nil
}

// TemporalContainment renders the bitemporal predicate that pins one axis to
// a point in time and constrains the other to overlap a range, injected once
// per queried root/reference table rather than expressed by the caller.
type TemporalContainment struct {
	Table     AliasedTable
	PinnedCol string
	RangeCol  string
}

// Compile implements Filter. It resolves no Path against ctx.Kind — the
// table/columns are supplied directly because this filter is synthesized by
// the SelectCompiler, never authored by a caller.
func (f TemporalContainment) Compile(ctx *CompileContext) (Expr, error) {
	pinned := ColumnRef{AliasedColumn{Table: f.Table, Column: f.PinnedCol}}
	pinnedParam := ctx.Params.Bind(ParamTimestamp, ctx.Axes.PinnedAt)
	pinnedPred := BinOp{Left: pinned, Operator: "@>", Right: Cast{Inner: pinnedParam, Type: "TIMESTAMPTZ"}}

	resolved, err := ctx.Axes.VariableRange.Resolve(ctx.Axes.PinnedAt)
	if err != nil {
		return nil, &InvalidFilterError{Reason: err.Error()}
	}
	rangeParam := ctx.Params.Bind(ParamTstzRange, tstzrangeLiteral(resolved))
	varCol := ColumnRef{AliasedColumn{Table: f.Table, Column: f.RangeCol}}
	varPred := BinOp{Left: varCol, Operator: "&&", Right: rangeParam}

	return And{[]Expr{pinnedPred, varPred}}, nil
}

// InvalidFilterError reports a Filter that cannot be compiled against the
// supplied CompileContext.
type InvalidFilterError struct{ Reason string }

// Error implements the error interface.
func (e *InvalidFilterError) Error() string {
	return "sqlgraph: invalid filter: " + e.Reason
}

// Is allows errors.Is(err, ErrInvalidFilter) to succeed for any
// *InvalidFilterError.
func (e *InvalidFilterError) Is(target error) bool { return target == ErrInvalidFilter }

// ErrInvalidFilter is the sentinel InvalidFilterError instances compare
// equal to via errors.Is.
var ErrInvalidFilter = fmt.Errorf("sqlgraph: invalid filter")
