package sqlgraph

import "github.com/lib/pq"

// ParamKind tags the Go-level shape of a bound value: Values() wraps
// ParamUUIDArray values with pq.Array, and validateParamKind checks a
// converted value against it. It does not affect parameter numbering.
type ParamKind int

const (
	ParamText ParamKind = iota
	ParamUUID
	ParamTimestamp
	ParamUUIDArray
	ParamJSONPath
	// ParamTstzRange tags a pre-formatted Postgres tstzrange literal string
	// (see tstzrangeLiteral), bound as one parameter against a `&&` operand
	// rather than as two separate timestamp bounds.
	ParamTstzRange
)

// boundParam is one value registered with a ParamRegistry, in first-emission
// order.
type boundParam struct {
	Kind  ParamKind
	Value any
}

// ParamRegistry numbers bound values in the order Bind is called while a
// statement's filters are compiled, using positional `$N` placeholders bound to
// a flat argument slice. Calling Bind twice with the same registry always
// yields increasing indices — the registry performs no value-based
// deduplication, since repeating a literal (e.g. the same timestamp bound
// on two different conditions) is harmless and deduplicating would only add
// unneeded bookkeeping.
type ParamRegistry struct {
	params []boundParam
}

// NewParamRegistry returns an empty registry.
func NewParamRegistry() *ParamRegistry { return &ParamRegistry{} }

// Bind registers value and returns a Param expression node carrying its
// 1-based placeholder index.
func (r *ParamRegistry) Bind(kind ParamKind, value any) Param {
	r.params = append(r.params, boundParam{Kind: kind, Value: value})
	return Param{Index: len(r.params)}
}

// Values returns the bound argument slice in placeholder order, ready to
// pass as the variadic args to database/sql's QueryContext/ExecContext.
// ParamUUIDArray values are wrapped with pq.Array so the lib/pq driver
// binds them as a Postgres array literal rather than rejecting the bare
// Go slice.
func (r *ParamRegistry) Values() []any {
	out := make([]any, len(r.params))
	for i, p := range r.params {
		if p.Kind == ParamUUIDArray {
			out[i] = pq.Array(p.Value)
			continue
		}
		out[i] = p.Value
	}
	return out
}

// Len reports how many parameters have been bound so far.
func (r *ParamRegistry) Len() int { return len(r.params) }
