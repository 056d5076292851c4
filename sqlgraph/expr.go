package sqlgraph

import "strings"

// Expr is a node of the internal SQL expression tree. Transpilation is a
// deterministic depth-first walk emitting text into a Writer; every
// concrete Expr must be pure (no side effects, no reliance on anything but
// its own fields) so that equivalent ASTs produce byte-identical text.
type Expr interface {
	write(w *Writer)
}

// Writer accumulates transpiled SQL text. It does not allocate parameter
// placeholders itself — those are numbered when a Param value is bound into
// the tree (see ParamRegistry) — the Writer only prints the `$N` already
// carried by a Param node.
type Writer struct {
	buf strings.Builder
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// String returns the accumulated SQL text.
func (w *Writer) String() string { return w.buf.String() }

func (w *Writer) raw(s string) { w.buf.WriteString(s) }

// WriteExpr transpiles e into the writer.
func (w *Writer) WriteExpr(e Expr) { e.write(w) }

// ColumnRef references an aliased column.
type ColumnRef struct{ Column AliasedColumn }

func (c ColumnRef) write(w *Writer) { w.raw(c.Column.SQL()) }

// Param is a bound-parameter placeholder, numbered at the time it was
// registered with a ParamRegistry (first emission order), not at transpile
// time.
type Param struct{ Index int }

func (p Param) write(w *Writer) { w.raw("$"); w.raw(itoa(p.Index)) }

// Cast renders `inner::Type`, used where Postgres cannot infer a bound
// parameter's type from its operator alone (e.g. `@>` over a tstzrange
// column has overloads for several operand types).
type Cast struct {
	Inner Expr
	Type  string
}

func (c Cast) write(w *Writer) {
	c.Inner.write(w)
	w.raw("::")
	w.raw(c.Type)
}

// Raw is an escape hatch for pre-rendered SQL fragments the tree does not
// model structurally (e.g. a catalog-controlled function name). It must
// never carry user-supplied text.
type Raw string

func (r Raw) write(w *Writer) { w.raw(string(r)) }

// Paren wraps inner in parentheses.
type Paren struct{ Inner Expr }

func (p Paren) write(w *Writer) {
	w.raw("(")
	p.Inner.write(w)
	w.raw(")")
}

// BinOp renders `left OP right`.
type BinOp struct {
	Left     Expr
	Operator string
	Right    Expr
}

func (b BinOp) write(w *Writer) {
	b.Left.write(w)
	w.raw(" ")
	w.raw(b.Operator)
	w.raw(" ")
	b.Right.write(w)
}

// IsNull renders `expr IS NULL`.
type IsNull struct{ Operand Expr }

func (n IsNull) write(w *Writer) {
	n.Operand.write(w)
	w.raw(" IS NULL")
}

// IsNotNull renders `expr IS NOT NULL`.
type IsNotNull struct{ Operand Expr }

func (n IsNotNull) write(w *Writer) {
	n.Operand.write(w)
	w.raw(" IS NOT NULL")
}

// AnyEq renders `left = ANY($n)`, used for In(path, ParameterList).
type AnyEq struct {
	Left  Expr
	Param Expr
}

func (a AnyEq) write(w *Writer) {
	a.Left.write(w)
	w.raw(" = ANY(")
	a.Param.write(w)
	w.raw(")")
}

// FuncCall renders `name(args[0], args[1], ...)`.
type FuncCall struct {
	Name string
	Args []Expr
}

func (f FuncCall) write(w *Writer) {
	w.raw(f.Name)
	w.raw("(")
	for i, a := range f.Args {
		if i > 0 {
			w.raw(", ")
		}
		a.write(w)
	}
	w.raw(")")
}

// JSONArrowText renders `col ->> 'key'`.
type JSONArrowText struct {
	Column Expr
	Key    string
}

func (j JSONArrowText) write(w *Writer) {
	j.Column.write(w)
	w.raw(" ->> '")
	w.raw(j.Key)
	w.raw("'")
}

// JSONPathQuery renders `jsonb_path_query_first(col, $n::text::jsonpath)`.
type JSONPathQuery struct {
	Column Expr
	Path   Expr
}

func (j JSONPathQuery) write(w *Writer) {
	w.raw("jsonb_path_query_first(")
	j.Column.write(w)
	w.raw(", ")
	j.Path.write(w)
	w.raw("::text::jsonpath)")
}

// And renders `(a AND b AND ...)`; an empty And renders as `TRUE` — the
// Policy Synthesizer's allow-all case collapses to exactly this.
type And struct{ Args []Expr }

func (a And) write(w *Writer) {
	if len(a.Args) == 0 {
		w.raw("TRUE")
		return
	}
	w.raw("(")
	for i, arg := range a.Args {
		if i > 0 {
			w.raw(" AND ")
		}
		arg.write(w)
	}
	w.raw(")")
}

// Or renders `(a OR b OR ...)`; an empty Or renders as `FALSE` (deny-all).
type Or struct{ Args []Expr }

func (o Or) write(w *Writer) {
	if len(o.Args) == 0 {
		w.raw("FALSE")
		return
	}
	w.raw("(")
	for i, arg := range o.Args {
		if i > 0 {
			w.raw(" OR ")
		}
		arg.write(w)
	}
	w.raw(")")
}

// Not renders `NOT (arg)`.
type Not struct{ Arg Expr }

func (n Not) write(w *Writer) {
	w.raw("NOT ")
	w.raw("(")
	n.Arg.write(w)
	w.raw(")")
}

// itoa avoids importing strconv just for this one call site pattern used a
// lot across the tree.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
