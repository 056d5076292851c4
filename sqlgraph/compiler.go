package sqlgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashintel/graphcompiler/ontology"
	"golang.org/x/sync/errgroup"
)

// DataTypeLookup resolves a unit conversion between two data-type URLs, e.g.
// converting a parameter supplied in "celsius" to the "fahrenheit" a column
// expects. It is supplied by the caller; the compiler never interprets the
// URLs itself.
type DataTypeLookup interface {
	Convert(ctx context.Context, value any, fromURL, toURL string) (any, error)
}

// ConvertedParam is a Filter leaf value that must be resolved against a
// DataTypeLookup before it can be bound as a query parameter. Equal,
// NotEqual, Compare and In all accept one in place of a plain value.
type ConvertedParam struct {
	Raw     any
	FromURL string
	ToURL   string

	resolved  any
	resolveOK bool
}

// resolvedValue returns v unchanged unless it is a *ConvertedParam, in which
// case it returns the value AddFilter already resolved — after checking
// that the resolved value's Go type matches what kind requires. Reaching
// Compile on a *ConvertedParam AddFilter never ran on is itself an error.
func resolvedValue(v any, kind ParamKind) (any, error) {
	cp, ok := v.(*ConvertedParam)
	if !ok {
		return v, nil
	}
	if !cp.resolveOK {
		return nil, &DataTypeLookupError{FromURL: cp.FromURL, ToURL: cp.ToURL, Reason: "value was never resolved; call Compiler.AddFilter before Compile"}
	}
	if err := validateParamKind(kind, cp.resolved); err != nil {
		return nil, err
	}
	return cp.resolved, nil
}

// validateParamKind reports a *ParameterConversionError when value's Go
// type does not match what a bound parameter of kind requires — catching a
// DataTypeLookup that converted to the wrong shape (e.g. returned a string
// where the column expects a timestamp) before it reaches the database
// driver as a silently mistyped bind.
func validateParamKind(kind ParamKind, value any) error {
	var ok bool
	switch kind {
	case ParamText, ParamJSONPath:
		_, ok = value.(string)
	case ParamUUID:
		_, ok = value.(uuid.UUID)
	case ParamTimestamp:
		_, ok = value.(time.Time)
	case ParamUUIDArray:
		_, ok = value.([]any)
	default:
		ok = true
	}
	if !ok {
		return &ParameterConversionError{Kind: kind, Got: value}
	}
	return nil
}

// DataTypeLookupError reports that a DataTypeLookup either failed or, as
// detected by Compile, returned a value whose resolution never completed.
type DataTypeLookupError struct {
	FromURL string
	ToURL   string
	Reason  string
}

// Error implements the error interface.
func (e *DataTypeLookupError) Error() string {
	return fmt.Sprintf("sqlgraph: data type lookup %s -> %s: %s", e.FromURL, e.ToURL, e.Reason)
}

// Compiler owns one DataTypeLookup and turns caller-built Filter trees into
// compiled conditions, resolving every ConvertedParam leaf first.
type Compiler struct {
	Catalog *ontology.Catalog
	Lookup  DataTypeLookup
}

// NewCompiler returns a Compiler backed by catalog and lookup.
func NewCompiler(catalog *ontology.Catalog, lookup DataTypeLookup) *Compiler {
	return &Compiler{Catalog: catalog, Lookup: lookup}
}

// AddFilter resolves every ConvertedParam reachable from f (see
// ResolveConversions), then compiles f against cctx.
func (c *Compiler) AddFilter(ctx context.Context, cctx *CompileContext, f Filter) (Expr, error) {
	if err := c.ResolveConversions(ctx, f); err != nil {
		return nil, err
	}
	return f.Compile(cctx)
}

// ResolveConversions resolves every ConvertedParam reachable from f
// concurrently — one DataTypeLookup call per ConvertedParam leaf, fanned
// out with errgroup — writing each result back into its ConvertedParam so
// a later f.Compile call (whether via AddFilter or a SelectCompiler that
// owns f directly) reads a concrete value. Filters with no ConvertedParam
// leaves return immediately without touching the Lookup.
func (c *Compiler) ResolveConversions(ctx context.Context, f Filter) error {
	pending := collectConversions(f)
	if len(pending) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, cp := range pending {
		cp := cp
		g.Go(func() error {
			resolved, err := c.Lookup.Convert(gctx, cp.Raw, cp.FromURL, cp.ToURL)
			if err != nil {
				return &DataTypeLookupError{FromURL: cp.FromURL, ToURL: cp.ToURL, Reason: err.Error()}
			}
			cp.resolved = resolved
			cp.resolveOK = true
			return nil
		})
	}
	return g.Wait()
}

// collectConversions walks f (and its children) for every *ConvertedParam
// leaf, so AddFilter can resolve them all before a single Compile call
// reads any of them.
func collectConversions(f Filter) []*ConvertedParam {
	addIfConverted := func(out []*ConvertedParam, v any) []*ConvertedParam {
		if cp, ok := v.(*ConvertedParam); ok {
			return append(out, cp)
		}
		return out
	}
	var out []*ConvertedParam
	switch v := f.(type) {
	case Equal:
		out = addIfConverted(out, v.Value)
	case NotEqual:
		out = addIfConverted(out, v.Value)
	case Compare:
		out = addIfConverted(out, v.Value)
	case In:
		for _, value := range v.Values {
			out = addIfConverted(out, value)
		}
	case All:
		for _, child := range v.Filters {
			out = append(out, collectConversions(child)...)
		}
	case Any:
		for _, child := range v.Filters {
			out = append(out, collectConversions(child)...)
		}
	case Negate:
		out = append(out, collectConversions(v.Filter)...)
	}
	return out
}
