// Package policy synthesizes a sqlgraph.Filter from a permit/forbid resource
// constraint list plus pre-computed optimization-data UUID lists, mirroring
// the authorization engine's output contract without evaluating policy
// itself; the evaluation engine is an out-of-scope collaborator, consumed
// here only as this already-decided input shape.
package policy

import (
	"github.com/google/uuid"
	"github.com/hashintel/graphcompiler/ontology"
	"github.com/hashintel/graphcompiler/sqlgraph"
)

// Effect tags one resource-constraint rule as a grant or a denial.
type Effect int

const (
	Permit Effect = iota
	Forbid
)

// Rule is one (effect, constraint) pair from the ordered collection the
// Policy Filter Synthesizer consumes. Constraint == nil means "blank": a
// permit/forbid with no resource-shape restriction at all.
type Rule struct {
	Effect     Effect
	Constraint sqlgraph.Filter
}

// UUIDList is one optimization-data collapsing candidate: a path the
// synthesized filter compares against, and the UUIDs permitted on it. An
// empty list contributes nothing.
type UUIDList struct {
	Path  ontology.Path
	UUIDs []uuid.UUID
}

// OptimizationData lists pre-computed permitted-UUID sets the authorization
// engine has already resolved, named after the five collapsing candidates
// the synthesizer knows how to fold into the filter tree.
type OptimizationData struct {
	PermittedEntityUUIDs       UUIDList
	PermittedEntityTypeUUIDs   UUIDList
	PermittedPropertyTypeUUIDs UUIDList
	PermittedDataTypeUUIDs     UUIDList
	PermittedWebIDs            UUIDList
}

func (o OptimizationData) lists() []UUIDList {
	return []UUIDList{
		o.PermittedEntityUUIDs,
		o.PermittedEntityTypeUUIDs,
		o.PermittedPropertyTypeUUIDs,
		o.PermittedDataTypeUUIDs,
		o.PermittedWebIDs,
	}
}

// DenyAll is the synthesized deny-everything filter: `Any([])`, which the
// Filter Compiler renders as `FALSE`.
var DenyAll sqlgraph.Filter = sqlgraph.Any{}

// AllowAll is the synthesized allow-everything filter: `All([])`, rendered
// as `TRUE`.
var AllowAll sqlgraph.Filter = sqlgraph.All{}

// Synthesize converts rules and opt into the single compiled filter the
// SelectCompiler ANDs onto a query:
//
//  1. A blank Forbid anywhere in rules short-circuits the whole synthesis to
//     DenyAll — policy short-circuits are emitted immediately, not combined
//     with anything else.
//  2. A blank Permit is remembered (blankPermit).
//  3. Non-blank Permits collect into permits; non-blank Forbids into
//     forbids (the constraint is already a Filter, so collection is just
//     appending it unchanged).
//  4. Each non-empty optimization list appends one extra filter to permits:
//     Equal for a single UUID, In for more than one.
//  5. The final filter is chosen from blankPermit/forbids/permits per the
//     five-way table below.
func Synthesize(rules []Rule, opt OptimizationData) sqlgraph.Filter {
	var blankPermit bool
	var permits, forbids []sqlgraph.Filter

	for _, r := range rules {
		if r.Effect == Forbid && r.Constraint == nil {
			return DenyAll
		}
		switch r.Effect {
		case Permit:
			if r.Constraint == nil {
				blankPermit = true
				continue
			}
			permits = append(permits, r.Constraint)
		case Forbid:
			forbids = append(forbids, r.Constraint)
		}
	}

	for _, list := range opt.lists() {
		if f := collapseUUIDList(list); f != nil {
			permits = append(permits, f)
		}
	}

	switch {
	case blankPermit && len(forbids) == 0:
		return AllowAll
	case blankPermit:
		return sqlgraph.Negate{Filter: sqlgraph.Any{Filters: forbids}}
	case len(permits) == 0:
		return DenyAll
	case len(forbids) != 0:
		return sqlgraph.All{Filters: []sqlgraph.Filter{
			sqlgraph.Any{Filters: permits},
			sqlgraph.Negate{Filter: sqlgraph.Any{Filters: forbids}},
		}}
	default:
		return sqlgraph.Any{Filters: permits}
	}
}

// collapseUUIDList converts a single optimization-data list into Equal (one
// UUID) or In (more than one), or nil when the list is empty.
func collapseUUIDList(list UUIDList) sqlgraph.Filter {
	switch len(list.UUIDs) {
	case 0:
		return nil
	case 1:
		return sqlgraph.Equal{Path: list.Path, Value: list.UUIDs[0], Kind: sqlgraph.ParamUUID}
	default:
		values := make([]any, len(list.UUIDs))
		for i, u := range list.UUIDs {
			values[i] = u
		}
		return sqlgraph.In{Path: list.Path, Values: values, Kind: sqlgraph.ParamUUIDArray}
	}
}
