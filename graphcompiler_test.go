package graphcompiler_test

import (
	"context"
	"testing"
	"time"

	"github.com/hashintel/graphcompiler"
	"github.com/hashintel/graphcompiler/ontology"
	"github.com/hashintel/graphcompiler/policy"
	"github.com/hashintel/graphcompiler/sqlgraph"
	"github.com/hashintel/graphcompiler/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLookup struct{}

func (noopLookup) Convert(_ context.Context, value any, _, _ string) (any, error) { return value, nil }

func fixedAxes() temporal.QueryTemporalAxes {
	return temporal.Default(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestQuery_Find_CombinesUserConditionsWithAllowAllPolicy(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	q := graphcompiler.NewQuery(cat, noopLookup{}, fixedAxes)

	conds := []sqlgraph.Filter{
		sqlgraph.Equal{Path: ontology.Col(ontology.ColumnBaseURL), Value: "https://example.com/", Kind: sqlgraph.ParamText},
	}
	rules := []policy.Rule{{Effect: policy.Permit, Constraint: nil}}

	stmt, err := q.Find(context.Background(), ontology.DataType, conds, rules, policy.OptimizationData{}, nil, 0, nil)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE")
	assert.Equal(t, []any{"https://example.com/"}, stmt.Args)
}

func TestQuery_Find_BlankForbid_ShortCircuitsWithoutCompiling(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	q := graphcompiler.NewQuery(cat, noopLookup{}, fixedAxes)

	rules := []policy.Rule{{Effect: policy.Forbid, Constraint: nil}}
	stmt, err := q.Find(context.Background(), ontology.DataType, nil, rules, policy.OptimizationData{}, nil, 0, nil)
	require.Error(t, err)
	assert.Nil(t, stmt)
	var denied *policy.PolicyDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestQuery_Find_ResolvesConvertedParamBeforeCompiling(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	q := graphcompiler.NewQuery(cat, noopLookup{}, fixedAxes)

	cp := &sqlgraph.ConvertedParam{Raw: "https://example.com/", FromURL: "a", ToURL: "b"}
	conds := []sqlgraph.Filter{
		sqlgraph.Equal{Path: ontology.Col(ontology.ColumnBaseURL), Value: cp, Kind: sqlgraph.ParamText},
	}
	rules := []policy.Rule{{Effect: policy.Permit, Constraint: nil}}

	stmt, err := q.Find(context.Background(), ontology.DataType, conds, rules, policy.OptimizationData{}, nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"https://example.com/"}, stmt.Args)
}
