package sqlgraph_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hashintel/graphcompiler/ontology"
	"github.com/hashintel/graphcompiler/sqlgraph"
	"github.com/hashintel/graphcompiler/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAxes() temporal.QueryTemporalAxes {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return temporal.Default(now)
}

func TestSelectCompiler_RootColumnEquality_Deterministic(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	c := &sqlgraph.SelectCompiler{Catalog: cat, Kind: ontology.Entity, Axes: testAxes()}

	id := uuid.New()
	conds := []sqlgraph.Filter{
		sqlgraph.Equal{Path: ontology.Col(ontology.ColumnUUID), Value: id, Kind: sqlgraph.ParamUUID},
	}

	stmt1, err := c.Compile(conds, nil, 0, nil)
	require.NoError(t, err)
	stmt2, err := c.Compile(conds, nil, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, stmt1.SQL, stmt2.SQL, "equivalent ASTs must transpile to byte-identical SQL")
	assert.Contains(t, stmt1.SQL, "SELECT ")
	assert.NotContains(t, stmt1.SQL, "DISTINCT ON", "no ordering was requested, so no DISTINCT ON is emitted")
	assert.Contains(t, stmt1.SQL, `WHERE (`)
	require.Len(t, stmt1.Args, 3, "root alias is bitemporal: pinned param, range param, then the condition's own param")
	assert.Equal(t, id, stmt1.Args[2])
}

func TestSelectCompiler_ReferenceColumn_JoinsOnce(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	c := &sqlgraph.SelectCompiler{Catalog: cat, Kind: ontology.DataType, Axes: testAxes()}

	conds := []sqlgraph.Filter{
		sqlgraph.Equal{Path: ontology.Col(ontology.ColumnBaseURL), Value: "https://example.com/", Kind: sqlgraph.ParamText},
	}
	stmt, err := c.Compile(conds, nil, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, countOccurrences(stmt.SQL, "JOIN"), "a single reference hop must materialize exactly one JOIN")
	assert.Contains(t, stmt.SQL, `"ontology_id_with_metadata"`)
}

func TestSelectCompiler_TwoConditionsOnEdge_GetIndependentAliases(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	c := &sqlgraph.SelectCompiler{Catalog: cat, Kind: ontology.EntityType, Axes: testAxes()}

	conds := []sqlgraph.Filter{
		sqlgraph.Equal{
			Path:  ontology.Edge(ontology.InheritsFrom, ontology.Col(ontology.ColumnBaseURL)),
			Value: "a", Kind: sqlgraph.ParamText,
		},
		sqlgraph.Equal{
			Path:  ontology.Edge(ontology.InheritsFrom, ontology.Col(ontology.ColumnBaseURL)),
			Value: "b", Kind: sqlgraph.ParamText,
		},
	}
	stmt, err := c.Compile(conds, nil, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, countOccurrences(stmt.SQL, "JOIN"), "each condition's edge traversal must plan its own join chain")
	assert.Len(t, stmt.Args, 2)
}

func TestSelectCompiler_CursorPagination_RowCompare(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	c := &sqlgraph.SelectCompiler{Catalog: cat, Kind: ontology.Entity, Axes: testAxes()}

	order := []sqlgraph.OrderTerm{{Path: ontology.Col(ontology.ColumnUUID), Direction: sqlgraph.Ascending}}
	cursor := &sqlgraph.Cursor{Values: []any{uuid.New()}, Kinds: []sqlgraph.ParamKind{sqlgraph.ParamUUID}}

	stmt, err := c.Compile(nil, order, 10, cursor)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, ") > (")
	assert.Contains(t, stmt.SQL, "LIMIT 10")
}

func TestSelectCompiler_InvalidPath_PropagatesError(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	c := &sqlgraph.SelectCompiler{Catalog: cat, Kind: ontology.DataType, Axes: testAxes()}

	conds := []sqlgraph.Filter{
		sqlgraph.Equal{Path: ontology.Edge(ontology.InheritsFrom, ontology.Col(ontology.ColumnBaseURL)), Value: "x", Kind: sqlgraph.ParamText},
	}
	_, err := c.Compile(conds, nil, 0, nil)
	require.Error(t, err)
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}

// normalizeSQL collapses runs of whitespace into a single space and trims
// the ends, so a golden-string comparison is insensitive to incidental
// spacing while still catching any structural difference in the emitted SQL.
func normalizeSQL(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func TestSelectCompiler_VersionedURLFetch_MatchesGoldenSQL(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	c := &sqlgraph.SelectCompiler{Catalog: cat, Kind: ontology.DataType, Axes: testAxes()}

	conds := []sqlgraph.Filter{
		sqlgraph.All{Filters: []sqlgraph.Filter{
			sqlgraph.Equal{Path: ontology.Col(ontology.ColumnBaseURL), Value: "https://blockprotocol.org/@blockprotocol/types/data-type/text/", Kind: sqlgraph.ParamText},
			sqlgraph.Equal{Path: ontology.Col(ontology.ColumnVersion), Value: int64(1), Kind: sqlgraph.ParamText},
		}},
	}

	stmt, err := c.Compile(conds, nil, 0, nil)
	require.NoError(t, err)

	want := `SELECT "_0_0_0".* FROM "data_types" AS "_0_0_0"
		JOIN "ontology_id_with_metadata" AS "_0_1_0" ON "_0_0_0"."ontology_id" = "_0_1_0"."ontology_id"
		WHERE (("_0_1_0"."base_url" = $1 AND "_0_1_0"."version" = $2))`
	assert.Equal(t, normalizeSQL(want), normalizeSQL(stmt.SQL))
	assert.Equal(t, []any{"https://blockprotocol.org/@blockprotocol/types/data-type/text/", int64(1)}, stmt.Args)
}

func TestSelectCompiler_EntityByUUID_MatchesGoldenSQL(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &sqlgraph.SelectCompiler{Catalog: cat, Kind: ontology.Entity, Axes: temporal.Default(now)}

	id := uuid.MustParse("12345678-ABCD-4321-5678-ABCD5555DCBA")
	conds := []sqlgraph.Filter{
		sqlgraph.Equal{Path: ontology.Col(ontology.ColumnUUID), Value: id, Kind: sqlgraph.ParamUUID},
	}

	stmt, err := c.Compile(conds, nil, 0, nil)
	require.NoError(t, err)

	want := `SELECT "_0_0_0".* FROM "entity_temporal_metadata" AS "_0_0_0"
		WHERE (("_0_0_0"."transaction_time" @> $1::TIMESTAMPTZ AND "_0_0_0"."decision_time" && $2) AND "_0_0_0"."entity_uuid" = $3)`
	assert.Equal(t, normalizeSQL(want), normalizeSQL(stmt.SQL))
	require.Len(t, stmt.Args, 3)
	assert.Equal(t, now, stmt.Args[0])
	assert.Equal(t, id, stmt.Args[2])
}

func TestSelectCompiler_EntityTypeInheritsFromEdge_MatchesGoldenSQL(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	c := &sqlgraph.SelectCompiler{Catalog: cat, Kind: ontology.EntityType, Axes: testAxes()}

	conds := []sqlgraph.Filter{
		sqlgraph.Equal{
			Path:  ontology.Edge(ontology.InheritsFrom, ontology.Col(ontology.ColumnBaseURL)),
			Value: "https://blockprotocol.org/@blockprotocol/types/entity-type/link/",
			Kind:  sqlgraph.ParamText,
		},
	}

	stmt, err := c.Compile(conds, nil, 0, nil)
	require.NoError(t, err)

	want := `SELECT "_0_0_0".* FROM "entity_types" AS "_0_0_0"
		LEFT JOIN "entity_type_inherits_from" AS "_0_1_0" ON "_0_0_0"."ontology_id" = "_0_1_0"."source_entity_type_ontology_id"
		LEFT JOIN "entity_types" AS "_0_2_0" ON "_0_1_0"."target_entity_type_ontology_id" = "_0_2_0"."ontology_id"
		JOIN "ontology_id_with_metadata" AS "_0_3_0" ON "_0_2_0"."ontology_id" = "_0_3_0"."ontology_id"
		WHERE ("_0_3_0"."base_url" = $1)`
	assert.Equal(t, normalizeSQL(want), normalizeSQL(stmt.SQL))
	assert.Equal(t, []any{"https://blockprotocol.org/@blockprotocol/types/entity-type/link/"}, stmt.Args)
}
