package ontology_test

import (
	"testing"

	"github.com/hashintel/graphcompiler/ontology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminatingColumn_RootColumn(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	col, json, kind, err := cat.TerminatingColumn(ontology.Entity, ontology.Col(ontology.ColumnUUID))
	require.NoError(t, err)
	assert.Equal(t, ontology.ColumnUUID, col)
	assert.Nil(t, json)
	assert.Equal(t, ontology.Entity, kind)
}

func TestTerminatingColumn_ReferenceColumn(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	col, _, kind, err := cat.TerminatingColumn(ontology.DataType, ontology.Col(ontology.ColumnBaseURL))
	require.NoError(t, err)
	assert.Equal(t, ontology.ColumnBaseURL, col)
	assert.Equal(t, ontology.DataType, kind)
}

func TestRelations_ReferenceColumn_OneJoin(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	rels, kind, err := cat.Relations(ontology.DataType, ontology.Col(ontology.ColumnBaseURL))
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, ontology.AttachReference, rels[0].Kind)
	assert.Equal(t, "data_types", rels[0].FromTable)
	assert.Equal(t, "ontology_id_with_metadata", rels[0].ToTable)
	assert.Equal(t, ontology.DataType, kind)
}

func TestRelations_RootColumn_NoJoins(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	rels, _, err := cat.Relations(ontology.Entity, ontology.Col(ontology.ColumnUUID))
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRelations_TwoHopInheritance(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	path := ontology.Edge(ontology.InheritsFrom,
		ontology.Edge(ontology.InheritsFrom,
			ontology.Col(ontology.ColumnBaseURL)))

	rels, kind, err := cat.Relations(ontology.EntityType, path)
	require.NoError(t, err)
	// 2 edge hops * 2 relations each + 1 terminal reference attach = 5.
	require.Len(t, rels, 5)
	assert.Equal(t, ontology.AttachEdge, rels[0].Kind)
	assert.Equal(t, "entity_type_inherits_from", rels[0].ToTable)
	assert.Equal(t, ontology.AttachEdgeTarget, rels[1].Kind)
	assert.Equal(t, "entity_types", rels[1].ToTable)
	assert.Equal(t, ontology.AttachEdge, rels[2].Kind)
	assert.Equal(t, ontology.AttachEdgeTarget, rels[3].Kind)
	assert.Equal(t, ontology.AttachReference, rels[4].Kind)
	assert.Equal(t, "ontology_id_with_metadata", rels[4].ToTable)
	assert.Equal(t, ontology.EntityType, kind)
}

func TestRelations_EdgeWrongSourceKind(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	_, _, err := cat.Relations(ontology.DataType, ontology.Edge(ontology.InheritsFrom, ontology.Col(ontology.ColumnBaseURL)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ontology.ErrInvalidPath)
}

func TestRelations_DepthOnUnsupportedEdge(t *testing.T) {
	cat := ontology.NewDefaultCatalog()
	_, _, err := cat.Relations(ontology.Entity, ontology.EdgeDepth(ontology.HasLeftEntity, ontology.Outgoing, 1, ontology.Col(ontology.ColumnUUID)))
	require.Error(t, err)
}
