package sqlgraph_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hashintel/graphcompiler/sqlgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_BindsBoundParametersInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	stmt := &sqlgraph.Statement{
		SQL:  `SELECT "entity_type_0_0_0"."base_url" FROM "entity_types" AS "entity_type_0_0_0" WHERE "entity_type_0_0_0"."base_url" = $1 AND "entity_type_0_0_0"."title" = $2`,
		Args: []any{"https://example.com/types/foo", "Foo"},
	}

	mock.ExpectQuery(`SELECT .* FROM "entity_types"`).
		WithArgs(stmt.Args...).
		WillReturnRows(sqlmock.NewRows([]string{"base_url"}).AddRow("https://example.com/types/foo"))

	rows, err := sqlgraph.Query(context.Background(), db, stmt)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var baseURL string
	require.NoError(t, rows.Scan(&baseURL))
	assert.Equal(t, "https://example.com/types/foo", baseURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_PropagatesDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	stmt := &sqlgraph.Statement{SQL: `SELECT 1`, Args: nil}
	mock.ExpectQuery(`SELECT 1`).WillReturnError(assert.AnError)

	_, err = sqlgraph.Query(context.Background(), db, stmt)
	require.Error(t, err)
}
