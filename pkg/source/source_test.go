// pkg/source/source_test.go
package source

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

func TestAppendRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockRows := sqlmock.NewRows([]string{"CUSTOMER_ID", "FIRST_NAME", "INCOME", "DATE_OF_BIRTH"}).
		AddRow(int64(1001), []byte("John"), 75000.5, time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC)).
		AddRow(int64(1002), nil, nil, nil)
	mock.ExpectQuery("SELECT \\* FROM customers").WillReturnRows(mockRows)

	rows, err := db.Query("SELECT * FROM customers")
	require.NoError(t, err)
	defer rows.Close()

	table, count, err := appendRows(rows, nil, "customers")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Warehouse-cased column names are lowered
	assert.Equal(t,
		[]string{"customer_id", "first_name", "income", "date_of_birth"},
		table.Fields)

	assert.Equal(t, int64(1001), table.Records[0]["customer_id"])
	assert.Equal(t, "John", table.Records[0]["first_name"])
	assert.Equal(t, 75000.5, table.Records[0]["income"])
	assert.Equal(t, "1985-03-15", table.Records[0]["date_of_birth"])

	assert.Nil(t, table.Records[1]["first_name"])
	assert.Nil(t, table.Records[1]["income"])

	require.NoError(t, table.CheckSchema())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRowsAccumulatesAcrossBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	first := sqlmock.NewRows([]string{"ID"}).AddRow(int64(1)).AddRow(int64(2))
	second := sqlmock.NewRows([]string{"ID"}).AddRow(int64(3))
	mock.ExpectQuery("SELECT \\* FROM customers LIMIT 2 OFFSET 0").WillReturnRows(first)
	mock.ExpectQuery("SELECT \\* FROM customers LIMIT 2 OFFSET 2").WillReturnRows(second)

	rows, err := db.Query("SELECT * FROM customers LIMIT 2 OFFSET 0")
	require.NoError(t, err)
	table, count, err := appendRows(rows, nil, "customers")
	rows.Close()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err = db.Query("SELECT * FROM customers LIMIT 2 OFFSET 2")
	require.NoError(t, err)
	table, count, err = appendRows(rows, table, "customers")
	rows.Close()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Equal(t, 3, table.RowCount())
	assert.Equal(t, int64(1), table.Records[0]["id"])
	assert.Equal(t, int64(3), table.Records[2]["id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRowsDuplicateColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockRows := sqlmock.NewRows([]string{"ID", "id"}).AddRow(int64(1), int64(2))
	mock.ExpectQuery("SELECT").WillReturnRows(mockRows)

	rows, err := db.Query("SELECT * FROM customers")
	require.NoError(t, err)
	defer rows.Close()

	_, _, err = appendRows(rows, nil, "customers")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSchemaMismatch)
}
