package databasesql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/youssefsiam38/pgexec"
	"github.com/youssefsiam38/pgexec/driver"
	"github.com/youssefsiam38/pgexec/internal/testutil"
)

// newMockExecutor returns an executor whose driver hands out a sqlmock
// database for every Open.
func newMockExecutor(t *testing.T) (*pgexec.Executor, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	drv := New(WithOpener(func(string) (*sql.DB, error) {
		return db, nil
	}))
	return pgexec.New(drv), mock
}

func input(query string, mode pgexec.ExecuteType, params ...pgexec.Parameter) pgexec.Input {
	return pgexec.Input{
		Query:            query,
		Parameters:       params,
		ConnectionString: "Host=localhost;Database=postgres;Port=5432;User Id=postgres;Password=secret;",
		ExecuteType:      mode,
	}
}

func TestDriver_Metadata(t *testing.T) {
	d := New()
	assert.Equal(t, "database/sql", d.Name())
	assert.False(t, d.SupportsSnapshot())
}

func TestPositional(t *testing.T) {
	assert.Nil(t, positional(nil))
	assert.Equal(t, []any{int64(1), "x", nil}, positional([]driver.NamedArg{
		{Name: "id", Value: int64(1)},
		{Name: "selite", Value: "x"},
		{Name: "empty", Value: nil},
	}))
}

func TestIsoLevel(t *testing.T) {
	got, err := isoLevel(driver.IsoLevelSerializable)
	require.NoError(t, err)
	assert.Equal(t, sql.LevelSerializable, got)

	got, err = isoLevel(driver.IsoLevelReadCommitted)
	require.NoError(t, err)
	assert.Equal(t, sql.LevelReadCommitted, got)

	_, err = isoLevel(driver.IsoLevelSnapshot)
	assert.Error(t, err)
}

func TestExecute_NonQueryInTransaction(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE lista SET selite = $1 WHERE id = $2").
		WithArgs("Muutettu", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	res, err := exec.Execute(context.Background(), input(
		"UPDATE lista SET selite = $1 WHERE id = $2",
		pgexec.ExecuteTypeNonQuery,
		pgexec.Parameter{Name: "selite", Value: pgexec.Text("Muutettu")},
		pgexec.Parameter{Name: "id", Value: pgexec.Int(1)},
	), pgexec.DefaultOptions())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, int64(1), res.RecordsAffected)
	affected, ok := res.Affected()
	require.True(t, ok)
	assert.Equal(t, int64(1), affected.AffectedRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_ReaderConvertsColumns(t *testing.T) {
	exec, mock := newMockExecutor(t)

	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("INT4", int64(0)),
		sqlmock.NewColumn("selite").OfType("TEXT", []byte(nil)),
		sqlmock.NewColumn("hinta").OfType("NUMERIC", []byte(nil)),
		sqlmock.NewColumn("kuva").OfType("BYTEA", []byte(nil)),
	).
		AddRow(int64(1), []byte("Ensimmäinen"), []byte("9.50"), []byte{0x01, 0x02}).
		AddRow(int64(4), nil, []byte("3"), nil).
		AddRow(int64(5), []byte("iso"), []byte("12345678901234567.89"), nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, selite, hinta, kuva FROM lista").WillReturnRows(rows)
	mock.ExpectCommit()
	mock.ExpectClose()

	res, err := exec.Execute(context.Background(),
		input("SELECT id, selite, hinta, kuva FROM lista", pgexec.ExecuteTypeAuto),
		pgexec.DefaultOptions())
	require.NoError(t, err)

	set, ok := res.Rows()
	require.True(t, ok)
	require.Len(t, set, 3)
	assert.Equal(t, int64(-1), res.RecordsAffected)
	assert.Equal(t, []string{"id", "selite", "hinta", "kuva"}, set[0].Names())

	first := set[0]
	id, _ := first.Get("id")
	assert.True(t, id.Equal(pgexec.Int(1)))
	selite, _ := first.Get("selite")
	assert.True(t, selite.Equal(pgexec.Text("Ensimmäinen")))
	hinta, _ := first.Get("hinta")
	assert.True(t, hinta.Equal(pgexec.Float(9.5)))
	kuva, _ := first.Get("kuva")
	assert.True(t, kuva.Equal(pgexec.Bytes([]byte{0x01, 0x02})))

	second := set[1]
	selite, _ = second.Get("selite")
	assert.True(t, selite.Equal(pgexec.Text("")))
	hinta, _ = second.Get("hinta")
	assert.True(t, hinta.Equal(pgexec.Int(3)))

	// Too many digits for float64, so the exact text is kept.
	hinta, _ = set[2].Get("hinta")
	assert.True(t, hinta.Equal(pgexec.Text("12345678901234567.89")), "got %s", hinta)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_ScalarWithoutTransaction(t *testing.T) {
	exec, mock := newMockExecutor(t)

	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("count").OfType("INT8", int64(0)),
	).AddRow(int64(4))

	mock.ExpectQuery("SELECT COUNT(*) FROM lista").WillReturnRows(rows)
	mock.ExpectClose()

	opts := pgexec.DefaultOptions()
	opts.IsolationLevel = pgexec.IsolationNone

	res, err := exec.Execute(context.Background(),
		input("SELECT COUNT(*) FROM lista", pgexec.ExecuteTypeScalar), opts)
	require.NoError(t, err)

	scalar, ok := res.Scalar()
	require.True(t, ok)
	require.NotNil(t, scalar.Value)
	assert.True(t, scalar.Value.Equal(pgexec.Int(4)))
	assert.Equal(t, int64(1), res.RecordsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_FailureRollsBack(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lista (id) VALUES ($1)").
		WithArgs("abc").
		WillReturnError(errors.New(`invalid input syntax for type integer: "abc"`))
	mock.ExpectRollback()
	mock.ExpectClose()

	opts := pgexec.DefaultOptions()
	opts.ThrowErrorOnFailure = false

	res, err := exec.Execute(context.Background(), input(
		"INSERT INTO lista (id) VALUES ($1)",
		pgexec.ExecuteTypeNonQuery,
		pgexec.Parameter{Name: "id", Value: pgexec.Text("abc")},
	), opts)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, int64(0), res.RecordsAffected)
	assert.Nil(t, res.Data)
	assert.Contains(t, res.ErrorMessage, "invalid input syntax")
	assert.Contains(t, res.ErrorMessage, "transaction rolled back")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_RollbackFailure(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM lista").WillReturnError(errors.New("boom"))
	mock.ExpectRollback().WillReturnError(errors.New("connection reset"))
	mock.ExpectClose()

	_, err := exec.Execute(context.Background(),
		input("DELETE FROM lista", pgexec.ExecuteTypeNonQuery), pgexec.DefaultOptions())
	require.Error(t, err)

	assert.True(t, errors.Is(err, pgexec.ErrExecution))
	assert.True(t, errors.Is(err, pgexec.ErrRollback))
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_CommandTimeout(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectExec("SELECT pg_sleep(5)").
		WillDelayFor(3 * time.Second).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	opts := pgexec.DefaultOptions()
	opts.IsolationLevel = pgexec.IsolationNone
	opts.CommandTimeoutSeconds = 1

	_, err := exec.Execute(context.Background(),
		input("SELECT pg_sleep(5)", pgexec.ExecuteTypeNonQuery), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgexec.ErrExecution))
	assert.Contains(t, err.Error(), "command timeout of 1s exceeded")
}

func TestIntegration_Driver_Scenarios(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	db.CreateTable(ctx, t, "lista_sql")

	exec := pgexec.New(New())

	res, err := exec.Execute(ctx, pgexec.Input{
		Query:            "SELECT id, selite FROM lista_sql WHERE id <= $1 ORDER BY id",
		Parameters:       []pgexec.Parameter{{Name: "max", Value: pgexec.Int(4)}},
		ConnectionString: db.URL,
		ExecuteType:      pgexec.ExecuteTypeReader,
	}, pgexec.DefaultOptions())
	require.NoError(t, err)

	rows, ok := res.Rows()
	require.True(t, ok)
	require.Len(t, rows, 4)
	selite, _ := rows[3].Get("selite")
	assert.True(t, selite.Equal(pgexec.Text("")))

	res, err = exec.Execute(ctx, pgexec.Input{
		Query:            "DELETE FROM lista_sql WHERE id > $1",
		Parameters:       []pgexec.Parameter{{Name: "min", Value: pgexec.Int(2)}},
		ConnectionString: db.URL,
	}, pgexec.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RecordsAffected)
	assert.Equal(t, 2, db.Count(ctx, t, "lista_sql", ""))

	res, err = exec.Execute(ctx, pgexec.Input{
		Query:            "SELECT id, selite FROM lista_sql WHERE id = $1",
		Parameters:       []pgexec.Parameter{{Name: "id", Value: pgexec.Int(0)}},
		ConnectionString: db.URL,
	}, pgexec.DefaultOptions())
	require.NoError(t, err)
	rows, ok = res.Rows()
	require.True(t, ok)
	assert.Empty(t, rows)
	data, err := res.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", gjson.GetBytes(data, "Data").Raw)

	res, err = exec.Execute(ctx, pgexec.Input{
		Query:            "INSERT INTO lista_sql (id, selite) VALUES ($1, $2)",
		Parameters:       []pgexec.Parameter{{Name: "id", Value: pgexec.Int(6)}, {Name: "selite", Value: pgexec.Text("Kuudes")}},
		ConnectionString: db.URL,
	}, pgexec.DefaultOptions())
	require.NoError(t, err)
	affected, ok := res.Affected()
	require.True(t, ok)
	assert.Equal(t, int64(1), affected.AffectedRows)
	assert.Equal(t, 3, db.Count(ctx, t, "lista_sql", ""))

	res, err = exec.Execute(ctx, pgexec.Input{
		Query:            "SELECT 12345678901234567.89::numeric",
		ConnectionString: db.URL,
		ExecuteType:      pgexec.ExecuteTypeScalar,
	}, pgexec.DefaultOptions())
	require.NoError(t, err)
	scalar, _ := res.Scalar()
	require.NotNil(t, scalar.Value)
	assert.True(t, scalar.Value.Equal(pgexec.Text("12345678901234567.89")), "got %s", scalar.Value)
}
