package databasesql

import (
	"database/sql"
	"strings"

	"github.com/youssefsiam38/pgexec/driver"
)

// rowsWrapper adapts *sql.Rows to driver.Rows.
type rowsWrapper struct {
	rows  *sql.Rows
	types []string
	err   error
}

// Close closes the Rows.
func (r *rowsWrapper) Close() {
	_ = r.rows.Close()
}

// Err returns any error encountered during iteration or decoding.
func (r *rowsWrapper) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

// Next prepares the next row for reading.
func (r *rowsWrapper) Next() bool {
	return r.rows.Next()
}

// Columns returns the result column names in order.
func (r *rowsWrapper) Columns() []string {
	names, err := r.rows.Columns()
	if err != nil {
		r.err = err
		return nil
	}
	return names
}

// Values scans the current row. lib/pq hands text-format columns back as
// []byte; they become strings unless the column is BYTEA, and NUMERIC
// columns are parsed into numbers when that is exact.
func (r *rowsWrapper) Values() ([]any, error) {
	if r.types == nil {
		columnTypes, err := r.rows.ColumnTypes()
		if err != nil {
			return nil, err
		}
		r.types = make([]string, len(columnTypes))
		for i, ct := range columnTypes {
			r.types[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	}

	values := make([]any, len(r.types))
	dest := make([]any, len(r.types))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, err
	}

	for i, v := range values {
		b, ok := v.([]byte)
		if !ok {
			continue
		}
		switch r.types[i] {
		case "BYTEA":
			values[i] = append([]byte(nil), b...)
		case "NUMERIC":
			values[i] = driver.ParseNumeric(string(b))
		default:
			values[i] = string(b)
		}
	}
	return values, nil
}

// RowsAffected returns -1; database/sql does not expose the command tag
// of a query.
func (r *rowsWrapper) RowsAffected() int64 {
	return -1
}
