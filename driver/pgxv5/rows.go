package pgxv5

import (
	sqldriver "database/sql/driver"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/youssefsiam38/pgexec/driver"
)

// rowsWrapper adapts pgx.Rows to driver.Rows.
type rowsWrapper struct {
	pgx.Rows
}

// Columns returns the result column names in order.
func (r *rowsWrapper) Columns() []string {
	fields := r.Rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Values returns the current row with pgtype wrappers unwrapped.
func (r *rowsWrapper) Values() ([]any, error) {
	values, err := r.Rows.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		values[i] = plain(v)
	}
	return values, nil
}

// RowsAffected returns the command tag count, or -1 for SELECT.
func (r *rowsWrapper) RowsAffected() int64 {
	tag := r.Rows.CommandTag()
	if tag.Select() {
		return -1
	}
	return tag.RowsAffected()
}

// plain converts pgx specific decoded values into basic Go values.
func plain(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		return numeric(x)
	case [16]byte:
		return uuid.UUID(x).String()
	case sqldriver.Valuer:
		// Interval, Time, ranges and friends render via their text form.
		val, err := x.Value()
		if err != nil {
			return nil
		}
		return val
	default:
		return v
	}
}

func numeric(n pgtype.Numeric) any {
	switch {
	case !n.Valid:
		return nil
	case n.NaN:
		return "NaN"
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity"
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity"
	}

	// Value renders the exact decimal text.
	v, err := n.Value()
	if err != nil {
		return nil
	}
	text, ok := v.(string)
	if !ok {
		return v
	}
	return driver.ParseNumeric(text)
}
