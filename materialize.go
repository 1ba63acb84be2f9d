package pgexec

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/youssefsiam38/pgexec/driver"
)

// cellValue converts a driver decoded cell into a Value. SQL NULL becomes
// an empty Text so serialized rows look the same to every consumer.
func cellValue(v any) Value {
	switch x := v.(type) {
	case nil:
		return Text("")
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint, uint64:
		if val, err := ValueOf(x); err == nil {
			return val
		}
		return Text(fmt.Sprint(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return Text(x)
	case bool:
		return Bool(x)
	case []byte:
		return Bytes(x)
	case time.Time:
		return Time(x)
	case fmt.Stringer:
		return Text(x.String())
	case json.Marshaler:
		if b, err := x.MarshalJSON(); err == nil {
			return Text(string(b))
		}
	case map[string]any, []any:
		if b, err := json.Marshal(x); err == nil {
			return Text(string(b))
		}
	}
	return Text(fmt.Sprint(v))
}

// readRows materializes every remaining row. Cancellation is checked
// before each row is read.
func readRows(ctx context.Context, rows driver.Rows) (RowSet, error) {
	columns := rows.Columns()
	set := RowSet{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !rows.Next() {
			break
		}

		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		row := make(Row, len(columns))
		for i, name := range columns {
			var cell any
			if i < len(values) {
				cell = values[i]
			}
			row[i] = Column{Name: name, Value: cellValue(cell)}
		}
		set = append(set, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return set, nil
}

// readScalar returns the first column of the first row, or nil when the
// statement produced no rows. Remaining rows are discarded by Close.
func readScalar(ctx context.Context, rows driver.Rows) (*Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating rows: %w", err)
		}
		return nil, nil
	}

	values, err := rows.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	v := cellValue(values[0])
	return &v, nil
}
