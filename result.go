package pgexec

import (
	"bytes"
	"encoding/json"
)

// Data is the payload of a successful Result. It is one of RowSet,
// AffectedRows or ScalarValue.
type Data interface {
	isData()
}

// Column is a single named cell of a Row.
type Column struct {
	Name  string
	Value Value
}

// Row is one result row. Columns keep the order returned by the driver,
// and names keep their case.
type Row []Column

// Get returns the value of the first column called name.
func (r Row) Get(name string) (Value, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return Value{}, false
}

// Names returns the column names in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// MarshalJSON writes the row as a JSON object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := c.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RowSet is the data of a Reader execution.
type RowSet []Row

func (RowSet) isData() {}

// MarshalJSON always writes an array, never null.
func (s RowSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Row(s))
}

// AffectedRows is the data of a NonQuery execution.
type AffectedRows struct {
	AffectedRows int64 `json:"AffectedRows"`
}

func (AffectedRows) isData() {}

// ScalarValue is the data of a Scalar execution. Value is nil when the
// statement returned no rows.
type ScalarValue struct {
	Value *Value `json:"Value"`
}

func (ScalarValue) isData() {}

// Result is the outcome of one Execute call.
type Result struct {
	// Success is true when the statement ran and any transaction committed.
	Success bool `json:"Success"`

	// RecordsAffected is the affected row count, -1 when not applicable,
	// 1 for Scalar executions and 0 for failures.
	RecordsAffected int64 `json:"RecordsAffected"`

	// ErrorMessage describes the failure when Success is false.
	ErrorMessage string `json:"ErrorMessage"`

	// Data is nil for failures.
	Data Data `json:"Data"`
}

type resultJSON struct {
	Success         bool    `json:"Success"`
	RecordsAffected int64   `json:"RecordsAffected"`
	ErrorMessage    *string `json:"ErrorMessage"`
	Data            Data    `json:"Data"`
}

// MarshalJSON writes ErrorMessage as null when empty.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Success:         r.Success,
		RecordsAffected: r.RecordsAffected,
		Data:            r.Data,
	}
	if r.ErrorMessage != "" {
		out.ErrorMessage = &r.ErrorMessage
	}
	return json.Marshal(out)
}

// Rows returns the row set of a Reader result.
func (r *Result) Rows() (RowSet, bool) {
	rows, ok := r.Data.(RowSet)
	return rows, ok
}

// Affected returns the payload of a NonQuery result.
func (r *Result) Affected() (AffectedRows, bool) {
	a, ok := r.Data.(AffectedRows)
	return a, ok
}

// Scalar returns the payload of a Scalar result.
func (r *Result) Scalar() (ScalarValue, bool) {
	s, ok := r.Data.(ScalarValue)
	return s, ok
}

func nonQueryResult(affected int64) *Result {
	return &Result{
		Success:         true,
		RecordsAffected: affected,
		Data:            AffectedRows{AffectedRows: affected},
	}
}

func readerResult(rows RowSet, affected int64) *Result {
	if rows == nil {
		rows = RowSet{}
	}
	return &Result{
		Success:         true,
		RecordsAffected: affected,
		Data:            rows,
	}
}

func scalarResult(v *Value) *Result {
	return &Result{
		Success:         true,
		RecordsAffected: 1,
		Data:            ScalarValue{Value: v},
	}
}

func failureResult(err error) *Result {
	return &Result{
		Success:         false,
		RecordsAffected: 0,
		ErrorMessage:    err.Error(),
	}
}
