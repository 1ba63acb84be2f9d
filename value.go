package pgexec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValueKind identifies the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindText
	KindBool
	KindBytes
	KindTime
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindTime:
		return "time"
	default:
		return "ValueKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the closed set of scalar values accepted as query parameters and
// produced as result cells. The zero Value is Null.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	b    bool
	raw  []byte
	t    time.Time
}

// Null returns the SQL NULL value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a floating point value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Text returns a text value.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Bytes returns a byte sequence value. A nil slice is Null.
func Bytes(v []byte) Value {
	if v == nil {
		return Null()
	}
	return Value{kind: KindBytes, raw: v}
}

// Time returns a timestamp value.
func Time(v time.Time) Value { return Value{kind: KindTime, t: v} }

// ValueOf converts a plain Go value into a Value.
// Unsupported types return an error wrapping ErrInvalidArgument.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case *Value:
		if x == nil {
			return Null(), nil
		}
		return *x, nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return uintValue(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return uintValue(x)
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case json.Number:
		return numberValue(x)
	case string:
		return Text(x), nil
	case bool:
		return Bool(x), nil
	case []byte:
		return Bytes(x), nil
	case time.Time:
		return Time(x), nil
	case *time.Time:
		if x == nil {
			return Null(), nil
		}
		return Time(*x), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported parameter value type %T", ErrInvalidArgument, v)
	}
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: integer %d overflows int64", ErrInvalidArgument, u)
	}
	return Int(int64(u)), nil
}

func numberValue(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("%w: invalid number %q", ErrInvalidArgument, n.String())
	}
	return Float(f), nil
}

// Kind returns the variant held by v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is SQL NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int returns the integer payload and whether v holds one.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float payload and whether v holds one.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Text returns the text payload and whether v holds one.
func (v Value) Text() (string, bool) { return v.s, v.kind == KindText }

// Bool returns the boolean payload and whether v holds one.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Bytes returns the byte payload and whether v holds one.
func (v Value) Bytes() ([]byte, bool) { return v.raw, v.kind == KindBytes }

// Time returns the timestamp payload and whether v holds one.
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindTime }

// Any returns the native Go representation used when binding to a driver.
// Null returns nil.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindBool:
		return v.b
	case KindBytes:
		return v.raw
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindText:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindTime:
		return v.t.Equal(o.t)
	}
	return false
}

// String renders v for logs.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindBytes:
		return fmt.Sprintf("\\x%x", v.raw)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	}
	return ""
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			// JSON has no representation for these.
			return json.Marshal(strconv.FormatFloat(v.f, 'g', -1, 64))
		}
		return json.Marshal(v.f)
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	default:
		return json.Marshal(v.Any())
	}
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers decode as
// Int, other numbers as Float, strings as Text.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
