package pgexec

import (
	"fmt"
	"strings"
)

// ExecuteType selects how the statement is run and how its outcome is shaped.
type ExecuteType int

const (
	// ExecuteTypeAuto picks Reader or NonQuery from the statement text.
	// See ResolveExecuteType for the exact rules.
	ExecuteTypeAuto ExecuteType = iota

	// ExecuteTypeNonQuery runs the statement without reading rows and
	// reports the affected row count.
	ExecuteTypeNonQuery

	// ExecuteTypeReader runs the statement and materializes every row.
	// Use it for SELECT queries and INSERT/UPDATE/DELETE with RETURNING.
	ExecuteTypeReader

	// ExecuteTypeScalar returns only the first column of the first row.
	ExecuteTypeScalar
)

var executeTypeNames = map[ExecuteType]string{
	ExecuteTypeAuto:     "Auto",
	ExecuteTypeNonQuery: "NonQuery",
	ExecuteTypeReader:   "Reader",
	ExecuteTypeScalar:   "Scalar",
}

// String returns the canonical name.
func (t ExecuteType) String() string {
	if name, ok := executeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ExecuteType(%d)", int(t))
}

func (t ExecuteType) valid() bool {
	_, ok := executeTypeNames[t]
	return ok
}

// ParseExecuteType parses a case-insensitive execute type name.
// "ExecuteReader" is accepted as an alias of Reader.
func ParseExecuteType(s string) (ExecuteType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ExecuteTypeAuto, nil
	case "nonquery", "non_query", "non-query":
		return ExecuteTypeNonQuery, nil
	case "reader", "executereader":
		return ExecuteTypeReader, nil
	case "scalar":
		return ExecuteTypeScalar, nil
	}
	return 0, fmt.Errorf("%w: unsupported execute type %q", ErrInvalidArgument, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ExecuteType) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: unsupported execute type %d", ErrInvalidArgument, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ExecuteType) UnmarshalText(text []byte) error {
	parsed, err := ParseExecuteType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsolationLevel is the transaction isolation level requested by the caller.
type IsolationLevel int

const (
	// IsolationDefault runs the statement in a serializable transaction.
	IsolationDefault IsolationLevel = iota
	IsolationReadCommitted
	// IsolationNone runs the statement directly on the connection without
	// a transaction. A failure can leave partial effects behind.
	IsolationNone
	IsolationSerializable
	IsolationReadUncommitted
	IsolationRepeatableRead
	IsolationSnapshot
)

var isolationNames = map[IsolationLevel]string{
	IsolationDefault:         "Default",
	IsolationReadCommitted:   "ReadCommitted",
	IsolationNone:            "None",
	IsolationSerializable:    "Serializable",
	IsolationReadUncommitted: "ReadUncommitted",
	IsolationRepeatableRead:  "RepeatableRead",
	IsolationSnapshot:        "Snapshot",
}

// String returns the canonical name.
func (l IsolationLevel) String() string {
	if name, ok := isolationNames[l]; ok {
		return name
	}
	return fmt.Sprintf("IsolationLevel(%d)", int(l))
}

// ParseIsolationLevel parses a case-insensitive isolation level name.
// The historical spellings "ReadCommited" and "ReadUncommited" are accepted.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	normalized := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch normalized {
	case "", "default":
		return IsolationDefault, nil
	case "readcommitted", "readcommited":
		return IsolationReadCommitted, nil
	case "none":
		return IsolationNone, nil
	case "serializable":
		return IsolationSerializable, nil
	case "readuncommitted", "readuncommited":
		return IsolationReadUncommitted, nil
	case "repeatableread":
		return IsolationRepeatableRead, nil
	case "snapshot":
		return IsolationSnapshot, nil
	}
	return 0, fmt.Errorf("%w: unsupported isolation level %q", ErrInvalidArgument, s)
}

// MarshalText implements encoding.TextMarshaler.
func (l IsolationLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *IsolationLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseIsolationLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Parameter is a named query parameter.
// The name is referenced from the query using the driver's native
// placeholder syntax: @name for pgx, $1..$n in declaration order for lib/pq.
type Parameter struct {
	Name  string `json:"name" validate:"notblank"`
	Value Value  `json:"value"`
}

// Input describes the statement to run.
type Input struct {
	// Query is the SQL text (required).
	Query string `json:"query" validate:"notblank"`

	// Parameters are bound in order. Names must be unique.
	Parameters []Parameter `json:"parameters,omitempty" validate:"omitempty,unique=Name,dive"`

	// ConnectionString accepts libpq URLs, libpq key/value strings and
	// semicolon separated Host=...;Database=...; strings (required).
	ConnectionString string `json:"connectionString" validate:"notblank"`

	// ExecuteType defaults to Auto.
	ExecuteType ExecuteType `json:"executeType" validate:"executetype"`
}

// Options controls error policy, timeout and transaction behavior.
type Options struct {
	// ThrowErrorOnFailure returns failures as errors when true. When false,
	// every failure is reported as a Result with Success=false instead.
	ThrowErrorOnFailure bool `json:"throwErrorOnFailure"`

	// CommandTimeoutSeconds bounds statement execution. Zero disables it.
	CommandTimeoutSeconds int `json:"commandTimeoutSeconds" validate:"gte=0"`

	// IsolationLevel of the wrapping transaction. None disables the transaction.
	IsolationLevel IsolationLevel `json:"isolationLevel"`
}

// DefaultOptions returns options with ThrowErrorOnFailure enabled,
// a 30 second command timeout and the Default isolation level.
func DefaultOptions() Options {
	return Options{
		ThrowErrorOnFailure:   true,
		CommandTimeoutSeconds: 30,
		IsolationLevel:        IsolationDefault,
	}
}
