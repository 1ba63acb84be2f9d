package pgexec

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/youssefsiam38/pgexec/driver"
	"github.com/youssefsiam38/pgexec/internal/connstr"
)

// command is the executable form of one invocation.
type command struct {
	sql        string
	args       []driver.NamedArg
	mode       ExecuteType
	timeout    time.Duration
	isolation  driver.IsoLevel
	connString string
}

// inTransaction reports whether the command runs inside a transaction.
func (c *command) inTransaction() bool {
	return c.isolation != driver.IsoLevelUnspecified
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("executetype", func(fl validator.FieldLevel) bool {
			return ExecuteType(fl.Field().Int()).valid()
		})
		validate = v
	})
	return validate
}

// normalize validates the request and builds the command descriptor.
// Cancellation is checked before each parameter is bound.
func normalize(ctx context.Context, in Input, opts Options, supportsSnapshot bool) (*command, error) {
	v := inputValidator()
	if err := v.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if err := v.Struct(opts); err != nil {
		return nil, validationError(err)
	}

	conn, err := connstr.Normalize(in.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	args := make([]driver.NamedArg, 0, len(in.Parameters))
	for _, p := range in.Parameters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Null binds as SQL NULL; everything else keeps its native Go
		// type so the driver can infer the parameter type.
		args = append(args, driver.NamedArg{Name: p.Name, Value: p.Value.Any()})
	}

	return &command{
		sql:        in.Query,
		args:       args,
		mode:       ResolveExecuteType(in.Query, in.ExecuteType),
		timeout:    time.Duration(opts.CommandTimeoutSeconds) * time.Second,
		isolation:  isoLevel(opts.IsolationLevel, supportsSnapshot),
		connString: conn,
	}, nil
}

// validationError converts validator failures into a readable
// ErrInvalidArgument.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}

		switch fe.Tag() {
		case "notblank", "required":
			msgs = append(msgs, field+" is required")
		case "unique":
			msgs = append(msgs, field+" must have unique names")
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param()))
		case "executetype":
			msgs = append(msgs, fmt.Sprintf("%s %v is not supported", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q validation", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidArgument, strings.Join(msgs, "; "))
}
