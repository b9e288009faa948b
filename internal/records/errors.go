package records

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"tutoring/internal/store"
)

// Kind tags a failure. The HTTP layer reports every kind the same way; the tag
// feeds logs and metrics.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindConnection    Kind = "connection"
	KindConstraint    Kind = "constraint"
	KindQuery         Kind = "query"
)

// Error is a failed records operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindQuery for untagged errors.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return classify(err)
}

// wrap tags err with op and its classified kind. Nil stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

// invalid tags a validation failure for op.
func invalid(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: validationMessage(err)}
}

func classify(err error) Kind {
	switch {
	case store.IsConfigurationError(err):
		return KindConfiguration
	case store.IsConnectionError(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindConnection
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return KindConstraint
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		return KindConstraint
	}
	return KindQuery
}

// validationMessage turns validator output into "FirstName is required" style text.
func validationMessage(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
