package sqlgraph

import (
	"errors"
	"fmt"
	"strings"
)

// IsConstraintError returns true if err resulted from a Postgres constraint
// violation raised while executing a compiled statement.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// errorCoder is implemented by lib/pq's pq.Error and pgx's errors alike.
type errorCoder interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// IsUniqueConstraintError reports if err resulted from a uniqueness
// constraint violation, e.g. re-inserting an edition that already exists.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorCoder](err); ok && e.SQLState() == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "violates unique constraint")
}

// IsForeignKeyConstraintError reports if err resulted from a foreign-key
// constraint violation, e.g. referencing an ontology_id_with_metadata row
// that does not exist.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorCoder](err); ok && e.SQLState() == pgForeignKeyViolation {
		return true
	}
	return strings.Contains(err.Error(), "violates foreign key constraint")
}

// IsCheckConstraintError reports if err resulted from a check constraint
// violation, e.g. a half-open temporal interval with lower > upper.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorCoder](err); ok && e.SQLState() == pgCheckViolation {
		return true
	}
	return strings.Contains(err.Error(), "violates check constraint")
}

// ParameterConversionError reports that a parameter's value, after an
// optional DataTypeLookup conversion, does not have the Go type its
// declared ParamKind requires.
type ParameterConversionError struct {
	Kind ParamKind
	Got  any
}

// Error implements the error interface.
func (e *ParameterConversionError) Error() string {
	return fmt.Sprintf("sqlgraph: parameter of kind %d has wrong Go type %T after conversion", e.Kind, e.Got)
}

// Is allows errors.Is(err, ErrParameterConversion) to succeed for any
// *ParameterConversionError.
func (e *ParameterConversionError) Is(target error) bool { return target == ErrParameterConversion }

// ErrParameterConversion is the sentinel ParameterConversionError instances
// compare equal to via errors.Is.
var ErrParameterConversion = fmt.Errorf("sqlgraph: parameter conversion")

// asError attempts to extract an error implementing interface T from err's
// chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}
