package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownDataType is returned for a type name outside the canonical set.
	ErrUnknownDataType = errors.New("unknown data type")

	// ErrUnknownIndexKind is returned for an unrecognised index classification.
	ErrUnknownIndexKind = errors.New("unknown index classification")

	// ErrUnknownAction is returned for an unrecognised foreign key action.
	ErrUnknownAction = errors.New("unknown foreign key action")

	// ErrNoBaseSchema is returned when no document has an empty extension identifier.
	ErrNoBaseSchema = errors.New("no base schema document")

	// ErrMultipleBaseSchemas is returned when more than one document is a base schema.
	ErrMultipleBaseSchemas = errors.New("more than one base schema document")

	// ErrInvalidSchema is matched by every *ValidationError.
	ErrInvalidSchema = errors.New("invalid schema")
)

// ValidationError lists every problem found by Validate.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid schema: %s", strings.Join(e.Problems, "; "))
}

// Is reports whether target is ErrInvalidSchema.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// InvalidExtensionError is returned when an extension identifier is not a UUID.
type InvalidExtensionError struct {
	Extension string
	Cause     error
}

func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("invalid extension identifier %q: %v", e.Extension, e.Cause)
}

func (e *InvalidExtensionError) Unwrap() error {
	return e.Cause
}

// TableClashError is returned when two documents contribute the same table.
type TableClashError struct {
	Table string
	// Existing and Incoming are the contributing sources; "base" for the base schema.
	Existing string
	Incoming string
}

func (e *TableClashError) Error() string {
	return fmt.Sprintf("table name clash: %q is defined by %s and %s", e.Table, e.Existing, e.Incoming)
}

// CycleError is returned by CreateOrder when foreign keys form a cycle.
type CycleError struct {
	// Tables lists the cycle path, starting and ending with the same table.
	Tables []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("foreign key cycle: %s", strings.Join(e.Tables, " -> "))
}
