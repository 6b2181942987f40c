// internal/domain/homework/errors.go
package homework

import "fmt"

// ShapeError reports a payload that does not have the expected structure.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "unexpected API response shape: " + e.Reason
}

// FieldMissingError reports a homework record without a required key.
type FieldMissingError struct {
	Field string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("key %q is missing in the homework record", e.Field)
}

// UnknownStatusError reports a status code absent from Verdicts.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown homework status: %q", e.Status)
}
