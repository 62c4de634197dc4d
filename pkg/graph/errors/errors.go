package errors

import (
	"fmt"
)

var ErrInvalidPropertyType = fmt.Errorf("invalid property type")
var ErrInvalidEntity = fmt.Errorf("invalid entity")
var ErrUnknownSchemaLabel = fmt.Errorf("unknown schema label")
var ErrRepresentationMismatch = fmt.Errorf("representation mismatch")
var ErrUnknownLabel = fmt.Errorf("unknown label")
var ErrPropertySetMismatch = fmt.Errorf("property set mismatch")
var ErrPropertyTypeMismatch = fmt.Errorf("property type mismatch")
var ErrPartitionWriteFailure = fmt.Errorf("partition write failure")

type myError struct {
	msg    string
	target error
	cause  error
}

func (m myError) Error() string        { return m.msg }
func (m myError) Is(target error) bool { return target == m.target }
func (m myError) Unwrap() error        { return m.cause }

func NewInvalidPropertyTypeError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrInvalidPropertyType,
	}
}

func NewInvalidEntityError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrInvalidEntity,
	}
}

func NewUnknownSchemaLabelError(label string) error {
	return &myError{
		msg:    fmt.Sprintf("no schema entry for input label \"%s\"", label),
		target: ErrUnknownSchemaLabel,
	}
}

func NewRepresentationMismatchError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrRepresentationMismatch,
	}
}

func NewUnknownLabelError(label string) error {
	return &myError{
		msg:    fmt.Sprintf("label \"%s\" not found in class hierarchy", label),
		target: ErrUnknownLabel,
	}
}

func NewPropertySetMismatchError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrPropertySetMismatch,
	}
}

func NewPropertyTypeMismatchError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrPropertyTypeMismatch,
	}
}

// NewPartitionWriteFailure wraps an underlying storage error so that both the
// sentinel and the cause can be matched with errors.Is
func NewPartitionWriteFailure(path string, cause error) error {
	return &myError{
		msg:    fmt.Sprintf("failed to write %s: %s", path, cause.Error()),
		target: ErrPartitionWriteFailure,
		cause:  cause,
	}
}
