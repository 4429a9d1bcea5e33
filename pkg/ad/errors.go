package ad

import (
	"errors"
	"fmt"
)

var (
	ErrPayloadTooLarge = errors.New("ad: payload too large")
	ErrNullElement     = errors.New("ad: element has no data")
	ErrLengthMismatch  = errors.New("ad: element length mismatch")
	ErrMalformed       = errors.New("ad: malformed advertising data")
)

// PayloadTooLargeError reports the computed encoded size and the ceiling it
// exceeded. It matches ErrPayloadTooLarge with errors.Is.
type PayloadTooLargeError struct {
	Size  int
	Limit int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("ad: payload too large: %d bytes exceeds limit of %d", e.Size, e.Limit)
}

func (e *PayloadTooLargeError) Is(target error) bool { return target == ErrPayloadTooLarge }

// NullElementError reports the index of the first element with nil data.
type NullElementError struct {
	Index int
}

func (e *NullElementError) Error() string {
	return fmt.Sprintf("ad: element %d has no data", e.Index)
}

func (e *NullElementError) Is(target error) bool { return target == ErrNullElement }

// LengthMismatchError reports an element whose declared Length differs from
// the length of its data. It matches ErrLengthMismatch with errors.Is.
type LengthMismatchError struct {
	Index  int
	Length int
	Actual int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("ad: element %d declares %d bytes but carries %d", e.Index, e.Length, e.Actual)
}

func (e *LengthMismatchError) Is(target error) bool { return target == ErrLengthMismatch }
