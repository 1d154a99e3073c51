package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput   = errors.New("no parsable rows in input")
	ErrNoTextColumn = errors.New("could not determine text column")
)

// BatchClassificationError reports a failed request/response exchange for one batch.
type BatchClassificationError struct {
	Batch int
	Err   error
}

func (e *BatchClassificationError) Error() string {
	return fmt.Sprintf("classify batch %d: %v", e.Batch, e.Err)
}

func (e *BatchClassificationError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the service answered but the payload did not have the
// expected shape. Callers treat it as an empty result set.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed classification response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
