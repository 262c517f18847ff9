// Copyright (c) The Thanos Authors.
// Licensed under the Apache 2.0 license found in the LICENSE file or at:
//     https://opensource.org/licenses/Apache-2.0

package column

import (
	"errors"
	"fmt"
)

var (
	ErrResourceMissing = errors.New("resource missing")
	ErrAllocation      = errors.New("allocation failed")
	ErrCapacity        = errors.New("capacity exceeded")
	ErrMalformedInput  = errors.New("malformed input")
)

// OpError reports the failing operator together with one of the error kinds above.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Errorf returns an *OpError for op wrapping kind with a formatted detail.
func Errorf(op string, kind error, format string, args ...any) error {
	return &OpError{Op: op, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

// Wrap attributes err to op unless it already carries an operator.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Err: err}
}
