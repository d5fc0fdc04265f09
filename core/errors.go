// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures of the renderer core.
type Kind int

// Failure kinds
const (
	ResourceCreationFailure Kind = iota + 1
	FrameOperationFailure
	ShaderLoadFailure
)

func (k Kind) String() string {
	switch k {
	case ResourceCreationFailure:
		return "resource creation failure"
	case FrameOperationFailure:
		return "frame operation failure"
	case ShaderLoadFailure:
		return "shader load failure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Fail wraps err into a classified Error carrying a stack trace.
func Fail(kind Kind, op string, err error) error {
	return errors.WithStack(&Error{Kind: kind, Op: op, Err: err})
}

// IsKind reports whether err is, or wraps, an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Invariant violations, raised as panics.
var (
	ErrContextInUse     = errors.New("device context still referenced")
	ErrContextDestroyed = errors.New("device context already destroyed")
	ErrReleased         = errors.New("resource already released")
)
