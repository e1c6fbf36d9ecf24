// Copyright 2024 The vecsort Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sorterrors defines the sort operator's error kinds (spec.md
// §7) as sentinel values, in the spirit of the teacher's
// terror.ClassExecutor.New-style class-of-error idiom, built on
// github.com/pingcap/errors for stack-trace capture on Wrap.
package sorterrors

import (
	"errors"

	pkgerrors "github.com/pingcap/errors"
)

// Error kinds. Each is fatal and propagated to the caller; none is
// locally recoverable (spec.md §7 Policy).
var (
	ErrUpstream     = errors.New("sort: upstream error")
	ErrCancelled    = errors.New("sort: cancelled")
	ErrExpression   = errors.New("sort: sort-key expression error")
	ErrNotSupported = errors.New("sort: operation not supported")
	ErrInternal     = errors.New("sort: internal invariant violation")
)

// kindErr pairs a sentinel kind with a stack-traced cause, so errors.Is
// can still match the kind after the cause has been wrapped.
type kindErr struct {
	kind  error
	cause error
}

func (e *kindErr) Error() string { return e.kind.Error() + ": " + e.cause.Error() }
func (e *kindErr) Unwrap() error { return e.cause }
func (e *kindErr) Is(target error) bool { return target == e.kind }

// Wrap attaches kind to cause, capturing a stack trace via
// github.com/pingcap/errors. errors.Is(result, kind) reports true for
// the returned error. Wrap(kind, nil) returns kind itself.
func Wrap(kind error, cause error) error {
	if cause == nil {
		return kind
	}
	return &kindErr{kind: kind, cause: pkgerrors.Trace(cause)}
}
