// Package dcerr defines the error kinds raised across the decomposition
// and exchange engine.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package dcerr

import (
	"github.com/pkg/errors"
)

// Sentinel kinds, checked with errors.Is at call sites. There is no
// SUCCESS value: success is reported as a nil error.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMallocFailure   = errors.New("allocation failed")
	ErrMPI             = errors.New("collective operation failed")
)

// InvalidArgument wraps cause with ErrInvalidArgument so errors.Is still
// matches while the original cause remains reachable via errors.Unwrap
// and errors.As (errors.Cause stops at the internal kinded wrapper).
func InvalidArgument(cause error) error {
	return errors.Wrap(join(ErrInvalidArgument, cause), "invalid argument")
}

// Malloc wraps cause with ErrMallocFailure.
func Malloc(cause error) error {
	return errors.Wrap(join(ErrMallocFailure, cause), "allocation failed")
}

// MPI wraps cause with ErrMPI.
func MPI(cause error) error {
	return errors.Wrap(join(ErrMPI, cause), "collective operation failed")
}

// join keeps both sentinels reachable through errors.Is without pulling
// in the stdlib multi-error formatting noise; cause may be nil.
func join(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return &kindedErr{kind: kind, cause: cause}
}

type kindedErr struct {
	kind  error
	cause error
}

func (e *kindedErr) Error() string { return e.cause.Error() }
func (e *kindedErr) Unwrap() error { return e.cause }
func (e *kindedErr) Is(target error) bool {
	return target == e.kind
}
