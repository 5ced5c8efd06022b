// Package sdi4fserr defines the sentinel errors returned by every SDI4FS
// operation, one family member per error kind the design distinguishes.
package sdi4fserr

import "errors"

var (
	ErrInvalidArgument  = errors.New("sdi4fs: invalid argument")
	ErrNotFound         = errors.New("sdi4fs: not found")
	ErrWrongType        = errors.New("sdi4fs: wrong type")
	ErrAlreadyExists    = errors.New("sdi4fs: already exists")
	ErrOutOfSpace       = errors.New("sdi4fs: out of space")
	ErrCapacityExceeded = errors.New("sdi4fs: capacity exceeded")
	ErrCorruption       = errors.New("sdi4fs: corruption")
)
