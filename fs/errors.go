package fs

import "github.com/tfg13/sdi4fs/sdi4fserr"

// Local aliases keep call sites in this package terse; every op still
// returns a value wrapping one of sdi4fserr's sentinels, matching §7's
// "implemented as Go sentinel errors" policy.
var (
	errInvalidArgument  = sdi4fserr.ErrInvalidArgument
	errNotFound         = sdi4fserr.ErrNotFound
	errWrongType        = sdi4fserr.ErrWrongType
	errAlreadyExists    = sdi4fserr.ErrAlreadyExists
	errOutOfSpace       = sdi4fserr.ErrOutOfSpace
	errCapacityExceeded = sdi4fserr.ErrCapacityExceeded
	errCorruption       = sdi4fserr.ErrCorruption
)
