package transfer

import "errors"

// ErrConfirmationRequired guards destructive operations: the caller must
// explicitly confirm before files are deleted or newer copies overwritten.
var ErrConfirmationRequired = errors.New("confirmation required")

// ErrNotFound indicates the requested file exists neither locally, in the
// project space, in the cache, nor on the fileserver.
var ErrNotFound = errors.New("file not found")
