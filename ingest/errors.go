package ingest

import (
	"errors"
	"fmt"
)

// Sink errors. Implementations classify their failures with errors.Is against
// these sentinels; anything else from a sink is treated as ErrSinkUnavailable.
var (
	// ErrSinkUnavailable means the sink could not be reached (connectivity,
	// timeout, broken transport). Fatal to the run.
	ErrSinkUnavailable = errors.New("sink unavailable")

	// ErrSinkRejected means the sink refused the batch (validation, conflict,
	// gateway-side error). Fatal to the run.
	ErrSinkRejected = errors.New("sink rejected batch")
)

// SourceError reports an unreadable or malformed source. Pos is the 1-based
// position of the record being read when the failure occurred. Always fatal.
type SourceError struct {
	Pos int
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source error at record %d: %v", e.Pos, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// TransformError reports a record that could not be keyed or mapped.
// Recoverable in skip-and-count mode, fatal in fail-fast mode.
type TransformError struct {
	Pos    int
	Key    string
	Reason error
}

func (e *TransformError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("transform record %d (key %q): %v", e.Pos, e.Key, e.Reason)
	}
	return fmt.Sprintf("transform record %d: %v", e.Pos, e.Reason)
}

func (e *TransformError) Unwrap() error { return e.Reason }
