package sentinel

import "errors"

// Sentinel errors for store-level facts. Stores return these (optionally
// wrapped) and services translate them into domain errors with context the
// caller can act on:
//   - ErrNotFound: row does not exist
//   - ErrConflict: unique constraint lost to a concurrent writer
//   - ErrExhausted: a conditional counter update found no headroom
//   - ErrUnavailable: backing service temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExhausted   = errors.New("exhausted")
	ErrUnavailable = errors.New("unavailable")
)
