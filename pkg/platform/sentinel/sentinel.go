package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors:
//   - ErrNotFound: row or key does not exist
//   - ErrAlreadyUsed: a unique value (email, org name, username) is taken
//   - ErrUnavailable: the backing store cannot be reached
//   - ErrBrokenReference: a foreign key points at a row that does not exist
//
// Input validation failures never use sentinels; use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")

	ErrBrokenReference = errors.New("broken reference")
)
