package authz

import "errors"

var (
	// ErrInvalidQuery indicates IsAllowed was called with an empty resource,
	// an empty action, or a zero staff record. A caller bug, never a denial.
	ErrInvalidQuery = errors.New("authz: invalid query")
	// ErrInvalidMutation indicates Grant or Revoke was called with an empty
	// resource, action, or acting staff identifier.
	ErrInvalidMutation = errors.New("authz: invalid mutation")
)
