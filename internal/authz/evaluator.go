// Package authz implements staff authorization: role default capability
// sets, individually granted or revoked permission overrides, and the
// precedence rule combining them into one allow/deny decision.
package authz

import (
	"fmt"
	"strings"
	"time"
)

// Authorizer resolves allow/deny decisions by combining the role defaults
// table with each staff member's override log. All methods are pure and
// operate on caller-supplied values, so an Authorizer is safe for use from
// any number of goroutines.
type Authorizer struct {
	defaults *RoleDefaults
	now      func() time.Time
}

// NewAuthorizer constructs an Authorizer over the given defaults table.
// A nil table means no role grants anything by default.
func NewAuthorizer(defaults *RoleDefaults) *Authorizer {
	if defaults == nil {
		defaults = NewRoleDefaults(nil)
	}
	return &Authorizer{defaults: defaults, now: time.Now}
}

// Defaults exposes the role defaults table the Authorizer was built with.
func (a *Authorizer) Defaults() *RoleDefaults {
	return a.defaults
}

// IsAllowed reports whether the staff member may perform action on resource.
// An individual override always takes precedence over the role default,
// whether it grants or revokes; with no override the role default governs,
// and an unknown role grants nothing. Empty resource/action or a zero staff
// record is a caller bug and returns ErrInvalidQuery rather than a silent
// denial.
func (a *Authorizer) IsAllowed(staff StaffMember, resource, action string) (bool, error) {
	resource, action, err := validateQuery(staff, resource, action)
	if err != nil {
		return false, err
	}
	if override, ok := latestOverride(staff.Overrides, resource, action); ok {
		return override.Granted, nil
	}
	return a.defaults.Allows(staff.Role, Capability{Resource: resource, Action: action}), nil
}

func validateQuery(staff StaffMember, resource, action string) (string, string, error) {
	if staff.ID == "" {
		return "", "", fmt.Errorf("%w: staff record is required", ErrInvalidQuery)
	}
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" {
		return "", "", fmt.Errorf("%w: resource is required", ErrInvalidQuery)
	}
	if action == "" {
		return "", "", fmt.Errorf("%w: action is required", ErrInvalidQuery)
	}
	return resource, action, nil
}

// latestOverride scans the full override log for the capability and returns
// the entry with the greatest timestamp. The log is not assumed to be in
// chronological order: concurrent editors may append corrections out of
// strict time order. When two entries carry an identical timestamp the one
// later in the list wins, so the resolution is a deterministic total order.
func latestOverride(overrides []PermissionOverride, resource, action string) (PermissionOverride, bool) {
	var best PermissionOverride
	found := false
	for _, o := range overrides {
		if o.Resource != resource || o.Action != action {
			continue
		}
		if !found || !o.Timestamp.Before(best.Timestamp) {
			best = o
			found = true
		}
	}
	return best, found
}
