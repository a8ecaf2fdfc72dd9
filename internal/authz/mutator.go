package authz

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Grant appends an override allowing the capability and returns a new staff
// value; the input is never modified. Granting an already-granted capability
// still appends a record: the append is itself the audit event confirming
// access on that date. No policy check happens here — callers must verify
// that grantedBy may edit permissions before invoking the mutator.
func (a *Authorizer) Grant(staff StaffMember, resource, action, grantedBy, reason string) (StaffMember, error) {
	return a.appendOverride(staff, resource, action, true, grantedBy, reason)
}

// Revoke appends an override denying the capability. Revoking a capability
// the member only held through a role default still appends a record, so the
// denial survives any later widening of the role's defaults.
func (a *Authorizer) Revoke(staff StaffMember, resource, action, grantedBy, reason string) (StaffMember, error) {
	return a.appendOverride(staff, resource, action, false, grantedBy, reason)
}

func (a *Authorizer) appendOverride(staff StaffMember, resource, action string, granted bool, grantedBy, reason string) (StaffMember, error) {
	if staff.ID == "" {
		return StaffMember{}, fmt.Errorf("%w: staff record is required", ErrInvalidMutation)
	}
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	grantedBy = strings.TrimSpace(grantedBy)
	if resource == "" {
		return StaffMember{}, fmt.Errorf("%w: resource is required", ErrInvalidMutation)
	}
	if action == "" {
		return StaffMember{}, fmt.Errorf("%w: action is required", ErrInvalidMutation)
	}
	if grantedBy == "" {
		return StaffMember{}, fmt.Errorf("%w: granted_by is required", ErrInvalidMutation)
	}

	override := PermissionOverride{
		ID:        uuid.New(),
		Resource:  resource,
		Action:    action,
		Granted:   granted,
		GrantedBy: grantedBy,
		Reason:    strings.TrimSpace(reason),
		Timestamp: a.now().UTC(),
	}

	next := staff
	next.Overrides = make([]PermissionOverride, 0, len(staff.Overrides)+1)
	next.Overrides = append(next.Overrides, staff.Overrides...)
	next.Overrides = append(next.Overrides, override)
	return next, nil
}
