package authz

import (
	"fmt"
	"sort"
)

// EffectivePermissions projects the staff member's resolved permission set:
// every capability that is either in the role's defaults or has at least one
// override, each with its current decision and provenance. Entries whose
// value comes from an override carry the most recent override's author,
// timestamp, and reason. The result is sorted by resource then action.
func (a *Authorizer) EffectivePermissions(staff StaffMember) ([]EffectivePermission, error) {
	if staff.ID == "" {
		return nil, fmt.Errorf("%w: staff record is required", ErrInvalidQuery)
	}

	seen := make(map[Capability]struct{})
	var caps []Capability
	for _, c := range a.defaults.DefaultsFor(staff.Role) {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			caps = append(caps, c)
		}
	}
	for _, o := range staff.Overrides {
		c := o.Capability()
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			caps = append(caps, c)
		}
	}
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].Resource != caps[j].Resource {
			return caps[i].Resource < caps[j].Resource
		}
		return caps[i].Action < caps[j].Action
	})

	perms := make([]EffectivePermission, 0, len(caps))
	for _, c := range caps {
		perm := EffectivePermission{Resource: c.Resource, Action: c.Action}
		if override, ok := latestOverride(staff.Overrides, c.Resource, c.Action); ok {
			perm.Granted = override.Granted
			perm.Source = SourceOverride
			perm.LastChangedBy = override.GrantedBy
			perm.LastChangedAt = override.Timestamp
			perm.Reason = override.Reason
		} else {
			perm.Granted = a.defaults.Allows(staff.Role, c)
			perm.Source = SourceRole
		}
		perms = append(perms, perm)
	}
	return perms, nil
}

// History returns every override recorded for the capability, oldest first.
// Entries with identical timestamps keep their stored relative order.
func (a *Authorizer) History(staff StaffMember, resource, action string) ([]PermissionOverride, error) {
	resource, action, err := validateQuery(staff, resource, action)
	if err != nil {
		return nil, err
	}
	var entries []PermissionOverride
	for _, o := range staff.Overrides {
		if o.Resource == resource && o.Action == action {
			entries = append(entries, o)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}
