package authz

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies a staff role with a fixed default capability set.
type Role string

// Built-in roles. The defaults table may also carry roles outside this list;
// the type is an open string so tenant-specific roles need no code change.
const (
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
	RoleDirector Role = "director"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleStaff    Role = "staff"
	RoleViewer   Role = "viewer"
)

// Capability is one permissible operation: an action on a resource.
// Resources and actions are open vocabularies, not closed enums.
type Capability struct {
	Resource string
	Action   string
}

// String returns the canonical display form, e.g. "billing.refund".
func (c Capability) String() string {
	return c.Resource + "." + c.Action
}

// PermissionOverride records one explicit grant or revoke of a capability
// for one staff member. Overrides are immutable once appended; a correction
// is a new override with a later timestamp, never an edit.
type PermissionOverride struct {
	ID        uuid.UUID
	Resource  string
	Action    string
	Granted   bool
	GrantedBy string
	Reason    string
	Timestamp time.Time
}

// Capability returns the override's capability pair.
func (o PermissionOverride) Capability() Capability {
	return Capability{Resource: o.Resource, Action: o.Action}
}

// StaffMember is the authorization view of a staff record: a role plus the
// append-only override log. Values are immutable; mutations return a new
// StaffMember so concurrent holders of an old snapshot are never corrupted.
type StaffMember struct {
	ID        string
	Role      Role
	Overrides []PermissionOverride
}

// PermissionSource tells whether an effective permission comes from the
// role default or from an individual override.
type PermissionSource string

const (
	SourceRole     PermissionSource = "role"
	SourceOverride PermissionSource = "override"
)

// EffectivePermission is the resolved allow/deny for one capability together
// with its provenance. It is derived on demand and never persisted.
type EffectivePermission struct {
	Resource      string
	Action        string
	Granted       bool
	Source        PermissionSource
	LastChangedBy string
	LastChangedAt time.Time
	Reason        string
}
