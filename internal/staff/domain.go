package staff

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lumahq/luma/internal/authz"
)

var (
	// ErrNotFound indicates the staff member does not exist.
	ErrNotFound = errors.New("staff: not found")
	// ErrVersionConflict indicates a concurrent edit bumped the staff version
	// between read and append. The write is retried, never merged.
	ErrVersionConflict = errors.New("staff: version conflict")
	// ErrActorForbidden indicates the acting staff member may not edit
	// permissions.
	ErrActorForbidden = errors.New("staff: actor may not edit permissions")
)

// Profile is a staff member as persisted: identity and employment fields
// plus the authorization state (role and override log). Version counts
// override appends and backs optimistic concurrency in the repository.
type Profile struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Email     string
	Role      authz.Role
	Active    bool
	Version   int64
	Overrides []authz.PermissionOverride
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member returns the authorization view of the profile.
func (p Profile) Member() authz.StaffMember {
	return authz.StaffMember{
		ID:        p.ID.String(),
		Role:      p.Role,
		Overrides: p.Overrides,
	}
}
