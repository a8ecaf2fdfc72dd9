package staff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lumahq/luma/internal/authz"
	"github.com/lumahq/luma/internal/shared"
)

// appendAttempts bounds the retry loop on version conflicts. Each conflict
// means another editor appended first; the re-read picks up their override
// and this edit appends after it.
const appendAttempts = 3

// RepositoryPort defines data access methods for staff records.
type RepositoryPort interface {
	GetStaff(ctx context.Context, id uuid.UUID) (Profile, error)
	ListStaff(ctx context.Context, tenantID uuid.UUID) ([]Profile, error)
	AppendOverride(ctx context.Context, staffID uuid.UUID, o authz.PermissionOverride, expectedVersion int64) error
}

// AuditRecorder persists permission changes to the cross-entity audit log.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// AccessChange describes a permission change for downstream notification.
type AccessChange struct {
	StaffID   uuid.UUID
	Resource  string
	Action    string
	Granted   bool
	ChangedBy string
	Reason    string
}

// Notifier hands a permission change to the background notification queue.
type Notifier interface {
	AccessChanged(ctx context.Context, change AccessChange) error
}

// ChangeRecorder observes permission changes, typically for metrics.
type ChangeRecorder interface {
	RecordPermissionChange(kind string)
}

// ServiceParams groups dependencies for the staff service. Cache, Audit,
// Notifier, and Changes are optional.
type ServiceParams struct {
	Logger     *slog.Logger
	Repo       RepositoryPort
	Authorizer *authz.Authorizer
	Cache      *Cache
	Audit      AuditRecorder
	Notifier   Notifier
	Changes    ChangeRecorder
}

// Service orchestrates staff permission reads and edits: it loads records,
// applies the pure authorization engine, and persists the resulting
// override appends.
type Service struct {
	logger     *slog.Logger
	repo       RepositoryPort
	authorizer *authz.Authorizer
	cache      *Cache
	audit      AuditRecorder
	notifier   Notifier
	changes    ChangeRecorder
}

// NewService builds a Service instance.
func NewService(p ServiceParams) *Service {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:     logger,
		repo:       p.Repo,
		authorizer: p.Authorizer,
		cache:      p.Cache,
		audit:      p.Audit,
		notifier:   p.Notifier,
		changes:    p.Changes,
	}
}

// Get loads one staff member.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	return s.repo.GetStaff(ctx, id)
}

// List returns all staff for a tenant.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Profile, error) {
	return s.repo.ListStaff(ctx, tenantID)
}

// Permissions returns the effective permission projection for a staff
// member, serving from the cache when a current snapshot exists.
func (s *Service) Permissions(ctx context.Context, staffID uuid.UUID) ([]authz.EffectivePermission, error) {
	if perms, ok := s.cache.Fetch(ctx, staffID); ok {
		return perms, nil
	}
	profile, err := s.repo.GetStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	perms, err := s.authorizer.EffectivePermissions(profile.Member())
	if err != nil {
		return nil, err
	}
	if err := s.cache.Store(ctx, staffID, perms); err != nil {
		s.logger.Warn("store permissions cache", slog.String("staff_id", staffID.String()), slog.Any("error", err))
	}
	return perms, nil
}

// History returns every override recorded for one capability, oldest first.
func (s *Service) History(ctx context.Context, staffID uuid.UUID, resource, action string) ([]authz.PermissionOverride, error) {
	profile, err := s.repo.GetStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	return s.authorizer.History(profile.Member(), resource, action)
}

// ChangeRequest describes one permission edit.
type ChangeRequest struct {
	StaffID  uuid.UUID
	Resource string
	Action   string
	Reason   string
	Actor    authz.StaffMember
}

// Grant grants the capability to the target staff member on behalf of the
// acting staff member.
func (s *Service) Grant(ctx context.Context, req ChangeRequest) (Profile, error) {
	return s.applyChange(ctx, req, true)
}

// Revoke revokes the capability from the target staff member on behalf of
// the acting staff member.
func (s *Service) Revoke(ctx context.Context, req ChangeRequest) (Profile, error) {
	return s.applyChange(ctx, req, false)
}

func (s *Service) applyChange(ctx context.Context, req ChangeRequest, granted bool) (Profile, error) {
	// The mutator itself performs no policy check; confirming the actor may
	// edit permissions is this caller's job.
	allowed, err := s.authorizer.IsAllowed(req.Actor, shared.ResourceStaffPermissions, shared.ActionEdit)
	if err != nil {
		return Profile{}, err
	}
	if !allowed {
		return Profile{}, fmt.Errorf("%w: %s", ErrActorForbidden, req.Actor.ID)
	}

	var override authz.PermissionOverride
	for attempt := 0; ; attempt++ {
		profile, err := s.repo.GetStaff(ctx, req.StaffID)
		if err != nil {
			return Profile{}, err
		}

		var updated authz.StaffMember
		if granted {
			updated, err = s.authorizer.Grant(profile.Member(), req.Resource, req.Action, req.Actor.ID, req.Reason)
		} else {
			updated, err = s.authorizer.Revoke(profile.Member(), req.Resource, req.Action, req.Actor.ID, req.Reason)
		}
		if err != nil {
			return Profile{}, err
		}
		override = updated.Overrides[len(updated.Overrides)-1]

		err = s.repo.AppendOverride(ctx, req.StaffID, override, profile.Version)
		if err == nil {
			break
		}
		if errors.Is(err, ErrVersionConflict) && attempt+1 < appendAttempts {
			continue
		}
		return Profile{}, err
	}

	s.afterChange(ctx, req, override, granted)
	return s.repo.GetStaff(ctx, req.StaffID)
}

func (s *Service) afterChange(ctx context.Context, req ChangeRequest, override authz.PermissionOverride, granted bool) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate permissions cache", slog.Any("error", err))
	}

	kind := shared.AuditActionPermissionRevoke
	if granted {
		kind = shared.AuditActionPermissionGrant
	}
	if s.changes != nil {
		s.changes.RecordPermissionChange(kind)
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  req.Actor.ID,
			Action:   kind,
			Entity:   "staff",
			EntityID: req.StaffID.String(),
			Meta: map[string]any{
				"override_id": override.ID.String(),
				"resource":    override.Resource,
				"action":      override.Action,
				"granted":     override.Granted,
				"reason":      override.Reason,
			},
			At: override.Timestamp,
		})
		if err != nil {
			s.logger.Warn("record permission audit", slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		err := s.notifier.AccessChanged(ctx, AccessChange{
			StaffID:   req.StaffID,
			Resource:  override.Resource,
			Action:    override.Action,
			Granted:   override.Granted,
			ChangedBy: override.GrantedBy,
			Reason:    override.Reason,
		})
		if err != nil {
			s.logger.Warn("enqueue access change notification", slog.Any("error", err))
		}
	}
}
