package staff

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lumahq/luma/internal/authz"
	"github.com/lumahq/luma/internal/platform/httpx"
	"github.com/lumahq/luma/internal/shared"
)

// Handler wires the staff permission JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gates     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gates authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		gates:     gates,
		validator: validator.New(),
	}
}

// MountRoutes registers staff routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gates.Require(shared.ResourceStaff, shared.ActionView))
		r.Get("/", h.listStaff)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gates.Require(shared.ResourceStaffPermissions, shared.ActionView))
		r.Get("/{staffID}/permissions", h.permissions)
		r.Get("/{staffID}/permissions/{resource}/{action}/history", h.history)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gates.Require(shared.ResourceStaffPermissions, shared.ActionEdit))
		r.Post("/{staffID}/permissions/grant", h.grant)
		r.Post("/{staffID}/permissions/revoke", h.revoke)
	})
}

type staffView struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Active   bool   `json:"active"`
}

type permissionView struct {
	Resource      string     `json:"resource"`
	Action        string     `json:"action"`
	Granted       bool       `json:"granted"`
	Source        string     `json:"source"`
	LastChangedBy string     `json:"last_changed_by,omitempty"`
	LastChangedAt *time.Time `json:"last_changed_at,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

type overrideView struct {
	ID        string    `json:"id"`
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	Granted   bool      `json:"granted"`
	GrantedBy string    `json:"granted_by"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type changeForm struct {
	Resource string `json:"resource" validate:"required,max=100"`
	Action   string `json:"action" validate:"required,max=100"`
	Reason   string `json:"reason" validate:"omitempty,max=500"`
}

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
	if err != nil {
		httpx.BadRequest(w, "tenant_id is required")
		return
	}
	profiles, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		h.respondError(w, "list staff", err)
		return
	}
	views := make([]staffView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, staffView{
			ID:       p.ID.String(),
			TenantID: p.TenantID.String(),
			Name:     p.Name,
			Email:    p.Email,
			Role:     string(p.Role),
			Active:   p.Active,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"staff": views})
}

func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	staffID, ok := h.staffID(w, r)
	if !ok {
		return
	}
	perms, err := h.service.Permissions(r.Context(), staffID)
	if err != nil {
		h.respondError(w, "load permissions", err)
		return
	}
	views := make([]permissionView, 0, len(perms))
	for _, p := range perms {
		view := permissionView{
			Resource: p.Resource,
			Action:   p.Action,
			Granted:  p.Granted,
			Source:   string(p.Source),
		}
		if p.Source == authz.SourceOverride {
			view.LastChangedBy = p.LastChangedBy
			at := p.LastChangedAt
			view.LastChangedAt = &at
			view.Reason = p.Reason
		}
		views = append(views, view)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": views})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	staffID, ok := h.staffID(w, r)
	if !ok {
		return
	}
	resource := chi.URLParam(r, "resource")
	action := chi.URLParam(r, "action")

	overrides, err := h.service.History(r.Context(), staffID, resource, action)
	if err != nil {
		h.respondError(w, "load history", err)
		return
	}
	views := make([]overrideView, 0, len(overrides))
	for _, o := range overrides {
		views = append(views, overrideView{
			ID:        o.ID.String(),
			Resource:  o.Resource,
			Action:    o.Action,
			Granted:   o.Granted,
			GrantedBy: o.GrantedBy,
			Reason:    o.Reason,
			Timestamp: o.Timestamp,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": views})
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	h.applyChange(w, r, true)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	h.applyChange(w, r, false)
}

func (h *Handler) applyChange(w http.ResponseWriter, r *http.Request, granted bool) {
	staffID, ok := h.staffID(w, r)
	if !ok {
		return
	}
	actor, ok := authz.StaffFromContext(r.Context())
	if !ok {
		httpx.Forbidden(w, "no staff member resolved")
		return
	}

	var form changeForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.BadRequest(w, "malformed request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.BadRequest(w, validationDetail(err))
		return
	}

	req := ChangeRequest{
		StaffID:  staffID,
		Resource: form.Resource,
		Action:   form.Action,
		Reason:   form.Reason,
		Actor:    actor,
	}

	var (
		profile Profile
		err     error
	)
	if granted {
		profile, err = h.service.Grant(r.Context(), req)
	} else {
		profile, err = h.service.Revoke(r.Context(), req)
	}
	if err != nil {
		h.respondError(w, "apply permission change", err)
		return
	}

	o := profile.Overrides[len(profile.Overrides)-1]
	httpx.JSON(w, http.StatusOK, map[string]any{
		"override": overrideView{
			ID:        o.ID.String(),
			Resource:  o.Resource,
			Action:    o.Action,
			Granted:   o.Granted,
			GrantedBy: o.GrantedBy,
			Reason:    o.Reason,
			Timestamp: o.Timestamp,
		},
	})
}

func (h *Handler) staffID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "staffID"))
	if err != nil {
		httpx.BadRequest(w, "staff id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, "staff member not found")
	case errors.Is(err, ErrActorForbidden):
		httpx.Forbidden(w, "not permitted to edit staff permissions")
	case errors.Is(err, ErrVersionConflict):
		httpx.Conflict(w, "staff record changed concurrently, retry the edit")
	case errors.Is(err, authz.ErrInvalidQuery), errors.Is(err, authz.ErrInvalidMutation):
		httpx.BadRequest(w, err.Error())
	default:
		if h.logger != nil {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.Internal(w)
	}
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldErrs[0].Field() + " is invalid"
	}
	return "invalid request"
}
