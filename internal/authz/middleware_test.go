package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedDecision struct {
	resource string
	action   string
	allowed  bool
}

type stubRecorder struct {
	decisions []recordedDecision
}

func (r *stubRecorder) RecordDecision(resource, action string, allowed bool) {
	r.decisions = append(r.decisions, recordedDecision{resource: resource, action: action, allowed: allowed})
}

func gateRequest(t *testing.T, mw Middleware, staff *StaffMember, resource, action string) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := mw.Require(resource, action)(next)

	req := httptest.NewRequest(http.MethodGet, "/inventory", nil)
	if staff != nil {
		req = req.WithContext(ContextWithStaff(req.Context(), *staff))
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRequireAllowsByRoleDefault(t *testing.T) {
	recorder := &stubRecorder{}
	mw := Middleware{Authorizer: NewAuthorizer(testDefaults()), Decisions: recorder}
	staff := StaffMember{ID: "s-1", Role: RoleStaff}

	rr := gateRequest(t, mw, &staff, "appointments", "view")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, []recordedDecision{{resource: "appointments", action: "view", allowed: true}}, recorder.decisions)
}

func TestRequireForbidsWithoutStaff(t *testing.T) {
	mw := Middleware{Authorizer: NewAuthorizer(testDefaults())}
	rr := gateRequest(t, mw, nil, "appointments", "view")
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequireForbidsOnRevokedOverride(t *testing.T) {
	mw := Middleware{Authorizer: NewAuthorizer(testDefaults())}
	staff := StaffMember{
		ID:   "s-1",
		Role: RoleStaff,
		Overrides: []PermissionOverride{
			override("appointments", "view", false, "admin-1", time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		},
	}
	rr := gateRequest(t, mw, &staff, "appointments", "view")
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequireAnyPassesOnSecondCapability(t *testing.T) {
	mw := Middleware{Authorizer: NewAuthorizer(testDefaults())}
	staff := StaffMember{ID: "s-1", Role: RoleStaff}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := mw.RequireAny(
		Capability{Resource: "billing", Action: "refund"},
		Capability{Resource: "appointments", Action: "view"},
	)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithStaff(req.Context(), staff))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireAnyWithoutCapabilitiesPassesThrough(t *testing.T) {
	mw := Middleware{Authorizer: NewAuthorizer(testDefaults())}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := mw.RequireAny()(next)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
}
